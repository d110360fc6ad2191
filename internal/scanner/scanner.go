// Package scanner walks configured roots and reports every live
// filesystem entry as an observation. The scanner only observes; all
// index mutation happens downstream in the indexer, which is also
// where observations are reconciled against previously stored state.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/logger"
)

// DefaultWorkers is the stat worker count when none is configured.
const DefaultWorkers = 8

// Scanner produces observations for every entry under a set of roots.
type Scanner struct {
	workers int
}

// New creates a scanner with the given stat worker count.
// A non-positive count selects DefaultWorkers.
func New(workers int) *Scanner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scanner{workers: workers}
}

// Run is one in-flight scan. Consumers drain Observations to
// completion (the channel closes when the walk finishes or the context
// is cancelled), then check Err for root-level failures.
type Run struct {
	// ID uniquely identifies this scan run.
	ID string

	// Started is when the run began.
	Started time.Time

	obs  chan domain.Observation
	err  error
	done chan struct{}
}

// Observations returns the stream of observed entries.
func (r *Run) Observations() <-chan domain.Observation {
	return r.obs
}

// Err reports root-level walk failures. Valid once Observations is
// closed. Per-path errors are logged and skipped, never surfaced here.
func (r *Run) Err() error {
	<-r.done
	return r.err
}

// Scan starts walking the roots and returns immediately. The walk
// lists paths on one goroutine per root while a bounded worker pool
// stats each path and emits observations, so directory listing and
// stat I/O overlap.
func (s *Scanner) Scan(ctx context.Context, roots []string) *Run {
	run := &Run{
		ID:      uuid.NewString(),
		Started: time.Now(),
		obs:     make(chan domain.Observation, s.workers*4),
		done:    make(chan struct{}),
	}

	paths := make(chan string, s.workers*4)

	var workers sync.WaitGroup
	workers.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer workers.Done()
			for path := range paths {
				obs, err := Observe(path)
				if err != nil {
					logger.Debug("Scan %s: skipping %s: %v", run.ID, path, err)
					continue
				}
				select {
				case run.obs <- obs:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(run.done)
		defer close(run.obs)
		defer workers.Wait()
		defer close(paths)

		var merr *multierror.Error
		for _, root := range roots {
			logger.Debug("Scan %s: walking root %s", run.ID, root)
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					// Unreadable subtree. Log, skip, keep walking.
					logger.Debug("Scan %s: skipping %s: %v", run.ID, path, err)
					if d != nil && d.IsDir() {
						return fs.SkipDir
					}
					return nil
				}
				select {
				case paths <- path:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil && ctx.Err() == nil {
				merr = multierror.Append(merr, err)
			}
		}
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, err)
		}
		run.err = merr.ErrorOrNil()
	}()

	return run
}

// Observe stats a single path and builds its observation. Symlinks are
// observed themselves, never followed.
func Observe(path string) (domain.Observation, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return domain.Observation{}, err
	}

	obs := domain.Observation{
		Path:       path,
		Kind:       domain.KindFromMode(fi.Mode()),
		Size:       fi.Size(),
		ModTime:    fi.ModTime(),
		ChangeTime: fi.ModTime(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		obs.FileID = domain.FileID{Dev: uint64(st.Dev), Ino: st.Ino}
		obs.ChangeTime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return obs, nil
}
