// Package cli implements the loupe command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	configfile "github.com/loupe-search/loupe/internal/adapters/driven/config/file"
	"github.com/loupe-search/loupe/internal/adapters/driven/storage/sqlite"
	"github.com/loupe-search/loupe/internal/core/ports/driving"
	"github.com/loupe-search/loupe/internal/core/services"
	"github.com/loupe-search/loupe/internal/extractors"
	"github.com/loupe-search/loupe/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services consumed by the commands. Wired by setup, replaceable in
// tests.
var (
	queryService driving.QueryService
	indexService driving.IndexService
	tagService   driving.TagService
)

// store and svc are retained for teardown and daemon wiring.
var (
	store *sqlite.Store
	svc   *services.Service
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "loupe",
	Short: "Local filesystem search",
	Long: `Loupe indexes your files and makes them searchable.

It keeps a local index of file metadata, tags and extracted text
content, updated by full scans and filesystem watching. Queries use a
web-search style language: bare terms, quoted phrases, tag:/ext:/type:/
name:/content: fields, size: and mtime: ranges, AND/OR/- operators and
parentheses.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the CLI. It is the only entry point for main.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// setup wires the real adapters and services. Commands that touch the
// index call it first; pure commands (version) never pay the cost.
func setup() error {
	if svc != nil {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}
	baseDir := filepath.Join(home, ".loupe")

	cfg, err := configfile.NewConfigStore(baseDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, rebuilt, err := sqlite.NewStoreRecovering(filepath.Join(baseDir, "data"))
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	if rebuilt {
		logger.Warn("Index was corrupt and has been reset; run 'loupe index' to rebuild")
	}
	store = st

	roots := cfg.GetStringSlice("index.roots")
	if len(roots) == 0 {
		roots = []string{home}
	}

	rescan := time.Duration(cfg.GetInt("index.rescan_interval_minutes")) * time.Minute
	maxBytes := int64(cfg.GetInt("extract.max_bytes"))
	maxTokens := cfg.GetInt("extract.max_tokens")

	s, err := services.New(
		st.RecordStore(),
		st.PostingIndex(),
		extractors.NewDefaultRegistry(maxBytes, maxTokens),
		services.Options{
			Roots:          roots,
			ScanWorkers:    cfg.GetInt("scan.workers"),
			RescanInterval: rescan,
			Rebuilding:     rebuilt,
		},
	)
	if err != nil {
		return fmt.Errorf("wiring services: %w", err)
	}

	svc = s
	queryService = s.Search
	indexService = s.Index
	tagService = s.Index
	return nil
}

func teardown() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Closing index: %v", err)
		}
		store = nil
	}
	svc = nil
}
