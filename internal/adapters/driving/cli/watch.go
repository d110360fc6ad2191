package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loupe-search/loupe/internal/logger"
	"github.com/loupe-search/loupe/internal/watcher"
)

var watchDebounceMS int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured roots and keep the index current",
	Long: `Runs the indexing daemon: an initial full scan, then continuous
filesystem watching with periodic rescans. Stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounceMS, "debounce", 0, "event debounce window in milliseconds")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := setup(); err != nil {
		return err
	}

	source, err := watcher.NewSource()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	debounced := watcher.NewDebouncer(source, time.Duration(watchDebounceMS)*time.Millisecond)
	defer func() {
		if err := debounced.Close(); err != nil {
			logger.Warn("Watch: close: %v", err)
		}
	}()

	status, err := indexService.Status(cmd.Context())
	if err != nil {
		return err
	}
	for _, root := range status.Roots {
		if err := debounced.Add(root); err != nil {
			logger.Warn("Watch: root %s: %v", root, err)
		}
		cmd.Printf("Watching %s\n", root)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := svc.Watch(debounced)
	if err := loop.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Stopped.")
	return nil
}
