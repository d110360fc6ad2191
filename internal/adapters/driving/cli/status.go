package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	status, err := indexService.Status(context.Background())
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("State:   %s\n", status.State)
	cmd.Printf("Entries: %d\n", status.EntryCount)
	if status.LastScanID != "" {
		cmd.Printf("Last scan: %s (%s)\n", status.LastScanID, humanize.Time(status.LastScanTime))
	} else {
		cmd.Println("Last scan: never")
	}
	for _, root := range status.Roots {
		cmd.Printf("Root:    %s\n", root)
	}
	return nil
}
