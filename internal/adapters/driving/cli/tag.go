package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags on indexed files",
}

var tagAddCmd = &cobra.Command{
	Use:   "add [path] [tag]",
	Short: "Attach a tag to a file",
	Long: `Attaches a tag to an indexed file. Tags are case-insensitive
and searchable as tag:name or #name. The file must already be indexed.`,
	Args: cobra.ExactArgs(2),
	RunE: runTagAdd,
}

var tagRemoveCmd = &cobra.Command{
	Use:     "remove [path] [tag]",
	Aliases: []string{"rm"},
	Short:   "Detach a tag from a file",
	Args:    cobra.ExactArgs(2),
	RunE:    runTagRemove,
}

func init() {
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	rootCmd.AddCommand(tagCmd)
}

func runTagAdd(cmd *cobra.Command, args []string) error {
	if tagService == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := tagService.AddTagByPath(context.Background(), path, args[1]); err != nil {
		return fmt.Errorf("tagging %s: %w", path, err)
	}
	cmd.Printf("Tagged %s with #%s\n", path, args[1])
	return nil
}

func runTagRemove(cmd *cobra.Command, args []string) error {
	if tagService == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := tagService.RemoveTagByPath(context.Background(), path, args[1]); err != nil {
		return fmt.Errorf("untagging %s: %w", path, err)
	}
	cmd.Printf("Removed #%s from %s\n", args[1], path)
	return nil
}
