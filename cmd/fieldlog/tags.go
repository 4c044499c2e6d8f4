package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags",
	Long:  `Provides commands for listing and pruning tags.`,
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all unique tags",
	Long:  `Lists all unique tags currently stored in the database in alphabetical order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		tags, err := fieldnotes.ListTags(context.Background(), dbConn)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}

		if len(tags) == 0 {
			fmt.Println("No tags found.")
			return nil
		}

		for _, tag := range tags {
			fmt.Println(tag)
		}
		return nil
	},
}

var tagPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete tags no longer attached to any note",
	Long:  `Removes every tag that has no remaining note relations. Tags still in use are kept.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		pruned, err := fieldnotes.PruneUnusedTags(context.Background(), dbConn)
		if err != nil {
			return fmt.Errorf("failed to prune tags: %w", err)
		}

		fmt.Printf("Pruned %d unused tag(s).\n", pruned)
		return nil
	},
}

func initTagsCmd() {
	tagsCmd.AddCommand(tagListCmd, tagPruneCmd)
}
