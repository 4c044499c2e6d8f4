package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Manage the location history",
	Long:  `Provides commands for recording, listing, and clearing position fixes.`,
}

func renderLocationsTable(records []fieldnotes.LocationRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false

	t.AppendHeader(table.Row{
		text.FgGreen.Sprint("ID"),
		text.FgGreen.Sprint("Time"),
		text.FgGreen.Sprint("Latitude"),
		text.FgGreen.Sprint("Longitude"),
		text.FgGreen.Sprint("Place"),
	})

	for _, rec := range records {
		place := ""
		if rec.LocationName != nil {
			place = *rec.LocationName
		}
		t.AppendRow(table.Row{
			rec.ID,
			time.UnixMilli(rec.Timestamp).Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.5f", rec.Latitude),
			fmt.Sprintf("%.5f", rec.Longitude),
			place,
		})
	}

	t.Render()
}

var locationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a position fix",
	Long:  `Appends a position fix to the location history. The timestamp defaults to now.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")

		rec := fieldnotes.LocationRecord{Latitude: lat, Longitude: lon}
		if cmd.Flags().Changed("timestamp") {
			ts, _ := cmd.Flags().GetInt64("timestamp")
			rec.Timestamp = ts
		}
		if cmd.Flags().Changed("location-name") {
			ln, _ := cmd.Flags().GetString("location-name")
			rec.LocationName = &ln
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		id, err := fieldnotes.AppendLocation(context.Background(), dbConn, rec)
		if err != nil {
			return fmt.Errorf("failed to record location: %w", err)
		}

		fmt.Printf("Location recorded with ID %d.\n", id)
		return nil
	},
}

var locationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded positions newest-first",
	Long:  `Lists the location history, optionally bounded by an inclusive epoch-millisecond time range via --start and --end.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		var start, end *int64
		if cmd.Flags().Changed("start") {
			s, _ := cmd.Flags().GetInt64("start")
			start = &s
		}
		if cmd.Flags().Changed("end") {
			e, _ := cmd.Flags().GetInt64("end")
			end = &e
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		records, err := fieldnotes.QueryLocations(context.Background(), dbConn, start, end)
		if err != nil {
			return fmt.Errorf("failed to query location history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No locations recorded.")
			return nil
		}

		if asJSON {
			output, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format location output: %w", err)
			}
			fmt.Println(string(output))
			return nil
		}

		renderLocationsTable(records)
		return nil
	},
}

var locationLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent recorded position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		rec, err := fieldnotes.LatestLocation(context.Background(), dbConn)
		if err != nil {
			if errors.Is(err, fieldnotes.ErrLocationNotFound) {
				fmt.Println("No locations recorded.")
				return nil
			}
			return fmt.Errorf("failed to read latest location: %w", err)
		}

		output, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format location output: %w", err)
		}
		fmt.Println(string(output))
		return nil
	},
}

var locationClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete recorded positions",
	Long:  `Deletes the location history. With --start and/or --end only the fixes inside the inclusive range are removed; without them the whole history is cleared.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var start, end *int64
		if cmd.Flags().Changed("start") {
			s, _ := cmd.Flags().GetInt64("start")
			start = &s
		}
		if cmd.Flags().Changed("end") {
			e, _ := cmd.Flags().GetInt64("end")
			end = &e
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		ctx := context.Background()
		if start == nil && end == nil {
			if err := fieldnotes.ClearLocationHistory(ctx, dbConn); err != nil {
				return fmt.Errorf("failed to clear location history: %w", err)
			}
			fmt.Println("Location history cleared.")
			return nil
		}

		if err := fieldnotes.DeleteLocationRange(ctx, dbConn, start, end); err != nil {
			return fmt.Errorf("failed to delete location range: %w", err)
		}
		fmt.Println("Location range deleted.")
		return nil
	},
}

func initLocationsCmd() {
	locationAddCmd.Flags().Float64("lat", 0, "Latitude of the fix (required)")
	locationAddCmd.MarkFlagRequired("lat")
	locationAddCmd.Flags().Float64("lon", 0, "Longitude of the fix (required)")
	locationAddCmd.MarkFlagRequired("lon")
	locationAddCmd.Flags().Int64("timestamp", 0, "Fix time as epoch milliseconds (defaults to now)")
	locationAddCmd.Flags().String("location-name", "", "Human-readable place name")

	locationListCmd.Flags().Int64("start", 0, "Inclusive lower bound as epoch milliseconds")
	locationListCmd.Flags().Int64("end", 0, "Inclusive upper bound as epoch milliseconds")
	locationListCmd.Flags().Bool("json", false, "Emit the locations as JSON instead of a table")

	locationClearCmd.Flags().Int64("start", 0, "Inclusive lower bound as epoch milliseconds")
	locationClearCmd.Flags().Int64("end", 0, "Inclusive upper bound as epoch milliseconds")

	locationsCmd.AddCommand(locationAddCmd, locationListCmd, locationLatestCmd, locationClearCmd)
}
