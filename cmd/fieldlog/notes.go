package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage field notes",
	Long:  `Provides commands for creating, listing, searching, getting, updating, and deleting notes.`,
}

func parseNoteID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note ID '%s': must be a positive integer", arg)
	}
	return id, nil
}

func parseTagsFlag(tagsStr string) []string {
	var tagsList []string
	for _, tag := range strings.Split(tagsStr, ",") {
		t := strings.TrimSpace(tag)
		if t != "" {
			tagsList = append(tagsList, t)
		}
	}
	return tagsList
}

func printNoteJSON(n fieldnotes.Note) error {
	output, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format note output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func renderNotesTable(notes []fieldnotes.Note) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false

	t.AppendHeader(table.Row{
		text.FgGreen.Sprint("ID"),
		text.FgGreen.Sprint("Title"),
		text.FgGreen.Sprint("Time"),
		text.FgGreen.Sprint("Location"),
		text.FgGreen.Sprint("Tags"),
		text.FgGreen.Sprint("Fav"),
	})

	for _, n := range notes {
		location := ""
		if n.LocationName != nil {
			location = *n.LocationName
		} else if n.Latitude != nil && n.Longitude != nil {
			location = fmt.Sprintf("%.5f, %.5f", *n.Latitude, *n.Longitude)
		}
		fav := ""
		if n.IsFavorite {
			fav = "*"
		}
		t.AppendRow(table.Row{
			n.ID,
			n.Title,
			time.UnixMilli(n.Timestamp).Format("2006-01-02 15:04"),
			location,
			strings.Join(n.Tags, ", "),
			fav,
		})
	}

	t.Render()
}

var noteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new note",
	Long:  `Creates a new note with the given content and optional title, coordinates, color, and tags. The title may be empty; a placeholder is shown at display time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		tagsStr, _ := cmd.Flags().GetString("tags")

		in := fieldnotes.NoteInput{Title: title, Content: content}
		if err := fieldnotes.ValidateNoteInput(in); err != nil {
			return err
		}
		if cmd.Flags().Changed("timestamp") {
			ts, _ := cmd.Flags().GetInt64("timestamp")
			in.Timestamp = ts
		}
		if cmd.Flags().Changed("lat") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			in.Latitude = &lat
		}
		if cmd.Flags().Changed("lon") {
			lon, _ := cmd.Flags().GetFloat64("lon")
			in.Longitude = &lon
		}
		if cmd.Flags().Changed("location-name") {
			ln, _ := cmd.Flags().GetString("location-name")
			in.LocationName = &ln
		}
		if cmd.Flags().Changed("color") {
			c, _ := cmd.Flags().GetString("color")
			in.Color = &c
		}
		if cmd.Flags().Changed("favorite") {
			fav, _ := cmd.Flags().GetBool("favorite")
			in.IsFavorite = fav
		}
		if tagsStr != "" {
			in.Tags = parseTagsFlag(tagsStr)
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		note, err := fieldnotes.CreateNote(context.Background(), dbConn, in)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}

		fmt.Println("Note created successfully:")
		return printNoteJSON(note)
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes newest-first",
	Long:  `Lists all notes ordered by observation time, newest first. Use --favorites to restrict the listing to favorite notes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		favoritesOnly, _ := cmd.Flags().GetBool("favorites")
		asJSON, _ := cmd.Flags().GetBool("json")

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		ctx := context.Background()
		var notes []fieldnotes.Note
		if favoritesOnly {
			notes, err = fieldnotes.ListFavoriteNotes(ctx, dbConn)
		} else {
			notes, err = fieldnotes.ListNotes(ctx, dbConn)
		}
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}

		if len(notes) == 0 {
			fmt.Println("No notes found.")
			return nil
		}

		if asJSON {
			output, err := json.MarshalIndent(notes, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format notes output: %w", err)
			}
			fmt.Println(string(output))
			return nil
		}

		renderNotesTable(notes)
		return nil
	},
}

var noteSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search notes by title, content, location name, or tag",
	Long:  `Performs a case-insensitive substring search across note titles, contents, location names, and tag names. An empty query matches every note.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		notes, err := fieldnotes.SearchNotes(context.Background(), dbConn, args[0])
		if err != nil {
			return fmt.Errorf("failed to search notes: %w", err)
		}

		if len(notes) == 0 {
			fmt.Println("No notes found matching the query.")
			return nil
		}

		if asJSON {
			output, err := json.MarshalIndent(notes, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format search results: %w", err)
			}
			fmt.Println(string(output))
			return nil
		}

		renderNotesTable(notes)
		return nil
	},
}

var noteGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a specific note by its ID",
	Long:  `Retrieves and displays the details of a specific note, including its tags.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		note, err := fieldnotes.GetNote(context.Background(), dbConn, id)
		if err != nil {
			if errors.Is(err, fieldnotes.ErrNoteNotFound) {
				fmt.Printf("Note with ID %d not found.\n", id)
				return nil
			}
			return fmt.Errorf("failed to get note: %w", err)
		}

		return printNoteJSON(note)
	},
}

var noteUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update an existing note",
	Long:  `Updates an existing note with the given ID. Only provided flags change the note; passing --tags replaces the full tag set (an empty value clears all tags).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		ctx := context.Background()
		note, err := fieldnotes.GetNote(ctx, dbConn, id)
		if err != nil {
			if errors.Is(err, fieldnotes.ErrNoteNotFound) {
				fmt.Printf("Note with ID %d not found.\n", id)
				return nil
			}
			return fmt.Errorf("failed to get note: %w", err)
		}

		changed := false
		if cmd.Flags().Changed("title") {
			t, _ := cmd.Flags().GetString("title")
			note.Title = t // May be empty; a placeholder is shown at display time.
			changed = true
		}
		if cmd.Flags().Changed("content") {
			c, _ := cmd.Flags().GetString("content")
			note.Content = c
			changed = true
		}
		if cmd.Flags().Changed("timestamp") {
			ts, _ := cmd.Flags().GetInt64("timestamp")
			note.Timestamp = ts
			changed = true
		}
		if cmd.Flags().Changed("lat") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			note.Latitude = &lat
			changed = true
		}
		if cmd.Flags().Changed("lon") {
			lon, _ := cmd.Flags().GetFloat64("lon")
			note.Longitude = &lon
			changed = true
		}
		if cmd.Flags().Changed("location-name") {
			ln, _ := cmd.Flags().GetString("location-name")
			note.LocationName = &ln
			changed = true
		}
		if cmd.Flags().Changed("color") {
			c, _ := cmd.Flags().GetString("color")
			note.Color = &c
			changed = true
		}

		favoriteFlagSet := cmd.Flags().Changed("favorite")
		unfavoriteFlagSet := cmd.Flags().Changed("unfavorite")
		if favoriteFlagSet && unfavoriteFlagSet {
			return fmt.Errorf("cannot use --favorite and --unfavorite flags simultaneously")
		}
		if favoriteFlagSet {
			note.IsFavorite = true
			changed = true
		} else if unfavoriteFlagSet {
			note.IsFavorite = false
			changed = true
		}

		if cmd.Flags().Changed("tags") {
			tagsStr, _ := cmd.Flags().GetString("tags")
			tags := parseTagsFlag(tagsStr)
			if tags == nil {
				tags = []string{} // Empty --tags clears the full set.
			}
			note.Tags = tags
			changed = true
		} else {
			note.Tags = nil // Leave tag relations untouched.
		}

		if !changed {
			fmt.Println("No update fields provided. Use --title, --content, --timestamp, --lat, --lon, --location-name, --color, --favorite, --unfavorite, or --tags.")
			return nil
		}

		updated, err := fieldnotes.UpdateNote(ctx, dbConn, note)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}

		fmt.Println("Note updated successfully:")
		return printNoteJSON(updated)
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note by its ID",
	Long:  `Deletes a specific note from the database. Associated tag relations are removed as well; the tags themselves are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		if err := fieldnotes.DeleteNote(context.Background(), dbConn, id); err != nil {
			if errors.Is(err, fieldnotes.ErrNoteNotFound) {
				fmt.Printf("Note with ID %d not found.\n", id)
				return nil
			}
			return fmt.Errorf("failed to delete note: %w", err)
		}

		fmt.Printf("Note with ID %d deleted successfully.\n", id)
		return nil
	},
}

func initNotesCmd() {
	noteCreateCmd.Flags().StringP("title", "t", "", "Title of the note")
	noteCreateCmd.Flags().StringP("content", "c", "", "Content of the note (required)")
	noteCreateCmd.MarkFlagRequired("content")
	noteCreateCmd.Flags().Int64("timestamp", 0, "Observation time as epoch milliseconds (defaults to now)")
	noteCreateCmd.Flags().Float64("lat", 0, "Latitude where the note was taken")
	noteCreateCmd.Flags().Float64("lon", 0, "Longitude where the note was taken")
	noteCreateCmd.Flags().String("location-name", "", "Human-readable place name")
	noteCreateCmd.Flags().String("color", "", "Display color for the note")
	noteCreateCmd.Flags().Bool("favorite", false, "Mark the note as a favorite")
	noteCreateCmd.Flags().String("tags", "", "Comma-separated list of tags for the note")

	noteListCmd.Flags().Bool("favorites", false, "Only list favorite notes")
	noteListCmd.Flags().Bool("json", false, "Emit the notes as JSON instead of a table")

	noteSearchCmd.Flags().Bool("json", false, "Emit the results as JSON instead of a table")

	noteUpdateCmd.Flags().StringP("title", "t", "", "New title for the note")
	noteUpdateCmd.Flags().StringP("content", "c", "", "New content for the note")
	noteUpdateCmd.Flags().Int64("timestamp", 0, "New observation time as epoch milliseconds")
	noteUpdateCmd.Flags().Float64("lat", 0, "New latitude")
	noteUpdateCmd.Flags().Float64("lon", 0, "New longitude")
	noteUpdateCmd.Flags().String("location-name", "", "New place name")
	noteUpdateCmd.Flags().String("color", "", "New display color")
	noteUpdateCmd.Flags().Bool("favorite", false, "Mark the note as a favorite")
	noteUpdateCmd.Flags().Bool("unfavorite", false, "Remove the note from favorites")
	noteUpdateCmd.Flags().String("tags", "", "Comma-separated tags replacing the current set (empty clears all tags)")

	notesCmd.AddCommand(noteCreateCmd, noteListCmd, noteSearchCmd, noteGetCmd, noteUpdateCmd, noteDeleteCmd)
}
