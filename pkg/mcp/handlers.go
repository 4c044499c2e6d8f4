package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/unowned-ai/fieldlog/pkg/backup"
	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the FieldLog MCP server is alive."),
		// No arguments needed for ping
	)
	s.AddTool(pingTool, pingHandler)
}

// pingHandler is the simple handler for the ping tool.
func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_fieldlog"), nil
}

// Helper function to parse comma-separated tag strings
func parseTags(tagsStr string) []string {
	var tagsList []string
	tsl := strings.Split(tagsStr, ",")
	for _, tag := range tsl {
		t := strings.TrimSpace(tag)
		if t != "" {
			tagsList = append(tagsList, t)
		}
	}
	return tagsList
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	jsonResult, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}

// RegisterCreateNoteTool registers the create_note tool.
func RegisterCreateNoteTool(s *server.MCPServer, db *sql.DB) {
	createNoteTool := mcp.NewTool("create_note",
		mcp.WithDescription("Creates a new field note."),
		mcp.WithString("title", mcp.Description("Optional title for the new note. A placeholder is shown at display time when empty.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Body text for the new note. Must be non-empty.")),
		mcp.WithNumber("timestamp", mcp.Description("Optional observation time as epoch milliseconds. Defaults to now.")),
		mcp.WithNumber("latitude", mcp.Description("Optional latitude where the note was taken.")),
		mcp.WithNumber("longitude", mcp.Description("Optional longitude where the note was taken.")),
		mcp.WithString("location_name", mcp.Description("Optional human-readable place name.")),
		mcp.WithString("color", mcp.Description("Optional display color for the note.")),
		mcp.WithBoolean("favorite", mcp.Description("Mark the note as a favorite.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated list of tags.")),
	)
	s.AddTool(createNoteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		title, _ := args["title"].(string)
		content, contentOk := args["content"].(string)
		if !contentOk {
			return mcp.NewToolResultError("'content' parameter is required."), nil
		}

		in := fieldnotes.NoteInput{Title: title, Content: content}
		if err := fieldnotes.ValidateNoteInput(in); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid note: %v", err)), nil
		}
		if ts, ok := args["timestamp"].(float64); ok {
			in.Timestamp = int64(ts)
		}
		if lat, ok := args["latitude"].(float64); ok {
			in.Latitude = &lat
		}
		if lon, ok := args["longitude"].(float64); ok {
			in.Longitude = &lon
		}
		if ln, ok := args["location_name"].(string); ok && ln != "" {
			in.LocationName = &ln
		}
		if c, ok := args["color"].(string); ok && c != "" {
			in.Color = &c
		}
		if fav, ok := args["favorite"].(bool); ok {
			in.IsFavorite = fav
		}
		if tagsStr, ok := args["tags"].(string); ok && tagsStr != "" {
			in.Tags = parseTags(tagsStr)
		}

		note, err := fieldnotes.CreateNote(ctx, db, in)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create note: %v", err)), nil
		}
		return marshalResult(note)
	})
}

// RegisterGetNoteTool registers the get_note tool.
func RegisterGetNoteTool(s *server.MCPServer, db *sql.DB) {
	getNoteTool := mcp.NewTool("get_note",
		mcp.WithDescription("Retrieves a note (including its tags) by its numeric id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("The id of the note to retrieve.")),
	)
	s.AddTool(getNoteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, idOk := request.GetArguments()["id"].(float64)
		if !idOk || id <= 0 {
			return mcp.NewToolResultError("'id' parameter is required and must be a positive number."), nil
		}

		note, err := fieldnotes.GetNote(ctx, db, int64(id))
		if err != nil {
			if errors.Is(err, fieldnotes.ErrNoteNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Note with id %d not found.", int64(id))), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Error retrieving note %d: %v", int64(id), err)), nil
		}
		return marshalResult(note)
	})
}

// RegisterListNotesTool registers the list_notes tool.
func RegisterListNotesTool(s *server.MCPServer, db *sql.DB) {
	listNotesTool := mcp.NewTool("list_notes",
		mcp.WithDescription("Lists notes newest-first, optionally restricted to favorites."),
		mcp.WithBoolean("favorites_only", mcp.Description("When true, only favorite notes are returned.")),
	)
	s.AddTool(listNotesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		favoritesOnly, _ := request.GetArguments()["favorites_only"].(bool)

		var (
			notes []fieldnotes.Note
			err   error
		)
		if favoritesOnly {
			notes, err = fieldnotes.ListFavoriteNotes(ctx, db)
		} else {
			notes, err = fieldnotes.ListNotes(ctx, db)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list notes: %v", err)), nil
		}

		if len(notes) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return marshalResult(notes)
	})
}

// RegisterSearchNotesTool registers the search_notes tool.
func RegisterSearchNotesTool(s *server.MCPServer, db *sql.DB) {
	searchNotesTool := mcp.NewTool("search_notes",
		mcp.WithDescription("Searches notes by title, content, location name, or tag. An empty query matches every note."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to search for, matched case-insensitively.")),
	)
	s.AddTool(searchNotesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, queryOk := request.GetArguments()["query"].(string)
		if !queryOk {
			return mcp.NewToolResultError("'query' parameter is required."), nil
		}

		notes, err := fieldnotes.SearchNotes(ctx, db, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to search notes: %v", err)), nil
		}

		if len(notes) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return marshalResult(notes)
	})
}

// RegisterUpdateNoteTool registers the update_note tool.
func RegisterUpdateNoteTool(s *server.MCPServer, db *sql.DB) {
	updateNoteTool := mcp.NewTool("update_note",
		mcp.WithDescription("Updates an existing note. Only the provided fields change; omitting 'tags' leaves the note's tags untouched."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("The id of the note to update.")),
		mcp.WithString("title", mcp.Description("Optional new title.")),
		mcp.WithString("content", mcp.Description("Optional new content.")),
		mcp.WithNumber("timestamp", mcp.Description("Optional new observation time as epoch milliseconds.")),
		mcp.WithNumber("latitude", mcp.Description("Optional new latitude.")),
		mcp.WithNumber("longitude", mcp.Description("Optional new longitude.")),
		mcp.WithString("location_name", mcp.Description("Optional new place name.")),
		mcp.WithString("color", mcp.Description("Optional new display color.")),
		mcp.WithBoolean("favorite", mcp.Description("Optional new favorite status.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags replacing the current set; an empty string clears all tags.")),
	)
	s.AddTool(updateNoteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, idOk := args["id"].(float64)
		if !idOk || id <= 0 {
			return mcp.NewToolResultError("'id' parameter is required and must be a positive number."), nil
		}

		note, err := fieldnotes.GetNote(ctx, db, int64(id))
		if err != nil {
			if errors.Is(err, fieldnotes.ErrNoteNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Note with id %d not found.", int64(id))), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Error retrieving note %d: %v", int64(id), err)), nil
		}

		// Overlay only the provided fields onto the stored note.
		changed := false
		if title, ok := args["title"].(string); ok {
			note.Title = title // May be empty; a placeholder is shown at display time.
			changed = true
		}
		if content, ok := args["content"].(string); ok {
			note.Content = content // Allow empty content
			changed = true
		}
		if ts, ok := args["timestamp"].(float64); ok {
			note.Timestamp = int64(ts)
			changed = true
		}
		if lat, ok := args["latitude"].(float64); ok {
			note.Latitude = &lat
			changed = true
		}
		if lon, ok := args["longitude"].(float64); ok {
			note.Longitude = &lon
			changed = true
		}
		if ln, ok := args["location_name"].(string); ok {
			note.LocationName = &ln
			changed = true
		}
		if c, ok := args["color"].(string); ok {
			note.Color = &c
			changed = true
		}
		if fav, ok := args["favorite"].(bool); ok {
			note.IsFavorite = fav
			changed = true
		}
		if tagsStr, ok := args["tags"].(string); ok {
			tags := parseTags(tagsStr)
			if tags == nil {
				tags = []string{} // Non-nil empty set clears all tags.
			}
			note.Tags = tags
			changed = true
		} else {
			note.Tags = nil // Leave tag relations untouched.
		}

		if !changed {
			return mcp.NewToolResultError("No update fields provided."), nil
		}

		updated, err := fieldnotes.UpdateNote(ctx, db, note)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update note %d: %v", int64(id), err)), nil
		}
		return marshalResult(updated)
	})
}

// RegisterDeleteNoteTool registers the delete_note tool.
func RegisterDeleteNoteTool(s *server.MCPServer, db *sql.DB) {
	deleteNoteTool := mcp.NewTool("delete_note",
		mcp.WithDescription("Deletes a note and its tag relations by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("The id of the note to delete.")),
	)
	s.AddTool(deleteNoteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, idOk := request.GetArguments()["id"].(float64)
		if !idOk || id <= 0 {
			return mcp.NewToolResultError("'id' parameter is required and must be a positive number."), nil
		}

		if err := fieldnotes.DeleteNote(ctx, db, int64(id)); err != nil {
			if errors.Is(err, fieldnotes.ErrNoteNotFound) {
				// Note doesn't exist, deletion is effectively idempotent.
				return mcp.NewToolResultText(fmt.Sprintf("Note %d not found, nothing to delete.", int64(id))), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete note %d: %v", int64(id), err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Note %d deleted successfully.", int64(id))), nil
	})
}

// RegisterListTagsTool registers the list_tags tool.
func RegisterListTagsTool(s *server.MCPServer, db *sql.DB) {
	listTagsTool := mcp.NewTool("list_tags",
		mcp.WithDescription("Lists all unique tags currently stored in the database."),
		// No parameters needed
	)
	s.AddTool(listTagsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tags, err := fieldnotes.ListTags(ctx, db)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list tags: %v", err)), nil
		}

		if len(tags) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return marshalResult(tags)
	})
}

// RegisterRecordLocationTool registers the record_location tool.
func RegisterRecordLocationTool(s *server.MCPServer, db *sql.DB) {
	recordLocationTool := mcp.NewTool("record_location",
		mcp.WithDescription("Appends a position fix to the location history."),
		mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Latitude of the fix.")),
		mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Longitude of the fix.")),
		mcp.WithNumber("timestamp", mcp.Description("Optional fix time as epoch milliseconds. Defaults to now.")),
		mcp.WithString("location_name", mcp.Description("Optional human-readable place name.")),
	)
	s.AddTool(recordLocationTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		lat, latOk := args["latitude"].(float64)
		lon, lonOk := args["longitude"].(float64)
		if !latOk || !lonOk {
			return mcp.NewToolResultError("'latitude' and 'longitude' parameters are required numbers."), nil
		}

		rec := fieldnotes.LocationRecord{Latitude: lat, Longitude: lon}
		if ts, ok := args["timestamp"].(float64); ok {
			rec.Timestamp = int64(ts)
		}
		if ln, ok := args["location_name"].(string); ok && ln != "" {
			rec.LocationName = &ln
		}

		id, err := fieldnotes.AppendLocation(ctx, db, rec)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to record location: %v", err)), nil
		}
		rec.ID = id
		return marshalResult(rec)
	})
}

// RegisterLatestLocationTool registers the latest_location tool.
func RegisterLatestLocationTool(s *server.MCPServer, db *sql.DB) {
	latestLocationTool := mcp.NewTool("latest_location",
		mcp.WithDescription("Returns the most recent recorded position."),
	)
	s.AddTool(latestLocationTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec, err := fieldnotes.LatestLocation(ctx, db)
		if err != nil {
			if errors.Is(err, fieldnotes.ErrLocationNotFound) {
				return mcp.NewToolResultError("No locations recorded yet."), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read latest location: %v", err)), nil
		}
		return marshalResult(rec)
	})
}

// RegisterLocationHistoryTool registers the location_history tool.
func RegisterLocationHistoryTool(s *server.MCPServer, db *sql.DB) {
	locationHistoryTool := mcp.NewTool("location_history",
		mcp.WithDescription("Lists recorded positions newest-first, optionally bounded by an inclusive time range."),
		mcp.WithNumber("start", mcp.Description("Optional inclusive lower bound as epoch milliseconds.")),
		mcp.WithNumber("end", mcp.Description("Optional inclusive upper bound as epoch milliseconds.")),
	)
	s.AddTool(locationHistoryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		var start, end *int64
		if s, ok := args["start"].(float64); ok {
			v := int64(s)
			start = &v
		}
		if e, ok := args["end"].(float64); ok {
			v := int64(e)
			end = &v
		}

		records, err := fieldnotes.QueryLocations(ctx, db, start, end)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to query location history: %v", err)), nil
		}

		if len(records) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return marshalResult(records)
	})
}

// RegisterExportBackupTool registers the export_backup tool.
func RegisterExportBackupTool(s *server.MCPServer, db *sql.DB, defaultDir string) {
	exportBackupTool := mcp.NewTool("export_backup",
		mcp.WithDescription("Writes the full dataset (notes, location history, settings) to a JSON backup file."),
		mcp.WithString("dir", mcp.Description("Optional directory for the backup file. Defaults to the configured backup directory.")),
		mcp.WithString("label", mcp.Description("Optional file name label. Defaults to 'fieldlog_backup'.")),
	)
	s.AddTool(exportBackupTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		dir, _ := args["dir"].(string)
		if dir == "" {
			dir = defaultDir
		}
		label, _ := args["label"].(string)

		result, err := backup.Export(ctx, db, dir, label)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to export backup: %v", err)), nil
		}
		return marshalResult(result)
	})
}

// RegisterImportBackupTool registers the import_backup tool.
func RegisterImportBackupTool(s *server.MCPServer, db *sql.DB) {
	importBackupTool := mcp.NewTool("import_backup",
		mcp.WithDescription("Loads a JSON backup file. By default records merge into the existing data; with replace=true the current dataset is wiped first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the backup file to load.")),
		mcp.WithBoolean("replace", mcp.Description("Wipe the current notes, tags, and location history before loading.")),
	)
	s.AddTool(importBackupTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		path, pathOk := args["path"].(string)
		if !pathOk || path == "" {
			return mcp.NewToolResultError("'path' parameter is required and must be a non-empty string."), nil
		}
		replace, _ := args["replace"].(bool)

		var (
			result backup.ImportResult
			err    error
		)
		if replace {
			result, err = backup.Restore(ctx, db, path)
		} else {
			result, err = backup.Import(ctx, db, path)
		}
		if err != nil {
			var partial *backup.PartialImportError
			if errors.As(err, &partial) {
				// Some records loaded; surface the per-record failures alongside the counts.
				return marshalResult(result)
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to import backup '%s': %v", path, err)), nil
		}
		return marshalResult(result)
	})
}
