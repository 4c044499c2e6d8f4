package fieldnotes

// Note is a user-authored, optionally geotagged record.
//
// Timestamp is the note's logical "when" (user-set or capture time), distinct
// from the CreatedAt/UpdatedAt audit pair maintained by the store. Latitude and
// Longitude travel together; LocationName and Color are display hints. Tags is
// loaded from the note_tags relation, never stored inline on the note row.
type Note struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Timestamp    int64    `json:"timestamp"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	LocationName *string  `json:"location_name,omitempty"`
	Color        *string  `json:"color,omitempty"`
	IsFavorite   bool     `json:"is_favorite"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
	Tags         []string `json:"tags,omitempty"`
}

// NoteInput carries the caller-supplied fields for note creation. The store
// assigns ID, and fills CreatedAt/UpdatedAt with the current time unless they
// are explicitly supplied (the restore path supplies them).
type NoteInput struct {
	Title        string
	Content      string
	Timestamp    int64
	Latitude     *float64
	Longitude    *float64
	LocationName *string
	Color        *string
	IsFavorite   bool
	CreatedAt    int64
	UpdatedAt    int64
	Tags         []string
}

// LocationRecord is one observed position in the append-only location log.
type LocationRecord struct {
	ID           int64   `json:"id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Timestamp    int64   `json:"timestamp"`
	LocationName *string `json:"location_name,omitempty"`
}
