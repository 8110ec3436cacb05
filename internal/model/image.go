package model

import "time"

// Image is the metadata record for an uploaded image. The bytes themselves
// live in the blob store at BlobPath; only metadata is kept in the database.
type Image struct {
	ID          string     `json:"id" db:"id"`
	TeamID      string     `json:"team_id" db:"team_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title,omitempty" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Filename    string     `json:"filename" db:"filename"`
	BlobPath    string     `json:"-" db:"blob_path"`
	ContentType string     `json:"content_type" db:"content_type"`
	Size        int64      `json:"size" db:"size"`
	Metadata    *ImageMeta `json:"metadata,omitempty"`
	URL         string     `json:"url,omitempty" db:"-"` // signed, set per response
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ImageMeta holds properties extracted from the image bytes at upload time.
type ImageMeta struct {
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	Format string   `json:"format,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}
