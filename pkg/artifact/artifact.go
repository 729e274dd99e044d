// Package artifact stores operation outputs: the bytes go to blob storage,
// the record goes to a repository and an event announces it.
package artifact

import (
	"context"
	"time"
)

// Artifact describes one stored output file.
type Artifact struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Operation   string    `json:"operation"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	PageCount   int       `json:"page_count,omitempty"`
	URL         string    `json:"url"`
	BlobName    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Item is an output buffer waiting to be stored.
type Item struct {
	Filename    string
	ContentType string
	Data        []byte
	PageCount   int
}

// Repository persists artifact records.
type Repository interface {
	// Save stores all records or none of them.
	Save(ctx context.Context, artifacts ...*Artifact) error
	// Get returns the record with the given id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*Artifact, error)
}
