// Package artifact keeps downloaded media addressable by the caller until it
// is explicitly released.
package artifact

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned for handles that were never stored or were released.
var ErrNotFound = errors.New("artifact not found")

// Handle identifies a stored artifact. The caller owns it and must Release it
// when the bytes are no longer needed.
type Handle struct {
	ID        string    `json:"id"`
	URI       string    `json:"uri"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	SourceURI string    `json:"source_uri,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists artifact bytes and hands out handles to them.
type Store interface {
	// Put stores data and returns a new handle. An empty mimeType is sniffed
	// from the content.
	Put(ctx context.Context, data []byte, mimeType, sourceURI string) (*Handle, error)
	// Open returns a reader over the stored bytes.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	// Release frees the artifact. Releasing an unknown handle returns ErrNotFound.
	Release(ctx context.Context, id string) error
}
