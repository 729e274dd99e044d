// Package blobclient stores artifact content in Azure Blob Storage or in memory.
package blobclient

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned by Get when the blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobClient is the content store behind artifacts.
type BlobClient interface {
	// Upload writes data to container/blobName, replacing any previous blob,
	// and returns its URL.
	Upload(ctx context.Context, container, blobName string, data io.Reader, props Properties) (url string, err error)

	// Get opens a blob for reading. Missing blobs yield ErrBlobNotFound.
	Get(ctx context.Context, container, blobName string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, container, blobName string) error
}

// Properties are the HTTP headers and metadata stored with a blob.
type Properties struct {
	ContentType        string
	ContentDisposition string
	// Metadata keys must be valid identifiers: letters, digits and underscores.
	Metadata map[string]string
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name       string
	Size       int64
	Properties Properties
	URL        string
}
