package blobclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

type memoryBlob struct {
	data  []byte
	props Properties
}

// MemoryBlobClient is an in-memory BlobClient used for local development and tests.
type MemoryBlobClient struct {
	blobs map[string]map[string]memoryBlob // container -> blobName -> blob
	mu    sync.RWMutex
}

// NewMemoryBlobClient creates an empty in-memory blob store.
func NewMemoryBlobClient() *MemoryBlobClient {
	return &MemoryBlobClient{
		blobs: make(map[string]map[string]memoryBlob),
	}
}

func memoryURL(container, blobName string) string {
	return fmt.Sprintf("memory://%s/%s", container, blobName)
}

// Upload stores data under container/blobName, replacing any previous blob.
func (m *MemoryBlobClient) Upload(ctx context.Context, container, blobName string, data io.Reader, props Properties) (string, error) {
	blobData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}
	metadata := make(map[string]string, len(props.Metadata))
	for k, v := range props.Metadata {
		metadata[k] = v
	}
	props.Metadata = metadata

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.blobs[container] == nil {
		m.blobs[container] = make(map[string]memoryBlob)
	}
	m.blobs[container][blobName] = memoryBlob{data: blobData, props: props}

	return memoryURL(container, blobName), nil
}

// Get returns a reader over the stored blob.
func (m *MemoryBlobClient) Get(ctx context.Context, container, blobName string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, exists := m.blobs[container][blobName]
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, blobName)
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Delete removes a blob.
func (m *MemoryBlobClient) Delete(ctx context.Context, container, blobName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs[container], blobName)
	return nil
}

// List returns the blobs of container whose names start with prefix, sorted by name.
func (m *MemoryBlobClient) List(container, prefix string) []BlobInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blobs := []BlobInfo{}
	for name, b := range m.blobs[container] {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		blobs = append(blobs, BlobInfo{
			Name:       name,
			Size:       int64(len(b.data)),
			Properties: b.props,
			URL:        memoryURL(container, name),
		})
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs
}
