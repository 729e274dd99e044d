package blobclient

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobClient_UploadAndGet(t *testing.T) {
	client := NewMemoryBlobClient()
	ctx := context.Background()

	url, err := client.Upload(ctx, "artifacts", "owner/a.pdf", strings.NewReader("%PDF-1.4"), Properties{ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "memory://artifacts/owner/a.pdf", url)

	reader, err := client.Get(ctx, "artifacts", "owner/a.pdf")
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))
}

func TestMemoryBlobClient_GetMissing(t *testing.T) {
	_, err := NewMemoryBlobClient().Get(context.Background(), "artifacts", "missing")
	assert.True(t, errors.Is(err, ErrBlobNotFound))
}

func TestMemoryBlobClient_Delete(t *testing.T) {
	client := NewMemoryBlobClient()
	ctx := context.Background()

	_, err := client.Upload(ctx, "artifacts", "x", strings.NewReader("data"), Properties{ContentType: "text/plain"})
	require.NoError(t, err)
	require.NoError(t, client.Delete(ctx, "artifacts", "x"))

	_, err = client.Get(ctx, "artifacts", "x")
	assert.ErrorIs(t, err, ErrBlobNotFound)
	assert.NoError(t, client.Delete(ctx, "unknown", "x"))
}

func TestMemoryBlobClient_ListKeepsProperties(t *testing.T) {
	client := NewMemoryBlobClient()
	ctx := context.Background()
	metadata := map[string]string{"owner": "alice"}
	for _, name := range []string{"alice/2.pdf", "bob/1.pdf", "alice/1.zip"} {
		_, err := client.Upload(ctx, "artifacts", name, strings.NewReader(name), Properties{
			ContentType: "application/octet-stream",
			Metadata:    metadata,
		})
		require.NoError(t, err)
	}
	metadata["owner"] = "mallory"

	blobs := client.List("artifacts", "alice/")
	require.Len(t, blobs, 2)
	assert.Equal(t, "alice/1.zip", blobs[0].Name)
	assert.Equal(t, "alice/2.pdf", blobs[1].Name)
	assert.Equal(t, int64(len("alice/1.zip")), blobs[0].Size)
	assert.Equal(t, "alice", blobs[0].Properties.Metadata["owner"])

	assert.Empty(t, client.List("nothing", ""))
}
