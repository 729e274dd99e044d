package blobclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobURL(t *testing.T) {
	assert.Equal(t,
		"https://acct.blob.core.windows.net/pdf/alice/42/report%20final.pdf",
		blobURL("https://acct.blob.core.windows.net/", "pdf", "alice/42/report final.pdf"))
}

func TestAzureMetadata(t *testing.T) {
	assert.Nil(t, azureMetadata(nil))

	md := azureMetadata(map[string]string{"owner": "alice", "operation": "merge"})
	require.Len(t, md, 2)
	assert.Equal(t, "alice", *md["owner"])
	assert.Equal(t, "merge", *md["operation"])
}
