package blobclient

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// AzureBlobClient implements BlobClient using Azure Blob Storage.
type AzureBlobClient struct {
	client     *azblob.Client
	logger     logging.Logger
	serviceURL string
	accessTier *blob.AccessTier
	containers sync.Map // containers known to exist
}

// NewAzureBlobClient creates a new Azure Blob Storage client. Without an
// account key the default Azure credential chain is used (managed identity,
// workload identity, az login). accessTier is Hot, Cool or Archive; empty
// keeps the account default.
func NewAzureBlobClient(accountName, accountKey, accessTier string, logger logging.Logger) (*AzureBlobClient, error) {
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	var (
		client *azblob.Client
		err    error
	)
	if accountKey == "" {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
	} else {
		cred, credErr := azblob.NewSharedKeyCredential(accountName, accountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	c := &AzureBlobClient{
		client:     client,
		logger:     logger.Named("blob").With(logging.NewField("account", accountName)),
		serviceURL: serviceURL,
	}
	if accessTier != "" {
		tier := blob.AccessTier(accessTier)
		c.accessTier = &tier
	}
	return c, nil
}

func (a *AzureBlobClient) ensureContainer(ctx context.Context, container string) error {
	if _, ok := a.containers.Load(container); ok {
		return nil
	}
	_, err := a.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", container, err)
	}
	a.containers.Store(container, struct{}{})
	return nil
}

// Upload streams data into a block blob with the given headers and metadata.
func (a *AzureBlobClient) Upload(ctx context.Context, container, blobName string, data io.Reader, props Properties) (string, error) {
	logger := a.logger.With(
		logging.NewField("operation", "blob.upload"),
		logging.NewField("container", container),
		logging.NewField("blob", blobName),
	)

	if err := a.ensureContainer(ctx, container); err != nil {
		logger.Error("Container unavailable", logging.NewField("error", err))
		return "", err
	}

	headers := &blob.HTTPHeaders{}
	if props.ContentType != "" {
		headers.BlobContentType = &props.ContentType
	}
	if props.ContentDisposition != "" {
		headers.BlobContentDisposition = &props.ContentDisposition
	}

	_, err := a.client.UploadStream(ctx, container, blobName, data, &azblob.UploadStreamOptions{
		HTTPHeaders: headers,
		Metadata:    azureMetadata(props.Metadata),
		AccessTier:  a.accessTier,
	})
	if err != nil {
		logger.Error("Failed to upload blob", logging.NewField("error", err))
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	u := blobURL(a.serviceURL, container, blobName)
	logger.Debug("Blob uploaded", logging.NewField("url", u))
	return u, nil
}

// Get opens a download stream for the blob.
func (a *AzureBlobClient) Get(ctx context.Context, container, blobName string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, container, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, blobName)
		}
		a.logger.Error("Failed to download blob",
			logging.NewField("container", container),
			logging.NewField("blob", blobName),
			logging.NewField("error", err),
		)
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return resp.Body, nil
}

// Delete removes the blob together with its snapshots.
func (a *AzureBlobClient) Delete(ctx context.Context, container, blobName string) error {
	snapshots := blob.DeleteSnapshotsOptionTypeInclude
	_, err := a.client.DeleteBlob(ctx, container, blobName, &blob.DeleteOptions{DeleteSnapshots: &snapshots})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func azureMetadata(m map[string]string) map[string]*string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]*string, len(m))
	for k, v := range m {
		v := v
		out[k] = &v
	}
	return out
}

// blobURL joins the service URL with the escaped container and blob path.
func blobURL(serviceURL, container, blobName string) string {
	segments := strings.Split(blobName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(serviceURL, "/") + "/" + url.PathEscape(container) + "/" + strings.Join(segments, "/")
}
