package artifact

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/yourorg/pdf-service/pkg/blobclient"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/utils"
)

// Store uploads artifacts and records them.
type Store struct {
	blob      blobclient.BlobClient
	container string
	repo      Repository
	publisher *Publisher
	retry     utils.RetryConfig
	logger    logging.Logger
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPublisher publishes an event for every saved artifact.
func WithPublisher(p *Publisher) StoreOption {
	return func(s *Store) { s.publisher = p }
}

// WithRetry sets the backoff used for blob uploads and event publishing.
func WithRetry(cfg utils.RetryConfig) StoreOption {
	return func(s *Store) { s.retry = cfg }
}

// NewStore creates a Store writing blobs into container.
func NewStore(blob blobclient.BlobClient, container string, repo Repository, logger logging.Logger, opts ...StoreOption) *Store {
	s := &Store{
		blob:      blob,
		container: container,
		repo:      repo,
		retry:     utils.DefaultRetryConfig(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save uploads every item, records them together and publishes their events.
// Nothing is recorded unless every upload succeeded; uploaded blobs of a
// failed save are deleted on a best-effort basis.
func (s *Store) Save(ctx context.Context, owner, operation string, items ...Item) ([]*Artifact, error) {
	if len(items) == 0 {
		return nil, errors.NewValidationError("nothing to store")
	}
	logger := s.logger.With(
		logging.NewField("owner", owner),
		logging.NewField("operation", operation),
	)

	created := make([]*Artifact, 0, len(items))
	for _, item := range items {
		a, err := s.upload(ctx, owner, operation, item)
		if err != nil {
			s.discard(created)
			logger.Error("Artifact upload failed",
				logging.NewField("filename", item.Filename),
				logging.NewField("error", err),
			)
			return nil, errors.NewProcessingError("Failed to store result", err)
		}
		created = append(created, a)
	}

	if err := s.repo.Save(ctx, created...); err != nil {
		s.discard(created)
		logger.Error("Artifact record failed", logging.NewField("error", err))
		return nil, errors.NewProcessingError("Failed to record result", err)
	}

	if s.publisher != nil {
		err := utils.Retry(ctx, s.retry, func() error {
			return s.publisher.PublishCreated(ctx, created)
		})
		if err != nil {
			logger.Warn("Artifact event publish failed", logging.NewField("error", err))
		}
	}

	for _, a := range created {
		logger.Info("Artifact stored",
			logging.NewField("artifact_id", a.ID),
			logging.NewField("filename", a.Filename),
			logging.NewField("size", a.Size),
		)
	}
	return created, nil
}

func (s *Store) upload(ctx context.Context, owner, operation string, item Item) (*Artifact, error) {
	id := utils.NewID()
	blobName := path.Join(owner, id, item.Filename)

	props := blobclient.Properties{
		ContentType:        item.ContentType,
		ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": item.Filename}),
		Metadata: map[string]string{
			"artifact_id": id,
			"owner":       owner,
			"operation":   operation,
		},
	}
	url, err := utils.RetryWithResult(ctx, s.retry, func() (string, error) {
		return s.blob.Upload(ctx, s.container, blobName, bytes.NewReader(item.Data), props)
	})
	if err != nil {
		return nil, err
	}

	return &Artifact{
		ID:          id,
		Owner:       owner,
		Operation:   operation,
		Filename:    item.Filename,
		ContentType: item.ContentType,
		Size:        int64(len(item.Data)),
		PageCount:   item.PageCount,
		URL:         url,
		BlobName:    blobName,
		CreatedAt:   s.now(),
	}, nil
}

// discard removes uploaded blobs with a fresh context, since the request one may be done.
func (s *Store) discard(artifacts []*Artifact) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, a := range artifacts {
		if err := s.blob.Delete(ctx, s.container, a.BlobName); err != nil {
			s.logger.Warn("Failed to delete orphaned blob",
				logging.NewField("blob", a.BlobName),
				logging.NewField("error", err),
			)
		}
	}
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (*Artifact, error) {
	canonical, ok := utils.CanonicalID(id)
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("artifact %s not found", id))
	}
	return s.repo.Get(ctx, canonical)
}

// Open returns the record for id and a reader over its content. The caller closes the reader.
func (s *Store) Open(ctx context.Context, id string) (*Artifact, io.ReadCloser, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blob.Get(ctx, s.container, a.BlobName)
	if err != nil {
		if stderrors.Is(err, blobclient.ErrBlobNotFound) {
			return nil, nil, errors.NewNotFoundError(fmt.Sprintf("content of artifact %s is no longer available", id))
		}
		return nil, nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}
	return a, rc, nil
}
