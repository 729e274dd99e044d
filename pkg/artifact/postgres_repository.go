package artifact

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/yourorg/pdf-service/pkg/db"
	"github.com/yourorg/pdf-service/pkg/errors"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS pdf_artifacts (
	id           UUID PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	operation    TEXT NOT NULL,
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL,
	page_count   INTEGER NOT NULL DEFAULT 0,
	blob_name    TEXT NOT NULL,
	url          TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`

const insertSQL = `
INSERT INTO pdf_artifacts
	(id, owner_id, operation, filename, content_type, size_bytes, page_count, blob_name, url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const selectSQL = `
SELECT id, owner_id, operation, filename, content_type, size_bytes, page_count, blob_name, url, created_at
FROM pdf_artifacts WHERE id = $1`

// PostgresRepository stores records in the pdf_artifacts table.
type PostgresRepository struct {
	db db.DB
}

// NewPostgresRepository creates the table if needed and returns the repository.
func NewPostgresRepository(ctx context.Context, database db.DB) (*PostgresRepository, error) {
	if _, err := database.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create pdf_artifacts table: %w", err)
	}
	return &PostgresRepository{db: database}, nil
}

// Save inserts all records in one transaction.
func (p *PostgresRepository) Save(ctx context.Context, artifacts ...*Artifact) error {
	return p.db.WithTx(ctx, func(tx db.Execer) error {
		for _, a := range artifacts {
			_, err := tx.Exec(ctx, insertSQL,
				a.ID, a.Owner, a.Operation, a.Filename, a.ContentType,
				a.Size, a.PageCount, a.BlobName, a.URL, a.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert artifact %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// Get loads one record by id.
func (p *PostgresRepository) Get(ctx context.Context, id string) (*Artifact, error) {
	var a Artifact
	err := p.db.QueryRow(ctx, selectSQL, id).Scan(
		&a.ID, &a.Owner, &a.Operation, &a.Filename, &a.ContentType,
		&a.Size, &a.PageCount, &a.BlobName, &a.URL, &a.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("artifact %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", id, err)
	}
	return &a, nil
}
