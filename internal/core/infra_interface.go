package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Indexa/internal/models"
)

// DbClient defines all persistence operations the pipeline needs. It
// abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)

	// ClaimDocument performs the atomic pending->processing transition as a
	// single conditional update. It returns true only when this caller won
	// the claim; a concurrent worker racing on the same id gets false.
	ClaimDocument(ctx context.Context, id string) (bool, error)

	// FetchPendingDocuments returns up to limit pending documents ordered by
	// (processing_priority desc, created_at asc).
	FetchPendingDocuments(ctx context.Context, limit int) ([]models.Document, error)

	// InsertSignalWithChunks writes the signal row and every chunk row in one
	// transaction. Either all chunks for a document land or none do.
	InsertSignalWithChunks(ctx context.Context, signal *models.Signal, chunks []models.DocumentChunk) error

	// CompleteDocument sets processing_status=completed and persists the
	// extraction/classification summary fields.
	CompleteDocument(ctx context.Context, doc *models.Document) error

	// FailDocument sets processing_status=failed with the error message.
	FailDocument(ctx context.Context, id, processingError string, durationMs int64) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage. Abstract
// so AWS can be replaced with MinIO, GCP, etc.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
