package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Indexa/internal/config"
	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Pool settings sized for a background worker.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, content_type, storage_url, checksum, authority,
			 size_bytes, processing_status, processing_priority, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.ContentType, doc.StorageURL, doc.Checksum,
		doc.Authority, doc.SizeBytes, doc.ProcessingStatus, doc.ProcessingPriority)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, content_type, storage_url, checksum, authority,
		       size_bytes, processing_status, processing_priority,
		       COALESCE(processing_error, ''), created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.ContentType, &d.StorageURL, &d.Checksum,
		&d.Authority, &d.SizeBytes, &d.ProcessingStatus, &d.ProcessingPriority,
		&d.ProcessingError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ClaimDocument is the concurrency-safety primitive: one conditional update,
// never read-then-write. Racing workers on the same id see zero rows
// affected and skip the document.
func (c *DatabaseClient) ClaimDocument(ctx context.Context, id string) (bool, error) {
	const q = `
		UPDATE documents
		SET processing_status = $2, updated_at = now()
		WHERE id = $1 AND processing_status = $3
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusProcessing, models.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *DatabaseClient) FetchPendingDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, content_type, storage_url, checksum, authority,
		       size_bytes, processing_status, processing_priority,
		       COALESCE(processing_error, ''), created_at, updated_at
		FROM documents
		WHERE processing_status = $1
		ORDER BY processing_priority DESC, created_at ASC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, models.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.ContentType, &d.StorageURL, &d.Checksum,
			&d.Authority, &d.SizeBytes, &d.ProcessingStatus, &d.ProcessingPriority,
			&d.ProcessingError, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertSignalWithChunks writes the signal row and every chunk row in one
// transaction so a partial chunk set is never visible.
func (c *DatabaseClient) InsertSignalWithChunks(ctx context.Context, signal *models.Signal, chunks []models.DocumentChunk) error {
	if signal == nil {
		return errors.New("nil signal")
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const sigQ = `
		INSERT INTO signals (id, document_id, document_class, content_summary, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`
	if _, err := tx.ExecContext(ctx, sigQ,
		signal.ID, signal.DocumentID, signal.DocumentClass, signal.ContentSummary, signal.ChunkCount,
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	const chunkQ = `
		INSERT INTO document_chunks
			(id, document_id, signal_id, chunk_index, original_content, embedded_content,
			 embedding, section_type, section_title, page_number, token_estimate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	`
	stmt, err := tx.PrepareContext(ctx, chunkQ)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.SignalID, ch.ChunkIndex, ch.OriginalContent,
			ch.EmbeddedContent, vec, ch.SectionType, ch.SectionTitle, ch.PageNumber, ch.TokenEstimate,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CompleteDocument writes the terminal success status plus all the result
// fields the pipeline produced.
func (c *DatabaseClient) CompleteDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}

	tags, err := json.Marshal(doc.KeywordTags)
	if err != nil {
		return fmt.Errorf("marshal keyword tags: %w", err)
	}
	topics, err := json.Marshal(doc.KeyTopics)
	if err != nil {
		return fmt.Errorf("marshal key topics: %w", err)
	}

	const q = `
		UPDATE documents SET
			processing_status = $2,
			processing_error = NULL,
			page_count = $3,
			word_count = $4,
			total_chunks = $5,
			content_summary = $6,
			keyword_tags = $7,
			key_topics = $8,
			extraction_method = $9,
			document_class = $10,
			quality_score = $11,
			relevance_score = $12,
			information_density = $13,
			signal_id = $14,
			processing_duration_ms = $15,
			updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, models.StatusCompleted, doc.PageCount, doc.WordCount, doc.TotalChunks,
		doc.ContentSummary, tags, topics, doc.ExtractionMethod, doc.DocumentClass,
		doc.QualityScore, doc.RelevanceScore, doc.InformationDensity,
		nullIfEmpty(doc.SignalID), doc.ProcessingDurationMs,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", doc.ID)
	}
	return nil
}

func (c *DatabaseClient) FailDocument(ctx context.Context, id, processingError string, durationMs int64) error {
	const q = `
		UPDATE documents SET
			processing_status = $2,
			processing_error = $3,
			processing_duration_ms = $4,
			updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusFailed, processingError, durationMs)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
