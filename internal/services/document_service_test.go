package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/core/extraction_engine"
	"github.com/markdave123-py/Indexa/internal/logging"
	"github.com/markdave123-py/Indexa/internal/models"
)

type captureDB struct {
	core.DbClient
	created *models.Document
}

func (c *captureDB) CreateDocument(ctx context.Context, doc *models.Document) error {
	c.created = doc
	return nil
}

type captureStorage struct {
	uploadedKey string
}

func (c *captureStorage) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	c.uploadedKey = key
	return "https://" + bucket + ".s3.us-east-1.amazonaws.com/" + key, nil
}
func (c *captureStorage) DeleteFile(ctx context.Context, bucket, key string) error { return nil }
func (c *captureStorage) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (c *captureStorage) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func testRegistry() *extraction_engine.Registry {
	return extraction_engine.NewRegistry(
		extraction_engine.NewDocxExtractor(logging.Nop()),
		extraction_engine.NewTextExtractor(false, logging.Nop()),
	)
}

func TestUploadAndCreateEnqueuesPending(t *testing.T) {
	db := &captureDB{}
	storage := &captureStorage{}
	svc := NewDocumentService(db, storage, testRegistry(), "test-bucket")

	data := []byte("meeting notes from the weekly sync")
	doc, err := svc.UploadAndCreate(context.Background(), "u1", "weekly sync.txt", "text/plain", "client", data)
	if err != nil {
		t.Fatalf("UploadAndCreate() error = %v", err)
	}

	if doc.ProcessingStatus != models.StatusPending {
		t.Errorf("status = %q, want pending", doc.ProcessingStatus)
	}
	if doc.ProcessingPriority != defaultPriority {
		t.Errorf("priority = %d, want %d", doc.ProcessingPriority, defaultPriority)
	}
	if doc.SizeBytes != int64(len(data)) {
		t.Errorf("size = %d, want %d", doc.SizeBytes, len(data))
	}

	sum := sha256.Sum256(data)
	if doc.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("checksum = %q does not match content", doc.Checksum)
	}

	if db.created == nil || db.created.ID != doc.ID {
		t.Error("document row not created")
	}

	// Spaces in the filename are sanitized in the object key.
	if strings.Contains(storage.uploadedKey, " ") {
		t.Errorf("object key %q contains spaces", storage.uploadedKey)
	}
	if !strings.HasPrefix(storage.uploadedKey, "users/u1/documents/") {
		t.Errorf("object key %q outside expected layout", storage.uploadedKey)
	}
}

func TestUploadAndCreateRejectsUnsupportedType(t *testing.T) {
	svc := NewDocumentService(&captureDB{}, &captureStorage{}, testRegistry(), "test-bucket")

	_, err := svc.UploadAndCreate(context.Background(), "u1", "tool.exe", "application/x-msdownload", "", []byte{0x4D})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *core.ValidationError", err)
	}
}

func TestUploadAndCreateRejectsOversizedFile(t *testing.T) {
	storage := &captureStorage{}
	svc := NewDocumentService(&captureDB{}, storage, testRegistry(), "test-bucket")

	big := make([]byte, extraction_engine.MaxDocxBytes+1)
	_, err := svc.UploadAndCreate(context.Background(), "u1", "big.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "", big)
	if err == nil {
		t.Fatal("expected validation error for oversized file")
	}
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *core.ValidationError", err)
	}
	if storage.uploadedKey != "" {
		t.Error("oversized file was uploaded before validation")
	}
}
