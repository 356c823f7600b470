package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/core/extraction_engine"
	"github.com/markdave123-py/Indexa/internal/models"
)

const defaultPriority = 30

type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	registry *extraction_engine.Registry
	bucket   string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, registry *extraction_engine.Registry, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, registry: registry, bucket: bucket}
}

// UploadAndCreate stores the raw bytes in object storage and enqueues the
// document as pending. Size and type validation happens here so a file that
// can never be processed is rejected before it lands in the queue.
func (s *DocumentService) UploadAndCreate(ctx context.Context, userID, filename, contentType, authority string, data []byte) (*models.Document, error) {
	if err := s.registry.ValidateFile(filename, contentType, int64(len(data))); err != nil {
		return nil, err
	}

	docID := uuid.NewString()
	key := s.objectKey(userID, docID, filename)

	sum := sha256.Sum256(data)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:                 docID,
		UserID:             userID,
		FileName:           filename,
		ContentType:        contentType,
		StorageURL:         url,
		Checksum:           hex.EncodeToString(sum[:]),
		Authority:          authority,
		SizeBytes:          int64(len(data)),
		ProcessingStatus:   models.StatusPending,
		ProcessingPriority: defaultPriority,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(userID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", userID, "documents", docID, filename)
}
