package models

import (
	"strings"
	"time"
)

// Processing lifecycle states for a document record.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document classes assigned by the classifier. The set is closed; anything
// else coming back from the oracle is coerced to ClassGeneric.
const (
	ClassPRD          = "prd"
	ClassTranscript   = "transcript"
	ClassSpec         = "spec"
	ClassEmail        = "email"
	ClassPresentation = "presentation"
	ClassSpreadsheet  = "spreadsheet"
	ClassWireframe    = "wireframe"
	ClassResearch     = "research"
	ClassGeneric      = "generic"
)

// Extraction methods recorded on an ExtractionResult.
const (
	MethodNative = "native"
	MethodOCR    = "ocr"
	MethodVision = "vision"
	MethodHybrid = "hybrid"
)

// Document represents an uploaded document moving through the ingestion queue.
// Created as "pending" at upload time, claimed into "processing" by a worker,
// and finalized exactly once as "completed" or "failed".
type Document struct {
	ID                 string `db:"id" json:"id"`
	UserID             string `db:"user_id" json:"user_id"`
	FileName           string `db:"file_name" json:"file_name"`
	ContentType        string `db:"content_type" json:"content_type"`
	StorageURL         string `db:"storage_url" json:"storage_url"`
	Checksum           string `db:"checksum" json:"checksum"`
	Authority          string `db:"authority" json:"authority"` // e.g. "client", "consultant"
	SizeBytes          int64  `db:"size_bytes" json:"size_bytes"`
	ProcessingStatus   string `db:"processing_status" json:"processing_status"`
	ProcessingPriority int    `db:"processing_priority" json:"processing_priority"`
	ProcessingError    string `db:"processing_error" json:"processing_error,omitempty"`

	// Result fields written by the pipeline at finalize.
	PageCount            int      `db:"page_count" json:"page_count"`
	WordCount            int      `db:"word_count" json:"word_count"`
	TotalChunks          int      `db:"total_chunks" json:"total_chunks"`
	ContentSummary       string   `db:"content_summary" json:"content_summary"`
	KeywordTags          []string `db:"keyword_tags" json:"keyword_tags"`
	KeyTopics            []string `db:"key_topics" json:"key_topics"`
	ExtractionMethod     string   `db:"extraction_method" json:"extraction_method"`
	DocumentClass        string   `db:"document_class" json:"document_class"`
	QualityScore         float64  `db:"quality_score" json:"quality_score"`
	RelevanceScore       float64  `db:"relevance_score" json:"relevance_score"`
	InformationDensity   float64  `db:"information_density" json:"information_density"`
	SignalID             string   `db:"signal_id" json:"signal_id,omitempty"`
	ProcessingDurationMs int64    `db:"processing_duration_ms" json:"processing_duration_ms"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExtractedSection is one semantic unit of extracted content: a heading,
// paragraph, table, slide, or image description. Immutable once produced
// by an extractor.
type ExtractedSection struct {
	SectionType  string            `json:"section_type"`
	Content      string            `json:"content"`
	SectionTitle string            `json:"section_title,omitempty"`
	PageNumber   int               `json:"page_number,omitempty"` // 1-based, 0 when unknown
	SectionPath  string            `json:"section_path,omitempty"`
	WordCount    int               `json:"word_count"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Words returns the section word count, deriving it from Content when the
// extractor did not set one.
func (s *ExtractedSection) Words() int {
	if s.WordCount > 0 {
		return s.WordCount
	}
	return len(strings.Fields(s.Content))
}

// ExtractionResult is the output of running exactly one extractor over a
// document's raw bytes. RawText is a concatenation fallback used only for
// classification previews.
type ExtractionResult struct {
	Sections         []ExtractedSection `json:"sections"`
	PageCount        int                `json:"page_count"`
	WordCount        int                `json:"word_count"`
	ExtractionMethod string             `json:"extraction_method"` // native | ocr | vision | hybrid
	RawText          string             `json:"raw_text"`
	EmbeddedImages   [][]byte           `json:"-"`
	Metadata         map[string]string  `json:"metadata,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
}

// ClassificationResult is the validated output of one classifier oracle call.
// All numeric fields are clamped into their declared ranges at the classifier
// boundary regardless of what the oracle returned.
type ClassificationResult struct {
	DocumentClass      string   `json:"document_class"`
	QualityScore       float64  `json:"quality_score"`       // [0,1]
	RelevanceScore     float64  `json:"relevance_score"`     // [0,1]
	InformationDensity float64  `json:"information_density"` // [0,1]
	ContentSummary     string   `json:"content_summary"`
	KeywordTags        []string `json:"keyword_tags"`
	KeyTopics          []string `json:"key_topics"`
	ProcessingPriority int      `json:"processing_priority"` // [1,100]
	Confidence         float64  `json:"confidence"`          // [0,1]
}

// ChunkWithContext is one retrieval-sized unit of text produced by the
// chunker. ContentWithContext carries the contextual prefix and is the only
// copy that gets embedded; OriginalContent stays untouched for display.
type ChunkWithContext struct {
	ChunkIndex         int               `json:"chunk_index"`
	OriginalContent    string            `json:"original_content"`
	ContentWithContext string            `json:"content_with_context"`
	SectionType        string            `json:"section_type"`
	SectionTitle       string            `json:"section_title,omitempty"`
	PageNumber         int               `json:"page_number,omitempty"`
	SectionPath        string            `json:"section_path,omitempty"`
	WordCount          int               `json:"word_count"`
	TokenEstimate      int               `json:"token_estimate"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// DocumentChunk is the persisted form of a chunk, one row per chunk with its
// embedding vector (pgvector column).
type DocumentChunk struct {
	ID              string    `db:"id" json:"id"`
	DocumentID      string    `db:"document_id" json:"document_id"`
	SignalID        string    `db:"signal_id" json:"signal_id"`
	ChunkIndex      int       `db:"chunk_index" json:"chunk_index"`
	OriginalContent string    `db:"original_content" json:"original_content"`
	EmbeddedContent string    `db:"embedded_content" json:"embedded_content"`
	Embedding       []float32 `db:"embedding" json:"embedding"`
	SectionType     string    `db:"section_type" json:"section_type"`
	SectionTitle    string    `db:"section_title" json:"section_title,omitempty"`
	PageNumber      int       `db:"page_number" json:"page_number,omitempty"`
	TokenEstimate   int       `db:"token_estimate" json:"token_estimate"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Signal groups the chunk set of one completed processing run. All chunks for
// a document reference exactly one signal; the signal row and its chunks are
// written in a single transaction so no partial chunk set is ever visible.
type Signal struct {
	ID             string    `db:"id" json:"id"`
	DocumentID     string    `db:"document_id" json:"document_id"`
	DocumentClass  string    `db:"document_class" json:"document_class"`
	ContentSummary string    `db:"content_summary" json:"content_summary"`
	ChunkCount     int       `db:"chunk_count" json:"chunk_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ValidDocumentClass reports whether class is one of the closed enum values.
func ValidDocumentClass(class string) bool {
	switch class {
	case ClassPRD, ClassTranscript, ClassSpec, ClassEmail, ClassPresentation,
		ClassSpreadsheet, ClassWireframe, ClassResearch, ClassGeneric:
		return true
	}
	return false
}
