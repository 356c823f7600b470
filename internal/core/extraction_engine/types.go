// Package extraction_engine turns raw document bytes into ordered semantic
// sections through a registry of format-specific extractors.
package extraction_engine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/Indexa/internal/models"
)

// Per-type size ceilings enforced before extraction.
const (
	MaxPDFBytes   int64 = 10 * 1024 * 1024
	MaxDocxBytes  int64 = 10 * 1024 * 1024
	MaxXlsxBytes  int64 = 5 * 1024 * 1024
	MaxPptxBytes  int64 = 15 * 1024 * 1024
	MaxImageBytes int64 = 5 * 1024 * 1024
)

// Per-type page/slide ceilings.
const (
	MaxPDFPages   = 100
	MaxPptxSlides = 50
)

// Vision oracle bounds for image-heavy content.
const (
	VisionBatchSize      = 4  // images per oracle call
	MaxVisionCallsPerDoc = 20 // soft cap; exceeding it skips remaining slides
)

// Options carries per-extraction knobs.
type Options struct {
	// TypeHint is an optional caller-supplied hint (e.g. "presentation")
	// recorded in result metadata.
	TypeHint string

	// DisableVision skips all vision oracle calls; image-heavy content is
	// dropped with a warning instead.
	DisableVision bool
}

// Extractor is the common contract all format extractors implement.
type Extractor interface {
	// CanHandle reports whether this extractor accepts the given MIME type
	// or, failing that, the file extension (with leading dot).
	CanHandle(mimeType, ext string) bool

	// Extract turns raw bytes into an ExtractionResult. Failures are
	// *core.ExtractionError; Recoverable marks errors worth retrying.
	Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error)

	// SupportedTypes lists the MIME types this extractor accepts.
	SupportedTypes() []string

	// SizeLimit is the maximum input size in bytes.
	SizeLimit() int64
}

// MIME types the registry knows about.
const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeGIF  = "image/gif"
	mimeWebP = "image/webp"
	mimeText = "text/plain"
	mimeHTML = "text/html"
	mimeMD   = "text/markdown"
	mimeRTF  = "application/rtf"
)

var extensionMIME = map[string]string{
	".pdf":  mimePDF,
	".docx": mimeDocx,
	".pptx": mimePptx,
	".xlsx": mimeXlsx,
	".png":  mimePNG,
	".jpg":  mimeJPEG,
	".jpeg": mimeJPEG,
	".gif":  mimeGIF,
	".webp": mimeWebP,
	".txt":  mimeText,
	".html": mimeHTML,
	".htm":  mimeHTML,
	".md":   mimeMD,
	".rtf":  mimeRTF,
}

// DetectType resolves the effective MIME type and extension for a file,
// preferring the declared MIME type and falling back to the extension.
func DetectType(filename, mimeType string) (mime, ext string) {
	ext = strings.ToLower(filepath.Ext(filename))
	mime = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == "application/octet-stream" {
		if m, ok := extensionMIME[ext]; ok {
			mime = m
		}
	}
	return mime, ext
}
