package extraction_engine

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/Indexa/internal/core"
)

// Registry matches files to extractors. It holds an ordered list; the first
// extractor whose CanHandle predicate matches wins. Built once at process
// start and passed by injection, never a hidden singleton.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a registry over the given extractors in match order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Find returns the first extractor accepting the file's type.
func (r *Registry) Find(filename, mimeType string) (Extractor, error) {
	mime, ext := DetectType(filename, mimeType)
	for _, e := range r.extractors {
		if e.CanHandle(mime, ext) {
			return e, nil
		}
	}
	return nil, &core.ValidationError{
		Message: fmt.Sprintf("unsupported file type %q (%s)", ext, mime),
	}
}

// SupportedTypes returns the union of all registered extractors' MIME types.
func (r *Registry) SupportedTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.extractors {
		for _, t := range e.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// sizeCeilings maps effective MIME type to the hard byte limit.
// The table is fixed: pdf/docx 10 MB, xlsx 5 MB, pptx 15 MB, images 5 MB.
var sizeCeilings = map[string]int64{
	mimePDF:  MaxPDFBytes,
	mimeDocx: MaxDocxBytes,
	mimeXlsx: MaxXlsxBytes,
	mimePptx: MaxPptxBytes,
	mimePNG:  MaxImageBytes,
	mimeJPEG: MaxImageBytes,
	mimeGIF:  MaxImageBytes,
	mimeWebP: MaxImageBytes,
}

// ValidateFile rejects unsupported or oversized files before any extraction
// work happens. A file exactly at its ceiling is accepted; one byte over is
// rejected with an error naming the limit.
func (r *Registry) ValidateFile(filename, mimeType string, size int64) error {
	mime, ext := DetectType(filename, mimeType)

	matched := false
	for _, e := range r.extractors {
		if e.CanHandle(mime, ext) {
			matched = true
			break
		}
	}
	if !matched {
		return &core.ValidationError{
			Message: fmt.Sprintf("unsupported file type %q (%s)", ext, mime),
		}
	}

	limit, ok := sizeCeilings[mime]
	if !ok {
		// Text-like fallback formats share the DOCX ceiling.
		limit = MaxDocxBytes
	}
	if size > limit {
		return &core.ValidationError{
			Message: fmt.Sprintf("file size %d exceeds limit of %d bytes for %s", size, limit, strings.TrimPrefix(ext, ".")),
		}
	}
	return nil
}
