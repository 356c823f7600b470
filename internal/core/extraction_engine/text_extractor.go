package extraction_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// TextExtractor is the fallback for text-like formats (txt, html, markdown,
// rtf). It converts via docconv and applies the shared heading heuristic to
// the plain text. Registered last so the structured extractors win first.
type TextExtractor struct {
	useReadability bool
	logger         zerolog.Logger
}

func NewTextExtractor(useReadability bool, logger zerolog.Logger) *TextExtractor {
	return &TextExtractor{
		useReadability: useReadability,
		logger:         logger.With().Str("extractor", "text").Logger(),
	}
}

func (e *TextExtractor) CanHandle(mimeType, ext string) bool {
	switch mimeType {
	case mimeText, mimeHTML, mimeMD, mimeRTF:
		return true
	}
	switch ext {
	case ".txt", ".html", ".htm", ".md", ".rtf":
		return true
	}
	return false
}

func (e *TextExtractor) SupportedTypes() []string {
	return []string{mimeText, mimeHTML, mimeMD, mimeRTF}
}

func (e *TextExtractor) SizeLimit() int64 { return MaxDocxBytes }

func (e *TextExtractor) Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewExtractionError("text", err)
	}

	mime, _ := DetectType(filename, "")
	if mime == "" || mime == mimeMD {
		// docconv has no markdown converter; treat it as plain text.
		mime = mimeText
	}

	converted, err := docconv.Convert(bytes.NewReader(data), mime, e.useReadability)
	if err != nil {
		return nil, core.NewExtractionError("text", fmt.Errorf("docconv: %w", err))
	}
	if strings.TrimSpace(converted.Body) == "" {
		return nil, core.NewExtractionError("text", fmt.Errorf("no text content found in %s", filename))
	}

	sections := sectionsFromLines(strings.Split(converted.Body, "\n"), 1)

	res := &models.ExtractionResult{
		Sections:         sections,
		PageCount:        1,
		ExtractionMethod: models.MethodNative,
		Metadata:         map[string]string{"source_format": strings.TrimPrefix(mime, "text/")},
	}

	e.logger.Debug().Str("file", filename).Int("sections", len(sections)).Msg("text extracted")

	return finalizeResult(res), nil
}
