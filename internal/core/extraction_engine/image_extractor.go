package extraction_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// imageVisionPrompt is the fixed structured prompt for single-image analysis.
// The oracle is asked for markdown with "## " headers so the response can be
// split into typed sections.
const imageVisionPrompt = `Analyze this image and respond in markdown with these sections:

## Extracted Text
All visible text, verbatim.

## Description
What the image shows overall.

## UI Elements
If this is a screenshot, wireframe, or mockup: buttons, menus, forms, and layout.

## Diagrams
If this contains charts or diagrams: what they convey, including labels and values.

Omit a section entirely if it does not apply.`

// headerSectionTypes maps keywords in a "## " header to section types.
// Checked in order; the first keyword found wins.
var headerSectionTypes = []struct {
	keyword     string
	sectionType string
}{
	{"text", "extracted_text"},
	{"ui", "ui_elements"},
	{"ux", "ui_elements"},
	{"diagram", "diagram_description"},
	{"chart", "diagram_description"},
	{"description", "image_description"},
}

// ImageExtractor sends the image to the vision oracle once and structures
// the markdown response into typed sections.
type ImageExtractor struct {
	vision core.VisionProvider
	logger zerolog.Logger
}

func NewImageExtractor(vision core.VisionProvider, logger zerolog.Logger) *ImageExtractor {
	return &ImageExtractor{
		vision: vision,
		logger: logger.With().Str("extractor", "image").Logger(),
	}
}

func (e *ImageExtractor) CanHandle(mimeType, ext string) bool {
	switch mimeType {
	case mimePNG, mimeJPEG, mimeGIF, mimeWebP:
		return true
	}
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

func (e *ImageExtractor) SupportedTypes() []string {
	return []string{mimePNG, mimeJPEG, mimeGIF, mimeWebP}
}

func (e *ImageExtractor) SizeLimit() int64 { return MaxImageBytes }

func (e *ImageExtractor) Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error) {
	if e.vision == nil || opts.DisableVision {
		return nil, &core.ExtractionError{
			Message:     "vision oracle not configured",
			Extractor:   "image",
			Recoverable: false,
		}
	}

	response, err := e.vision.Describe(ctx, [][]byte{data}, imageVisionPrompt)
	if err != nil {
		return nil, core.NewExtractionError("image", fmt.Errorf("vision oracle: %w", err))
	}
	if strings.TrimSpace(response) == "" {
		return nil, core.NewExtractionError("image", fmt.Errorf("vision oracle returned empty response for %s", filename))
	}

	sections := sectionsFromVisionMarkdown(response)

	res := &models.ExtractionResult{
		Sections:         sections,
		PageCount:        1,
		ExtractionMethod: models.MethodVision,
		EmbeddedImages:   [][]byte{data},
		Metadata:         map[string]string{"source_format": "image"},
	}

	e.logger.Debug().Str("file", filename).Int("sections", len(sections)).Msg("image extracted")

	return finalizeResult(res), nil
}

// sectionsFromVisionMarkdown splits the oracle's markdown on "## " headers
// and tags each block by keyword-matching its header text. A response with
// no headers becomes a single image_description section.
func sectionsFromVisionMarkdown(response string) []models.ExtractedSection {
	response = strings.TrimSpace(response)

	blocks := splitOnHeaders(response)
	if len(blocks) == 0 {
		return []models.ExtractedSection{{
			SectionType: "image_description",
			Content:     response,
			PageNumber:  1,
		}}
	}

	var sections []models.ExtractedSection
	for _, b := range blocks {
		if strings.TrimSpace(b.body) == "" {
			continue
		}
		sections = append(sections, models.ExtractedSection{
			SectionType:  sectionTypeForHeader(b.header),
			Content:      strings.TrimSpace(b.body),
			SectionTitle: b.header,
			PageNumber:   1,
		})
	}
	if len(sections) == 0 {
		return []models.ExtractedSection{{
			SectionType: "image_description",
			Content:     response,
			PageNumber:  1,
		}}
	}
	return sections
}

type markdownBlock struct {
	header string
	body   string
}

// splitOnHeaders breaks markdown into header/body blocks at "## " lines.
// Text before the first header is discarded only if headers exist at all.
func splitOnHeaders(text string) []markdownBlock {
	lines := strings.Split(text, "\n")
	var blocks []markdownBlock
	var current *markdownBlock
	var body []string

	flush := func() {
		if current != nil {
			current.body = strings.Join(body, "\n")
			blocks = append(blocks, *current)
		}
		body = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = &markdownBlock{header: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()
	return blocks
}

func sectionTypeForHeader(header string) string {
	lower := strings.ToLower(header)
	for _, m := range headerSectionTypes {
		if strings.Contains(lower, m.keyword) {
			return m.sectionType
		}
	}
	return "image_description"
}
