package extraction_engine

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// DocxExtractor parses word/document.xml from the DOCX ZIP archive with a
// streaming XML decoder. Heading-styled paragraphs start a new section; body
// paragraphs accumulate under the current heading; tables become separate
// pipe-delimited sections.
type DocxExtractor struct {
	logger zerolog.Logger
}

func NewDocxExtractor(logger zerolog.Logger) *DocxExtractor {
	return &DocxExtractor{logger: logger.With().Str("extractor", "docx").Logger()}
}

func (e *DocxExtractor) CanHandle(mimeType, ext string) bool {
	return mimeType == mimeDocx || ext == ".docx"
}

func (e *DocxExtractor) SupportedTypes() []string { return []string{mimeDocx} }

func (e *DocxExtractor) SizeLimit() int64 { return MaxDocxBytes }

func (e *DocxExtractor) Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewExtractionError("docx", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, core.NewExtractionError("docx", fmt.Errorf("open zip: %w", err))
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, &core.ExtractionError{
			Message:     "word/document.xml not found in archive",
			Extractor:   "docx",
			Recoverable: false,
		}
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, core.NewExtractionError("docx", fmt.Errorf("open document.xml: %w", err))
	}
	defer rc.Close()

	sections, err := parseDocxBody(rc)
	if err != nil {
		return nil, core.NewExtractionError("docx", err)
	}
	if len(sections) == 0 {
		return nil, core.NewExtractionError("docx", fmt.Errorf("no text content found in %s", filename))
	}

	res := &models.ExtractionResult{
		Sections:         sections,
		PageCount:        1,
		ExtractionMethod: models.MethodNative,
		Metadata:         map[string]string{"source_format": "docx"},
	}

	e.logger.Debug().Str("file", filename).Int("sections", len(sections)).Msg("docx extracted")

	return finalizeResult(res), nil
}

// docxParser accumulates decoder state while walking word/document.xml.
type docxParser struct {
	sections []models.ExtractedSection

	headingStack []string // heading titles by level, for section paths
	currentTitle string
	body         []string // paragraphs under the current heading

	inParagraph    bool
	paragraphStyle string
	text           strings.Builder

	inTable  bool
	rows     [][]string
	row      []string
	cellText strings.Builder
}

func parseDocxBody(r io.Reader) ([]models.ExtractedSection, error) {
	decoder := xml.NewDecoder(r)
	p := &docxParser{}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				p.flushBody()
				p.inTable = true
				p.rows = nil
			case "tr":
				if p.inTable {
					p.row = nil
				}
			case "tc":
				if p.inTable {
					p.cellText.Reset()
				}
			case "p":
				if !p.inTable {
					p.inParagraph = true
					p.text.Reset()
					p.paragraphStyle = ""
				}
			case "pStyle":
				if p.inParagraph {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							p.paragraphStyle = attr.Value
						}
					}
				}
			}

		case xml.CharData:
			switch {
			case p.inTable:
				p.cellText.Write(t)
			case p.inParagraph:
				p.text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if p.inTable {
					p.row = append(p.row, strings.TrimSpace(p.cellText.String()))
					p.cellText.Reset()
				}
			case "tr":
				if p.inTable && len(p.row) > 0 {
					p.rows = append(p.rows, p.row)
					p.row = nil
				}
			case "tbl":
				p.emitTable()
				p.inTable = false
			case "p":
				if p.inParagraph {
					p.inParagraph = false
					p.endParagraph()
				}
			}
		}
	}

	p.flushBody()
	return p.sections, nil
}

func (p *docxParser) endParagraph() {
	text := strings.TrimSpace(p.text.String())
	if text == "" {
		return
	}

	level := docxHeadingLevel(p.paragraphStyle)
	if level == 0 {
		p.body = append(p.body, text)
		return
	}

	p.flushBody()
	p.currentTitle = text
	p.setHeading(level, text)
	p.sections = append(p.sections, models.ExtractedSection{
		SectionType:  "heading",
		Content:      text,
		SectionTitle: text,
		SectionPath:  p.headingPath(),
		WordCount:    len(strings.Fields(text)),
	})
}

func (p *docxParser) flushBody() {
	if len(p.body) == 0 {
		return
	}
	content := strings.Join(p.body, "\n\n")
	p.body = nil
	p.sections = append(p.sections, models.ExtractedSection{
		SectionType:  "paragraph",
		Content:      content,
		SectionTitle: p.currentTitle,
		SectionPath:  p.headingPath(),
		WordCount:    len(strings.Fields(content)),
	})
}

func (p *docxParser) emitTable() {
	if len(p.rows) == 0 {
		return
	}
	lines := make([]string, len(p.rows))
	for i, row := range p.rows {
		lines[i] = strings.Join(row, " | ")
	}
	content := strings.Join(lines, "\n")
	p.rows = nil
	p.sections = append(p.sections, models.ExtractedSection{
		SectionType:  "table",
		Content:      content,
		SectionTitle: p.currentTitle,
		SectionPath:  p.headingPath(),
		WordCount:    len(strings.Fields(content)),
	})
}

// setHeading records title at the given level and drops deeper levels.
func (p *docxParser) setHeading(level int, title string) {
	if level > len(p.headingStack) {
		for len(p.headingStack) < level-1 {
			p.headingStack = append(p.headingStack, "")
		}
		p.headingStack = append(p.headingStack, title)
		return
	}
	p.headingStack = p.headingStack[:level]
	p.headingStack[level-1] = title
}

func (p *docxParser) headingPath() string {
	var parts []string
	for _, h := range p.headingStack {
		if h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, " > ")
}

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" -> 1, "Title" -> 1, "Subtitle" -> 2.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
