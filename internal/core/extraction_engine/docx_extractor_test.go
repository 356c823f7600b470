package extraction_engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/logging"
	"github.com/markdave123-py/Indexa/internal/models"
)

const docxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Introduction</w:t></w:r></w:p>
    <w:p><w:r><w:t>The system ingests documents from object storage.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Each document runs through a fixed pipeline.</w:t></w:r></w:p>
    <w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Architecture</w:t></w:r></w:p>
    <w:p><w:r><w:t>A queue claimer hands work to the orchestrator.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr><w:tc><w:p><w:r><w:t>Stage</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Output</w:t></w:r></w:p></w:tc></w:tr>
      <w:tr><w:tc><w:p><w:r><w:t>extract</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>sections</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestDocxExtract(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"word/document.xml": []byte(docxFixture),
	})

	e := NewDocxExtractor(logging.Nop())
	res, err := e.Extract(context.Background(), data, "design.docx", Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if res.ExtractionMethod != models.MethodNative {
		t.Errorf("method = %q, want native", res.ExtractionMethod)
	}

	var types []string
	for _, s := range res.Sections {
		types = append(types, s.SectionType)
	}
	want := []string{"heading", "paragraph", "heading", "paragraph", "table"}
	if len(types) != len(want) {
		t.Fatalf("section types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("section types = %v, want %v", types, want)
		}
	}

	// Both body paragraphs under Introduction collapse into one section.
	intro := res.Sections[1]
	if intro.SectionTitle != "Introduction" {
		t.Errorf("paragraph title = %q, want Introduction", intro.SectionTitle)
	}
	if !strings.Contains(intro.Content, "object storage") || !strings.Contains(intro.Content, "fixed pipeline") {
		t.Errorf("paragraph content missing text: %q", intro.Content)
	}

	// The level-2 heading nests under the level-1 heading in the path.
	arch := res.Sections[2]
	if arch.SectionPath != "Introduction > Architecture" {
		t.Errorf("heading path = %q, want %q", arch.SectionPath, "Introduction > Architecture")
	}

	table := res.Sections[4]
	if !strings.Contains(table.Content, "Stage | Output") {
		t.Errorf("table content = %q", table.Content)
	}

	if res.WordCount == 0 || res.RawText == "" {
		t.Error("finalize did not derive word count and raw text")
	}
}

func TestDocxExtractMissingDocumentXML(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"word/styles.xml": []byte("<styles/>"),
	})

	e := NewDocxExtractor(logging.Nop())
	_, err := e.Extract(context.Background(), data, "broken.docx", Options{})
	if err == nil {
		t.Fatal("expected error for archive without document.xml")
	}

	var xerr *core.ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error type = %T, want *core.ExtractionError", err)
	}
	if xerr.Recoverable {
		t.Error("missing document.xml should not be recoverable")
	}
}

func TestDocxExtractNotAZip(t *testing.T) {
	e := NewDocxExtractor(logging.Nop())
	_, err := e.Extract(context.Background(), []byte("plain text, not a zip"), "fake.docx", Options{})
	if err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading3", 3},
		{"Title", 1},
		{"Subtitle", 2},
		{"Normal", 0},
		{"", 0},
		{"Heading9", 0}, // beyond supported depth
	}
	for _, tt := range tests {
		if got := docxHeadingLevel(tt.style); got != tt.want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}
