package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/Indexa/internal/models"
)

func TestBuildPrefixAllLines(t *testing.T) {
	doc := DocumentContext{
		Title:          "q3_roadmap.pptx",
		DocumentClass:  models.ClassPresentation,
		Authority:      "client",
		Summary:        "Quarterly product roadmap.",
		ProjectContext: "Apollo migration",
		QualityScore:   0.82,
		HasQuality:     true,
		TotalPages:     12,
	}
	section := &models.ExtractedSection{
		SectionTitle: "Timeline",
		PageNumber:   3,
	}

	prefix := BuildPrefix(doc, section)

	want := strings.Join([]string{
		"Document: q3_roadmap.pptx",
		"Type: Presentation",
		"Source: Client Materials",
		"Quality: High",
		"Location: Page 3 of 12",
		"Section: Timeline",
		"Context: Quarterly product roadmap.",
		"Project: Apollo migration",
	}, "\n") + "\n\n---\n\n"

	assert.Equal(t, want, prefix)
}

func TestBuildPrefixOmitsAbsentLines(t *testing.T) {
	doc := DocumentContext{Title: "notes.txt"}
	section := &models.ExtractedSection{}

	prefix := BuildPrefix(doc, section)
	assert.Equal(t, "Document: notes.txt\n\n---\n\n", prefix)
}

func TestBuildPrefixEmptyWhenNoInputs(t *testing.T) {
	prefix := BuildPrefix(DocumentContext{}, &models.ExtractedSection{})
	assert.Empty(t, prefix)
}

func TestBuildPrefixPageWithoutTotal(t *testing.T) {
	doc := DocumentContext{}
	section := &models.ExtractedSection{PageNumber: 5}

	prefix := BuildPrefix(doc, section)
	assert.Contains(t, prefix, "Location: Page 5\n")
	assert.NotContains(t, prefix, "of")
}

func TestBuildPrefixTruncation(t *testing.T) {
	doc := DocumentContext{
		Summary:        strings.Repeat("s", maxSummaryChars+50),
		ProjectContext: strings.Repeat("p", maxProjectChars+50),
	}
	prefix := BuildPrefix(doc, &models.ExtractedSection{})

	assert.Contains(t, prefix, "Context: "+strings.Repeat("s", maxSummaryChars)+"...")
	assert.Contains(t, prefix, "Project: "+strings.Repeat("p", maxProjectChars)+"...")
	assert.NotContains(t, prefix, strings.Repeat("s", maxSummaryChars+1))
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	s := strings.Repeat("日", maxSummaryChars) // 3 bytes per rune, cut lands mid-rune
	got := truncate(s, maxSummaryChars)

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxSummaryChars+3)
}

func TestQualityBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.9, "High"},
		{0.7, "High"},
		{0.69, "Medium"},
		{0.4, "Medium"},
		{0.39, "Standard"},
		{0.0, "Standard"},
	}
	for _, tt := range tests {
		if got := qualityBand(tt.score); got != tt.want {
			t.Errorf("qualityBand(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFriendlyLabels(t *testing.T) {
	assert.Equal(t, "Product Requirements", friendlyType(models.ClassPRD))
	assert.Equal(t, "Document", friendlyType("unknown"))
	assert.Equal(t, "Consultant Materials", friendlyAuthority("Consultant"))
	assert.Equal(t, "acme-partner", friendlyAuthority("acme-partner"))
}
