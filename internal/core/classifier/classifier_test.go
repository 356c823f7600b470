package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Indexa/internal/logging"
	"github.com/markdave123-py/Indexa/internal/models"
)

// fakeLLM returns a canned response or error and records the last prompt.
type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastPrompt = userPrompt
	return f.response, f.err
}

func TestClassifyParsesOracleJSON(t *testing.T) {
	llm := &fakeLLM{response: `{
		"document_class": "prd",
		"quality_score": 0.8,
		"relevance_score": 0.9,
		"information_density": 0.7,
		"content_summary": "A requirements document for the billing revamp.",
		"keyword_tags": ["billing", "payments"],
		"key_topics": ["invoicing"],
		"processing_priority": 90,
		"confidence": 0.95
	}`}

	c := New(llm, logging.Nop())
	res := c.Classify(context.Background(), "some document content", "billing_prd.docx", "")

	require.NotNil(t, res)
	assert.Equal(t, models.ClassPRD, res.DocumentClass)
	assert.Equal(t, 0.8, res.QualityScore)
	assert.Equal(t, 90, res.ProcessingPriority)
	assert.Equal(t, []string{"billing", "payments"}, res.KeywordTags)
}

func TestClassifyTruncatesPreview(t *testing.T) {
	llm := &fakeLLM{response: `{"document_class":"generic"}`}
	c := New(llm, logging.Nop())

	content := strings.Repeat("x", maxPreviewChars*2)
	c.Classify(context.Background(), content, "big.txt", "")

	// Prompt carries at most maxPreviewChars of content plus the template.
	if len(llm.lastPrompt) > maxPreviewChars+len(promptTemplate)+200 {
		t.Errorf("prompt length %d suggests the preview was not truncated", len(llm.lastPrompt))
	}
}

func TestClassifyPreviewKeepsRuneBoundaries(t *testing.T) {
	llm := &fakeLLM{err: errors.New("oracle down")}
	c := New(llm, logging.Nop())

	// 3 bytes per rune, so the preview cut lands mid-rune without snapping.
	c.Classify(context.Background(), strings.Repeat("文", maxPreviewChars), "notes.txt", "text/plain")

	require.True(t, utf8.ValidString(llm.lastPrompt))
}

func TestClassifyClampsOutOfRangeValues(t *testing.T) {
	llm := &fakeLLM{response: `{
		"document_class": "spec",
		"quality_score": 1.4,
		"relevance_score": -0.2,
		"information_density": 2.0,
		"processing_priority": 400,
		"confidence": -1
	}`}

	c := New(llm, logging.Nop())
	res := c.Classify(context.Background(), "content", "a.pdf", "")

	assert.Equal(t, 1.0, res.QualityScore)
	assert.Equal(t, 0.0, res.RelevanceScore)
	assert.Equal(t, 1.0, res.InformationDensity)
	assert.Equal(t, 100, res.ProcessingPriority)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestClassifyUnknownClassBecomesGeneric(t *testing.T) {
	llm := &fakeLLM{response: `{"document_class": "invoice", "quality_score": 0.6}`}

	c := New(llm, logging.Nop())
	res := c.Classify(context.Background(), "content", "a.pdf", "")

	assert.Equal(t, models.ClassGeneric, res.DocumentClass)
	assert.Equal(t, 0.6, res.QualityScore)
}

func TestClassifyStripsMarkdownFences(t *testing.T) {
	llm := &fakeLLM{response: "```json\n{\"document_class\": \"transcript\"}\n```"}

	c := New(llm, logging.Nop())
	res := c.Classify(context.Background(), "content", "meeting.txt", "")

	assert.Equal(t, models.ClassTranscript, res.DocumentClass)
}

func TestClassifyToleratesSurroundingProse(t *testing.T) {
	llm := &fakeLLM{response: "Here is the classification you asked for:\n{\"document_class\": \"email\"}\nHope that helps."}

	c := New(llm, logging.Nop())
	res := c.Classify(context.Background(), "content", "thread.txt", "")

	assert.Equal(t, models.ClassEmail, res.DocumentClass)
}

func TestClassifyFallbackPaths(t *testing.T) {
	want := Fallback()

	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"oracle error", &fakeLLM{err: errors.New("rate limited")}},
		{"garbage response", &fakeLLM{response: "not json at all"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.llm, logging.Nop())
			res := c.Classify(context.Background(), "content", "a.pdf", "")
			assert.Equal(t, want, res)
		})
	}

	t.Run("nil oracle", func(t *testing.T) {
		c := New(nil, logging.Nop())
		assert.Equal(t, want, c.Classify(context.Background(), "content", "a.pdf", ""))
	})
}

func TestFallbackIsValid(t *testing.T) {
	f := Fallback()
	assert.Equal(t, models.ClassGeneric, f.DocumentClass)
	assert.Equal(t, 0.5, f.QualityScore)
	assert.Equal(t, 0.5, f.RelevanceScore)
	assert.Equal(t, 0.5, f.InformationDensity)
	assert.Equal(t, 0.1, f.Confidence)
	assert.Equal(t, 30, f.ProcessingPriority)
}

func TestPriorityForClass(t *testing.T) {
	assert.Equal(t, 90, PriorityForClass(models.ClassPRD))
	assert.Equal(t, 85, PriorityForClass(models.ClassTranscript))
	assert.Equal(t, 30, PriorityForClass(models.ClassGeneric))
	assert.Equal(t, 30, PriorityForClass("made-up"))
}
