// Package classifier scores and prioritizes documents through a single
// classifier-oracle call, validating and clamping everything that comes back.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// maxPreviewChars bounds the content preview embedded in the prompt.
const maxPreviewChars = 4000

const systemPrompt = `You are a document classification engine for a knowledge index.
Respond with a single JSON object and nothing else.`

const promptTemplate = `Classify the following document.

Filename: %s
Type hint: %s

Content preview:
"""
%s
"""

Respond with JSON matching this schema exactly:
{
  "document_class": one of ["prd","transcript","spec","email","presentation","spreadsheet","wireframe","research","generic"],
  "quality_score": number 0.0-1.0,
  "relevance_score": number 0.0-1.0,
  "information_density": number 0.0-1.0,
  "content_summary": string, at most 3 sentences,
  "keyword_tags": array of up to 8 short strings,
  "key_topics": array of up to 5 short strings,
  "processing_priority": integer 1-100,
  "confidence": number 0.0-1.0
}`

// classPriorities is the static fallback priority table, usable when the
// oracle is unavailable.
var classPriorities = map[string]int{
	models.ClassPRD:          90,
	models.ClassTranscript:   85,
	models.ClassSpec:         80,
	models.ClassResearch:     70,
	models.ClassWireframe:    65,
	models.ClassEmail:        50,
	models.ClassPresentation: 45,
	models.ClassSpreadsheet:  40,
	models.ClassGeneric:      30,
}

// Classifier wraps one oracle call per document. Any parse failure of the
// oracle's output degrades to a deterministic fallback instead of an error;
// classification never aborts the pipeline.
type Classifier struct {
	llm    core.LLMProvider
	logger zerolog.Logger
}

func New(llm core.LLMProvider, logger zerolog.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger.With().Str("component", "classifier").Logger()}
}

// Classify scores the document content. The returned result is always valid:
// clamped numeric fields and a document class from the closed enum.
func (c *Classifier) Classify(ctx context.Context, content, filename, typeHint string) *models.ClassificationResult {
	if c.llm == nil {
		return Fallback()
	}

	preview := content
	if len(preview) > maxPreviewChars {
		cut := maxPreviewChars
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}

	raw, err := c.llm.Generate(ctx, systemPrompt, fmt.Sprintf(promptTemplate, filename, typeHint, preview))
	if err != nil {
		c.logger.Warn().Err(err).Str("file", filename).Msg("classifier oracle failed, using fallback")
		return Fallback()
	}

	result, err := parseOracleResponse(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("file", filename).Msg("unparseable oracle response, using fallback")
		return Fallback()
	}

	return sanitize(result)
}

// Fallback is the deterministic degraded-but-valid result used when the
// oracle is unavailable or its output cannot be parsed.
func Fallback() *models.ClassificationResult {
	return &models.ClassificationResult{
		DocumentClass:      models.ClassGeneric,
		QualityScore:       0.5,
		RelevanceScore:     0.5,
		InformationDensity: 0.5,
		Confidence:         0.1,
		ProcessingPriority: 30,
	}
}

// PriorityForClass returns the static priority for a document class,
// defaulting to the generic priority for unknown classes.
func PriorityForClass(class string) int {
	if p, ok := classPriorities[class]; ok {
		return p
	}
	return classPriorities[models.ClassGeneric]
}

// parseOracleResponse decodes the oracle's JSON, tolerating markdown fences
// around the object.
func parseOracleResponse(raw string) (*models.ClassificationResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	// Tolerate prose around the object by slicing the outermost braces.
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			raw = raw[start : end+1]
		}
	}

	var result models.ClassificationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	return &result, nil
}

// sanitize clamps every numeric field into its declared range and coerces
// unknown document classes to generic, regardless of what the oracle said.
func sanitize(r *models.ClassificationResult) *models.ClassificationResult {
	if !models.ValidDocumentClass(r.DocumentClass) {
		r.DocumentClass = models.ClassGeneric
	}
	r.QualityScore = clamp01(r.QualityScore)
	r.RelevanceScore = clamp01(r.RelevanceScore)
	r.InformationDensity = clamp01(r.InformationDensity)
	r.Confidence = clamp01(r.Confidence)
	r.ProcessingPriority = clampInt(r.ProcessingPriority, 1, 100)
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
