package chunking

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/models"
)

// Default token thresholds.
const (
	DefaultMinTokens    = 100
	DefaultTargetTokens = 800
	DefaultMaxTokens    = 1500
)

// charSnapWindow is how far back a raw character split will look for a space
// to avoid cutting a word in half.
const charSnapWindow = 100

// Config tunes the split/merge passes.
//
// MinTokens:       sections below this are merge candidates.
// TargetTokens:    preferred chunk size; also the merged-size ceiling.
// MaxTokens:       hard split threshold per section.
type Config struct {
	MinTokens    int
	TargetTokens int
	MaxTokens    int
}

func (c *Config) defaults() {
	if c.MinTokens <= 0 {
		c.MinTokens = DefaultMinTokens
	}
	if c.TargetTokens <= 0 {
		c.TargetTokens = DefaultTargetTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
}

// Chunker produces ordered ChunkWithContext values from an extraction result
// in three passes: split oversized sections, merge undersized neighbors, then
// emit with contextual prefixes. Chunk order is the section traversal order
// and is never re-sorted.
type Chunker struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Chunker {
	cfg.defaults()
	return &Chunker{cfg: cfg, logger: logger.With().Str("component", "chunker").Logger()}
}

// EstimateTokens is the cheap token estimator used across all passes
// (~4 chars per token).
func EstimateTokens(s string) int {
	return len(s) / 4
}

// Chunk runs the three passes over res.Sections.
func (c *Chunker) Chunk(res *models.ExtractionResult, doc DocumentContext) []models.ChunkWithContext {
	if res == nil || len(res.Sections) == 0 {
		return nil
	}

	sections := c.splitPass(res.Sections)
	sections = c.mergePass(sections)

	chunks := make([]models.ChunkWithContext, 0, len(sections))
	for i := range sections {
		s := &sections[i]
		prefix := BuildPrefix(doc, s)
		withContext := prefix + s.Content
		chunks = append(chunks, models.ChunkWithContext{
			ChunkIndex:         len(chunks),
			OriginalContent:    s.Content,
			ContentWithContext: withContext,
			SectionType:        s.SectionType,
			SectionTitle:       s.SectionTitle,
			PageNumber:         s.PageNumber,
			SectionPath:        s.SectionPath,
			WordCount:          s.Words(),
			TokenEstimate:      EstimateTokens(withContext),
			Metadata:           s.Metadata,
		})
	}

	c.logger.Debug().Int("sections_in", len(res.Sections)).Int("chunks_out", len(chunks)).Msg("chunked")
	return chunks
}

// splitPass breaks any section over MaxTokens into parts, preserving the
// parent's type, page, and path. Titles get a "(Part N)" suffix when the
// split yields more than 2 parts.
func (c *Chunker) splitPass(sections []models.ExtractedSection) []models.ExtractedSection {
	var out []models.ExtractedSection
	for i := range sections {
		s := sections[i]
		if EstimateTokens(s.Content) <= c.cfg.MaxTokens {
			out = append(out, s)
			continue
		}

		parts := splitContent(s.Content, c.cfg.MaxTokens)
		for n, part := range parts {
			child := models.ExtractedSection{
				SectionType: s.SectionType,
				Content:     part,
				PageNumber:  s.PageNumber,
				SectionPath: s.SectionPath,
				WordCount:   len(strings.Fields(part)),
				Metadata:    s.Metadata,
			}
			child.SectionTitle = s.SectionTitle
			if len(parts) > 2 && s.SectionTitle != "" {
				child.SectionTitle = s.SectionTitle + " (Part " + strconv.Itoa(n+1) + ")"
			}
			out = append(out, child)
		}
	}
	return out
}

// splitContent tries boundary strategies in order: paragraph breaks, then
// sentence ends, then a raw character cut snapped to the nearest preceding
// space. Every returned part fits under maxTokens unless a single indivisible
// run of characters exceeds it.
func splitContent(content string, maxTokens int) []string {
	parts := accumulate(strings.Split(content, "\n\n"), "\n\n", maxTokens)

	// Any part still oversized falls through to sentence splitting.
	var out []string
	for _, p := range parts {
		if EstimateTokens(p) <= maxTokens {
			out = append(out, p)
			continue
		}
		for _, sp := range accumulate(splitSentences(p), " ", maxTokens) {
			if EstimateTokens(sp) <= maxTokens {
				out = append(out, sp)
				continue
			}
			out = append(out, splitByChars(sp, maxTokens)...)
		}
	}
	return out
}

// accumulate greedily packs pieces into parts of at most maxTokens, joining
// with sep. A single piece over the limit passes through untouched for the
// next strategy to handle.
func accumulate(pieces []string, sep string, maxTokens int) []string {
	var parts []string
	var buf []string
	bufTokens := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		parts = append(parts, strings.Join(buf, sep))
		buf = nil
		bufTokens = 0
	}

	for _, piece := range pieces {
		t := EstimateTokens(piece)
		if t > maxTokens {
			flush()
			parts = append(parts, piece)
			continue
		}
		if bufTokens+t+EstimateTokens(sep) > maxTokens && bufTokens > 0 {
			flush()
		}
		buf = append(buf, piece)
		bufTokens += t + EstimateTokens(sep)
	}
	flush()
	return parts
}

// splitSentences breaks text at sentence ends: a '.', '!' or '?' followed by
// whitespace and an uppercase letter, or the end of the text.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Look ahead past whitespace for an uppercase letter.
		j := i + 1
		for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t') {
			j++
		}
		if j == i+1 {
			continue // no whitespace after the terminator
		}
		if j < len(runes) && !(runes[j] >= 'A' && runes[j] <= 'Z') {
			continue
		}
		sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

// splitByChars cuts at the byte budget, snapping each cut to the nearest
// preceding space within charSnapWindow bytes and then back to a rune
// boundary so multi-byte text is never severed mid-rune.
func splitByChars(text string, maxTokens int) []string {
	budget := maxTokens * 4
	var parts []string

	for len(text) > budget {
		cut := budget
		windowStart := cut - charSnapWindow
		if windowStart < 0 {
			windowStart = 0
		}
		if i := strings.LastIndexByte(text[windowStart:cut], ' '); i >= 0 {
			cut = windowStart + i
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = budget
			for cut < len(text) && !utf8.RuneStart(text[cut]) {
				cut++
			}
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// mergePass joins adjacent sections when either is under MinTokens and the
// merge stays within TargetTokens, or when both share page and type and the
// merge stays within 80% of TargetTokens.
func (c *Chunker) mergePass(sections []models.ExtractedSection) []models.ExtractedSection {
	if len(sections) < 2 {
		return sections
	}

	maxMerged := c.cfg.TargetTokens
	samePageCeiling := maxMerged * 8 / 10

	out := make([]models.ExtractedSection, 0, len(sections))
	out = append(out, sections[0])

	for _, next := range sections[1:] {
		last := &out[len(out)-1]

		lastTokens := EstimateTokens(last.Content)
		nextTokens := EstimateTokens(next.Content)
		mergedTokens := lastTokens + nextTokens

		smallNeighbor := (lastTokens < c.cfg.MinTokens || nextTokens < c.cfg.MinTokens) &&
			mergedTokens <= maxMerged
		samePageType := last.PageNumber == next.PageNumber &&
			last.SectionType == next.SectionType &&
			mergedTokens <= samePageCeiling

		if !smallNeighbor && !samePageType {
			out = append(out, next)
			continue
		}

		last.Content = last.Content + "\n\n" + next.Content
		last.WordCount = last.Words() + next.Words()
		if last.SectionTitle == "" {
			last.SectionTitle = next.SectionTitle
		} else if next.SectionTitle != "" && next.SectionTitle != last.SectionTitle {
			last.SectionTitle = last.SectionTitle + " / " + next.SectionTitle
		}
		if last.PageNumber == 0 {
			last.PageNumber = next.PageNumber
		}
		last.Metadata = mergeMetadata(last.Metadata, next.Metadata)
	}
	return out
}

// mergeMetadata shallow-merges b into a copy of a; a's keys win.
func mergeMetadata(a, b map[string]string) map[string]string {
	if len(b) == 0 {
		return a
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}

