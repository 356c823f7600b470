package extraction_engine

import (
	"strings"

	"github.com/markdave123-py/Indexa/internal/models"
)

// isHeadingLine applies the shared heading heuristic: a line is a heading if
// it is shorter than 80 chars AND (all-uppercase, or ends with ':', or has at
// most 6 words and does not end with '.').
func isHeadingLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) >= 80 {
		return false
	}
	if isAllUpper(line) {
		return true
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	words := strings.Fields(line)
	return len(words) <= 6 && !strings.HasSuffix(line, ".")
}

// isAllUpper reports whether the line contains at least one letter and no
// lowercase letters.
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'Þ') {
			hasLetter = true
		}
	}
	return hasLetter
}

// sectionsFromLines walks text lines on one page, emitting a heading section
// per detected heading and accumulating consecutive non-heading lines into
// one paragraph section until the next heading or the end of the page.
func sectionsFromLines(lines []string, page int) []models.ExtractedSection {
	var out []models.ExtractedSection
	var para []string
	var currentTitle string

	flush := func() {
		if len(para) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(para, "\n"))
		para = para[:0]
		if content == "" {
			return
		}
		out = append(out, models.ExtractedSection{
			SectionType:  "paragraph",
			Content:      content,
			SectionTitle: currentTitle,
			PageNumber:   page,
			WordCount:    len(strings.Fields(content)),
		})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isHeadingLine(trimmed) {
			flush()
			currentTitle = trimmed
			out = append(out, models.ExtractedSection{
				SectionType:  "heading",
				Content:      trimmed,
				SectionTitle: trimmed,
				PageNumber:   page,
				WordCount:    len(strings.Fields(trimmed)),
			})
			continue
		}
		para = append(para, trimmed)
	}
	flush()
	return out
}

// finalizeResult derives word counts and the raw-text classification preview
// from the section list. Warnings and metadata on res are preserved.
func finalizeResult(res *models.ExtractionResult) *models.ExtractionResult {
	total := 0
	var sb strings.Builder
	for i := range res.Sections {
		s := &res.Sections[i]
		if s.WordCount == 0 {
			s.WordCount = len(strings.Fields(s.Content))
		}
		total += s.WordCount
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s.Content)
	}
	res.WordCount = total
	res.RawText = sb.String()
	return res
}
