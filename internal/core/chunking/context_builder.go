// Package chunking turns extraction results into ordered, token-bounded
// chunks with a contextual metadata prefix prepended to the embedding copy.
package chunking

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/Indexa/internal/models"
)

// Truncation limits for prefix lines.
const (
	maxSummaryChars = 400
	maxProjectChars = 200
)

// prefixTerminator separates the metadata header from the chunk body.
const prefixTerminator = "\n\n---\n\n"

// DocumentContext carries the document-level inputs the prefix builder needs.
// Zero values mean "absent" and suppress the corresponding line.
type DocumentContext struct {
	Title          string
	DocumentClass  string
	Authority      string
	Summary        string
	ProjectContext string
	QualityScore   float64
	HasQuality     bool
	TotalPages     int
}

// friendlyTypeNames maps document classes to reader-facing labels.
var friendlyTypeNames = map[string]string{
	models.ClassPRD:          "Product Requirements",
	models.ClassTranscript:   "Meeting Transcript",
	models.ClassSpec:         "Technical Specification",
	models.ClassEmail:        "Email Thread",
	models.ClassPresentation: "Presentation",
	models.ClassSpreadsheet:  "Spreadsheet",
	models.ClassWireframe:    "Wireframe",
	models.ClassResearch:     "Research Document",
	models.ClassGeneric:      "Document",
}

// friendlyAuthorityLabels maps authority levels to source labels.
var friendlyAuthorityLabels = map[string]string{
	"client":     "Client Materials",
	"consultant": "Consultant Materials",
	"internal":   "Internal Materials",
	"external":   "External Reference",
}

// BuildPrefix renders the deterministic metadata header for one chunk. No
// model call; lines appear only when their input is present, in a fixed
// order, joined with newlines and closed with the terminator.
func BuildPrefix(doc DocumentContext, section *models.ExtractedSection) string {
	var lines []string

	if doc.Title != "" {
		lines = append(lines, "Document: "+doc.Title)
	}
	if doc.DocumentClass != "" {
		lines = append(lines, "Type: "+friendlyType(doc.DocumentClass))
	}
	if doc.Authority != "" {
		lines = append(lines, "Source: "+friendlyAuthority(doc.Authority))
	}
	if doc.HasQuality {
		lines = append(lines, "Quality: "+qualityBand(doc.QualityScore))
	}
	if section.PageNumber > 0 {
		if doc.TotalPages > 0 {
			lines = append(lines, "Location: Page "+strconv.Itoa(section.PageNumber)+" of "+strconv.Itoa(doc.TotalPages))
		} else {
			lines = append(lines, "Location: Page "+strconv.Itoa(section.PageNumber))
		}
	}
	if section.SectionTitle != "" {
		lines = append(lines, "Section: "+section.SectionTitle)
	}
	if doc.Summary != "" {
		lines = append(lines, "Context: "+truncate(doc.Summary, maxSummaryChars))
	}
	if doc.ProjectContext != "" {
		lines = append(lines, "Project: "+truncate(doc.ProjectContext, maxProjectChars))
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + prefixTerminator
}

// qualityBand maps a quality score to its label: High at 0.7 and above,
// Medium at 0.4, Standard below.
func qualityBand(score float64) string {
	switch {
	case score >= 0.7:
		return "High"
	case score >= 0.4:
		return "Medium"
	default:
		return "Standard"
	}
}

func friendlyType(class string) string {
	if name, ok := friendlyTypeNames[class]; ok {
		return name
	}
	return "Document"
}

func friendlyAuthority(authority string) string {
	if label, ok := friendlyAuthorityLabels[strings.ToLower(authority)]; ok {
		return label
	}
	return authority
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
