package extraction_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// minPageChars is the threshold below which a page with embedded images is
// flagged for OCR.
const minPageChars = 50

// PDFExtractor extracts text page by page using pdfcpu. Pages whose native
// text comes up short and which carry image XObjects are flagged for OCR;
// the flag drives the native/ocr/hybrid method decision.
type PDFExtractor struct {
	logger zerolog.Logger
}

func NewPDFExtractor(logger zerolog.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger.With().Str("extractor", "pdf").Logger()}
}

func (e *PDFExtractor) CanHandle(mimeType, ext string) bool {
	return mimeType == mimePDF || ext == ".pdf"
}

func (e *PDFExtractor) SupportedTypes() []string { return []string{mimePDF} }

func (e *PDFExtractor) SizeLimit() int64 { return MaxPDFBytes }

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewExtractionError("pdf", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, core.NewExtractionError("pdf", fmt.Errorf("pdfcpu read: %w", err))
	}

	if pdfCtx.PageCount > MaxPDFPages {
		return nil, &core.ValidationError{
			Message: fmt.Sprintf("pdf has %d pages, exceeds limit of %d", pdfCtx.PageCount, MaxPDFPages),
		}
	}

	res := &models.ExtractionResult{
		PageCount: pdfCtx.PageCount,
		Metadata:  map[string]string{"source_format": "pdf"},
	}

	pages := make([]pdfPage, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		pages = append(pages, pdfPage{
			text:      extractPageText(pdfCtx, pageNr),
			hasImages: pageHasImages(pdfCtx, pageNr),
		})
	}

	method, flagged := classifyPages(pages)
	res.ExtractionMethod = method
	for _, nr := range flagged {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("page %d flagged for OCR: %d chars of native text with embedded images", nr, len(pages[nr-1].text)))
	}

	for i, p := range pages {
		if strings.TrimSpace(p.text) == "" {
			continue
		}
		res.Sections = append(res.Sections, sectionsFromLines(strings.Split(p.text, "\n"), i+1)...)
	}
	res.Metadata["ocr_flagged_pages"] = strconv.Itoa(len(flagged))

	if len(res.Sections) == 0 && len(flagged) == 0 {
		return nil, core.NewExtractionError("pdf", fmt.Errorf("no text content found in %s", filename))
	}

	e.logger.Debug().Str("file", filename).Int("pages", pdfCtx.PageCount).
		Int("ocr_flagged", len(flagged)).Str("method", res.ExtractionMethod).
		Msg("pdf extracted")

	return finalizeResult(res), nil
}

// pdfPage is one page's native text and whether it references image XObjects.
type pdfPage struct {
	text      string
	hasImages bool
}

// classifyPages applies the per-page OCR flag and picks the extraction
// method. Short text on an image-bearing page means the content is likely
// rasterized, so the page is flagged (1-based numbers) instead of trusting
// the fragments. No flags is native; flags outnumbering text pages is ocr;
// a mix is hybrid.
func classifyPages(pages []pdfPage) (string, []int) {
	textPages := 0
	var flagged []int
	for i, p := range pages {
		if len(p.text) < minPageChars && p.hasImages {
			flagged = append(flagged, i+1)
		} else if strings.TrimSpace(p.text) != "" {
			textPages++
		}
	}
	switch {
	case len(flagged) == 0:
		return models.MethodNative, nil
	case len(flagged) > textPages:
		return models.MethodOCR, flagged
	default:
		return models.MethodHybrid, flagged
	}
}

// extractPageText pulls text from a single page's content stream.
func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// pageHasImages reports whether the page references image XObjects.
func pageHasImages(pdfCtx *model.Context, pageNr int) bool {
	return len(pdfcpu.ImageObjNrs(pdfCtx, pageNr)) > 0
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromContentStream parses PDF content stream operators for text,
// preserving line structure: Td/TD/T*/' positioning operators break lines so
// the heading heuristic can see one logical line at a time.
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// Tj / TJ / ' show-text operators carry string literals.
		showsText := bytes.HasSuffix(line, []byte("Tj")) ||
			bytes.HasSuffix(line, []byte("TJ")) ||
			(bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")))
		if showsText {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteString(text)
				}
			}
		}

		// Positioning operators end the current logical line.
		if bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")) ||
			bytes.Equal(line, []byte("T*")) || bytes.HasSuffix(line, []byte("'")) {
			sb.WriteByte('\n')
		}
	}

	return cleanStreamText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\', '(', ')':
				sb.WriteByte(raw[i])
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					for j := 0; j < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; j++ {
						i++
						val = val*8 + int(raw[i]-'0')
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// cleanStreamText normalises whitespace within lines while keeping the line
// breaks produced by the positioning operators.
func cleanStreamText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var sb strings.Builder
		prevSpace := false
		for _, r := range line {
			if unicode.IsSpace(r) {
				if !prevSpace && sb.Len() > 0 {
					sb.WriteByte(' ')
					prevSpace = true
				}
			} else if unicode.IsPrint(r) {
				sb.WriteRune(r)
				prevSpace = false
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}
