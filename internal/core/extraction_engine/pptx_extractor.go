package extraction_engine

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// imageHeavyTextLimit and imageHeavyMinBytes define an "image-heavy" slide:
// less than 100 chars of text and at least one embedded image of 5 KB or more.
const (
	imageHeavyTextLimit = 100
	imageHeavyMinBytes  = 5 * 1024
)

// slideVisionPrompt is the fixed structured prompt sent with image-heavy
// slide images.
const slideVisionPrompt = `Describe the content of these presentation slide images.
For each image, capture any visible text verbatim, then summarize diagrams,
charts, or UI mockups. Respond in concise markdown.`

// PptxExtractor parses slide XML from the PPTX ZIP archive: one section per
// slide, bullet nesting as two-space indents, tables as markdown, speaker
// notes as their own sections. Image-heavy slides are described through the
// vision oracle, bounded by a per-document call cap.
type PptxExtractor struct {
	vision core.VisionProvider
	logger zerolog.Logger
}

func NewPptxExtractor(vision core.VisionProvider, logger zerolog.Logger) *PptxExtractor {
	return &PptxExtractor{
		vision: vision,
		logger: logger.With().Str("extractor", "pptx").Logger(),
	}
}

func (e *PptxExtractor) CanHandle(mimeType, ext string) bool {
	return mimeType == mimePptx || ext == ".pptx"
}

func (e *PptxExtractor) SupportedTypes() []string { return []string{mimePptx} }

func (e *PptxExtractor) SizeLimit() int64 { return MaxPptxBytes }

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (e *PptxExtractor) Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewExtractionError("pptx", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, core.NewExtractionError("pptx", fmt.Errorf("open zip: %w", err))
	}

	files := make(map[string]*zip.File, len(zr.File))
	var slideNos []int
	for _, f := range zr.File {
		files[f.Name] = f
		if m := slideNameRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slideNos = append(slideNos, n)
		}
	}
	if len(slideNos) == 0 {
		return nil, &core.ExtractionError{
			Message:     "no slides found in archive",
			Extractor:   "pptx",
			Recoverable: false,
		}
	}
	sort.Ints(slideNos)

	if len(slideNos) > MaxPptxSlides {
		return nil, &core.ValidationError{
			Message: fmt.Sprintf("presentation has %d slides, exceeds limit of %d", len(slideNos), MaxPptxSlides),
		}
	}

	res := &models.ExtractionResult{
		PageCount:        len(slideNos),
		ExtractionMethod: models.MethodNative,
		Metadata:         map[string]string{"source_format": "pptx"},
	}

	type visionJob struct {
		slideNo int
		images  [][]byte
	}
	var visionQueue []visionJob

	for _, n := range slideNos {
		slideText, err := readSlideXML(files, fmt.Sprintf("ppt/slides/slide%d.xml", n))
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slide %d: %v", n, err))
			continue
		}

		if strings.TrimSpace(slideText) != "" {
			res.Sections = append(res.Sections, models.ExtractedSection{
				SectionType: "slide",
				Content:     slideText,
				PageNumber:  n,
				SectionPath: fmt.Sprintf("slide %d", n),
			})
		}

		images := slideImages(files, n)
		res.EmbeddedImages = append(res.EmbeddedImages, images...)
		if len(strings.TrimSpace(slideText)) < imageHeavyTextLimit && hasLargeImage(images) {
			visionQueue = append(visionQueue, visionJob{slideNo: n, images: images})
		}

		notes := readNotesText(files, n)
		if notes != "" {
			res.Sections = append(res.Sections, models.ExtractedSection{
				SectionType: "speaker_notes",
				Content:     notes,
				PageNumber:  n,
				SectionPath: fmt.Sprintf("slide %d notes", n),
			})
		}
	}

	// Image-heavy slides go to the vision oracle in batches of at most
	// VisionBatchSize images, capped at MaxVisionCallsPerDoc calls. Hitting
	// the cap truncates the remainder without failing the extraction.
	visionCalls := 0
	visionUsed := false
	for qi, job := range visionQueue {
		if opts.DisableVision || e.vision == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slide %d: image-heavy but vision disabled", job.slideNo))
			continue
		}
		if visionCalls >= MaxVisionCallsPerDoc {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("vision call cap (%d) reached; skipped %d image-heavy slides", MaxVisionCallsPerDoc, len(visionQueue)-qi))
			break
		}

		var described []string
		for start := 0; start < len(job.images); start += VisionBatchSize {
			if visionCalls >= MaxVisionCallsPerDoc {
				break
			}
			end := start + VisionBatchSize
			if end > len(job.images) {
				end = len(job.images)
			}
			visionCalls++
			desc, err := e.vision.Describe(ctx, job.images[start:end], slideVisionPrompt)
			if err != nil {
				e.logger.Warn().Err(err).Int("slide", job.slideNo).Msg("vision call failed, skipping slide images")
				res.Warnings = append(res.Warnings, fmt.Sprintf("slide %d: vision failed: %v", job.slideNo, err))
				continue
			}
			if strings.TrimSpace(desc) != "" {
				described = append(described, strings.TrimSpace(desc))
			}
		}

		if len(described) > 0 {
			visionUsed = true
			res.Sections = append(res.Sections, models.ExtractedSection{
				SectionType: "image_description",
				Content:     strings.Join(described, "\n\n"),
				PageNumber:  job.slideNo,
				SectionPath: fmt.Sprintf("slide %d images", job.slideNo),
			})
		}
	}
	res.Metadata["vision_calls"] = strconv.Itoa(visionCalls)
	if visionUsed {
		res.ExtractionMethod = models.MethodHybrid
	}

	if len(res.Sections) == 0 {
		return nil, core.NewExtractionError("pptx", fmt.Errorf("no text content found in %s", filename))
	}

	e.logger.Debug().Str("file", filename).Int("slides", len(slideNos)).
		Int("vision_calls", visionCalls).Msg("pptx extracted")

	return finalizeResult(res), nil
}

// readSlideXML renders one slide's combined text: bullet paragraphs indented
// two spaces per nesting level, tables as markdown.
func readSlideXML(files map[string]*zip.File, name string) (string, error) {
	f, ok := files[name]
	if !ok {
		return "", fmt.Errorf("%s missing", name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return renderSlideContent(rc)
}

func renderSlideContent(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var lines []string
	var runText strings.Builder
	level := 0
	inParagraph := false

	inTable := false
	var rows [][]string
	var row []string
	var cellText strings.Builder

	flushParagraph := func() {
		text := strings.TrimSpace(runText.String())
		runText.Reset()
		if text == "" {
			return
		}
		lines = append(lines, strings.Repeat("  ", level)+text)
	}

	flushTable := func() {
		if len(rows) == 0 {
			return
		}
		lines = append(lines, renderMarkdownTable(rows))
		rows = nil
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				inTable = true
				rows = nil
			case "tr":
				if inTable {
					row = nil
				}
			case "tc":
				if inTable {
					cellText.Reset()
				}
			case "p":
				if !inTable {
					inParagraph = true
					runText.Reset()
					level = 0
				}
			case "pPr":
				if inParagraph && !inTable {
					for _, attr := range t.Attr {
						if attr.Name.Local == "lvl" {
							if n, err := strconv.Atoi(attr.Value); err == nil {
								level = n
							}
						}
					}
				}
			}

		case xml.CharData:
			switch {
			case inTable:
				cellText.Write(t)
			case inParagraph:
				runText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if inTable {
					row = append(row, strings.TrimSpace(cellText.String()))
					cellText.Reset()
				}
			case "tr":
				if inTable && len(row) > 0 {
					rows = append(rows, row)
					row = nil
				}
			case "tbl":
				flushTable()
				inTable = false
			case "p":
				if inParagraph && !inTable {
					flushParagraph()
					inParagraph = false
				}
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}

// renderMarkdownTable renders rows as a markdown table, first row as header.
func renderMarkdownTable(rows [][]string) string {
	var sb strings.Builder
	for i, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |")
		sb.WriteByte('\n')
		if i == 0 {
			seps := make([]string, len(row))
			for j := range seps {
				seps[j] = "---"
			}
			sb.WriteString("| " + strings.Join(seps, " | ") + " |")
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// readNotesText extracts the speaker notes text for a slide, if any.
func readNotesText(files map[string]*zip.File, slideNo int) string {
	f, ok := files[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", slideNo)]
	if !ok {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var parts []string
	var current strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
				if s := strings.TrimSpace(current.String()); s != "" && !isSlideNumberPlaceholder(s) {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

// isSlideNumberPlaceholder filters bare numbers that notes masters inject.
func isSlideNumberPlaceholder(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// slideRelRe matches image relationship targets like ../media/image3.png.
var slideRelRe = regexp.MustCompile(`Target="\.\./media/([^"]+)"`)

// slideImages returns the bytes of images referenced by a slide's rels file.
func slideImages(files map[string]*zip.File, slideNo int) [][]byte {
	rels, ok := files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNo)]
	if !ok {
		return nil
	}
	rc, err := rels.Open()
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil
	}

	var images [][]byte
	for _, m := range slideRelRe.FindAllStringSubmatch(string(data), -1) {
		media, ok := files["ppt/media/"+m[1]]
		if !ok {
			continue
		}
		mrc, err := media.Open()
		if err != nil {
			continue
		}
		img, err := io.ReadAll(mrc)
		mrc.Close()
		if err == nil && len(img) > 0 {
			images = append(images, img)
		}
	}
	return images
}

// hasLargeImage reports whether any image clears the 5 KB floor.
func hasLargeImage(images [][]byte) bool {
	for _, img := range images {
		if len(img) >= imageHeavyMinBytes {
			return true
		}
	}
	return false
}
