package extraction_engine

import (
	"strings"
	"testing"

	"github.com/markdave123-py/Indexa/internal/models"
)

func TestClassifyPages(t *testing.T) {
	fullPage := strings.Repeat("Quarterly revenue narrative. ", 10)

	tests := []struct {
		name        string
		pages       []pdfPage
		wantMethod  string
		wantFlagged []int
	}{
		{
			name: "all native",
			pages: []pdfPage{
				{text: fullPage},
				{text: fullPage, hasImages: true},
			},
			wantMethod:  models.MethodNative,
			wantFlagged: nil,
		},
		{
			name: "one short image page among three is hybrid",
			pages: []pdfPage{
				{text: fullPage},
				{text: strings.Repeat("x", 40), hasImages: true},
				{text: fullPage},
			},
			wantMethod:  models.MethodHybrid,
			wantFlagged: []int{2},
		},
		{
			name: "flagged majority is ocr",
			pages: []pdfPage{
				{text: "", hasImages: true},
				{text: "scan", hasImages: true},
				{text: fullPage},
			},
			wantMethod:  models.MethodOCR,
			wantFlagged: []int{1, 2},
		},
		{
			name: "short text without images is not flagged",
			pages: []pdfPage{
				{text: strings.Repeat("x", 40)},
			},
			wantMethod:  models.MethodNative,
			wantFlagged: nil,
		},
		{
			name: "text at the threshold stays native",
			pages: []pdfPage{
				{text: strings.Repeat("x", minPageChars), hasImages: true},
			},
			wantMethod:  models.MethodNative,
			wantFlagged: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, flagged := classifyPages(tt.pages)
			if method != tt.wantMethod {
				t.Errorf("method = %q, want %q", method, tt.wantMethod)
			}
			if len(flagged) != len(tt.wantFlagged) {
				t.Fatalf("flagged = %v, want %v", flagged, tt.wantFlagged)
			}
			for i := range flagged {
				if flagged[i] != tt.wantFlagged[i] {
					t.Fatalf("flagged = %v, want %v", flagged, tt.wantFlagged)
				}
			}
		})
	}
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte(`BT
/F1 18 Tf
1 0 0 1 72 720 Td
(EXECUTIVE SUMMARY) Tj
0 -20 Td
(Revenue grew in every segment.) Tj
0 -14 Td
[(Costs were) -250 (held flat.)] TJ
ET`)

	got := textFromContentStream(stream)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines %q, want 3", len(lines), lines)
	}
	if lines[0] != "EXECUTIVE SUMMARY" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "Revenue grew in every segment." {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "Costs wereheld flat." && lines[2] != "Costs were held flat." {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain text`, "plain text"},
		{`escaped \(parens\)`, "escaped (parens)"},
		{`tab\there`, "tab\there"},
		{`back\\slash`, `back\slash`},
		{`octal\040space`, "octal space"},
		{`newline\nbreak`, "newline\nbreak"},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.raw)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanStreamText(t *testing.T) {
	in := "HEADING   WITH \t SPACES\n\n  body  text  here  \n"
	got := cleanStreamText(in)
	want := "HEADING WITH SPACES\nbody text here"
	if got != want {
		t.Errorf("cleanStreamText = %q, want %q", got, want)
	}
}
