package extraction_engine

import (
	"context"
	"errors"
	"testing"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/models"
)

// stubExtractor accepts a fixed set of MIME types.
type stubExtractor struct {
	types []string
	exts  []string
	limit int64
}

func (s *stubExtractor) CanHandle(mimeType, ext string) bool {
	for _, t := range s.types {
		if t == mimeType {
			return true
		}
	}
	for _, e := range s.exts {
		if e == ext {
			return true
		}
	}
	return false
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte, filename string, opts Options) (*models.ExtractionResult, error) {
	return &models.ExtractionResult{}, nil
}

func (s *stubExtractor) SupportedTypes() []string { return s.types }
func (s *stubExtractor) SizeLimit() int64         { return s.limit }

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mimeType string
		wantMime string
		wantExt  string
	}{
		{"declared mime wins", "report.pdf", "application/pdf", "application/pdf", ".pdf"},
		{"charset stripped", "notes.txt", "text/plain; charset=utf-8", "text/plain", ".txt"},
		{"octet-stream falls back to extension", "deck.pptx", "application/octet-stream", mimePptx, ".pptx"},
		{"empty mime falls back to extension", "photo.JPG", "", "image/jpeg", ".jpg"},
		{"unknown stays octet-stream", "data.bin", "application/octet-stream", "application/octet-stream", ".bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ext := DetectType(tt.filename, tt.mimeType)
			if mime != tt.wantMime {
				t.Errorf("mime = %q, want %q", mime, tt.wantMime)
			}
			if ext != tt.wantExt {
				t.Errorf("ext = %q, want %q", ext, tt.wantExt)
			}
		})
	}
}

func TestValidateFileSizeBoundaries(t *testing.T) {
	r := NewRegistry(
		&stubExtractor{types: []string{mimePDF}, exts: []string{".pdf"}},
		&stubExtractor{types: []string{mimePptx}, exts: []string{".pptx"}},
		&stubExtractor{types: []string{mimePNG}, exts: []string{".png"}},
		&stubExtractor{types: []string{mimeText}, exts: []string{".txt"}},
	)

	tests := []struct {
		name     string
		filename string
		mimeType string
		size     int64
		wantErr  bool
	}{
		{"pdf exactly at ceiling", "a.pdf", mimePDF, MaxPDFBytes, false},
		{"pdf one byte over", "a.pdf", mimePDF, MaxPDFBytes + 1, true},
		{"pptx exactly at ceiling", "a.pptx", mimePptx, MaxPptxBytes, false},
		{"pptx one byte over", "a.pptx", mimePptx, MaxPptxBytes + 1, true},
		{"image exactly at ceiling", "a.png", mimePNG, MaxImageBytes, false},
		{"image one byte over", "a.png", mimePNG, MaxImageBytes + 1, true},
		{"text fallback shares docx ceiling", "a.txt", mimeText, MaxDocxBytes, false},
		{"text fallback one byte over", "a.txt", mimeText, MaxDocxBytes + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateFile(tt.filename, tt.mimeType, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *core.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error type = %T, want *core.ValidationError", err)
				}
			}
		})
	}
}

func TestValidateFileUnsupportedType(t *testing.T) {
	r := NewRegistry(&stubExtractor{types: []string{mimePDF}, exts: []string{".pdf"}})

	err := r.ValidateFile("malware.exe", "application/x-msdownload", 10)
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *core.ValidationError", err)
	}
}

func TestFindFirstMatchWins(t *testing.T) {
	first := &stubExtractor{types: []string{mimePDF}, exts: []string{".pdf"}}
	second := &stubExtractor{types: []string{mimePDF}, exts: []string{".pdf"}}
	r := NewRegistry(first, second)

	got, err := r.Find("a.pdf", mimePDF)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != Extractor(first) {
		t.Error("Find() did not return the first matching extractor")
	}
}

func TestSupportedTypesDeduplicates(t *testing.T) {
	r := NewRegistry(
		&stubExtractor{types: []string{mimePDF, mimeDocx}},
		&stubExtractor{types: []string{mimeDocx, mimePptx}},
	)

	types := r.SupportedTypes()
	seen := make(map[string]int)
	for _, typ := range types {
		seen[typ]++
	}
	for typ, n := range seen {
		if n != 1 {
			t.Errorf("type %q appears %d times", typ, n)
		}
	}
	if len(types) != 3 {
		t.Errorf("len(types) = %d, want 3", len(types))
	}
}
