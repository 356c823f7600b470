package models

import "testing"

func TestValidDocumentClass(t *testing.T) {
	for _, class := range []string{
		ClassPRD, ClassTranscript, ClassSpec, ClassEmail, ClassPresentation,
		ClassSpreadsheet, ClassWireframe, ClassResearch, ClassGeneric,
	} {
		if !ValidDocumentClass(class) {
			t.Errorf("ValidDocumentClass(%q) = false", class)
		}
	}
	for _, class := range []string{"invoice", "", "PRD", "generic "} {
		if ValidDocumentClass(class) {
			t.Errorf("ValidDocumentClass(%q) = true", class)
		}
	}
}

func TestSectionWords(t *testing.T) {
	s := ExtractedSection{Content: "three plain words"}
	if got := s.Words(); got != 3 {
		t.Errorf("Words() = %d, want 3", got)
	}

	s = ExtractedSection{Content: "ignored", WordCount: 7}
	if got := s.Words(); got != 7 {
		t.Errorf("Words() = %d, want stored count 7", got)
	}
}
