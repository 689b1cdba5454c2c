package textmatch

import (
	"strings"
	"testing"
)

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"règlement", "reglement"},
		{"zone agricole protégée", "zone agricole protegee"},
		{"ÎLE-DE-FRANCE", "ILE-DE-FRANCE"},
		{"no accents here", "no accents here"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripDiacritics(tt.in); got != tt.want {
			t.Errorf("StripDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Zone  UB", "zone ub"},
		{"RÈGLEMENT - ZONE N", "reglement zone n"},
		{"U.Me.L2", "u me l2"},
		{"   ", ""},
		{"--a--", "a"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindLoose(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		candidate string
		wantFound bool
	}{
		{
			name:      "exact token",
			text:      "DISPOSITIONS APPLICABLES A LA ZONE UB",
			candidate: "ZONE UB",
			wantFound: true,
		},
		{
			name:      "line break inside the token",
			text:      "DISPOSITIONS ZO\nNE UB suite",
			candidate: "ZONE UB",
			wantFound: true,
		},
		{
			name:      "case difference",
			text:      "chapitre zone ub",
			candidate: "ZONE UB",
			wantFound: true,
		},
		{
			name:      "absent candidate",
			text:      "DISPOSITIONS ZONE N",
			candidate: "ZONE UB",
			wantFound: false,
		},
		{
			name:      "empty candidate",
			text:      "anything",
			candidate: "   ",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := FindLoose(tt.text, tt.candidate)
			if (idx >= 0) != tt.wantFound {
				t.Errorf("FindLoose(%q, %q) = %d, wantFound %v", tt.text, tt.candidate, idx, tt.wantFound)
			}
		})
	}
}

func TestFindNormalized(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		candidate string
		wantFound bool
	}{
		{
			name:      "diacritics in text only",
			text:      "le règlement de la zone agricole protégée",
			candidate: "zone agricole protegee",
			wantFound: true,
		},
		{
			name:      "suffix trimming finds the shorter variant",
			text:      "chapitre UMeL2 dispositions",
			candidate: "UMeL2p",
			wantFound: true,
		},
		{
			name:      "shorter query matches the longer variant in text",
			text:      "chapitre UMeL2p dispositions",
			candidate: "UMeL2",
			wantFound: true,
		},
		{
			name:      "trimming stops at minimum length",
			text:      "chapitre UM dispositions",
			candidate: "UMeL2p",
			wantFound: false,
		},
		{
			name:      "punctuation collapsed on both sides",
			text:      "zone:  U.B — dispositions",
			candidate: "zone ub",
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := FindNormalized(tt.text, tt.candidate)
			if (idx >= 0) != tt.wantFound {
				t.Errorf("FindNormalized(%q, %q) = %d, wantFound %v", tt.text, tt.candidate, idx, tt.wantFound)
			}
		})
	}
}

func TestFindNormalized_OffsetProjection(t *testing.T) {
	text := "préambule du plan. DISPOSITIONS ZONE UB ici"
	idx := FindNormalized(text, "zone ub")
	if idx < 0 {
		t.Fatal("expected a match")
	}
	if !strings.HasPrefix(text[idx:], "ZONE UB") {
		t.Errorf("offset %d points at %q, want start of ZONE UB", idx, text[idx:])
	}
}

func TestFirstSignificantWord(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"zone UB du PLU", "zone"},
		{"UB N A", ""},
		{"la aux règlement", "règlement"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FirstSignificantWord(tt.in); got != tt.want {
			t.Errorf("FirstSignificantWord(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	text := strings.Repeat("a", 5000) + "MATCH" + strings.Repeat("b", 20000)
	got := Excerpt(text, 5000)

	if len(got) != WindowTotal {
		t.Errorf("excerpt length = %d, want %d", len(got), WindowTotal)
	}
	if !strings.Contains(got, "MATCH") {
		t.Error("excerpt should contain the match")
	}
	if got[WindowBefore:WindowBefore+5] != "MATCH" {
		t.Errorf("match should sit at offset %d", WindowBefore)
	}
}

func TestExcerpt_NearDocumentStart(t *testing.T) {
	text := "MATCH" + strings.Repeat("b", 100)
	got := Excerpt(text, 0)
	if got != text {
		t.Errorf("excerpt = %q, want whole text", got)
	}
}

func TestLocate(t *testing.T) {
	body := strings.Repeat("x", 3000) + "DISPOSITIONS APPLICABLES A LA ZONE UB" + strings.Repeat("y", 3000)

	tests := []struct {
		name       string
		text       string
		candidates []string
		wantFound  bool
	}{
		{
			name:       "first candidate hits",
			text:       body,
			candidates: []string{"ZONE UB", "UB"},
			wantFound:  true,
		},
		{
			name:       "later candidate hits",
			text:       body,
			candidates: []string{"ZONE ZZZ9", "ZONE UB"},
			wantFound:  true,
		},
		{
			name:       "significant-word fallback",
			text:       "le règlement de la zone",
			candidates: []string{"UB règlement approuvé"},
			wantFound:  true,
		},
		{
			name:       "nothing matches, head returned",
			text:       strings.Repeat("z", 30000),
			candidates: []string{"ZONE UB"},
			wantFound:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excerpt, found := Locate(tt.text, tt.candidates)
			if found != tt.wantFound {
				t.Errorf("Locate() found = %v, want %v", found, tt.wantFound)
			}
			if excerpt == "" {
				t.Error("Locate() should always return a non-empty excerpt for non-empty text")
			}
			if len(excerpt) > WindowTotal {
				t.Errorf("excerpt length = %d, exceeds %d", len(excerpt), WindowTotal)
			}
		})
	}
}
