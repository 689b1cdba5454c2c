// Package textmatch locates a zoning-plan section inside raw text extracted
// from a règlement. PDF text extraction mangles tokens (stray line breaks
// inside zone codes, inconsistent accents), so two complementary strategies
// are exposed as pure functions:
//
//   - loose-token regex: the candidate's characters in order, allowing
//     arbitrary whitespace between them;
//   - normalized substring: lower-cased, diacritics stripped,
//     non-alphanumerics collapsed, with progressive suffix trimming to
//     absorb zone-code variants (UMeL2p vs UMeL2).
//
// Both operate on plain strings and carry no I/O.
package textmatch

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// WindowBefore is how much context is kept ahead of a section match.
	WindowBefore = 2000
	// WindowTotal caps the excerpt handed to the extractor.
	WindowTotal = 16000
	// MinTrimmedLen is the shortest candidate suffix-trimming may produce.
	MinTrimmedLen = 4
)

var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes combining marks: "règlement" becomes "reglement".
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lower-cases, strips diacritics and collapses every run of
// non-alphanumeric characters to a single space.
func Normalize(s string) string {
	normalized, _ := normalizeWithMap(s)
	return normalized
}

// normalizeWithMap normalizes s and returns, for each byte of the normalized
// string, the byte offset in s it came from. The map is what lets a match in
// normalized space be projected back onto the original text.
func normalizeWithMap(s string) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(s))
	pendingSpace := false
	wrote := false

	for i, r := range s {
		r = unicode.ToLower(r)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = wrote
			continue
		}
		folded := StripDiacritics(string(r))
		if folded == "" {
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			offsets = append(offsets, i)
			pendingSpace = false
		}
		b.WriteString(folded)
		for j := 0; j < len(folded); j++ {
			offsets = append(offsets, i)
		}
		wrote = true
	}
	return b.String(), offsets
}

// LoosePattern compiles a case-insensitive pattern matching the candidate's
// characters in order with arbitrary whitespace between them. Handles text
// extraction inserting line breaks inside tokens ("ZO\nNE UB").
func LoosePattern(candidate string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?i)`)
	first := true
	for _, r := range candidate {
		if unicode.IsSpace(r) {
			continue
		}
		if !first {
			b.WriteString(`\s*`)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
		first = false
	}
	return regexp.MustCompile(b.String())
}

// FindLoose returns the byte offset of the first loose-token match of
// candidate in text, or -1.
func FindLoose(text, candidate string) int {
	if strings.TrimSpace(candidate) == "" {
		return -1
	}
	loc := LoosePattern(candidate).FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// FindNormalized searches for candidate inside text in normalized space,
// progressively trimming the candidate's last character down to
// MinTrimmedLen until something matches. Returns the byte offset in the
// original text, or -1.
func FindNormalized(text, candidate string) int {
	normText, offsets := normalizeWithMap(text)
	if normText == "" {
		return -1
	}
	needle := Normalize(candidate)
	for len(needle) >= MinTrimmedLen {
		if idx := strings.Index(normText, needle); idx >= 0 {
			return offsets[idx]
		}
		needle = strings.TrimSpace(needle[:len(needle)-1])
	}
	return -1
}

// FirstSignificantWord returns the first token of candidate longer than
// three characters, or "" when there is none.
func FirstSignificantWord(candidate string) string {
	for _, word := range strings.Fields(candidate) {
		if len([]rune(word)) > 3 {
			return word
		}
	}
	return ""
}

// Excerpt returns the bounded working window around a match: WindowBefore
// bytes of leading context, WindowTotal bytes in total.
func Excerpt(text string, matchIdx int) string {
	start := matchIdx - WindowBefore
	if start < 0 {
		start = 0
	}
	end := start + WindowTotal
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

// Locate tries each candidate in order against the three strategies (loose
// regex, normalized substring with trimming, first significant word) and
// returns the excerpt around the first hit. When nothing matches anywhere
// the document head is returned so extraction still has something to work
// with; found reports which case occurred.
func Locate(text string, candidates []string) (excerpt string, found bool) {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if idx := FindLoose(text, candidate); idx >= 0 {
			return Excerpt(text, idx), true
		}
		if idx := FindNormalized(text, candidate); idx >= 0 {
			return Excerpt(text, idx), true
		}
		if word := FirstSignificantWord(candidate); word != "" {
			if idx := FindLoose(text, word); idx >= 0 {
				return Excerpt(text, idx), true
			}
		}
	}
	if len(text) > WindowTotal {
		return text[:WindowTotal], false
	}
	return text, false
}
