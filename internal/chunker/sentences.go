package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// span is a half-open [start, end) byte range of a structural entity.
type span struct {
	start, end int
}

// Structural entities a chunk boundary must never bisect: measurements,
// standards citations, and reference/classification codes.
var entityPatterns = []*regexp.Regexp{
	// "18 feet", "4.5 m", "120 V", "30 in.", "500 lbs"
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(feet|foot|ft\.?|inches|inch|in\.?|meters?|metres?|cm|mm|kv|kva|volts?|amps?|amperes?|degrees?|psi|lbs?\.?|pounds?)\b`),
	// "ANSI C2-2017", "IEEE 1547", "NESC Rule 232", "GO 95", "Std. 1222"
	regexp.MustCompile(`\b(ANSI|IEEE|NESC|ASTM|OSHA|GO|Std\.?|Rule|Section|Sec\.)\s+[A-Z]?\d+(\.\d+)*(-\d+)?\b`),
	// "TAG-4", "TAG-4.2", "07D-12"
	regexp.MustCompile(`\b[A-Z]{2,5}-\d+(\.\d+)?\b`),
	regexp.MustCompile(`\b07[A-Z]?-\d+\b`),
}

// Common abbreviations whose trailing period is not a sentence boundary.
var abbreviations = map[string]bool{
	"no": true, "std": true, "fig": true, "sec": true, "approx": true,
	"e.g": true, "i.e": true, "vs": true, "min": true, "max": true,
	"ft": true, "in": true, "lbs": true, "lb": true,
}

// entitySpans returns all entity match ranges in text.
func entitySpans(text string) []span {
	var spans []span
	for _, p := range entityPatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: m[0], end: m[1]})
		}
	}
	return spans
}

// insideAny reports whether position p falls strictly inside any span.
func insideAny(spans []span, p int) bool {
	for _, s := range spans {
		if p > s.start && p < s.end {
			return true
		}
	}
	return false
}

// normalizeWhitespace trims and collapses runs of whitespace to single spaces.
func normalizeWhitespace(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// splitSentences splits normalized text at sentence terminators, skipping
// candidate boundaries that fall inside a structural entity or after a known
// abbreviation. Text with no terminator yields one sentence.
func splitSentences(text string) []string {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil
	}
	spans := entitySpans(text)
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
			j++
		}
		atEnd := j >= len(text)
		if !atEnd && text[j] != ' ' {
			i = j
			continue
		}
		if insideAny(spans, i) || insideAny(spans, j) || endsWithAbbreviation(text[start:i]) {
			i = j
			continue
		}
		s := strings.TrimSpace(text[start:j])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// endsWithAbbreviation reports whether the text's final token is a known
// abbreviation (so the period after it is not a boundary).
func endsWithAbbreviation(text string) bool {
	text = strings.TrimRight(text, ".")
	idx := strings.LastIndexByte(text, ' ')
	tok := strings.ToLower(text[idx+1:])
	return abbreviations[tok]
}

// wrapOversize cuts text into pieces no longer than max, breaking at the last
// word boundary before the limit that does not bisect an entity.
func wrapOversize(text string, max int) []string {
	var out []string
	for len(text) > max {
		spans := entitySpans(text)
		cut := -1
		for p := max; p > 0; p-- {
			if text[p] == ' ' && !insideAny(spans, p) {
				cut = p
				break
			}
		}
		if cut <= 0 {
			cut = max
		}
		out = append(out, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
