package chunker

import (
	"regexp"
	"strings"
)

// section is a heading plus the body lines beneath it.
type section struct {
	header string
	body   string
}

var headingPatterns = []*regexp.Regexp{
	// "1.", "2.3", "4.5.6 Title"
	regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`),
	// "Section 12", "SECTION 3.1"
	regexp.MustCompile(`(?i)^section\s+\d+(\.\d+)*\b`),
	// "Appendix A", "APPENDIX C-2"
	regexp.MustCompile(`(?i)^appendix\s+[A-Z0-9]`),
	// "Part III", "Article 7"
	regexp.MustCompile(`(?i)^(part|article)\s+[IVXLC0-9]+\b`),
	// "Rule 37", "Rule 38.2"
	regexp.MustCompile(`^Rule\s+\d+(\.\d+)*\b`),
}

// isHeading reports whether a line looks like a structural heading.
// Short all-caps lines are treated as headings too ("GENERAL REQUIREMENTS").
func isHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 120 {
		return false
	}
	for _, p := range headingPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	if len(line) <= 80 && line == strings.ToUpper(line) {
		hasLetter := false
		for _, r := range line {
			if r >= 'a' && r <= 'z' {
				return false
			}
			if r >= 'A' && r <= 'Z' {
				hasLetter = true
			}
		}
		// Require at least two words so codes like "TAG-4" are not headings.
		return hasLetter && strings.Contains(line, " ")
	}
	return false
}

// splitSections groups text into sections keyed by the nearest preceding
// heading line. Text before the first heading forms a section with an empty
// header. Sections with blank bodies are dropped.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")
	var sections []section
	cur := section{}
	var body strings.Builder

	flush := func() {
		cur.body = strings.TrimSpace(body.String())
		if cur.body != "" || cur.header != "" {
			if cur.body != "" {
				sections = append(sections, cur)
			}
		}
		body.Reset()
	}

	for _, line := range lines {
		if isHeading(line) {
			flush()
			cur = section{header: strings.TrimSpace(line)}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return sections
}
