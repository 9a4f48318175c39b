// Package pricing attaches monetary estimates to repealable classifications
// by querying a pricing corpus and a reference-code lookup book.
package pricing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clearline/speclens/internal/models"
)

// Reference codes: "TAG-4", "TAG-4.2", "07D-12".
var refCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z]{2,5}-\d+(\.\d+)?\b`),
	regexp.MustCompile(`\b07[A-Z]?-\d+\b`),
}

var rateRe = regexp.MustCompile(`\$\s*(\d+(?:,\d{3})*(?:\.\d+)?)|\b(\d+(?:\.\d+)?)\s*%`)

// Unit types recognized in pricing text, checked in order.
var unitTypeTokens = []struct {
	token    string
	unitType string
}{
	{"per hour", "per_hour"},
	{"per_hour", "per_hour"},
	{"hourly", "per_hour"},
	{"per day", "per_day"},
	{"per_day", "per_day"},
	{"per order", "per_order"},
	{"per_order", "per_order"},
	{"per unit", "per_unit"},
	{"per_unit", "per_unit"},
}

// FindRefCodes returns all reference codes present in text, in order of
// appearance, without duplicates.
func FindRefCodes(text string) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, p := range refCodePatterns {
		for _, m := range p.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				codes = append(codes, m)
			}
		}
	}
	return codes
}

// ParseEntries extracts structured pricing entries from raw pricing text. One
// entry per line carrying a reference code; the rate ("$850.00") and unit
// type ("per hour", "Adder", "%") are read from the same line. Lines without
// a code are skipped. A missing rate stays nil; it is never defaulted here.
func ParseEntries(text string) []models.PricingEntry {
	var entries []models.PricingEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		codes := FindRefCodes(line)
		if len(codes) == 0 {
			continue
		}
		entries = append(entries, parseLine(line, codes[0]))
	}
	return entries
}

func parseLine(line, code string) models.PricingEntry {
	entry := models.PricingEntry{
		RefCode:  code,
		UnitType: detectUnitType(line),
	}
	if m := rateRe.FindStringSubmatch(line); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		raw = strings.ReplaceAll(raw, ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			entry.Rate = &v
		}
	}
	entry.UnitDescription = describeLine(line, code)
	return entry
}

func detectUnitType(line string) string {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "adder") {
		if strings.Contains(lower, "%") || strings.Contains(lower, "percent") {
			return "Adder %"
		}
		return "Adder flat"
	}
	for _, t := range unitTypeTokens {
		if strings.Contains(lower, t.token) {
			return t.unitType
		}
	}
	return "per_unit"
}

// describeLine strips the code, rate, and separators from the line to leave
// the human description.
func describeLine(line, code string) string {
	desc := strings.Replace(line, code, "", 1)
	desc = rateRe.ReplaceAllString(desc, "")
	desc = strings.Trim(desc, " \t|,-")
	// Collapse separator runs left behind by the removals.
	for strings.Contains(desc, "  ") {
		desc = strings.ReplaceAll(desc, "  ", " ")
	}
	return strings.Trim(desc, " |")
}
