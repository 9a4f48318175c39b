package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clearline/speclens/internal/corpus"
)

// Similarity alone cannot tell "matches the topic" from "satisfies the
// requirement". When the infraction and a matched chunk cite different values
// in the same unit, the disagreement is flagged for review rather than
// silently resolved either way.

var measurementRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(feet|foot|ft|inches|inch|in|meters?|metres?|m)\b`)

type measurement struct {
	value float64
	unit  string
}

var unitAliases = map[string]string{
	"feet": "feet", "foot": "feet", "ft": "feet",
	"inches": "inches", "inch": "inches", "in": "inches",
	"meter": "meters", "meters": "meters", "metre": "meters", "metres": "meters", "m": "meters",
}

func extractMeasurements(text string) []measurement {
	var out []measurement
	for _, m := range measurementRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		unit := unitAliases[strings.ToLower(m[2])]
		if unit == "" {
			continue
		}
		out = append(out, measurement{value: v, unit: unit})
	}
	return out
}

// numericDisagreements returns one needs-review reason per matched chunk that
// cites a different value than the infraction in the same unit.
func numericDisagreements(infraction string, hits []corpus.ScoredChunk) []string {
	infractionMs := extractMeasurements(infraction)
	if len(infractionMs) == 0 {
		return nil
	}
	var reasons []string
	for _, h := range hits {
		for _, cm := range extractMeasurements(h.Chunk.Text) {
			conflict := false
			var im measurement
			for _, m := range infractionMs {
				if m.unit == cm.unit && m.value != cm.value {
					conflict = true
					im = m
					break
				}
			}
			if conflict {
				reasons = append(reasons, fmt.Sprintf(
					"Needs review: infraction cites %s %s but matched passage cites %s %s; the numeric requirement is not resolved by similarity alone.",
					formatNumber(im.value), im.unit, formatNumber(cm.value), cm.unit))
				break // one flag per chunk is enough
			}
		}
	}
	return reasons
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
