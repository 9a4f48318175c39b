package keyword

import (
	"context"
	"strings"
)

// AuditPattern is a named keyword/entity pattern recognized in infraction
// text. When the spec corpus has keyword coverage for a triggered pattern it
// becomes a success factor; otherwise a risk factor.
type AuditPattern struct {
	Name  string
	Terms []string
}

// DefaultPatterns are the audit patterns recognized in pole compliance text.
var DefaultPatterns = []AuditPattern{
	{Name: "clearance_proper", Terms: []string{"clearance", "height", "separation"}},
	{Name: "equipment_specs_met", Terms: []string{"equipment", "rated", "rating", "specification"}},
	{Name: "grounding_intact", Terms: []string{"ground", "grounding", "bond", "bonding"}},
	{Name: "guying_adequate", Terms: []string{"guy", "anchor", "tension"}},
	{Name: "attachment_spacing", Terms: []string{"attachment", "spacing", "gap"}},
}

// Signals evaluates which patterns the infraction text triggers and splits
// them into success factors (the overlay index has matching spec chunks) and
// risk factors (no keyword coverage in the corpus). This is an auxiliary
// annotation only; it never changes the classification status.
func (o *Overlay) Signals(ctx context.Context, infraction string, patterns []AuditPattern) (success, risk []string, err error) {
	lower := strings.ToLower(infraction)
	for _, p := range patterns {
		triggered := ""
		for _, term := range p.Terms {
			if strings.Contains(lower, term) {
				triggered = term
				break
			}
		}
		if triggered == "" {
			continue
		}
		n, searchErr := o.MatchCount(ctx, strings.Join(p.Terms, " "))
		if searchErr != nil {
			return nil, nil, searchErr
		}
		if n > 0 {
			success = append(success, p.Name)
		} else {
			risk = append(risk, p.Name)
		}
	}
	return success, risk, nil
}
