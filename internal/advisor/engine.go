package advisor

import "cropguard/internal/types"

// Generate evaluates the rule table against the combined input set and
// returns one recommendation per matching rule, in rule-declaration order.
// Pure, synchronous, and total: missing inputs disable their rules, and the
// default recommendation guarantees the result is never empty.
func Generate(in Inputs) []types.Recommendation {
	var recs []types.Recommendation
	for _, r := range rules {
		if !r.when(in) {
			continue
		}
		recs = append(recs, types.Recommendation{
			ID:       r.id,
			Title:    r.title,
			Message:  r.message(in),
			Urgency:  r.urgency,
			Category: r.category,
		})
	}

	if len(recs) == 0 {
		recs = append(recs, defaultRecommendation)
	}
	return recs
}

// SortByUrgency orders recommendations most-urgent-first, preserving rule
// order within the same tier. Generate itself never sorts; severity order
// is the caller's concern.
func SortByUrgency(recs []types.Recommendation) []types.Recommendation {
	out := make([]types.Recommendation, len(recs))
	copy(out, recs)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Urgency.Rank() > out[j-1].Urgency.Rank(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
