package scoring

import (
	"math"

	"trendradar/internal/scraper"
)

// Score floor and blend weight for repeated observations.
const (
	baseScore   = 10.0
	priorWeight = 0.7
)

// Score converts a candidate record and an optional prior persisted score
// into a trend score in [0, 100]. It is a pure function: identical inputs
// always produce identical output.
//
// The raw score is a sum of bounded tier bonuses over the candidate's
// counters on top of a fixed floor. When a prior score exists the result is
// blended as 0.7*prior + rawSum, which smooths volatility across repeated
// observations of the same product.
func Score(c scraper.CandidateRecord, prior *float64) float64 {
	raw := baseScore

	if c.Rating != nil {
		switch rating := *c.Rating; {
		case rating >= 4.7:
			raw += 25
		case rating >= 4.3:
			raw += 15
		case rating >= 4.0:
			raw += 8
		}
	}

	if c.Reviews != nil && *c.Reviews > 0 {
		switch reviews := *c.Reviews; {
		case reviews < 500:
			raw += 20
		case reviews < 2000:
			raw += 10
		case reviews > 10000:
			raw -= 15
		}
	}

	if c.Orders != nil && *c.Orders > 0 {
		switch orders := *c.Orders; {
		case orders >= 100 && orders <= 2000:
			raw += 20
		case orders < 100:
			raw += 10
		case orders > 4000:
			raw -= 10
		}
	}

	if c.Votes != nil && *c.Votes > 0 {
		switch votes := *c.Votes; {
		case votes > 2000:
			raw += 25
		case votes > 500:
			raw += 15
		case votes > 100:
			raw += 8
		}
	}

	if c.Comments != nil && *c.Comments > 100 {
		raw += 5
	}

	// Cross-platform signal boost for Reddit-sourced discoveries.
	if c.Metadata["discovered_via"] == "reddit" {
		raw += 5
	}

	final := raw
	if prior != nil {
		final = priorWeight**prior + raw
	}

	return round2(clamp(final, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
