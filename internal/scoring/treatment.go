package scoring

import (
	"math"

	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
)

// treatmentMultiplier starts at 1.0 and accumulates the superposter
// penalty and the sociopolitical toxicity/constructiveness adjustment,
// per spec §4.5.
func treatmentMultiplier(cfg *config.Config, p *domain.Post, isSuperposter bool) float64 {
	mult := 1.0
	if isSuperposter {
		mult *= cfg.SuperposterCoef
	}

	if p.IsSuccessfullyLabeledSociopolitical() && p.HasPerspectiveLabels() {
		if adj, ok := sociopoliticalAdjustment(cfg, p); ok {
			mult *= adj
		}
	}

	return mult
}

// sociopoliticalAdjustment computes
// (coef_constructiveness*prob_constructive + prob_reasoning) / (coef_toxicity*prob_toxic).
//
// The "constructive-endpoint fix" (Open Question §9.1): when
// prob_constructive is missing or NaN, prob_reasoning is imputed in its
// place. This reproduces a documented historical quirk of the scoring
// pipeline, not a design choice — see DESIGN.md.
func sociopoliticalAdjustment(cfg *config.Config, p *domain.Post) (float64, bool) {
	if p.ProbToxic == nil || p.ProbReasoning == nil {
		return 1.0, false
	}

	probConstructive := p.ProbReasoning
	if p.ProbConstructive != nil && !math.IsNaN(*p.ProbConstructive) {
		probConstructive = p.ProbConstructive
	}

	denom := cfg.CoefToxicity * *p.ProbToxic
	if denom == 0 {
		return 1.0, true
	}

	numer := cfg.CoefConstructiveness*(*probConstructive) + *p.ProbReasoning
	return numer / denom, true
}
