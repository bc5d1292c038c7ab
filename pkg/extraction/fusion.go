package extraction

import (
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

// Proposal is one strategy's complete result.
type Proposal struct {
	Strategy models.Strategy
	Result   models.ExtractionResult
}

// Fuse merges the three strategy results. For each proposed field the
// candidate with the highest confidence wins; equal confidences go to the
// strategy earlier in models.StrategyPriority.
func Fuse(generative, pattern, entity models.ExtractionResult) models.FusedResult {
	return FuseProposals([]Proposal{
		{Strategy: models.StrategyGenerative, Result: generative},
		{Strategy: models.StrategyPattern, Result: pattern},
		{Strategy: models.StrategyEntity, Result: entity},
	})
}

// FuseProposals is Fuse over any set of proposals; argument order does not
// affect the outcome.
func FuseProposals(proposals []Proposal) models.FusedResult {
	fused := make(models.FusedResult)
	for _, proposal := range proposals {
		for field, candidate := range proposal.Result {
			if !validCandidate(candidate) {
				continue
			}
			challenger := models.FusedValue{ExtractedValue: candidate, Source: proposal.Strategy}
			current, exists := fused[field]
			if !exists || beats(challenger, current) {
				fused[field] = challenger
			}
		}
	}
	return fused
}

// beats orders by confidence, then by strategy priority.
func beats(a, b models.FusedValue) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Source.Priority() < b.Source.Priority()
}

func validCandidate(v models.ExtractedValue) bool {
	return v.Value != "" && v.Confidence >= 0 && v.Confidence <= 1
}
