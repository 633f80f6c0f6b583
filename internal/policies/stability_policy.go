package policies

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"prospero/internal/types"
)

type Feature string

const (
	FeaturePromote         Feature = "promote"
	FeatureCandidateRevert Feature = "candidate-revert"
	FeatureHistoryPatch    Feature = "history-patch"
)

// featureLevels is the allow-list of gated features and the lowest
// stability level that enables each of them.
var featureLevels = map[Feature]types.StabilityLevel{
	FeaturePromote:         types.StabilityCommunity,
	FeatureCandidateRevert: types.StabilityDefault,
	FeatureHistoryPatch:    types.StabilityPreview,
}

func Allowed(level types.StabilityLevel, feature Feature) bool {
	required, ok := featureLevels[feature]
	if !ok {
		return false
	}
	return level.Allows(required)
}

// RequireFeature fails when feature is not enabled at level.
func RequireFeature(level types.StabilityLevel, feature Feature) error {
	if Allowed(level, feature) {
		return nil
	}
	required, ok := featureLevels[feature]
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("unknown feature %s", feature))
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("feature %s requires stability level %s (current: %s)", feature, required, level))
}
