package types

import (
	"fmt"
	"strings"
)

// StabilityLevel gates features. Higher levels enable everything the lower
// levels enable.
type StabilityLevel int

const (
	StabilityDefault StabilityLevel = iota
	StabilityCommunity
	StabilityPreview
	StabilityExperimental
)

func (s StabilityLevel) String() string {
	switch s {
	case StabilityCommunity:
		return "community"
	case StabilityPreview:
		return "preview"
	case StabilityExperimental:
		return "experimental"
	default:
		return "default"
	}
}

func ParseStabilityLevel(value string) (StabilityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "default":
		return StabilityDefault, nil
	case "community":
		return StabilityCommunity, nil
	case "preview":
		return StabilityPreview, nil
	case "experimental":
		return StabilityExperimental, nil
	default:
		return StabilityDefault, fmt.Errorf("unknown stability level %q", value)
	}
}

// Allows reports whether a feature requiring the given level is enabled at this level.
func (s StabilityLevel) Allows(required StabilityLevel) bool {
	return s >= required
}
