package types

import "strings"

// StateType classifies a history revision.
type StateType string

const (
	StateTypeInstall      StateType = "INSTALL"
	StateTypeUpdate       StateType = "UPDATE"
	StateTypeRollback     StateType = "ROLLBACK"
	StateTypeConfigChange StateType = "CONFIG_CHANGE"
)

func ParseStateType(value string) (StateType, bool) {
	switch StateType(strings.ToUpper(strings.TrimSpace(value))) {
	case StateTypeInstall:
		return StateTypeInstall, true
	case StateTypeUpdate:
		return StateTypeUpdate, true
	case StateTypeRollback:
		return StateTypeRollback, true
	case StateTypeConfigChange:
		return StateTypeConfigChange, true
	default:
		return "", false
	}
}

type NoStreamStrategy string

const (
	NoStreamStrategyNone         NoStreamStrategy = "none"
	NoStreamStrategyLatest       NoStreamStrategy = "latest"
	NoStreamStrategyMavenLatest  NoStreamStrategy = "maven-latest"
	NoStreamStrategyMavenRelease NoStreamStrategy = "maven-release"
)

// Normalized treats an empty strategy as none.
func (s NoStreamStrategy) Normalized() NoStreamStrategy {
	trimmed := NoStreamStrategy(strings.ToLower(strings.TrimSpace(string(s))))
	if trimmed == "" {
		return NoStreamStrategyNone
	}
	return trimmed
}

// ResolvesWithoutStream reports whether artifacts missing from the manifest
// are still resolved from repository metadata.
func (s NoStreamStrategy) ResolvesWithoutStream() bool {
	return s.Normalized() != NoStreamStrategyNone
}

type ManifestKind string

const (
	ManifestKindMaven ManifestKind = "maven"
	ManifestKindURL   ManifestKind = "url"
	ManifestKindOpen  ManifestKind = "open"
)

type ApplyState string

const (
	ApplyStateIdle      ApplyState = "idle"
	ApplyStatePrepared  ApplyState = "prepared"
	ApplyStateApplying  ApplyState = "applying"
	ApplyStateCommitted ApplyState = "committed"
)

type ResolveStatus int

const (
	ResolveFound ResolveStatus = iota
	ResolveNotFound
	ResolveError
)
