package types

import (
	"fmt"
	"strings"
)

type Repository struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// MavenCoordinate locates a channel manifest artifact. An empty Version means
// the latest deployed manifest is used.
type MavenCoordinate struct {
	GroupID    string `yaml:"groupId"`
	ArtifactID string `yaml:"artifactId"`
	Version    string `yaml:"version,omitempty"`
}

func (m MavenCoordinate) GA() string {
	return m.GroupID + ":" + m.ArtifactID
}

// Identity returns the identity under which manifests are deployed.
func (m MavenCoordinate) Identity() ComponentIdentity {
	return ComponentIdentity{
		GroupID:    m.GroupID,
		ArtifactID: m.ArtifactID,
		Classifier: ManifestClassifier,
		Extension:  ManifestExtension,
	}
}

// ParseMavenCoordinate parses "groupId:artifactId[:version]".
func ParseMavenCoordinate(value string) (MavenCoordinate, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return MavenCoordinate{}, fmt.Errorf("invalid manifest coordinate %q", value)
	}
	coordinate := MavenCoordinate{GroupID: parts[0], ArtifactID: parts[1]}
	if len(parts) == 3 {
		coordinate.Version = parts[2]
	}
	return coordinate, nil
}

const (
	ManifestClassifier = "manifest"
	ManifestExtension  = "yaml"
)

// ManifestCoordinate is either a Maven coordinate, a URL, or neither
// (an open channel).
type ManifestCoordinate struct {
	Maven *MavenCoordinate `yaml:"maven,omitempty"`
	URL   string           `yaml:"url,omitempty"`
}

func (m ManifestCoordinate) Kind() ManifestKind {
	switch {
	case m.Maven != nil:
		return ManifestKindMaven
	case strings.TrimSpace(m.URL) != "":
		return ManifestKindURL
	default:
		return ManifestKindOpen
	}
}

// Resolvable reports whether the latest manifest can be looked up, which is
// only the case for version-less Maven coordinates.
func (m ManifestCoordinate) Resolvable() bool {
	return m.Maven != nil && strings.TrimSpace(m.Maven.Version) == ""
}

type Channel struct {
	Name             string             `yaml:"name"`
	Repositories     []Repository       `yaml:"repositories"`
	Manifest         ManifestCoordinate `yaml:"manifest,omitempty"`
	NoStreamStrategy NoStreamStrategy   `yaml:"resolve-if-no-stream,omitempty"`
	// StreamPatterns overrides the version of a manifest stream with a
	// pattern, keyed by groupId:artifactId.
	StreamPatterns map[string]string `yaml:"stream-patterns,omitempty"`
}

type ChannelsFile struct {
	SchemaVersion string    `yaml:"schemaVersion"`
	Channels      []Channel `yaml:"channels"`
}

const ChannelsSchemaVersion = "1.0.0"
