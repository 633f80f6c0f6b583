package types

import (
	"fmt"
	"strings"
)

// ComponentIdentity is the stable key of a component. The version is not
// part of the identity.
type ComponentIdentity struct {
	GroupID    string `yaml:"groupId" json:"groupId"`
	ArtifactID string `yaml:"artifactId" json:"artifactId"`
	Classifier string `yaml:"classifier,omitempty" json:"classifier,omitempty"`
	Extension  string `yaml:"extension,omitempty" json:"extension,omitempty"`
}

// GA returns the groupId:artifactId key used to match manifest streams.
func (c ComponentIdentity) GA() string {
	return c.GroupID + ":" + c.ArtifactID
}

func (c ComponentIdentity) String() string {
	parts := []string{c.GroupID, c.ArtifactID}
	if c.Extension != "" || c.Classifier != "" {
		parts = append(parts, c.ExtensionOrDefault())
	}
	if c.Classifier != "" {
		parts = append(parts, c.Classifier)
	}
	return strings.Join(parts, ":")
}

func (c ComponentIdentity) ExtensionOrDefault() string {
	if strings.TrimSpace(c.Extension) == "" {
		return "jar"
	}
	return c.Extension
}

// ParseGA parses "groupId:artifactId[:extension[:classifier]]".
func ParseGA(value string) (ComponentIdentity, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 4 || parts[0] == "" || parts[1] == "" {
		return ComponentIdentity{}, fmt.Errorf("invalid component identity %q", value)
	}
	id := ComponentIdentity{GroupID: parts[0], ArtifactID: parts[1]}
	if len(parts) > 2 {
		id.Extension = parts[2]
	}
	if len(parts) > 3 {
		id.Classifier = parts[3]
	}
	return id, nil
}

// Artifact is a component identity pinned to a version.
type Artifact struct {
	ComponentIdentity `yaml:",inline"`
	Version           string `yaml:"version" json:"version"`
}

func (a Artifact) String() string {
	return a.ComponentIdentity.String() + ":" + a.Version
}

// ParseArtifact parses "groupId:artifactId[:extension[:classifier]]:version".
func ParseArtifact(value string) (Artifact, error) {
	trimmed := strings.TrimSpace(value)
	idx := strings.LastIndex(trimmed, ":")
	if idx <= 0 || idx == len(trimmed)-1 {
		return Artifact{}, fmt.Errorf("invalid artifact coordinate %q", value)
	}
	id, err := ParseGA(trimmed[:idx])
	if err != nil {
		return Artifact{}, fmt.Errorf("invalid artifact coordinate %q", value)
	}
	return Artifact{ComponentIdentity: id, Version: trimmed[idx+1:]}, nil
}

// ArtifactChange describes one component moving between versions. A nil Old
// side means the component was added, a nil New side means it was removed.
type ArtifactChange struct {
	Old     *Artifact `json:"old,omitempty"`
	New     *Artifact `json:"new,omitempty"`
	Channel string    `json:"channel,omitempty"`
}

func NewAddedChange(added Artifact, channel string) ArtifactChange {
	return ArtifactChange{New: &added, Channel: channel}
}

func NewRemovedChange(removed Artifact) ArtifactChange {
	return ArtifactChange{Old: &removed}
}

// NewUpdatedChange returns an error when old and new do not share an identity.
func NewUpdatedChange(old Artifact, updated Artifact, channel string) (ArtifactChange, error) {
	if old.ComponentIdentity != updated.ComponentIdentity {
		return ArtifactChange{}, fmt.Errorf("artifact change mixes %s and %s", old.ComponentIdentity, updated.ComponentIdentity)
	}
	return ArtifactChange{Old: &old, New: &updated, Channel: channel}, nil
}

func (c ArtifactChange) IsAdded() bool {
	return c.Old == nil && c.New != nil
}

func (c ArtifactChange) IsRemoved() bool {
	return c.Old != nil && c.New == nil
}

func (c ArtifactChange) IsUpdated() bool {
	return c.Old != nil && c.New != nil
}

// Identity returns the identity shared by both sides.
func (c ArtifactChange) Identity() ComponentIdentity {
	if c.New != nil {
		return c.New.ComponentIdentity
	}
	if c.Old != nil {
		return c.Old.ComponentIdentity
	}
	return ComponentIdentity{}
}

func (c ArtifactChange) OldVersion() string {
	if c.Old == nil {
		return ""
	}
	return c.Old.Version
}

func (c ArtifactChange) NewVersion() string {
	if c.New == nil {
		return ""
	}
	return c.New.Version
}
