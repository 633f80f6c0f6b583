package types

import "sort"

// Stream pins a component to an exact version or to a version pattern.
type Stream struct {
	GroupID        string `yaml:"groupId"`
	ArtifactID     string `yaml:"artifactId"`
	Version        string `yaml:"version,omitempty"`
	VersionPattern string `yaml:"versionPattern,omitempty"`
}

func (s Stream) GA() string {
	return s.GroupID + ":" + s.ArtifactID
}

type Manifest struct {
	SchemaVersion string `yaml:"schemaVersion"`
	Name          string `yaml:"name,omitempty"`
	ID            string `yaml:"id,omitempty"`
	// LogicalVersion is the human facing version of the manifest content.
	LogicalVersion string   `yaml:"logicalVersion,omitempty"`
	Description    string   `yaml:"description,omitempty"`
	Streams        []Stream `yaml:"streams"`
}

const ManifestSchemaVersion = "1.0.0"

func (m Manifest) FindStream(ga string) (Stream, bool) {
	for _, stream := range m.Streams {
		if stream.GA() == ga {
			return stream, true
		}
	}
	return Stream{}, false
}

// VersionsByGA maps each stream with an exact version to that version.
// Pattern-only streams are left out.
func (m Manifest) VersionsByGA() map[string]string {
	out := make(map[string]string, len(m.Streams))
	for _, stream := range m.Streams {
		if stream.Version == "" {
			continue
		}
		out[stream.GA()] = stream.Version
	}
	return out
}

// HasVersionPatterns reports whether any stream is pinned by pattern.
func (m Manifest) HasVersionPatterns() bool {
	for _, stream := range m.Streams {
		if stream.VersionPattern != "" {
			return true
		}
	}
	return false
}

// SortStreams orders streams by groupId then artifactId.
func (m *Manifest) SortStreams() {
	sort.Slice(m.Streams, func(i, j int) bool {
		if m.Streams[i].GroupID != m.Streams[j].GroupID {
			return m.Streams[i].GroupID < m.Streams[j].GroupID
		}
		return m.Streams[i].ArtifactID < m.Streams[j].ArtifactID
	})
}

// Artifacts returns the installed artifacts described by exact streams.
func (m Manifest) Artifacts() []Artifact {
	out := make([]Artifact, 0, len(m.Streams))
	for _, stream := range m.Streams {
		if stream.Version == "" {
			continue
		}
		out = append(out, Artifact{
			ComponentIdentity: ComponentIdentity{GroupID: stream.GroupID, ArtifactID: stream.ArtifactID},
			Version:           stream.Version,
		})
	}
	return out
}
