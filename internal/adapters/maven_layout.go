package adapters

import (
	"encoding/xml"
	"path"
	"strings"
	"time"

	"prospero/internal/shared"
	"prospero/internal/types"
)

// mavenMetadata is the subset of maven-metadata.xml the repositories read
// and maintain.
type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versioning struct {
		Latest      string   `xml:"latest,omitempty"`
		Release     string   `xml:"release,omitempty"`
		Versions    []string `xml:"versions>version"`
		LastUpdated string   `xml:"lastUpdated,omitempty"`
	} `xml:"versioning"`
}

const mavenMetadataFileName = "maven-metadata.xml"

// mavenTimestampLayout is the lastUpdated format of maven-metadata.xml.
const mavenTimestampLayout = "20060102150405"

// artifactRelPath is the slash separated repository path of an artifact.
func artifactRelPath(artifact types.Artifact) string {
	return path.Join(
		shared.GroupPath(artifact.GroupID),
		artifact.ArtifactID,
		artifact.Version,
		shared.ArtifactFileName(artifact.ArtifactID, artifact.Version, artifact.Classifier, artifact.ExtensionOrDefault()),
	)
}

func mavenMetadataRelPath(id types.ComponentIdentity) string {
	return path.Join(shared.GroupPath(id.GroupID), id.ArtifactID, mavenMetadataFileName)
}

func parseMavenMetadata(content []byte) (mavenMetadata, error) {
	var metadata mavenMetadata
	if err := xml.Unmarshal(content, &metadata); err != nil {
		return mavenMetadata{}, err
	}
	return metadata, nil
}

func (m mavenMetadata) versions() []string {
	out := make([]string, 0, len(m.Versioning.Versions))
	for _, version := range m.Versioning.Versions {
		if trimmed := strings.TrimSpace(version); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// withVersion returns metadata listing version in deploy order. The
// deployed version becomes latest, and release when it is not a snapshot.
func (m mavenMetadata) withVersion(id types.ComponentIdentity, version string, now time.Time) mavenMetadata {
	m.GroupID = id.GroupID
	m.ArtifactID = id.ArtifactID
	versions := m.versions()
	present := false
	for _, existing := range versions {
		if existing == version {
			present = true
			break
		}
	}
	if !present {
		versions = append(versions, version)
	}
	m.Versioning.Versions = versions
	m.Versioning.Latest = version
	if !strings.HasSuffix(version, "-SNAPSHOT") {
		m.Versioning.Release = version
	}
	if previous := m.lastUpdatedAt(); previous.After(now) {
		now = previous
	}
	m.Versioning.LastUpdated = now.UTC().Format(mavenTimestampLayout)
	return m
}

// lastUpdatedAt reads lastUpdated. Some repository managers write RFC 3339
// instead of the Maven layout; anything unreadable is the zero time.
func (m mavenMetadata) lastUpdatedAt() time.Time {
	value := strings.TrimSpace(m.Versioning.LastUpdated)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{mavenTimestampLayout, time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func encodeMavenMetadata(metadata mavenMetadata) ([]byte, error) {
	body, err := xml.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
