package types

import (
	"strings"
	"time"
)

// VersionRecord is one line of a saved state's version listing.
type VersionRecord struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// SavedState is one revision of the installation history.
type SavedState struct {
	RevisionID string
	Timestamp  time.Time
	Type       StateType
	Summary    string
	Versions   []VersionRecord
}

// ChannelRecord captures enough of a channel's manifest identity to rebuild
// the version listing of a revision. Which fields are set depends on Kind.
type ChannelRecord struct {
	Name           string           `yaml:"name" json:"name"`
	Kind           ManifestKind     `yaml:"kind" json:"kind"`
	GroupID        string           `yaml:"groupId,omitempty" json:"groupId,omitempty"`
	ArtifactID     string           `yaml:"artifactId,omitempty" json:"artifactId,omitempty"`
	Version        string           `yaml:"version,omitempty" json:"version,omitempty"`
	URL            string           `yaml:"url,omitempty" json:"url,omitempty"`
	Hash           string           `yaml:"hash,omitempty" json:"hash,omitempty"`
	Repositories   []string         `yaml:"repositories,omitempty" json:"repositories,omitempty"`
	Strategy       NoStreamStrategy `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	LogicalVersion string           `yaml:"logicalVersion,omitempty" json:"description,omitempty"`
}

// VersionRecord renders the record the way history listings show it.
func (r ChannelRecord) VersionRecord() VersionRecord {
	switch r.Kind {
	case ManifestKindMaven:
		return VersionRecord{Name: r.GroupID + ":" + r.ArtifactID, Version: r.Version, Description: r.LogicalVersion}
	case ManifestKindURL:
		return VersionRecord{Name: r.URL, Version: r.Hash, Description: r.LogicalVersion}
	default:
		return VersionRecord{Name: strings.Join(r.Repositories, ","), Version: string(r.Strategy.Normalized()), Description: r.LogicalVersion}
	}
}

// HistorySnapshot is the structured payload stored with every revision.
type HistorySnapshot struct {
	Channels []ChannelRecord `yaml:"channels" json:"channels"`
}

func (s HistorySnapshot) Versions() []VersionRecord {
	out := make([]VersionRecord, 0, len(s.Channels))
	for _, record := range s.Channels {
		out = append(out, record.VersionRecord())
	}
	return out
}

// ChannelRecordByName returns the recorded channel with the given name.
func (s HistorySnapshot) ChannelRecordByName(name string) (ChannelRecord, bool) {
	for _, record := range s.Channels {
		if record.Name == name {
			return record, true
		}
	}
	return ChannelRecord{}, false
}

// RevisionCommit is one append to the revision log.
type RevisionCommit struct {
	Message string
	Files   []string
	When    time.Time
}

// RevisionEntry is a stored revision as the log returns it.
type RevisionEntry struct {
	Hash    string
	Message string
	When    time.Time
}
