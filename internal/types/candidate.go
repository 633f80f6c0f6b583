package types

import "strings"

// CandidateOperation is the kind of operation a candidate tree was prepared for.
type CandidateOperation string

const (
	CandidateUpdate CandidateOperation = "UPDATE"
	CandidateRevert CandidateOperation = "REVERT"
)

// ParseCandidateOperation rejects anything other than UPDATE or REVERT.
func ParseCandidateOperation(value string) (CandidateOperation, bool) {
	switch CandidateOperation(strings.ToUpper(strings.TrimSpace(value))) {
	case CandidateUpdate:
		return CandidateUpdate, true
	case CandidateRevert:
		return CandidateRevert, true
	default:
		return "", false
	}
}

func (o CandidateOperation) Valid() bool {
	_, ok := ParseCandidateOperation(string(o))
	return ok
}

// StateType is the history revision type recorded once the operation commits.
func (o CandidateOperation) StateType() StateType {
	if o == CandidateRevert {
		return StateTypeRollback
	}
	return StateTypeUpdate
}

const MarkerStatePrepared = "prepared"

// MarkerFile records an in-progress apply inside the metadata directory.
type MarkerFile struct {
	State     string             `yaml:"state"`
	Operation CandidateOperation `yaml:"operation"`
}

// DesiredArtifactSet is what a provisioner is asked to materialize.
//
// Manifest streams are provisioned first; streams of the channel manifests
// that the Manifest does not mention are added unless PinnedOnly is set.
// Streams without an exact version resolve to the latest admissible one.
// Versions, when set, is written as the manifest version record instead of
// the record of the currently resolved channel manifests.
type DesiredArtifactSet struct {
	Channels   []Channel
	Manifest   *Manifest
	PinnedOnly bool
	Versions   *HistorySnapshot
}
