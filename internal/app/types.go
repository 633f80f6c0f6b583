package app

import (
	"time"

	"prospero/internal/types"
)

type InstallRequest struct {
	InstallDir   string
	ChannelsFile string
}

type InstallResult struct {
	Revision  types.SavedState
	Artifacts int
}

type ListUpdatesRequest struct {
	InstallDir string
}

type ListUpdatesResult struct {
	Updates types.UpdateSet
}

type PrepareUpdateRequest struct {
	InstallDir   string
	CandidateDir string
}

type PrepareRevertRequest struct {
	InstallDir   string
	CandidateDir string
	Revision     string
}

type PrepareResult struct {
	CandidateDir string
	Operation    types.CandidateOperation
	Updates      types.UpdateSet
	// Skipped is set when there was nothing to prepare.
	Skipped bool
}

type ApplyRequest struct {
	InstallDir      string
	CandidateDir    string
	RemoveCandidate bool
}

type ApplyResult struct {
	Revision types.SavedState
}

type UpdateRequest struct {
	InstallDir string
}

type UpdateResult struct {
	Updates  types.UpdateSet
	Applied  bool
	Revision types.SavedState
}

type HistoryRequest struct {
	InstallDir string
}

type HistoryResult struct {
	Revisions []types.SavedState
}

type HistoryDiffRequest struct {
	InstallDir string
	Revision   string
	Patch      bool
}

type HistoryDiffResult struct {
	Changes []types.ArtifactChange
	Patch   string
}

type RevertRequest struct {
	InstallDir   string
	Revision     string
	MetadataOnly bool
}

type RevertResult struct {
	Revision types.SavedState
}

type PromoteRequest struct {
	SourceRepo string
	TargetRepo string
	Channel    string
	Artifacts  []string
	Base       string
}

type PromoteResult struct {
	Skipped         bool
	ManifestVersion string
	Deployed        []types.Artifact
}

type StatusRequest struct {
	InstallDir string
}

type StatusResult struct {
	Marker         *types.MarkerFile
	LatestRevision *types.SavedState
	Channels       []types.Channel
	Components     int
	CreatedAt      time.Time
}

type SetChannelsRequest struct {
	InstallDir   string
	ChannelsFile string
}

type SetChannelsResult struct {
	Revision types.SavedState
}

type ListChannelsRequest struct {
	InstallDir string
}

type ListChannelsResult struct {
	Channels []types.Channel
}
