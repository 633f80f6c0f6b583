package app

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/aymanbagabas/go-udiff"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"prospero/internal/policies"
	"prospero/internal/types"
)

func (s Service) History(ctx context.Context, req HistoryRequest) (HistoryResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return HistoryResult{}, err
	}
	revisions, err := s.history(installDir).ListRevisions(ctx)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Revisions: revisions}, nil
}

// HistoryDiff lists component changes since revision. With Patch set it
// also renders a unified diff of the manifest files.
func (s Service) HistoryDiff(ctx context.Context, req HistoryDiffRequest) (HistoryDiffResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return HistoryDiffResult{}, err
	}
	if req.Revision == "" {
		return HistoryDiffResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("revision is required")
	}
	if req.Patch {
		if err := policies.RequireFeature(s.Stability, policies.FeatureHistoryPatch); err != nil {
			return HistoryDiffResult{}, err
		}
	}
	store := s.history(installDir)
	changes, err := store.Diff(ctx, req.Revision)
	if err != nil {
		return HistoryDiffResult{}, err
	}
	result := HistoryDiffResult{Changes: changes}
	if !req.Patch {
		return result, nil
	}
	old, err := store.ManifestAt(ctx, req.Revision)
	if err != nil {
		return HistoryDiffResult{}, err
	}
	current, err := s.Metadata.LoadManifest(installDir)
	if err != nil {
		return HistoryDiffResult{}, err
	}
	oldText, err := yaml.Marshal(old)
	if err != nil {
		return HistoryDiffResult{}, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("failed to encode manifest").WithCause(err)
	}
	currentText, err := yaml.Marshal(current)
	if err != nil {
		return HistoryDiffResult{}, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("failed to encode manifest").WithCause(err)
	}
	result.Patch = udiff.Unified(
		types.ManifestFileName+" ("+req.Revision+")",
		types.ManifestFileName+" (current)",
		string(oldText),
		string(currentText),
	)
	return result, nil
}

// PrepareRevert builds a REVERT candidate holding exactly the components
// recorded at revision.
func (s Service) PrepareRevert(ctx context.Context, req PrepareRevertRequest) (PrepareResult, error) {
	if err := policies.RequireFeature(s.Stability, policies.FeatureCandidateRevert); err != nil {
		return PrepareResult{}, err
	}
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return PrepareResult{}, err
	}
	if req.Revision == "" {
		return PrepareResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("revision is required")
	}
	store := s.history(installDir)
	manifest, err := store.ManifestAt(ctx, req.Revision)
	if err != nil {
		return PrepareResult{}, err
	}
	snapshot, err := store.SnapshotAt(ctx, req.Revision)
	if err != nil {
		return PrepareResult{}, err
	}
	channels, err := s.Metadata.LoadChannels(installDir)
	if err != nil {
		return PrepareResult{}, err
	}
	dir, created, err := s.candidateDir(req.CandidateDir)
	if err != nil {
		return PrepareResult{}, err
	}
	if _, err := s.machine(installDir).Prepare(ctx, types.CandidateRevert, dir, types.DesiredArtifactSet{
		Channels:   channels,
		Manifest:   &manifest,
		PinnedOnly: true,
		Versions:   &snapshot,
	}); err != nil {
		if created {
			_ = os.RemoveAll(dir)
		}
		return PrepareResult{}, err
	}
	return PrepareResult{CandidateDir: dir, Operation: types.CandidateRevert}, nil
}

// Revert returns the installation to revision. Unless MetadataOnly is set
// the components are re-provisioned through a REVERT candidate.
func (s Service) Revert(ctx context.Context, req RevertRequest) (RevertResult, error) {
	if req.MetadataOnly {
		installDir, err := requireInstallDir(req.InstallDir)
		if err != nil {
			return RevertResult{}, err
		}
		state, err := s.history(installDir).Revert(ctx, req.Revision)
		if err != nil {
			return RevertResult{}, err
		}
		return RevertResult{Revision: state}, nil
	}
	prepared, err := s.PrepareRevert(ctx, PrepareRevertRequest{InstallDir: req.InstallDir, Revision: req.Revision})
	if err != nil {
		return RevertResult{}, err
	}
	applied, err := s.ApplyCandidate(ctx, ApplyRequest{
		InstallDir:      req.InstallDir,
		CandidateDir:    prepared.CandidateDir,
		RemoveCandidate: true,
	})
	if err != nil {
		log.Ctx(ctx).Warn().Str("candidate", prepared.CandidateDir).Msg("candidate kept for retry")
		return RevertResult{}, err
	}
	return RevertResult{Revision: applied.Revision}, nil
}
