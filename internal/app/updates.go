package app

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/types"
)

// ListUpdates reports pending artifact updates and channel manifest drift.
func (s Service) ListUpdates(ctx context.Context, req ListUpdatesRequest) (ListUpdatesResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return ListUpdatesResult{}, err
	}
	updates, _, _, err := s.findUpdates(ctx, installDir)
	if err != nil {
		return ListUpdatesResult{}, err
	}
	return ListUpdatesResult{Updates: updates}, nil
}

func (s Service) findUpdates(ctx context.Context, installDir string) (types.UpdateSet, []types.Channel, types.Manifest, error) {
	channels, err := s.Metadata.LoadChannels(installDir)
	if err != nil {
		return types.UpdateSet{}, nil, types.Manifest{}, err
	}
	manifest, err := s.Metadata.LoadManifest(installDir)
	if err != nil {
		return types.UpdateSet{}, nil, types.Manifest{}, err
	}
	recorded, err := s.Metadata.LoadManifestVersions(installDir)
	if err != nil {
		return types.UpdateSet{}, nil, types.Manifest{}, err
	}
	resolver := s.updateResolver(channels)
	defer resolver.Close()
	updates, err := resolver.FindAll(ctx, manifest.Artifacts(), recorded, channels)
	if err != nil {
		return types.UpdateSet{}, nil, types.Manifest{}, err
	}
	return updates, channels, manifest, nil
}

// PrepareUpdate builds an UPDATE candidate. Nothing is prepared when no
// actionable update exists.
func (s Service) PrepareUpdate(ctx context.Context, req PrepareUpdateRequest) (PrepareResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return PrepareResult{}, err
	}
	updates, channels, manifest, err := s.findUpdates(ctx, installDir)
	if err != nil {
		return PrepareResult{}, err
	}
	if !updates.Actionable() {
		log.Ctx(ctx).Info().Msg("no updates available")
		return PrepareResult{Operation: types.CandidateUpdate, Updates: updates, Skipped: true}, nil
	}
	desired := ApplyUpdates(manifest, updates.Artifacts)
	dir, created, err := s.candidateDir(req.CandidateDir)
	if err != nil {
		return PrepareResult{}, err
	}
	if _, err := s.machine(installDir).Prepare(ctx, types.CandidateUpdate, dir, types.DesiredArtifactSet{
		Channels: channels,
		Manifest: &desired,
	}); err != nil {
		if created {
			_ = os.RemoveAll(dir)
		}
		return PrepareResult{}, err
	}
	return PrepareResult{CandidateDir: dir, Operation: types.CandidateUpdate, Updates: updates}, nil
}

// ApplyUpdates returns manifest with updated streams moved to their new
// versions and removed streams dropped.
func ApplyUpdates(manifest types.Manifest, changes []types.ArtifactChange) types.Manifest {
	byGA := make(map[string]types.ArtifactChange, len(changes))
	for _, change := range changes {
		byGA[change.Identity().GA()] = change
	}
	out := manifest
	out.Streams = nil
	for _, stream := range manifest.Streams {
		change, ok := byGA[stream.GA()]
		switch {
		case !ok:
			out.Streams = append(out.Streams, stream)
		case change.IsRemoved():
		default:
			stream.Version = change.NewVersion()
			stream.VersionPattern = ""
			out.Streams = append(out.Streams, stream)
		}
	}
	return out
}

// ApplyCandidate merges a prepared candidate into the installation.
func (s Service) ApplyCandidate(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return ApplyResult{}, err
	}
	if req.CandidateDir == "" {
		return ApplyResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("candidate directory is required")
	}
	if err := s.machine(installDir).Apply(ctx, req.CandidateDir); err != nil {
		return ApplyResult{}, err
	}
	revisions, err := s.history(installDir).ListRevisions(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	result := ApplyResult{}
	if len(revisions) > 0 {
		result.Revision = revisions[0]
	}
	if req.RemoveCandidate {
		if err := os.RemoveAll(req.CandidateDir); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("candidate", req.CandidateDir).Msg("failed to remove candidate")
		}
	}
	return result, nil
}

// Update prepares and applies an UPDATE candidate in one step. A candidate
// whose apply fails is kept so the apply can be retried.
func (s Service) Update(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	prepared, err := s.PrepareUpdate(ctx, PrepareUpdateRequest{InstallDir: req.InstallDir})
	if err != nil {
		return UpdateResult{}, err
	}
	if prepared.Skipped {
		return UpdateResult{Updates: prepared.Updates}, nil
	}
	applied, err := s.ApplyCandidate(ctx, ApplyRequest{
		InstallDir:      req.InstallDir,
		CandidateDir:    prepared.CandidateDir,
		RemoveCandidate: true,
	})
	if err != nil {
		log.Ctx(ctx).Warn().Str("candidate", prepared.CandidateDir).Msg("candidate kept for retry")
		return UpdateResult{Updates: prepared.Updates}, err
	}
	return UpdateResult{Updates: prepared.Updates, Applied: true, Revision: applied.Revision}, nil
}
