package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/types"
)

// Install provisions a new installation from a channel configuration and
// records it as the first history revision.
func (s Service) Install(ctx context.Context, req InstallRequest) (result InstallResult, err error) {
	installDir := strings.TrimSpace(req.InstallDir)
	if installDir == "" {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("installation directory is required")
	}
	if strings.TrimSpace(req.ChannelsFile) == "" {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channels file is required")
	}
	if _, err := os.Stat(types.MetadataDir(installDir)); err == nil {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("an installation already exists at " + installDir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return InstallResult{}, types.StorageFailure("failed to inspect installation directory", err)
	}
	channels, err := s.Metadata.ReadChannelsFile(req.ChannelsFile)
	if err != nil {
		return InstallResult{}, err
	}
	_, statErr := os.Stat(installDir)
	createdDir := errors.Is(statErr, fs.ErrNotExist)
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return InstallResult{}, types.StorageFailure("failed to create installation directory", err)
	}
	defer func() {
		if err != nil {
			discardFailedInstall(ctx, installDir, createdDir)
		}
	}()
	if err := s.Provisioner.Materialize(ctx, installDir, types.DesiredArtifactSet{Channels: channels}); err != nil {
		return InstallResult{}, err
	}
	manifest, err := s.Metadata.LoadManifest(installDir)
	if err != nil {
		return InstallResult{}, err
	}
	snapshot, err := s.Metadata.LoadManifestVersions(installDir)
	if err != nil {
		return InstallResult{}, err
	}
	state, err := s.history(installDir).Record(ctx, types.StateTypeInstall, "initial installation", snapshot)
	if err != nil {
		return InstallResult{}, err
	}
	log.Ctx(ctx).Info().Str("dir", installDir).Str("revision", state.RevisionID).Msg("installation created")
	return InstallResult{Revision: state, Artifacts: len(manifest.Streams)}, nil
}

// discardFailedInstall removes what a failed Install left behind so the
// directory can be installed into again. A directory that existed before
// only loses its metadata directory.
func discardFailedInstall(ctx context.Context, installDir string, createdDir bool) {
	target := types.MetadataDir(installDir)
	if createdDir {
		target = installDir
	}
	if err := os.RemoveAll(target); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("dir", target).Msg("failed to remove partial installation")
	}
}
