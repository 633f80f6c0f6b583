package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"prospero/internal/types"
)

// Status summarizes an installation: its channels, the latest revision and
// any operation left in progress.
func (s Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return StatusResult{}, err
	}
	result := StatusResult{}
	marker, err := s.machine(installDir).MarkerState(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	result.Marker = marker
	channels, err := s.Metadata.LoadChannels(installDir)
	if err != nil {
		return StatusResult{}, err
	}
	result.Channels = channels
	manifest, err := s.Metadata.LoadManifest(installDir)
	if err != nil {
		return StatusResult{}, err
	}
	result.Components = len(manifest.Streams)
	revisions, err := s.history(installDir).ListRevisions(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	if len(revisions) > 0 {
		latest := revisions[0]
		result.LatestRevision = &latest
	}
	if s.Created != nil {
		created, err := s.Created.CreatedAt(installDir)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("creation time unavailable")
		}
		result.CreatedAt = created
	}
	return result, nil
}

// ListChannels returns the configured channels in resolution order.
func (s Service) ListChannels(_ context.Context, req ListChannelsRequest) (ListChannelsResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return ListChannelsResult{}, err
	}
	channels, err := s.Metadata.LoadChannels(installDir)
	if err != nil {
		return ListChannelsResult{}, err
	}
	return ListChannelsResult{Channels: channels}, nil
}

// SetChannels replaces the channel configuration and records the change.
func (s Service) SetChannels(ctx context.Context, req SetChannelsRequest) (SetChannelsResult, error) {
	installDir, err := requireInstallDir(req.InstallDir)
	if err != nil {
		return SetChannelsResult{}, err
	}
	channels, err := s.Metadata.ReadChannelsFile(req.ChannelsFile)
	if err != nil {
		return SetChannelsResult{}, err
	}
	if err := s.Metadata.WriteChannels(installDir, channels); err != nil {
		return SetChannelsResult{}, err
	}
	snapshot, err := s.Metadata.LoadManifestVersions(installDir)
	if err != nil {
		return SetChannelsResult{}, err
	}
	state, err := s.history(installDir).Record(ctx, types.StateTypeConfigChange, "channels updated", snapshot)
	if err != nil {
		return SetChannelsResult{}, err
	}
	return SetChannelsResult{Revision: state}, nil
}
