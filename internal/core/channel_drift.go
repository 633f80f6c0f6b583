package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/types"
)

// FindChannelChanges compares the manifest versions recorded at the last
// install or update with what each configured channel resolves to now.
//
// The second return value reports whether the comparison is authoritative:
// every channel has a resolvable Maven manifest, none falls back to
// resolving artifacts without a stream, and no stream is pinned by pattern.
func (r *UpdateResolver) FindChannelChanges(ctx context.Context, recorded types.HistorySnapshot, channels []types.Channel) ([]types.ChannelVersionChange, bool, error) {
	if r.manifests == nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no channel manifest resolver configured")
	}
	authoritative := true
	current := map[string]bool{}
	var changes []types.ChannelVersionChange

	for _, channel := range channels {
		current[channel.Name] = true
		builder := types.NewChannelVersionChangeBuilder(channel.Name)
		if old, ok := recorded.ChannelRecordByName(channel.Name); ok {
			builder.OldPhysical(recordedPhysical(old)).OldLogical(old.LogicalVersion)
		}
		if channel.NoStreamStrategy.ResolvesWithoutStream() || len(channel.StreamPatterns) > 0 {
			authoritative = false
		}

		if !channel.Manifest.Resolvable() {
			authoritative = false
			builder.Unresolvable()
			changes = append(changes, builder.Build())
			continue
		}

		resolved, err := r.manifests.ResolveChannelManifest(ctx, channel)
		if err != nil {
			return nil, false, types.ResolutionFailure(fmt.Sprintf("failed to resolve manifest of channel %s", channel.Name), err)
		}
		if resolved.Manifest != nil && resolved.Manifest.HasVersionPatterns() {
			authoritative = false
		}
		builder.NewPhysical(resolved.PhysicalVersion).NewLogical(resolved.LogicalVersion())
		if change := builder.Build(); change.Changed() {
			changes = append(changes, change)
		}
	}

	for _, old := range recorded.Channels {
		if current[old.Name] {
			continue
		}
		builder := types.NewChannelVersionChangeBuilder(old.Name).
			OldPhysical(recordedPhysical(old)).
			OldLogical(old.LogicalVersion)
		changes = append(changes, builder.Build())
	}

	log.Ctx(ctx).Debug().
		Int("channels", len(channels)).
		Int("changes", len(changes)).
		Bool("authoritative", authoritative).
		Msg("channel drift computed")
	return changes, authoritative, nil
}

func recordedPhysical(record types.ChannelRecord) string {
	if record.Kind == types.ManifestKindURL {
		return record.Hash
	}
	return record.Version
}

// SnapshotFromManifests builds the history payload describing the manifests
// an installation was provisioned from.
func SnapshotFromManifests(channels []types.Channel, resolved map[string]types.ResolvedChannelManifest) types.HistorySnapshot {
	snapshot := types.HistorySnapshot{}
	for _, channel := range channels {
		record := types.ChannelRecord{Name: channel.Name, Kind: channel.Manifest.Kind()}
		manifest := resolved[channel.Name]
		switch record.Kind {
		case types.ManifestKindMaven:
			record.GroupID = channel.Manifest.Maven.GroupID
			record.ArtifactID = channel.Manifest.Maven.ArtifactID
			record.Version = manifest.PhysicalVersion
		case types.ManifestKindURL:
			record.URL = channel.Manifest.URL
			record.Hash = manifest.Hash
		default:
			for _, repo := range channel.Repositories {
				record.Repositories = append(record.Repositories, repo.URL)
			}
			record.Strategy = channel.NoStreamStrategy.Normalized()
		}
		record.LogicalVersion = manifest.LogicalVersion()
		snapshot.Channels = append(snapshot.Channels, record)
	}
	return snapshot
}
