package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospero/internal/types"
)

func mavenChannel(name string, group string, artifact string) types.Channel {
	return types.Channel{
		Name:         name,
		Repositories: []types.Repository{{ID: "central", URL: "mem://central"}},
		Manifest:     types.ManifestCoordinate{Maven: &types.MavenCoordinate{GroupID: group, ArtifactID: artifact}},
	}
}

func mavenRecord(name string, version string, logical string) types.ChannelRecord {
	return types.ChannelRecord{
		Name:           name,
		Kind:           types.ManifestKindMaven,
		GroupID:        "org.example.channels",
		ArtifactID:     name,
		Version:        version,
		LogicalVersion: logical,
	}
}

func resolvedMaven(name string, version string, logical string) types.ResolvedChannelManifest {
	return types.ResolvedChannelManifest{
		Channel:         name,
		Kind:            types.ManifestKindMaven,
		PhysicalVersion: version,
		Manifest:        &types.Manifest{SchemaVersion: types.ManifestSchemaVersion, LogicalVersion: logical},
	}
}

func TestFindChannelChanges(t *testing.T) {
	tests := []struct {
		name              string
		channels          []types.Channel
		recorded          types.HistorySnapshot
		resolved          map[string]types.ResolvedChannelManifest
		wantChanges       []types.ChannelVersionChange
		wantAuthoritative bool
	}{
		{
			name:     "updated manifest",
			channels: []types.Channel{mavenChannel("base", "org.example.channels", "base")},
			recorded: types.HistorySnapshot{Channels: []types.ChannelRecord{mavenRecord("base", "1.0.0", "Base 1")}},
			resolved: map[string]types.ResolvedChannelManifest{"base": resolvedMaven("base", "1.0.1", "Base 1.1")},
			wantChanges: []types.ChannelVersionChange{{
				Name:   "base",
				Old:    &types.ChannelVersion{Physical: "1.0.0", Logical: "Base 1"},
				New:    &types.ChannelVersion{Physical: "1.0.1", Logical: "Base 1.1"},
				Status: types.ChannelUpdated,
			}},
			wantAuthoritative: true,
		},
		{
			name:              "unchanged manifest",
			channels:          []types.Channel{mavenChannel("base", "org.example.channels", "base")},
			recorded:          types.HistorySnapshot{Channels: []types.ChannelRecord{mavenRecord("base", "1.0.0", "Base 1")}},
			resolved:          map[string]types.ResolvedChannelManifest{"base": resolvedMaven("base", "1.0.0", "Base 1")},
			wantAuthoritative: true,
		},
		{
			name:     "new channel",
			channels: []types.Channel{mavenChannel("extra", "org.example.channels", "extra")},
			resolved: map[string]types.ResolvedChannelManifest{"extra": resolvedMaven("extra", "2.0.0", "")},
			wantChanges: []types.ChannelVersionChange{{
				Name:   "extra",
				New:    &types.ChannelVersion{Physical: "2.0.0"},
				Status: types.ChannelAdded,
			}},
			wantAuthoritative: true,
		},
		{
			name:     "channel no longer configured",
			recorded: types.HistorySnapshot{Channels: []types.ChannelRecord{mavenRecord("old", "3.0.0", "Old 3")}},
			wantChanges: []types.ChannelVersionChange{{
				Name:   "old",
				Old:    &types.ChannelVersion{Physical: "3.0.0", Logical: "Old 3"},
				Status: types.ChannelRemoved,
			}},
			wantAuthoritative: true,
		},
		{
			name: "url channel is not resolvable",
			channels: []types.Channel{{
				Name:     "custom",
				Manifest: types.ManifestCoordinate{URL: "https://example.org/manifest.yaml"},
			}},
			recorded: types.HistorySnapshot{Channels: []types.ChannelRecord{{Name: "custom", Kind: types.ManifestKindURL, Hash: "abc"}}},
			wantChanges: []types.ChannelVersionChange{{
				Name:   "custom",
				Old:    &types.ChannelVersion{Physical: "abc"},
				Status: types.ChannelUnresolvable,
			}},
		},
		{
			name: "resolving without a stream",
			channels: []types.Channel{func() types.Channel {
				channel := mavenChannel("base", "org.example.channels", "base")
				channel.NoStreamStrategy = types.NoStreamStrategyLatest
				return channel
			}()},
			recorded: types.HistorySnapshot{Channels: []types.ChannelRecord{mavenRecord("base", "1.0.0", "")}},
			resolved: map[string]types.ResolvedChannelManifest{"base": resolvedMaven("base", "1.0.0", "")},
		},
		{
			name:     "stream pinned by pattern",
			channels: []types.Channel{mavenChannel("base", "org.example.channels", "base")},
			recorded: types.HistorySnapshot{Channels: []types.ChannelRecord{mavenRecord("base", "1.0.0", "")}},
			resolved: map[string]types.ResolvedChannelManifest{"base": {
				Channel:         "base",
				Kind:            types.ManifestKindMaven,
				PhysicalVersion: "1.0.0",
				Manifest: &types.Manifest{Streams: []types.Stream{
					{GroupID: "org.example", ArtifactID: "a", VersionPattern: `1\.0\..*`},
				}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates := NewUpdateResolver(&stubVersionResolver{}, stubManifestPort{resolved: tt.resolved})
			defer updates.Close()

			changes, authoritative, err := updates.FindChannelChanges(context.Background(), tt.recorded, tt.channels)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.wantChanges, changes); diff != "" {
				t.Fatalf("channel changes mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantAuthoritative, authoritative)
		})
	}
}

func TestFindChannelChangesPropagatesResolveFailure(t *testing.T) {
	manifests := stubManifestPort{errs: map[string]error{"base": errors.New("repository offline")}}
	updates := NewUpdateResolver(&stubVersionResolver{}, manifests)
	defer updates.Close()

	_, _, err := updates.FindChannelChanges(context.Background(), types.HistorySnapshot{}, []types.Channel{mavenChannel("base", "org.example.channels", "base")})
	require.Error(t, err)
	assert.Equal(t, types.KindResolutionFailure, types.KindOf(err))
	assert.Contains(t, err.Error(), "base")
}

func TestUnresolvableChannelsAreNotActionable(t *testing.T) {
	set := types.UpdateSet{Channels: []types.ChannelVersionChange{{Name: "custom", Status: types.ChannelUnresolvable}}}
	assert.False(t, set.Actionable())
	assert.False(t, set.IsEmpty())
}

func TestSnapshotFromManifests(t *testing.T) {
	channels := []types.Channel{
		mavenChannel("base", "org.example.channels", "base"),
		{Name: "custom", Manifest: types.ManifestCoordinate{URL: "file:///tmp/custom.yaml"}},
		{
			Name:             "open",
			Repositories:     []types.Repository{{ID: "a", URL: "https://a.example"}, {ID: "b", URL: "https://b.example"}},
			NoStreamStrategy: types.NoStreamStrategyMavenRelease,
		},
	}
	resolved := map[string]types.ResolvedChannelManifest{
		"base":   resolvedMaven("base", "1.2.3", "Base 1.2"),
		"custom": {Channel: "custom", Kind: types.ManifestKindURL, Hash: "00ff", Manifest: &types.Manifest{}},
	}

	snapshot := SnapshotFromManifests(channels, resolved)
	want := []types.VersionRecord{
		{Name: "org.example.channels:base", Version: "1.2.3", Description: "Base 1.2"},
		{Name: "file:///tmp/custom.yaml", Version: "00ff"},
		{Name: "https://a.example,https://b.example", Version: "maven-release"},
	}
	if diff := cmp.Diff(want, snapshot.Versions()); diff != "" {
		t.Fatalf("versions mismatch (-want +got):\n%s", diff)
	}
}
