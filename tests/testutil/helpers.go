// Package testutil provides shared test helpers used by the integration
// test packages.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"prospero/internal/ports"
	"prospero/internal/types"
)

// DeployManifest publishes a channel manifest listing the given streams.
func DeployManifest(t *testing.T, repo ports.RepositoryPort, coords types.MavenCoordinate, version string, logical string, streams map[types.ComponentIdentity]string) {
	t.Helper()
	manifest := types.Manifest{SchemaVersion: types.ManifestSchemaVersion, Name: coords.ArtifactID, LogicalVersion: logical}
	for id, streamVersion := range streams {
		manifest.Streams = append(manifest.Streams, types.Stream{GroupID: id.GroupID, ArtifactID: id.ArtifactID, Version: streamVersion})
	}
	manifest.SortStreams()
	data, err := yaml.Marshal(manifest)
	require.NoError(t, err)
	artifact := types.Artifact{ComponentIdentity: coords.Identity(), Version: version}
	require.NoError(t, repo.Deploy(context.Background(), artifact, data))
}

// WriteChannels writes a channels file with one manifest-backed channel.
func WriteChannels(t *testing.T, path string, name string, repoURL string, coords types.MavenCoordinate) {
	t.Helper()
	channels := types.ChannelsFile{
		SchemaVersion: types.ChannelsSchemaVersion,
		Channels: []types.Channel{{
			Name:         name,
			Repositories: []types.Repository{{ID: name + "-repo", URL: repoURL}},
			Manifest:     types.ManifestCoordinate{Maven: &coords},
		}},
	}
	data, err := yaml.Marshal(channels)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}
