package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/core"
	"prospero/internal/ports"
	"prospero/internal/shared"
	"prospero/internal/types"
)

var _ ports.ProvisionerPort = LayoutProvisioner{}

// ModulesDirName is where provisioned artifacts live inside an installation.
const ModulesDirName = "modules"

// LayoutProvisioner lays artifacts out as
// modules/<group path>/<artifactId>/<artifactId>-<version>.<ext> and writes
// the installation metadata next to them.
type LayoutProvisioner struct {
	Opener   ports.RepositoryOpenerPort
	URLs     ports.URLFetchPort
	Metadata ports.InstallationPort
}

func NewLayoutProvisioner(opener ports.RepositoryOpenerPort, urls ports.URLFetchPort, metadata ports.InstallationPort) LayoutProvisioner {
	return LayoutProvisioner{Opener: opener, URLs: urls, Metadata: metadata}
}

type provisionedArtifact struct {
	artifact types.Artifact
	channel  string
}

func (p LayoutProvisioner) Materialize(ctx context.Context, targetDir string, desired types.DesiredArtifactSet) error {
	if len(desired.Channels) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one channel is required")
	}
	loader := core.NewChannelManifestLoader(p.Opener, p.URLs)
	resolvedManifests := map[string]types.ResolvedChannelManifest{}
	for _, channel := range desired.Channels {
		resolved, err := loader.ResolveChannelManifest(ctx, channel)
		if err != nil {
			return types.ResolutionFailure(fmt.Sprintf("failed to resolve manifest of channel %s", channel.Name), err)
		}
		resolvedManifests[channel.Name] = resolved
	}
	resolver := core.NewChannelResolver(desired.Channels, p.Opener, loader)

	streams := p.desiredStreams(desired, resolvedManifests)
	artifacts := make([]provisionedArtifact, 0, len(streams))
	for _, stream := range streams {
		id := types.ComponentIdentity{GroupID: stream.GroupID, ArtifactID: stream.ArtifactID}
		if stream.Version != "" && stream.VersionPattern == "" {
			artifacts = append(artifacts, provisionedArtifact{artifact: types.Artifact{ComponentIdentity: id, Version: stream.Version}})
			continue
		}
		result := resolver.LatestVersion(ctx, id)
		switch result.Status {
		case types.ResolveFound:
			artifacts = append(artifacts, provisionedArtifact{
				artifact: types.Artifact{ComponentIdentity: id, Version: result.Version},
				channel:  result.Channel,
			})
		case types.ResolveNotFound:
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no admissible version of %s", id.GA()))
		default:
			return types.ResolutionFailure(fmt.Sprintf("failed to resolve %s", id.GA()), result.Err)
		}
	}

	manifest := types.Manifest{SchemaVersion: types.ManifestSchemaVersion, Name: "installation"}
	for _, item := range artifacts {
		content, err := p.fetch(ctx, desired.Channels, item)
		if err != nil {
			return err
		}
		if err := writeArtifact(targetDir, item.artifact, content); err != nil {
			return err
		}
		manifest.Streams = append(manifest.Streams, types.Stream{
			GroupID:    item.artifact.GroupID,
			ArtifactID: item.artifact.ArtifactID,
			Version:    item.artifact.Version,
		})
	}
	manifest.SortStreams()

	versions := core.SnapshotFromManifests(desired.Channels, resolvedManifests)
	if desired.Versions != nil {
		versions = *desired.Versions
	}
	if err := p.Metadata.WriteManifest(targetDir, manifest); err != nil {
		return err
	}
	if err := p.Metadata.WriteChannels(targetDir, desired.Channels); err != nil {
		return err
	}
	if err := p.Metadata.WriteManifestVersions(targetDir, versions); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("target", targetDir).
		Int("artifacts", len(artifacts)).
		Msg("installation materialized")
	return nil
}

func (p LayoutProvisioner) desiredStreams(desired types.DesiredArtifactSet, resolved map[string]types.ResolvedChannelManifest) []types.Stream {
	seen := map[string]bool{}
	var streams []types.Stream
	if desired.Manifest != nil {
		for _, stream := range desired.Manifest.Streams {
			if !seen[stream.GA()] {
				seen[stream.GA()] = true
				streams = append(streams, stream)
			}
		}
	}
	if desired.PinnedOnly {
		return streams
	}
	for _, channel := range desired.Channels {
		manifest := resolved[channel.Name].Manifest
		if manifest == nil {
			continue
		}
		for _, stream := range manifest.Streams {
			if seen[stream.GA()] {
				continue
			}
			seen[stream.GA()] = true
			// Channel streams go through the resolver so that
			// repository presence and channel overrides apply.
			streams = append(streams, types.Stream{GroupID: stream.GroupID, ArtifactID: stream.ArtifactID})
		}
	}
	return streams
}

// fetch downloads from the resolving channel first, then from every
// channel in order.
func (p LayoutProvisioner) fetch(ctx context.Context, channels []types.Channel, item provisionedArtifact) ([]byte, error) {
	ordered := make([]types.Channel, 0, len(channels))
	for _, channel := range channels {
		if channel.Name == item.channel {
			ordered = append([]types.Channel{channel}, ordered...)
			continue
		}
		ordered = append(ordered, channel)
	}
	for _, channel := range ordered {
		for _, repo := range channel.Repositories {
			opened, err := p.Opener.Open(repo)
			if err != nil {
				return nil, err
			}
			content, err := opened.Fetch(ctx, item.artifact)
			if err == nil {
				return content, nil
			}
			if types.KindOf(err) != types.KindNotFound {
				return nil, types.ResolutionFailure(fmt.Sprintf("failed to download %s", item.artifact), err)
			}
		}
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("artifact %s not found in any channel repository", item.artifact))
}

// ArtifactPath is the location of an artifact inside an installation. The
// path carries no version, so a newer or reverted version of a component
// overwrites the installed one when a candidate is merged.
func ArtifactPath(installDir string, artifact types.Artifact) string {
	return filepath.Join(
		installDir,
		ModulesDirName,
		filepath.FromSlash(shared.GroupPath(artifact.GroupID)),
		artifact.ArtifactID,
		shared.ModuleFileName(artifact.ArtifactID, artifact.Classifier, artifact.ExtensionOrDefault()),
	)
}

func writeArtifact(targetDir string, artifact types.Artifact, content []byte) error {
	path := ArtifactPath(targetDir, artifact)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create module directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", artifact)).
			WithCause(err)
	}
	return nil
}
