package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"prospero/internal/ports"
	"prospero/internal/types"
)

var _ ports.ChannelManifestPort = ChannelManifestLoader{}
var _ ports.VersionResolverPort = (*ChannelResolver)(nil)

// ChannelManifestLoader resolves the manifest behind a channel coordinate.
type ChannelManifestLoader struct {
	Opener ports.RepositoryOpenerPort
	URLs   ports.URLFetchPort
}

func NewChannelManifestLoader(opener ports.RepositoryOpenerPort, urls ports.URLFetchPort) ChannelManifestLoader {
	return ChannelManifestLoader{Opener: opener, URLs: urls}
}

func (l ChannelManifestLoader) ResolveChannelManifest(ctx context.Context, channel types.Channel) (types.ResolvedChannelManifest, error) {
	resolved := types.ResolvedChannelManifest{Channel: channel.Name, Kind: channel.Manifest.Kind()}
	switch resolved.Kind {
	case types.ManifestKindMaven:
		return l.resolveMaven(ctx, channel, resolved)
	case types.ManifestKindURL:
		if l.URLs == nil {
			return resolved, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("no url fetcher configured")
		}
		content, err := l.URLs.FetchURL(ctx, channel.Manifest.URL)
		if err != nil {
			return resolved, err
		}
		manifest, err := ParseManifest(content)
		if err != nil {
			return resolved, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid manifest at %s", channel.Manifest.URL)).
				WithCause(err)
		}
		resolved.URL = channel.Manifest.URL
		resolved.Hash = ContentHash(content)
		resolved.Manifest = &manifest
		return resolved, nil
	default:
		return resolved, nil
	}
}

func (l ChannelManifestLoader) resolveMaven(ctx context.Context, channel types.Channel, resolved types.ResolvedChannelManifest) (types.ResolvedChannelManifest, error) {
	coordinate := *channel.Manifest.Maven
	id := coordinate.Identity()
	repos, err := openRepositories(l.Opener, channel.Repositories)
	if err != nil {
		return resolved, err
	}
	version := strings.TrimSpace(coordinate.Version)
	if version == "" {
		versions, err := unionVersions(ctx, repos, id)
		if err != nil {
			return resolved, err
		}
		latest, ok := HighestVersion(versions)
		if !ok {
			return resolved, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no manifest %s found for channel %s", coordinate.GA(), channel.Name))
		}
		version = latest
	}
	artifact := types.Artifact{ComponentIdentity: id, Version: version}
	content, err := fetchFirst(ctx, repos, artifact)
	if err != nil {
		return resolved, err
	}
	manifest, err := ParseManifest(content)
	if err != nil {
		return resolved, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid manifest %s", artifact)).
			WithCause(err)
	}
	resolved.PhysicalVersion = version
	resolved.Manifest = &manifest
	return resolved, nil
}

// ParseManifest decodes a manifest document.
func ParseManifest(content []byte) (types.Manifest, error) {
	var manifest types.Manifest
	if err := yaml.Unmarshal(content, &manifest); err != nil {
		return types.Manifest{}, err
	}
	return manifest, nil
}

// ContentHash is the hash recorded for URL manifests.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// ChannelResolver finds the latest admissible version of a component across
// an ordered list of channels. It is safe for concurrent use.
type ChannelResolver struct {
	channels  []types.Channel
	opener    ports.RepositoryOpenerPort
	manifests ports.ChannelManifestPort

	mu       sync.Mutex
	resolved map[string]types.ResolvedChannelManifest
	failures map[string]error
}

func NewChannelResolver(channels []types.Channel, opener ports.RepositoryOpenerPort, manifests ports.ChannelManifestPort) *ChannelResolver {
	return &ChannelResolver{
		channels:  channels,
		opener:    opener,
		manifests: manifests,
		resolved:  map[string]types.ResolvedChannelManifest{},
		failures:  map[string]error{},
	}
}

func (r *ChannelResolver) channelManifest(ctx context.Context, channel types.Channel) (types.ResolvedChannelManifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resolved, ok := r.resolved[channel.Name]; ok {
		return resolved, nil
	}
	if err, ok := r.failures[channel.Name]; ok {
		return types.ResolvedChannelManifest{}, err
	}
	resolved, err := r.manifests.ResolveChannelManifest(ctx, channel)
	if err != nil {
		r.failures[channel.Name] = err
		return types.ResolvedChannelManifest{}, err
	}
	r.resolved[channel.Name] = resolved
	return resolved, nil
}

func (r *ChannelResolver) LatestVersion(ctx context.Context, id types.ComponentIdentity) types.ResolveResult {
	best := types.NotFound()
	for _, channel := range r.channels {
		result := r.latestInChannel(ctx, channel, id)
		switch result.Status {
		case types.ResolveError:
			return result
		case types.ResolveFound:
			if best.Status != types.ResolveFound || CompareVersions(result.Version, best.Version) > 0 {
				best = result
			}
		}
	}
	log.Ctx(ctx).Debug().Str("component", id.GA()).Str("version", best.Version).Str("channel", best.Channel).Msg("resolved latest version")
	return best
}

func (r *ChannelResolver) latestInChannel(ctx context.Context, channel types.Channel, id types.ComponentIdentity) types.ResolveResult {
	resolved, err := r.channelManifest(ctx, channel)
	if err != nil {
		return types.ResolveFailed(err)
	}
	var stream types.Stream
	hasStream := false
	if resolved.Manifest != nil {
		stream, hasStream = resolved.Manifest.FindStream(id.GA())
	}
	pattern := channel.StreamPatterns[id.GA()]
	if pattern == "" && hasStream {
		pattern = stream.VersionPattern
	}
	if !hasStream && pattern == "" && !channel.NoStreamStrategy.ResolvesWithoutStream() {
		return types.NotFound()
	}

	repos, err := openRepositories(r.opener, channel.Repositories)
	if err != nil {
		return types.ResolveFailed(err)
	}
	versions, err := unionVersions(ctx, repos, id)
	if err != nil {
		return types.ResolveFailed(err)
	}

	switch {
	case pattern != "":
		matching, err := MatchingVersions(versions, pattern)
		if err != nil {
			return types.ResolveFailed(errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid version pattern %q for %s in channel %s", pattern, id.GA(), channel.Name)).
				WithCause(err))
		}
		versions = matching
	case hasStream:
		for _, version := range versions {
			if version == stream.Version {
				return types.Found(version, channel.Name)
			}
		}
		return types.NotFound()
	case channel.NoStreamStrategy.Normalized() == types.NoStreamStrategyMavenRelease:
		var releases []string
		for _, version := range versions {
			if !IsSnapshotVersion(version) {
				releases = append(releases, version)
			}
		}
		versions = releases
	}
	latest, ok := HighestVersion(versions)
	if !ok {
		return types.NotFound()
	}
	return types.Found(latest, channel.Name)
}

func (r *ChannelResolver) AllVersions(ctx context.Context, id types.ComponentIdentity) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, channel := range r.channels {
		repos, err := openRepositories(r.opener, channel.Repositories)
		if err != nil {
			return nil, err
		}
		versions, err := unionVersions(ctx, repos, id)
		if err != nil {
			return nil, err
		}
		for _, version := range versions {
			if !seen[version] {
				seen[version] = true
				out = append(out, version)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) < 0
	})
	return out, nil
}

func openRepositories(opener ports.RepositoryOpenerPort, repos []types.Repository) ([]ports.RepositoryPort, error) {
	if opener == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no repository opener configured")
	}
	out := make([]ports.RepositoryPort, 0, len(repos))
	for _, repo := range repos {
		opened, err := opener.Open(repo)
		if err != nil {
			return nil, err
		}
		out = append(out, opened)
	}
	return out, nil
}

// unionVersions merges the versions every repository knows. Repositories
// that do not hold the component are skipped.
func unionVersions(ctx context.Context, repos []ports.RepositoryPort, id types.ComponentIdentity) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, repo := range repos {
		versions, err := repo.Versions(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, version := range versions {
			if !seen[version] {
				seen[version] = true
				out = append(out, version)
			}
		}
	}
	return out, nil
}

func fetchFirst(ctx context.Context, repos []ports.RepositoryPort, artifact types.Artifact) ([]byte, error) {
	for _, repo := range repos {
		content, err := repo.Fetch(ctx, artifact)
		if err == nil {
			return content, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("artifact %s not found", artifact))
}

func isNotFound(err error) bool {
	return types.KindOf(err) == types.KindNotFound
}
