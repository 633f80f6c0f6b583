package core

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"prospero/internal/ports"
	"prospero/internal/types"
)

const (
	DefaultPromotionBase = "1.0.0"
	maxPromotionCounter  = 99999999
)

var promotionVersionPattern = regexp.MustCompile(`^(.*)-rev(\d{8})$`)

// PromotionVersioner publishes custom artifacts together with a new revision
// of a custom channel manifest.
type PromotionVersioner struct {
	Base   string
	Source ports.RepositoryPort
	Target ports.RepositoryPort
}

func NewPromotionVersioner(source ports.RepositoryPort, target ports.RepositoryPort) PromotionVersioner {
	return PromotionVersioner{Base: DefaultPromotionBase, Source: source, Target: target}
}

type PromotionResult struct {
	Skipped         bool
	ManifestVersion string
	Deployed        []types.Artifact
}

// NextVersion returns the manifest version following existing. An empty
// existing version starts the counter at one.
func (p PromotionVersioner) NextVersion(existing string) (string, error) {
	if strings.TrimSpace(existing) == "" {
		return formatPromotionVersion(p.base(), 1), nil
	}
	match := promotionVersionPattern.FindStringSubmatch(existing)
	if match == nil {
		return "", types.NewError(types.KindFormatViolation,
			fmt.Sprintf("version %q does not end with -revNNNNNNNN", existing), nil)
	}
	counter, err := strconv.Atoi(match[2])
	if err != nil {
		return "", types.NewError(types.KindFormatViolation,
			fmt.Sprintf("version %q has an invalid revision counter", existing), err)
	}
	if counter >= maxPromotionCounter {
		return "", types.NewError(types.KindLimitExceeded,
			fmt.Sprintf("promotion limit reached for %q", existing), nil)
	}
	return formatPromotionVersion(match[1], counter+1), nil
}

func (p PromotionVersioner) base() string {
	if strings.TrimSpace(p.Base) == "" {
		return DefaultPromotionBase
	}
	return p.Base
}

func formatPromotionVersion(base string, counter int) string {
	return fmt.Sprintf("%s-rev%08d", base, counter)
}

// Promote copies artifacts from the source to the target repository and
// deploys a manifest revision that pins them. Nothing is deployed when
// artifacts is empty.
func (p PromotionVersioner) Promote(ctx context.Context, artifacts []types.Artifact, target types.MavenCoordinate) (PromotionResult, error) {
	if len(artifacts) == 0 {
		log.Ctx(ctx).Info().Str("channel", target.GA()).Msg("nothing to promote")
		return PromotionResult{Skipped: true}, nil
	}
	assert.NotEmpty(ctx, p.base(), "promotion base version must be set")
	if p.Source == nil || p.Target == nil {
		return PromotionResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("promotion requires source and target repositories")
	}
	if strings.TrimSpace(target.GroupID) == "" || strings.TrimSpace(target.ArtifactID) == "" {
		return PromotionResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("promotion target channel coordinate is incomplete")
	}

	for _, artifact := range artifacts {
		content, err := p.Source.Fetch(ctx, artifact)
		if err != nil {
			if isNotFound(err) {
				return PromotionResult{}, errbuilder.New().
					WithCode(errbuilder.CodeNotFound).
					WithMsg(fmt.Sprintf("artifact %s not found in source repository", artifact)).
					WithCause(err)
			}
			return PromotionResult{}, types.ResolutionFailure(fmt.Sprintf("failed to resolve %s", artifact), err)
		}
		if err := p.Target.Deploy(ctx, artifact, content); err != nil {
			return PromotionResult{}, err
		}
		log.Ctx(ctx).Debug().Str("artifact", artifact.String()).Msg("artifact promoted")
	}

	manifestID := target.Identity()
	existing, err := p.latestManifestVersion(ctx, manifestID)
	if err != nil {
		return PromotionResult{}, err
	}
	manifest, err := p.previousManifest(ctx, manifestID, existing, target)
	if err != nil {
		return PromotionResult{}, err
	}
	MergeStreams(&manifest, artifacts)

	next, err := p.NextVersion(existing)
	if err != nil {
		return PromotionResult{}, err
	}
	content, err := yaml.Marshal(manifest)
	if err != nil {
		return PromotionResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode channel manifest").
			WithCause(err)
	}
	if err := p.Target.Deploy(ctx, types.Artifact{ComponentIdentity: manifestID, Version: next}, content); err != nil {
		return PromotionResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("channel", target.GA()).
		Str("version", next).
		Int("artifacts", len(artifacts)).
		Msg("custom channel promoted")
	return PromotionResult{ManifestVersion: next, Deployed: append([]types.Artifact(nil), artifacts...)}, nil
}

func (p PromotionVersioner) latestManifestVersion(ctx context.Context, id types.ComponentIdentity) (string, error) {
	versions, err := p.Target.Versions(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	latest, _ := HighestVersion(versions)
	return latest, nil
}

func (p PromotionVersioner) previousManifest(ctx context.Context, id types.ComponentIdentity, version string, target types.MavenCoordinate) (types.Manifest, error) {
	if version == "" {
		return types.Manifest{
			SchemaVersion: types.ManifestSchemaVersion,
			Name:          target.ArtifactID,
			ID:            target.GA(),
		}, nil
	}
	content, err := p.Target.Fetch(ctx, types.Artifact{ComponentIdentity: id, Version: version})
	if err != nil {
		return types.Manifest{}, err
	}
	manifest, err := ParseManifest(content)
	if err != nil {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid channel manifest %s:%s", target.GA(), version)).
			WithCause(err)
	}
	return manifest, nil
}

// MergeStreams pins each artifact's stream to its version, adding streams
// that do not exist yet.
func MergeStreams(manifest *types.Manifest, artifacts []types.Artifact) {
	for _, artifact := range artifacts {
		replaced := false
		for i := range manifest.Streams {
			if manifest.Streams[i].GA() == artifact.GA() {
				manifest.Streams[i].Version = artifact.Version
				manifest.Streams[i].VersionPattern = ""
				replaced = true
				break
			}
		}
		if !replaced {
			manifest.Streams = append(manifest.Streams, types.Stream{
				GroupID:    artifact.GroupID,
				ArtifactID: artifact.ArtifactID,
				Version:    artifact.Version,
			})
		}
	}
	manifest.SortStreams()
}
