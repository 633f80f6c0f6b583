package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"prospero/internal/core"
	"prospero/internal/policies"
	"prospero/internal/types"
)

// Promote publishes artifacts from a source repository to a target
// repository together with a new revision of the custom channel manifest.
func (s Service) Promote(ctx context.Context, req PromoteRequest) (PromoteResult, error) {
	if err := policies.RequireFeature(s.Stability, policies.FeaturePromote); err != nil {
		return PromoteResult{}, err
	}
	if strings.TrimSpace(req.SourceRepo) == "" || strings.TrimSpace(req.TargetRepo) == "" {
		return PromoteResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source and target repositories are required")
	}
	channel, err := types.ParseMavenCoordinate(req.Channel)
	if err != nil {
		return PromoteResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid channel coordinate").
			WithCause(err)
	}
	artifacts := make([]types.Artifact, 0, len(req.Artifacts))
	for _, raw := range req.Artifacts {
		artifact, err := types.ParseArtifact(raw)
		if err != nil {
			return PromoteResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid artifact coordinate").
				WithCause(err)
		}
		artifacts = append(artifacts, artifact)
	}
	source, err := s.Opener.Open(types.Repository{ID: "source", URL: req.SourceRepo})
	if err != nil {
		return PromoteResult{}, err
	}
	target, err := s.Opener.Open(types.Repository{ID: "target", URL: req.TargetRepo})
	if err != nil {
		return PromoteResult{}, err
	}
	versioner := core.NewPromotionVersioner(source, target)
	if base := strings.TrimSpace(req.Base); base != "" {
		versioner.Base = base
	}
	result, err := versioner.Promote(ctx, artifacts, channel)
	if err != nil {
		return PromoteResult{}, err
	}
	return PromoteResult{
		Skipped:         result.Skipped,
		ManifestVersion: result.ManifestVersion,
		Deployed:        result.Deployed,
	}, nil
}
