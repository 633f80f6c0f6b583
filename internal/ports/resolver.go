package ports

import (
	"context"

	"prospero/internal/types"
)

// VersionResolverPort answers "what is the latest admissible version of this
// component" under the rules of the configured channels.
type VersionResolverPort interface {
	LatestVersion(ctx context.Context, id types.ComponentIdentity) types.ResolveResult
	AllVersions(ctx context.Context, id types.ComponentIdentity) ([]string, error)
}

// ChannelManifestPort resolves the manifest a channel currently points at.
type ChannelManifestPort interface {
	ResolveChannelManifest(ctx context.Context, channel types.Channel) (types.ResolvedChannelManifest, error)
}
