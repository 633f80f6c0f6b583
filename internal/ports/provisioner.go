package ports

import (
	"context"

	"prospero/internal/types"
)

type ProvisionerPort interface {
	Materialize(ctx context.Context, targetDir string, desired types.DesiredArtifactSet) error
}

// TreeMergePort merges a candidate tree into a live installation.
type TreeMergePort interface {
	Merge(ctx context.Context, candidateDir string, liveDir string) error
}
