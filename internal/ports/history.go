package ports

import (
	"context"

	"prospero/internal/types"
)

type HistoryPort interface {
	Record(ctx context.Context, stateType types.StateType, summary string, snapshot types.HistorySnapshot) (types.SavedState, error)
	ListRevisions(ctx context.Context) ([]types.SavedState, error)
	Diff(ctx context.Context, revision string) ([]types.ArtifactChange, error)
	Revert(ctx context.Context, revision string) (types.SavedState, error)
	ManifestAt(ctx context.Context, revision string) (types.Manifest, error)
	SnapshotAt(ctx context.Context, revision string) (types.HistorySnapshot, error)
}
