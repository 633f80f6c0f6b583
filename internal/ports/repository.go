package ports

import (
	"context"

	"prospero/internal/types"
)

// RepositoryPort downloads and uploads artifacts by coordinate.
type RepositoryPort interface {
	Versions(ctx context.Context, id types.ComponentIdentity) ([]string, error)
	Fetch(ctx context.Context, artifact types.Artifact) ([]byte, error)
	Deploy(ctx context.Context, artifact types.Artifact, content []byte) error
}

type RepositoryOpenerPort interface {
	Open(repo types.Repository) (RepositoryPort, error)
}

// URLFetchPort reads manifests addressed by URL.
type URLFetchPort interface {
	FetchURL(ctx context.Context, url string) ([]byte, error)
}
