package ports

import (
	"context"
	"time"

	"prospero/internal/types"
)

// RevisionLogPort is the content-addressed log backing installation history.
// File paths are relative to the metadata directory.
type RevisionLogPort interface {
	Initialized(ctx context.Context) (bool, error)
	Commit(ctx context.Context, commit types.RevisionCommit) (string, error)
	// Log returns revisions newest first.
	Log(ctx context.Context) ([]types.RevisionEntry, error)
	// Resolve expands an abbreviated revision id to a full hash.
	Resolve(ctx context.Context, revision string) (string, error)
	// ReadFileAt reads a file as of hash from a disposable working copy.
	ReadFileAt(ctx context.Context, hash string, path string) ([]byte, error)
	// RestoreFile writes a file as of hash into the live metadata directory.
	RestoreFile(ctx context.Context, hash string, path string) error
}

// CreationTimePort reports when an installation was first laid out on disk.
type CreationTimePort interface {
	CreatedAt(installDir string) (time.Time, error)
}
