package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/types"
)

var _ ports.RepositoryPort = MavenFileRepositoryAdapter{}

// MavenFileRepositoryAdapter serves a Maven repository laid out on the local
// file system.
type MavenFileRepositoryAdapter struct {
	Root  string
	Clock func() time.Time
}

func NewMavenFileRepositoryAdapter(root string) MavenFileRepositoryAdapter {
	return MavenFileRepositoryAdapter{Root: root, Clock: time.Now}
}

// Versions reads maven-metadata.xml, or scans the version directories when
// the repository carries no metadata for the component.
func (a MavenFileRepositoryAdapter) Versions(ctx context.Context, id types.ComponentIdentity) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(a.path(mavenMetadataRelPath(id)))
	if err == nil {
		metadata, err := parseMavenMetadata(content)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid maven metadata for %s", id.GA())).
				WithCause(err)
		}
		return metadata.versions(), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, types.StorageFailure(fmt.Sprintf("failed to read maven metadata for %s", id.GA()), err)
	}
	return a.scanVersions(id)
}

func (a MavenFileRepositoryAdapter) scanVersions(id types.ComponentIdentity) ([]string, error) {
	componentDir := filepath.Dir(a.path(mavenMetadataRelPath(id)))
	entries, err := os.ReadDir(componentDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("component %s not found in %s", id.GA(), a.Root))
		}
		return nil, types.StorageFailure(fmt.Sprintf("failed to list versions of %s", id.GA()), err)
	}
	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		artifact := types.Artifact{ComponentIdentity: id, Version: entry.Name()}
		if _, err := os.Stat(a.path(artifactRelPath(artifact))); err == nil {
			versions = append(versions, entry.Name())
		}
	}
	return versions, nil
}

func (a MavenFileRepositoryAdapter) Fetch(ctx context.Context, artifact types.Artifact) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(a.path(artifactRelPath(artifact)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("artifact %s not found in %s", artifact, a.Root))
		}
		return nil, types.StorageFailure(fmt.Sprintf("failed to read artifact %s", artifact), err)
	}
	return content, nil
}

// Deploy stores the artifact and records its version in maven-metadata.xml.
func (a MavenFileRepositoryAdapter) Deploy(ctx context.Context, artifact types.Artifact, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.validate(); err != nil {
		return err
	}
	if err := writeFileAtomic(a.path(artifactRelPath(artifact)), content, 0644); err != nil {
		return types.StorageFailure(fmt.Sprintf("failed to deploy %s", artifact), err)
	}
	metadataPath := a.path(mavenMetadataRelPath(artifact.ComponentIdentity))
	metadata := mavenMetadata{}
	if existing, err := os.ReadFile(metadataPath); err == nil {
		parsed, err := parseMavenMetadata(existing)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid maven metadata for %s", artifact.GA())).
				WithCause(err)
		}
		metadata = parsed
	} else if !errors.Is(err, fs.ErrNotExist) {
		return types.StorageFailure(fmt.Sprintf("failed to read maven metadata for %s", artifact.GA()), err)
	}
	encoded, err := encodeMavenMetadata(metadata.withVersion(artifact.ComponentIdentity, artifact.Version, a.now()))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode maven metadata").
			WithCause(err)
	}
	if err := writeFileAtomic(metadataPath, encoded, 0644); err != nil {
		return types.StorageFailure(fmt.Sprintf("failed to write maven metadata for %s", artifact.GA()), err)
	}
	log.Ctx(ctx).Debug().Str("artifact", artifact.String()).Str("repository", a.Root).Msg("artifact deployed")
	return nil
}

func (a MavenFileRepositoryAdapter) validate() error {
	if strings.TrimSpace(a.Root) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository directory is empty")
	}
	return nil
}

func (a MavenFileRepositoryAdapter) path(rel string) string {
	return filepath.Join(a.Root, filepath.FromSlash(rel))
}

func (a MavenFileRepositoryAdapter) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}
