package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/types"
)

var _ ports.RevisionLogPort = GitRevisionLogAdapter{}

const (
	defaultHistoryAuthor = "prospero"
	defaultHistoryEmail  = "prospero@localhost"
	minRevisionLength    = 4
)

// GitRevisionLogAdapter stores revisions as commits of a git repository whose
// work tree is the installation's metadata directory.
type GitRevisionLogAdapter struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
	// TempDir hosts disposable working copies. Empty means os.TempDir().
	TempDir string
}

func NewGitRevisionLogAdapter(metadataDir string) GitRevisionLogAdapter {
	return GitRevisionLogAdapter{
		Dir:         metadataDir,
		AuthorName:  defaultHistoryAuthor,
		AuthorEmail: defaultHistoryEmail,
	}
}

func (a GitRevisionLogAdapter) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(a.Dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, types.StorageFailure("failed to open history repository", err)
	}
	return repo, nil
}

func (a GitRevisionLogAdapter) Initialized(_ context.Context) (bool, error) {
	repo, err := a.open()
	if err != nil || repo == nil {
		return false, err
	}
	if _, err := repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, types.StorageFailure("failed to read history head", err)
	}
	return true, nil
}

func (a GitRevisionLogAdapter) Commit(ctx context.Context, commit types.RevisionCommit) (string, error) {
	repo, err := a.open()
	if err != nil {
		return "", err
	}
	if repo == nil {
		repo, err = git.PlainInit(a.Dir, false)
		if err != nil {
			return "", types.StorageFailure("failed to initialize history repository", err)
		}
		log.Ctx(ctx).Debug().Str("dir", a.Dir).Msg("history repository initialized")
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", types.StorageFailure("failed to open history work tree", err)
	}
	for _, file := range commit.Files {
		if _, err := worktree.Add(file); err != nil {
			return "", types.StorageFailure(fmt.Sprintf("failed to stage %s", file), err)
		}
	}
	signature := &object.Signature{
		Name:  a.authorName(),
		Email: a.authorEmail(),
		When:  commit.When,
	}
	hash, err := worktree.Commit(commit.Message, &git.CommitOptions{
		Author:            signature,
		Committer:         signature,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", types.StorageFailure("failed to commit history revision", err)
	}
	return hash.String(), nil
}

func (a GitRevisionLogAdapter) Log(_ context.Context) ([]types.RevisionEntry, error) {
	repo, err := a.open()
	if err != nil || repo == nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, types.StorageFailure("failed to read history head", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, types.StorageFailure("failed to read history log", err)
	}
	defer iter.Close()
	var entries []types.RevisionEntry
	err = iter.ForEach(func(c *object.Commit) error {
		entries = append(entries, types.RevisionEntry{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, types.StorageFailure("failed to walk history log", err)
	}
	return entries, nil
}

func (a GitRevisionLogAdapter) Resolve(ctx context.Context, revision string) (string, error) {
	prefix := strings.ToLower(strings.TrimSpace(revision))
	if len(prefix) < minRevisionLength || !isHex(prefix) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid revision %q", revision))
	}
	entries, err := a.Log(ctx)
	if err != nil {
		return "", err
	}
	match := ""
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Hash, prefix) {
			continue
		}
		if match != "" && match != entry.Hash {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("revision %q is ambiguous", revision))
		}
		match = entry.Hash
	}
	if match == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("revision %s not found", revision))
	}
	return match, nil
}

// ReadFileAt clones the repository into a temporary directory, checks out
// hash there and reads path. The clone is removed on every return path.
func (a GitRevisionLogAdapter) ReadFileAt(ctx context.Context, hash string, path string) ([]byte, error) {
	tmp, err := os.MkdirTemp(a.TempDir, "prospero-history-")
	if err != nil {
		return nil, types.StorageFailure("failed to create history working copy", err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", tmp).Msg("failed to remove history working copy")
		}
	}()
	clone, err := git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{URL: a.Dir, NoCheckout: true})
	if err != nil {
		return nil, types.StorageFailure("failed to clone history repository", err)
	}
	worktree, err := clone.Worktree()
	if err != nil {
		return nil, types.StorageFailure("failed to open history working copy", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(hash), Force: true}); err != nil {
		return nil, types.StorageFailure(fmt.Sprintf("failed to check out revision %s", hash), err)
	}
	data, err := os.ReadFile(filepath.Join(tmp, path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("%s not present at revision %s", path, hash)).
				WithCause(err)
		}
		return nil, types.StorageFailure(fmt.Sprintf("failed to read %s at revision %s", path, hash), err)
	}
	return data, nil
}

func (a GitRevisionLogAdapter) RestoreFile(_ context.Context, hash string, path string) error {
	repo, err := a.open()
	if err != nil {
		return err
	}
	if repo == nil {
		return types.StorageFailure("history repository does not exist", nil)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return types.StorageFailure(fmt.Sprintf("failed to load revision %s", hash), err)
	}
	file, err := commit.File(filepath.ToSlash(path))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("%s not present at revision %s", path, hash))
		}
		return types.StorageFailure(fmt.Sprintf("failed to read %s at revision %s", path, hash), err)
	}
	contents, err := file.Contents()
	if err != nil {
		return types.StorageFailure(fmt.Sprintf("failed to read %s at revision %s", path, hash), err)
	}
	if err := writeFileAtomic(filepath.Join(a.Dir, path), []byte(contents), 0644); err != nil {
		return types.StorageFailure(fmt.Sprintf("failed to restore %s", path), err)
	}
	return nil
}

func (a GitRevisionLogAdapter) authorName() string {
	if strings.TrimSpace(a.AuthorName) == "" {
		return defaultHistoryAuthor
	}
	return a.AuthorName
}

func (a GitRevisionLogAdapter) authorEmail() string {
	if strings.TrimSpace(a.AuthorEmail) == "" {
		return defaultHistoryEmail
	}
	return a.AuthorEmail
}

func isHex(value string) bool {
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
