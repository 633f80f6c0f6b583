package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/types"
)

var _ ports.TreeMergePort = TreeMergeAdapter{}

// TreeMergeAdapter overlays a candidate tree onto a live installation. Paths
// that only exist in the live tree are never visited. The first failing
// path stops the merge; files merged before it stay merged.
type TreeMergeAdapter struct {
	ReplaceFile func(src string, dst string, mode fs.FileMode) error
}

func NewTreeMergeAdapter() TreeMergeAdapter {
	return TreeMergeAdapter{ReplaceFile: replaceFile}
}

func (a TreeMergeAdapter) Merge(ctx context.Context, candidateDir string, liveDir string) error {
	replace := a.ReplaceFile
	if replace == nil {
		replace = replaceFile
	}
	merged := 0
	err := filepath.WalkDir(candidateDir, func(path string, d fs.DirEntry, walkErr error) error {
		rel, relErr := filepath.Rel(candidateDir, path)
		if relErr != nil {
			return types.ApplyFailure(fmt.Sprintf("failed to merge %s", path), relErr)
		}
		if walkErr != nil {
			return types.ApplyFailure(fmt.Sprintf("failed to read candidate path %s", rel), walkErr)
		}
		if err := ctx.Err(); err != nil {
			return types.ApplyFailure("merge interrupted", err)
		}
		if rel == "." {
			return nil
		}
		if protectedMetadataPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(liveDir, rel)
		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return types.ApplyFailure(fmt.Sprintf("failed to merge %s", rel), err)
			}
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return types.ApplyFailure(fmt.Sprintf("failed to merge %s", rel), err)
			}
		case d.Type()&fs.ModeSymlink != 0:
			if err := replaceSymlink(path, target); err != nil {
				return types.ApplyFailure(fmt.Sprintf("failed to merge %s", rel), err)
			}
			merged++
		default:
			info, err := d.Info()
			if err != nil {
				return types.ApplyFailure(fmt.Sprintf("failed to merge %s", rel), err)
			}
			if err := replace(path, target, info.Mode().Perm()); err != nil {
				return types.ApplyFailure(fmt.Sprintf("failed to merge %s", rel), err)
			}
			merged++
		}
		return nil
	})
	log.Ctx(ctx).Debug().
		Int("files", merged).
		Bool("complete", err == nil).
		Str("live", liveDir).
		Msg("candidate tree merged")
	return err
}

// protectedMetadataPath covers the history log and the marker, which belong
// to the live installation only.
func protectedMetadataPath(rel string) bool {
	history := filepath.Join(types.MetadataDirName, types.HistoryDirName)
	marker := filepath.Join(types.MetadataDirName, types.MarkerFileName)
	return rel == history || rel == marker || strings.HasPrefix(rel, history+string(filepath.Separator))
}

// replaceFile swaps dst for src's content in one rename. Existing files go
// through go-update so a failed swap restores the previous file.
func replaceFile(src string, dst string, mode fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Lstat(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return writeFileAtomic(dst, data, mode)
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s exists and is not a regular file", dst)
	}
	if err := goupdate.Apply(bytes.NewReader(data), goupdate.Options{TargetPath: dst, TargetMode: mode}); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			return fmt.Errorf("%w (restore failed: %v)", err, rollbackErr)
		}
		return err
	}
	oldPath := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old")
	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}
	return nil
}

func replaceSymlink(src string, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".link")
	_ = os.Remove(tmp)
	if err := os.Symlink(link, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
