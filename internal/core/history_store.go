package core

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/types"
)

// RevisionIDLength is the number of hash characters used as revision id.
const RevisionIDLength = 8

var _ ports.HistoryPort = (*HistoryStore)(nil)

// HistoryStore is the append-only history of one installation's manifest.
// It assumes a single writer per installation.
type HistoryStore struct {
	installDir string
	revisions  ports.RevisionLogPort
	metadata   ports.InstallationPort
	created    ports.CreationTimePort
	Clock      func() time.Time
}

func NewHistoryStore(installDir string, revisions ports.RevisionLogPort, metadata ports.InstallationPort, created ports.CreationTimePort) *HistoryStore {
	return &HistoryStore{
		installDir: installDir,
		revisions:  revisions,
		metadata:   metadata,
		created:    created,
		Clock:      time.Now,
	}
}

// Record appends a revision holding the current manifest. The first revision
// also holds the channel configuration and is dated at the installation's
// creation time.
func (h *HistoryStore) Record(ctx context.Context, stateType types.StateType, summary string, snapshot types.HistorySnapshot) (types.SavedState, error) {
	message, err := EncodeRevisionMessage(stateType, summary, snapshot)
	if err != nil {
		return types.SavedState{}, err
	}
	initialized, err := h.revisions.Initialized(ctx)
	if err != nil {
		return types.SavedState{}, err
	}
	files := []string{types.ManifestFileName}
	when := h.now()
	switch {
	case !initialized:
		files = append(files, types.ChannelsFileName)
		when = h.creationTime(ctx, when)
	case stateType == types.StateTypeConfigChange:
		files = append(files, types.ChannelsFileName)
	}
	hash, err := h.revisions.Commit(ctx, types.RevisionCommit{Message: message, Files: files, When: when})
	if err != nil {
		return types.SavedState{}, err
	}
	state := types.SavedState{
		RevisionID: shortRevision(hash),
		Timestamp:  when,
		Type:       stateType,
		Summary:    oneLine(summary),
		Versions:   snapshot.Versions(),
	}
	log.Ctx(ctx).Info().
		Str("revision", state.RevisionID).
		Str("type", string(stateType)).
		Msg("history revision recorded")
	return state, nil
}

func (h *HistoryStore) creationTime(ctx context.Context, fallback time.Time) time.Time {
	if h.created == nil {
		return fallback
	}
	created, err := h.created.CreatedAt(h.installDir)
	if err != nil || created.IsZero() {
		log.Ctx(ctx).Warn().Err(err).Msg("installation creation time unavailable, using current time")
		return fallback
	}
	return created
}

func (h *HistoryStore) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock()
}

// ListRevisions returns every revision, newest first.
func (h *HistoryStore) ListRevisions(ctx context.Context) ([]types.SavedState, error) {
	entries, err := h.revisions.Log(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]types.SavedState, 0, len(entries))
	for _, entry := range entries {
		state, err := savedStateFromEntry(entry)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func savedStateFromEntry(entry types.RevisionEntry) (types.SavedState, error) {
	stateType, summary, snapshot, err := DecodeRevisionMessage(entry.Message)
	if err != nil {
		return types.SavedState{}, types.StorageFailure(fmt.Sprintf("unreadable history revision %s", shortRevision(entry.Hash)), err)
	}
	return types.SavedState{
		RevisionID: shortRevision(entry.Hash),
		Timestamp:  entry.When,
		Type:       stateType,
		Summary:    summary,
		Versions:   snapshot.Versions(),
	}, nil
}

// Diff lists the component changes from revision to the current manifest.
// Failures are returned to the caller rather than reported as "no changes".
func (h *HistoryStore) Diff(ctx context.Context, revision string) ([]types.ArtifactChange, error) {
	old, err := h.ManifestAt(ctx, revision)
	if err != nil {
		return nil, err
	}
	current, err := h.metadata.LoadManifest(h.installDir)
	if err != nil {
		return nil, err
	}
	return DiffManifests(old, current), nil
}

// ManifestAt returns the manifest as it was recorded at revision.
func (h *HistoryStore) ManifestAt(ctx context.Context, revision string) (types.Manifest, error) {
	hash, err := h.revisions.Resolve(ctx, revision)
	if err != nil {
		return types.Manifest{}, err
	}
	content, err := h.revisions.ReadFileAt(ctx, hash, types.ManifestFileName)
	if err != nil {
		return types.Manifest{}, err
	}
	manifest, err := ParseManifest(content)
	if err != nil {
		return types.Manifest{}, types.StorageFailure(fmt.Sprintf("unreadable manifest at revision %s", revision), err)
	}
	return manifest, nil
}

// SnapshotAt returns the channel records stored with revision.
func (h *HistoryStore) SnapshotAt(ctx context.Context, revision string) (types.HistorySnapshot, error) {
	hash, err := h.revisions.Resolve(ctx, revision)
	if err != nil {
		return types.HistorySnapshot{}, err
	}
	return h.snapshot(ctx, hash)
}

func (h *HistoryStore) snapshot(ctx context.Context, hash string) (types.HistorySnapshot, error) {
	target, err := h.entry(ctx, hash)
	if err != nil {
		return types.HistorySnapshot{}, err
	}
	_, _, snapshot, err := DecodeRevisionMessage(target.Message)
	if err != nil {
		return types.HistorySnapshot{}, types.StorageFailure(fmt.Sprintf("unreadable history revision %s", shortRevision(hash)), err)
	}
	return snapshot, nil
}

// Revert restores the manifest of revision and records the restore as a new
// ROLLBACK revision. Earlier revisions are kept.
func (h *HistoryStore) Revert(ctx context.Context, revision string) (types.SavedState, error) {
	hash, err := h.revisions.Resolve(ctx, revision)
	if err != nil {
		return types.SavedState{}, err
	}
	snapshot, err := h.snapshot(ctx, hash)
	if err != nil {
		return types.SavedState{}, err
	}
	if err := h.revisions.RestoreFile(ctx, hash, types.ManifestFileName); err != nil {
		return types.SavedState{}, err
	}
	if err := h.metadata.WriteManifestVersions(h.installDir, snapshot); err != nil {
		return types.SavedState{}, err
	}
	return h.Record(ctx, types.StateTypeRollback, "revert to "+shortRevision(hash), snapshot)
}

func (h *HistoryStore) entry(ctx context.Context, hash string) (types.RevisionEntry, error) {
	entries, err := h.revisions.Log(ctx)
	if err != nil {
		return types.RevisionEntry{}, err
	}
	for _, entry := range entries {
		if entry.Hash == hash {
			return entry, nil
		}
	}
	return types.RevisionEntry{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("revision %s not found", shortRevision(hash)))
}

func shortRevision(hash string) string {
	if len(hash) <= RevisionIDLength {
		return hash
	}
	return hash[:RevisionIDLength]
}
