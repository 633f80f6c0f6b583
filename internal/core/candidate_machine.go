package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/types"
)

// CandidateStateMachine drives one installation through
// idle -> prepared -> applying -> committed. A failed merge returns it to
// prepared and leaves the marker in place.
type CandidateStateMachine struct {
	installDir  string
	provisioner ports.ProvisionerPort
	merger      ports.TreeMergePort
	markers     ports.MarkerPort
	history     ports.HistoryPort
	metadata    ports.InstallationPort

	state   types.ApplyState
	lastErr error
}

func NewCandidateStateMachine(
	installDir string,
	provisioner ports.ProvisionerPort,
	merger ports.TreeMergePort,
	markers ports.MarkerPort,
	history ports.HistoryPort,
	metadata ports.InstallationPort,
) *CandidateStateMachine {
	return &CandidateStateMachine{
		installDir:  installDir,
		provisioner: provisioner,
		merger:      merger,
		markers:     markers,
		history:     history,
		metadata:    metadata,
		state:       types.ApplyStateIdle,
	}
}

func (m *CandidateStateMachine) State() types.ApplyState {
	return m.state
}

// LastError returns the error of the last failed apply, if any.
func (m *CandidateStateMachine) LastError() error {
	return m.lastErr
}

// MarkerState returns the marker of an interrupted or pending operation, or
// nil when no operation is in progress.
func (m *CandidateStateMachine) MarkerState(_ context.Context) (*types.MarkerFile, error) {
	return m.markers.ReadMarker(m.installDir)
}

// Prepare materializes a candidate tree for op into candidateDir and marks
// the installation as prepared.
func (m *CandidateStateMachine) Prepare(ctx context.Context, op types.CandidateOperation, candidateDir string, desired types.DesiredArtifactSet) (string, error) {
	if !op.Valid() {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported candidate operation %q", op))
	}
	if strings.TrimSpace(candidateDir) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("candidate directory is required")
	}
	if sameDir(candidateDir, m.installDir) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("candidate directory must differ from the installation")
	}
	existing, err := m.markers.ReadMarker(m.installDir)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.Operation != op {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("an interrupted %s operation must be resolved before %s", existing.Operation, op))
	}

	if err := m.provisioner.Materialize(ctx, candidateDir, desired); err != nil {
		return "", err
	}
	if err := m.markers.WriteMarker(m.installDir, types.MarkerFile{State: types.MarkerStatePrepared, Operation: op}); err != nil {
		return "", err
	}
	m.state = types.ApplyStatePrepared
	m.lastErr = nil
	log.Ctx(ctx).Info().
		Str("operation", string(op)).
		Str("candidate", candidateDir).
		Msg("candidate prepared")
	return candidateDir, nil
}

// Apply merges a prepared candidate into the live installation, records the
// new state in history and then clears the marker.
func (m *CandidateStateMachine) Apply(ctx context.Context, candidateDir string) error {
	assert.NotEmpty(ctx, m.installDir, "installation directory must be set")
	marker, err := m.markers.ReadMarker(m.installDir)
	if err != nil {
		return err
	}
	if marker == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no prepared candidate for this installation")
	}
	candidateManifest, err := m.metadata.LoadManifest(candidateDir)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("candidate %s has no installation manifest", candidateDir)).
			WithCause(err)
	}
	liveManifest, err := m.metadata.LoadManifest(m.installDir)
	if err != nil && !isNotFound(err) {
		return err
	}
	summary := changeSummary(DiffManifests(liveManifest, candidateManifest))

	m.state = types.ApplyStateApplying
	log.Ctx(ctx).Info().
		Str("operation", string(marker.Operation)).
		Str("candidate", candidateDir).
		Msg("applying candidate")
	if err := m.merger.Merge(ctx, candidateDir, m.installDir); err != nil {
		return m.fail(ctx, marker, asApplyFailure(err))
	}

	snapshot, err := m.metadata.LoadManifestVersions(m.installDir)
	if err != nil {
		return m.fail(ctx, marker, err)
	}
	if _, err := m.history.Record(ctx, marker.Operation.StateType(), summary, snapshot); err != nil {
		return m.fail(ctx, marker, err)
	}
	if err := m.markers.ClearMarker(m.installDir); err != nil {
		return m.fail(ctx, marker, err)
	}
	m.state = types.ApplyStateCommitted
	log.Ctx(ctx).Info().Str("operation", string(marker.Operation)).Msg("candidate applied")
	return nil
}

func (m *CandidateStateMachine) fail(ctx context.Context, marker *types.MarkerFile, err error) error {
	m.state = types.ApplyStatePrepared
	m.lastErr = err
	log.Ctx(ctx).Warn().
		Err(err).
		Str("operation", string(marker.Operation)).
		Msg("apply failed, marker retained")
	return err
}

func asApplyFailure(err error) error {
	if types.KindOf(err) == types.KindApplyFailure {
		return err
	}
	return types.ApplyFailure("failed to merge candidate", err)
}

func changeSummary(changes []types.ArtifactChange) string {
	if len(changes) == 0 {
		return "no component changes"
	}
	var added, removed, updated int
	for _, change := range changes {
		switch {
		case change.IsAdded():
			added++
		case change.IsRemoved():
			removed++
		default:
			updated++
		}
	}
	return fmt.Sprintf("%d updated, %d added, %d removed", updated, added, removed)
}

func sameDir(a string, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
