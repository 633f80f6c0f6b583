package app

import (
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"prospero/internal/adapters"
	"prospero/internal/core"
	"prospero/internal/ports"
	"prospero/internal/types"
)

type Service struct {
	Metadata    ports.InstallationPort
	Markers     ports.MarkerPort
	Opener      ports.RepositoryOpenerPort
	URLs        ports.URLFetchPort
	Merger      ports.TreeMergePort
	Created     ports.CreationTimePort
	Provisioner ports.ProvisionerPort
	// Revisions opens the revision log kept in a metadata directory.
	Revisions func(metadataDir string) ports.RevisionLogPort
	Stability types.StabilityLevel
	Workers   int
	TempDir   string
	Clock     func() time.Time
}

func NewService() Service {
	metadata := adapters.NewInstallationFileAdapter()
	opener := adapters.NewRepositoryOpenerAdapter()
	urls := adapters.NewURLFetchAdapter()
	return Service{
		Metadata:    metadata,
		Markers:     metadata,
		Opener:      opener,
		URLs:        urls,
		Merger:      adapters.NewTreeMergeAdapter(),
		Created:     adapters.NewCreationTimeAdapter(),
		Provisioner: NewLayoutProvisioner(opener, urls, metadata),
		Revisions: func(metadataDir string) ports.RevisionLogPort {
			return adapters.NewGitRevisionLogAdapter(metadataDir)
		},
		Stability: types.StabilityDefault,
		Workers:   core.DefaultUpdateWorkers,
		Clock:     time.Now,
	}
}

func (s Service) history(installDir string) *core.HistoryStore {
	store := core.NewHistoryStore(installDir, s.Revisions(types.MetadataDir(installDir)), s.Metadata, s.Created)
	if s.Clock != nil {
		store.Clock = s.Clock
	}
	return store
}

func (s Service) machine(installDir string) *core.CandidateStateMachine {
	return core.NewCandidateStateMachine(installDir, s.Provisioner, s.Merger, s.Markers, s.history(installDir), s.Metadata)
}

func (s Service) updateResolver(channels []types.Channel) *core.UpdateResolver {
	loader := core.NewChannelManifestLoader(s.Opener, s.URLs)
	resolver := core.NewChannelResolver(channels, s.Opener, loader)
	return core.NewUpdateResolverWithWorkers(resolver, loader, s.Workers)
}

func requireInstallDir(dir string) (string, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("installation directory is required")
	}
	info, err := os.Stat(types.MetadataDir(trimmed))
	if err != nil || !info.IsDir() {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no installation found at " + trimmed).
			WithCause(err)
	}
	return trimmed, nil
}

// candidateDir returns dir, or a fresh temporary directory when dir is empty.
// The boolean reports whether the directory was created here.
func (s Service) candidateDir(dir string) (string, bool, error) {
	if trimmed := strings.TrimSpace(dir); trimmed != "" {
		return trimmed, false, nil
	}
	tmp, err := os.MkdirTemp(s.TempDir, "prospero-candidate-")
	if err != nil {
		return "", false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create candidate directory").
			WithCause(err)
	}
	return tmp, true, nil
}
