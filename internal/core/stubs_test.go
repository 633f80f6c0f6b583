package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"prospero/internal/ports"
	"prospero/internal/types"
)

type stubVersionResolver struct {
	results map[string]types.ResolveResult
	delays  map[string]time.Duration
	delay   time.Duration
	calls   atomic.Int32
	panicOn string
}

func (s *stubVersionResolver) LatestVersion(_ context.Context, id types.ComponentIdentity) types.ResolveResult {
	s.calls.Add(1)
	if id.GA() == s.panicOn {
		panic("boom")
	}
	if d, ok := s.delays[id.GA()]; ok {
		time.Sleep(d)
	} else if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if result, ok := s.results[id.GA()]; ok {
		return result
	}
	return types.NotFound()
}

func (s *stubVersionResolver) AllVersions(_ context.Context, _ types.ComponentIdentity) ([]string, error) {
	return nil, nil
}

type stubManifestPort struct {
	resolved map[string]types.ResolvedChannelManifest
	errs     map[string]error
}

func (s stubManifestPort) ResolveChannelManifest(_ context.Context, channel types.Channel) (types.ResolvedChannelManifest, error) {
	if err, ok := s.errs[channel.Name]; ok {
		return types.ResolvedChannelManifest{}, err
	}
	resolved, ok := s.resolved[channel.Name]
	if !ok {
		return types.ResolvedChannelManifest{Channel: channel.Name, Kind: channel.Manifest.Kind()}, nil
	}
	return resolved, nil
}

// memoryRepository is an in-memory Maven repository.
type memoryRepository struct {
	mu         sync.Mutex
	versions   map[string][]string
	content    map[string][]byte
	deployed   []types.Artifact
	versionErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{versions: map[string][]string{}, content: map[string][]byte{}}
}

func (r *memoryRepository) put(artifact types.Artifact, content string) *memoryRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(artifact, []byte(content))
	return r
}

func (r *memoryRepository) store(artifact types.Artifact, content []byte) {
	ga := artifact.GA()
	present := false
	for _, version := range r.versions[ga] {
		if version == artifact.Version {
			present = true
		}
	}
	if !present {
		r.versions[ga] = append(r.versions[ga], artifact.Version)
	}
	r.content[artifact.String()] = content
}

func (r *memoryRepository) Versions(_ context.Context, id types.ComponentIdentity) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.versionErr != nil {
		return nil, r.versionErr
	}
	versions, ok := r.versions[id.GA()]
	if !ok {
		return nil, errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("component not found")
	}
	return append([]string(nil), versions...), nil
}

func (r *memoryRepository) Fetch(_ context.Context, artifact types.Artifact) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	content, ok := r.content[artifact.String()]
	if !ok {
		return nil, errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg(fmt.Sprintf("artifact %s not found", artifact))
	}
	return content, nil
}

func (r *memoryRepository) Deploy(_ context.Context, artifact types.Artifact, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(artifact, content)
	r.deployed = append(r.deployed, artifact)
	return nil
}

type memoryOpener map[string]*memoryRepository

func (o memoryOpener) Open(repo types.Repository) (ports.RepositoryPort, error) {
	found, ok := o[repo.URL]
	if !ok {
		return nil, errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("unknown repository " + repo.URL)
	}
	return found, nil
}

type memoryURLs map[string]string

func (u memoryURLs) FetchURL(_ context.Context, url string) ([]byte, error) {
	content, ok := u[url]
	if !ok {
		return nil, errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("manifest not found")
	}
	return []byte(content), nil
}

// memoryMetadata keeps installation metadata and markers per directory.
type memoryMetadata struct {
	mu        sync.Mutex
	manifests map[string]types.Manifest
	channels  map[string][]types.Channel
	versions  map[string]types.HistorySnapshot
	markers   map[string]types.MarkerFile
	markerLog []string
}

func newMemoryMetadata() *memoryMetadata {
	return &memoryMetadata{
		manifests: map[string]types.Manifest{},
		channels:  map[string][]types.Channel{},
		versions:  map[string]types.HistorySnapshot{},
		markers:   map[string]types.MarkerFile{},
	}
}

func (m *memoryMetadata) LoadManifest(dir string) (types.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	manifest, ok := m.manifests[dir]
	if !ok {
		return types.Manifest{}, errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("installation manifest not found")
	}
	return manifest, nil
}

func (m *memoryMetadata) WriteManifest(dir string, manifest types.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[dir] = manifest
	return nil
}

func (m *memoryMetadata) LoadChannels(dir string) ([]types.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[dir], nil
}

func (m *memoryMetadata) ReadChannelsFile(path string) ([]types.Channel, error) {
	return m.LoadChannels(path)
}

func (m *memoryMetadata) WriteChannels(dir string, channels []types.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[dir] = channels
	return nil
}

func (m *memoryMetadata) LoadManifestVersions(dir string) (types.HistorySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[dir], nil
}

func (m *memoryMetadata) WriteManifestVersions(dir string, snapshot types.HistorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[dir] = snapshot
	return nil
}

func (m *memoryMetadata) ReadMarker(dir string) (*types.MarkerFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	marker, ok := m.markers[dir]
	if !ok {
		return nil, nil
	}
	return &marker, nil
}

func (m *memoryMetadata) WriteMarker(dir string, marker types.MarkerFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[dir] = marker
	m.markerLog = append(m.markerLog, "write")
	return nil
}

func (m *memoryMetadata) ClearMarker(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, dir)
	m.markerLog = append(m.markerLog, "clear")
	return nil
}

func (m *memoryMetadata) hasMarker(dir string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.markers[dir]
	return ok
}

// memoryRevisionLog is an in-memory RevisionLogPort. Files are snapshotted
// from the metadata store at commit time.
type memoryRevisionLog struct {
	installDir string
	metadata   *memoryMetadata
	commits    []memoryCommit
	counter    int
	readErr    error
}

type memoryCommit struct {
	entry    types.RevisionEntry
	files    []string
	manifest types.Manifest
}

func (l *memoryRevisionLog) Initialized(_ context.Context) (bool, error) {
	return len(l.commits) > 0, nil
}

func (l *memoryRevisionLog) Commit(_ context.Context, commit types.RevisionCommit) (string, error) {
	l.counter++
	hash := fmt.Sprintf("%08x%032x", l.counter*0x1111, l.counter)
	manifest, _ := l.metadata.LoadManifest(l.installDir)
	l.commits = append(l.commits, memoryCommit{
		entry:    types.RevisionEntry{Hash: hash, Message: commit.Message, When: commit.When},
		files:    append([]string(nil), commit.Files...),
		manifest: manifest,
	})
	return hash, nil
}

func (l *memoryRevisionLog) Log(_ context.Context) ([]types.RevisionEntry, error) {
	out := make([]types.RevisionEntry, 0, len(l.commits))
	for i := len(l.commits) - 1; i >= 0; i-- {
		out = append(out, l.commits[i].entry)
	}
	return out, nil
}

func (l *memoryRevisionLog) Resolve(_ context.Context, revision string) (string, error) {
	for _, commit := range l.commits {
		if strings.HasPrefix(commit.entry.Hash, revision) {
			return commit.entry.Hash, nil
		}
	}
	return "", errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("revision " + revision + " not found")
}

func (l *memoryRevisionLog) commit(hash string) (memoryCommit, bool) {
	for _, commit := range l.commits {
		if commit.entry.Hash == hash {
			return commit, true
		}
	}
	return memoryCommit{}, false
}

func (l *memoryRevisionLog) ReadFileAt(_ context.Context, hash string, _ string) ([]byte, error) {
	if l.readErr != nil {
		return nil, l.readErr
	}
	commit, ok := l.commit(hash)
	if !ok {
		return nil, errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("revision not found")
	}
	return yaml.Marshal(commit.manifest)
}

func (l *memoryRevisionLog) RestoreFile(_ context.Context, hash string, _ string) error {
	commit, ok := l.commit(hash)
	if !ok {
		return errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("revision not found")
	}
	return l.metadata.WriteManifest(l.installDir, commit.manifest)
}

type fixedCreationTime struct {
	when time.Time
	err  error
}

func (f fixedCreationTime) CreatedAt(_ string) (time.Time, error) {
	return f.when, f.err
}

func ga(group string, artifact string) types.ComponentIdentity {
	return types.ComponentIdentity{GroupID: group, ArtifactID: artifact}
}

func artifactOf(group string, artifact string, version string) types.Artifact {
	return types.Artifact{ComponentIdentity: ga(group, artifact), Version: version}
}
