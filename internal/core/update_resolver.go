package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/types"
)

// DefaultUpdateWorkers is the size of the resolution pool.
const DefaultUpdateWorkers = 10

type resolveTask struct {
	ctx      context.Context
	index    int
	artifact types.Artifact
	results  []types.ResolveResult
	done     *sync.WaitGroup
}

// UpdateResolver discovers pending updates for installed artifacts. It owns
// a fixed pool of workers from construction until Close.
type UpdateResolver struct {
	resolver  ports.VersionResolverPort
	manifests ports.ChannelManifestPort
	workers   int

	tasks  chan resolveTask
	pool   sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewUpdateResolver(resolver ports.VersionResolverPort, manifests ports.ChannelManifestPort) *UpdateResolver {
	return NewUpdateResolverWithWorkers(resolver, manifests, DefaultUpdateWorkers)
}

func NewUpdateResolverWithWorkers(resolver ports.VersionResolverPort, manifests ports.ChannelManifestPort, workers int) *UpdateResolver {
	if workers <= 0 {
		workers = DefaultUpdateWorkers
	}
	r := &UpdateResolver{
		resolver:  resolver,
		manifests: manifests,
		workers:   workers,
		tasks:     make(chan resolveTask),
	}
	for i := 0; i < workers; i++ {
		r.pool.Add(1)
		go r.work()
	}
	return r
}

func (r *UpdateResolver) work() {
	defer r.pool.Done()
	for task := range r.tasks {
		task.results[task.index] = r.resolveOne(task.ctx, task.artifact)
		task.done.Done()
	}
}

func (r *UpdateResolver) resolveOne(ctx context.Context, artifact types.Artifact) (result types.ResolveResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = types.ResolveFailed(fmt.Errorf("resolver panic: %v", recovered))
		}
	}()
	return r.resolver.LatestVersion(ctx, artifact.ComponentIdentity)
}

// Workers returns the pool size.
func (r *UpdateResolver) Workers() int {
	return r.workers
}

// Close stops the pool after in-flight lookups finish. It is safe to call
// more than once.
func (r *UpdateResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.tasks)
	r.pool.Wait()
	return nil
}

// FindUpdates resolves every installed artifact in parallel and returns the
// changes in input order. A resolver error other than not-found fails the
// whole discovery once every task has settled; the earliest failing input
// is reported.
func (r *UpdateResolver) FindUpdates(ctx context.Context, installed []types.Artifact) (types.UpdateSet, error) {
	results, err := r.resolveAll(ctx, installed)
	if err != nil {
		return types.UpdateSet{}, err
	}

	var firstErr error
	changes := make([]types.ArtifactChange, 0, len(installed))
	for i, artifact := range installed {
		result := results[i]
		switch result.Status {
		case types.ResolveFound:
			if result.Version == artifact.Version {
				continue
			}
			updated := types.Artifact{ComponentIdentity: artifact.ComponentIdentity, Version: result.Version}
			change, err := types.NewUpdatedChange(artifact, updated, result.Channel)
			if err != nil {
				return types.UpdateSet{}, err
			}
			changes = append(changes, change)
		case types.ResolveNotFound:
			changes = append(changes, types.NewRemovedChange(artifact))
		default:
			if firstErr == nil {
				firstErr = types.ResolutionFailure(fmt.Sprintf("failed to resolve %s", artifact.GA()), result.Err)
			}
		}
	}
	if firstErr != nil {
		return types.UpdateSet{}, firstErr
	}
	log.Ctx(ctx).Debug().
		Int("artifacts", len(installed)).
		Int("changes", len(changes)).
		Msg("artifact updates resolved")
	return types.UpdateSet{Artifacts: changes}, nil
}

func (r *UpdateResolver) resolveAll(ctx context.Context, installed []types.Artifact) ([]types.ResolveResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("update resolver is closed")
	}
	results := make([]types.ResolveResult, len(installed))
	var done sync.WaitGroup
	done.Add(len(installed))
	for i, artifact := range installed {
		r.tasks <- resolveTask{ctx: ctx, index: i, artifact: artifact, results: results, done: &done}
	}
	done.Wait()
	return results, nil
}

// FindAll combines artifact updates with channel manifest drift.
func (r *UpdateResolver) FindAll(ctx context.Context, installed []types.Artifact, recorded types.HistorySnapshot, channels []types.Channel) (types.UpdateSet, error) {
	updates, err := r.FindUpdates(ctx, installed)
	if err != nil {
		return types.UpdateSet{}, err
	}
	channelChanges, authoritative, err := r.FindChannelChanges(ctx, recorded, channels)
	if err != nil {
		return types.UpdateSet{}, err
	}
	updates.Channels = channelChanges
	updates.Authoritative = authoritative
	return updates, nil
}
