package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospero/internal/types"
)

func changeLines(changes []types.ArtifactChange) []string {
	out := make([]string, 0, len(changes))
	for _, change := range changes {
		out = append(out, fmt.Sprintf("%s %s->%s", change.Identity().GA(), change.OldVersion(), change.NewVersion()))
	}
	return out
}

func TestFindUpdatesPreservesInputOrder(t *testing.T) {
	installed := []types.Artifact{
		artifactOf("org.example", "a", "1.0.0"),
		artifactOf("org.example", "b", "1.0.0"),
		artifactOf("org.example", "c", "1.0.0"),
		artifactOf("org.example", "d", "1.0.0"),
	}
	resolver := &stubVersionResolver{
		results: map[string]types.ResolveResult{
			"org.example:a": types.Found("1.1.0", "base"),
			"org.example:b": types.Found("1.0.0", "base"),
			"org.example:d": types.Found("2.0.0", "extra"),
		},
		// Earlier inputs finish last.
		delays: map[string]time.Duration{
			"org.example:a": 60 * time.Millisecond,
			"org.example:b": 40 * time.Millisecond,
			"org.example:c": 20 * time.Millisecond,
		},
	}
	updates := NewUpdateResolver(resolver, stubManifestPort{})
	defer updates.Close()

	set, err := updates.FindUpdates(context.Background(), installed)
	require.NoError(t, err)

	want := []string{
		"org.example:a 1.0.0->1.1.0",
		"org.example:c 1.0.0->",
		"org.example:d 1.0.0->2.0.0",
	}
	if diff := cmp.Diff(want, changeLines(set.Artifacts)); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, set.Artifacts[1].IsRemoved())
	assert.Equal(t, "extra", set.Artifacts[2].Channel)
}

func TestFindUpdatesNeverInventsChanges(t *testing.T) {
	installed := make([]types.Artifact, 0, 25)
	results := map[string]types.ResolveResult{}
	for i := 0; i < 25; i++ {
		artifact := artifactOf("org.example", fmt.Sprintf("lib-%02d", i), "1.0.0")
		installed = append(installed, artifact)
		switch i % 3 {
		case 0:
			results[artifact.GA()] = types.Found("1.0.1", "base")
		case 1:
			results[artifact.GA()] = types.Found("1.0.0", "base")
		}
	}
	updates := NewUpdateResolverWithWorkers(&stubVersionResolver{results: results}, nil, 4)
	defer updates.Close()

	set, err := updates.FindUpdates(context.Background(), installed)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(set.Artifacts), len(installed))

	known := map[types.ComponentIdentity]bool{}
	for _, artifact := range installed {
		known[artifact.ComponentIdentity] = true
	}
	for _, change := range set.Artifacts {
		assert.True(t, known[change.Identity()], "unexpected identity %s", change.Identity())
		require.NotNil(t, change.Old)
		if change.New != nil {
			assert.Equal(t, change.Old.ComponentIdentity, change.New.ComponentIdentity)
		}
	}
}

func TestFindUpdatesReportsFirstFailureAfterAllTasksSettle(t *testing.T) {
	installed := []types.Artifact{
		artifactOf("org.example", "a", "1.0.0"),
		artifactOf("org.example", "b", "1.0.0"),
		artifactOf("org.example", "c", "1.0.0"),
		artifactOf("org.example", "d", "1.0.0"),
	}
	resolver := &stubVersionResolver{
		results: map[string]types.ResolveResult{
			"org.example:a": types.Found("1.1.0", "base"),
			"org.example:b": types.ResolveFailed(errors.New("connection reset")),
			"org.example:d": types.ResolveFailed(errors.New("timeout")),
		},
		// The later failure completes first.
		delays: map[string]time.Duration{
			"org.example:b": 50 * time.Millisecond,
		},
	}
	updates := NewUpdateResolver(resolver, nil)
	defer updates.Close()

	_, err := updates.FindUpdates(context.Background(), installed)
	require.Error(t, err)
	assert.Equal(t, types.KindResolutionFailure, types.KindOf(err))
	assert.Contains(t, err.Error(), "org.example:b")
	assert.NotContains(t, err.Error(), "org.example:d")
	assert.Equal(t, int32(len(installed)), resolver.calls.Load())
}

func TestFindUpdatesRecoversFromPanickingResolver(t *testing.T) {
	resolver := &stubVersionResolver{panicOn: "org.example:a"}
	updates := NewUpdateResolverWithWorkers(resolver, nil, 2)
	defer updates.Close()

	_, err := updates.FindUpdates(context.Background(), []types.Artifact{artifactOf("org.example", "a", "1.0.0")})
	require.Error(t, err)
	assert.Equal(t, types.KindResolutionFailure, types.KindOf(err))

	// The worker survives the panic.
	set, err := updates.FindUpdates(context.Background(), []types.Artifact{artifactOf("org.example", "b", "1.0.0")})
	require.NoError(t, err)
	assert.Len(t, set.Artifacts, 1)
}

func TestFindUpdatesRunsLookupsInParallel(t *testing.T) {
	const latency = 200 * time.Millisecond
	installed := make([]types.Artifact, 0, DefaultUpdateWorkers)
	results := map[string]types.ResolveResult{}
	for i := 0; i < DefaultUpdateWorkers; i++ {
		artifact := artifactOf("org.example", fmt.Sprintf("slow-%d", i), "1.0.0")
		installed = append(installed, artifact)
		results[artifact.GA()] = types.Found("1.0.1", "base")
	}
	updates := NewUpdateResolver(&stubVersionResolver{results: results, delay: latency}, nil)
	defer updates.Close()

	start := time.Now()
	set, err := updates.FindUpdates(context.Background(), installed)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Len(t, set.Artifacts, DefaultUpdateWorkers)
	assert.Less(t, elapsed, time.Duration(DefaultUpdateWorkers)*latency/2)
}

func TestFindUpdatesEmptyInput(t *testing.T) {
	updates := NewUpdateResolver(&stubVersionResolver{}, nil)
	defer updates.Close()

	set, err := updates.FindUpdates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, set.Artifacts)
}

func TestUpdateResolverClose(t *testing.T) {
	updates := NewUpdateResolverWithWorkers(&stubVersionResolver{}, nil, 0)
	assert.Equal(t, DefaultUpdateWorkers, updates.Workers())

	require.NoError(t, updates.Close())
	require.NoError(t, updates.Close())

	_, err := updates.FindUpdates(context.Background(), []types.Artifact{artifactOf("org.example", "a", "1.0.0")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestFindAllCombinesArtifactsAndChannels(t *testing.T) {
	resolver := &stubVersionResolver{
		results: map[string]types.ResolveResult{"org.example:a": types.Found("1.1.0", "base")},
	}
	channels := []types.Channel{mavenChannel("base", "org.example.channels", "base")}
	manifests := stubManifestPort{resolved: map[string]types.ResolvedChannelManifest{
		"base": {Channel: "base", Kind: types.ManifestKindMaven, PhysicalVersion: "1.0.1", Manifest: &types.Manifest{}},
	}}
	recorded := types.HistorySnapshot{Channels: []types.ChannelRecord{
		{Name: "base", Kind: types.ManifestKindMaven, GroupID: "org.example.channels", ArtifactID: "base", Version: "1.0.0"},
	}}
	updates := NewUpdateResolver(resolver, manifests)
	defer updates.Close()

	set, err := updates.FindAll(context.Background(), []types.Artifact{artifactOf("org.example", "a", "1.0.0")}, recorded, channels)
	require.NoError(t, err)
	assert.Len(t, set.Artifacts, 1)
	require.Len(t, set.Channels, 1)
	assert.Equal(t, types.ChannelUpdated, set.Channels[0].Status)
	assert.True(t, set.Authoritative)
	assert.True(t, set.Actionable())
}
