package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospero/internal/types"
)

// fakeMavenServer stores PUT bodies and serves them back on GET.
type fakeMavenServer struct {
	mu       sync.Mutex
	files    map[string][]byte
	username string
	password string
	failures atomic.Int32
}

func (s *fakeMavenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.password != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.username || pass != s.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}
	if s.failures.Load() > 0 {
		s.failures.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.files[r.URL.Path] = body
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		body, ok := s.files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeMavenServer(t *testing.T) (*fakeMavenServer, *httptest.Server) {
	t.Helper()
	fake := &fakeMavenServer{files: map[string][]byte{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, server
}

func TestMavenHTTPRepositoryDeployFetchVersions(t *testing.T) {
	ctx := context.Background()
	fake, server := newFakeMavenServer(t)
	fake.username = "deployer"
	fake.password = "secret"
	repo := NewMavenHTTPRepositoryAdapter(server.URL+"/maven2/", "deployer", "secret", 5, 2, 1)

	require.NoError(t, repo.Deploy(ctx, testArtifact("1.0.0"), []byte("one")))
	require.NoError(t, repo.Deploy(ctx, testArtifact("1.2.0"), []byte("two")))

	assert.Contains(t, fake.files, "/maven2/org/example/libs/core/1.0.0/core-1.0.0.jar")
	assert.Contains(t, string(fake.files["/maven2/org/example/libs/core/maven-metadata.xml"]), "<latest>1.2.0</latest>")

	content, err := repo.Fetch(ctx, testArtifact("1.2.0"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))

	versions, err := repo.Versions(ctx, testArtifact("").ComponentIdentity)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.2.0"}, versions)
}

func TestMavenHTTPRepositoryNotFound(t *testing.T) {
	_, server := newFakeMavenServer(t)
	repo := NewMavenHTTPRepositoryAdapter(server.URL, "", "", 5, 1, 1)

	_, err := repo.Fetch(context.Background(), testArtifact("1.0.0"))
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	_, err = repo.Versions(context.Background(), testArtifact("").ComponentIdentity)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestMavenHTTPRepositoryRetriesServerErrors(t *testing.T) {
	fake, server := newFakeMavenServer(t)
	fake.files["/org/example/libs/core/1.0.0/core-1.0.0.jar"] = []byte("jar")
	fake.failures.Store(2)
	repo := NewMavenHTTPRepositoryAdapter(server.URL, "", "", 5, 3, 1)

	content, err := repo.Fetch(context.Background(), testArtifact("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "jar", string(content))
}

func TestMavenHTTPRepositoryReportsExhaustedRetries(t *testing.T) {
	fake, server := newFakeMavenServer(t)
	fake.failures.Store(10)
	repo := NewMavenHTTPRepositoryAdapter(server.URL, "", "", 5, 2, 1)

	_, err := repo.Fetch(context.Background(), testArtifact("1.0.0"))
	require.Error(t, err)
	assert.Equal(t, types.KindResolutionFailure, types.KindOf(err))
	assert.Equal(t, int32(8), fake.failures.Load())

	err = repo.Deploy(context.Background(), testArtifact("1.0.0"), []byte("jar"))
	require.Error(t, err)
	assert.Equal(t, types.KindStorageFailure, types.KindOf(err))
}

func TestMavenHTTPRepositoryRejectsBadCredentials(t *testing.T) {
	fake, server := newFakeMavenServer(t)
	fake.username = "deployer"
	fake.password = "secret"
	repo := NewMavenHTTPRepositoryAdapter(server.URL, "deployer", "wrong", 5, 3, 1)

	_, err := repo.Fetch(context.Background(), testArtifact("1.0.0"))
	require.Error(t, err)
	assert.Equal(t, types.KindResolutionFailure, types.KindOf(err))
	assert.Contains(t, err.Error(), "failed to download")
}
