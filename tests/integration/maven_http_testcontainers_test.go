//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"prospero/internal/adapters"
	"prospero/internal/app"
	"prospero/internal/types"
	"prospero/tests/testutil"
)

const (
	repoUser = "deployer"
	repoPass = "secret"
)

var (
	coreID     = types.ComponentIdentity{GroupID: "org.example", ArtifactID: "core"}
	baseCoords = types.MavenCoordinate{GroupID: "org.example.channels", ArtifactID: "base"}
)

type repoRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	User   string `json:"user"`
}

func TestMavenHTTPRepositoryWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startMavenRepository(ctx, t)
	t.Cleanup(cleanup)

	repo := adapters.NewMavenHTTPRepositoryAdapter(endpoint, repoUser, repoPass, 10, 2, 100)
	for _, version := range []string{"1.0.0", "1.0.1", "1.1.0"} {
		artifact := types.Artifact{ComponentIdentity: coreID, Version: version}
		require.NoError(t, repo.Deploy(ctx, artifact, []byte("core-"+version)))
	}

	versions, err := repo.Versions(ctx, coreID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.0.1", "1.1.0"}, versions)

	content, err := repo.Fetch(ctx, types.Artifact{ComponentIdentity: coreID, Version: "1.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "core-1.0.1", string(content))

	_, err = repo.Fetch(ctx, types.Artifact{ComponentIdentity: coreID, Version: "9.9.9"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	anonymous := adapters.NewMavenHTTPRepositoryAdapter(endpoint, "", "", 10, 1, 100)
	err = anonymous.Deploy(ctx, types.Artifact{ComponentIdentity: coreID, Version: "2.0.0"}, []byte("core-2.0.0"))
	require.Error(t, err)
	assert.Equal(t, types.KindStorageFailure, types.KindOf(err))

	requests := fetchRepoRequests(t, endpoint)
	puts := 0
	for _, req := range requests {
		if req.Method == http.MethodPut {
			puts++
		}
	}
	// One artifact and one metadata upload per deploy, plus the rejected upload.
	assert.Equal(t, 7, puts)
}

func TestInstallAndUpdateFromHTTPRepositoryWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startMavenRepository(ctx, t)
	t.Cleanup(cleanup)

	repo := adapters.NewMavenHTTPRepositoryAdapter(endpoint, repoUser, repoPass, 10, 2, 100)
	require.NoError(t, repo.Deploy(ctx, types.Artifact{ComponentIdentity: coreID, Version: "1.0.0"}, []byte("core-1.0.0")))
	testutil.DeployManifest(t, repo, baseCoords, "1.0.0", "Base 1.0", map[types.ComponentIdentity]string{coreID: "1.0.0"})

	root := t.TempDir()
	installDir := filepath.Join(root, "server")
	channelsFile := filepath.Join(root, "channels.yaml")
	testutil.WriteChannels(t, channelsFile, "base", endpoint, baseCoords)

	service := newAuthenticatedService(t)
	installed, err := service.Install(ctx, app.InstallRequest{InstallDir: installDir, ChannelsFile: channelsFile})
	require.NoError(t, err)
	assert.Equal(t, 1, installed.Artifacts)

	require.NoError(t, repo.Deploy(ctx, types.Artifact{ComponentIdentity: coreID, Version: "1.1.0"}, []byte("core-1.1.0")))
	testutil.DeployManifest(t, repo, baseCoords, "1.0.1", "Base 1.0 Update 1", map[types.ComponentIdentity]string{coreID: "1.1.0"})

	listed, err := service.ListUpdates(ctx, app.ListUpdatesRequest{InstallDir: installDir})
	require.NoError(t, err)
	require.Len(t, listed.Updates.Artifacts, 1)
	assert.Equal(t, "1.1.0", listed.Updates.Artifacts[0].NewVersion())

	updated, err := service.Update(ctx, app.UpdateRequest{InstallDir: installDir})
	require.NoError(t, err)
	assert.True(t, updated.Applied)
	content, err := os.ReadFile(app.ArtifactPath(installDir, types.Artifact{ComponentIdentity: coreID}))
	require.NoError(t, err)
	assert.Equal(t, "core-1.1.0", string(content))

	manifest, err := service.Metadata.LoadManifest(installDir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"org.example:core": "1.1.0"}, manifest.VersionsByGA())
}

func newAuthenticatedService(t *testing.T) app.Service {
	t.Helper()
	service := app.NewService()
	opener := adapters.RepositoryOpenerAdapter{Username: repoUser, Password: repoPass, TimeoutSec: 10, Retries: 2, RetryDelayMs: 100}
	service.Opener = opener
	service.Provisioner = app.NewLayoutProvisioner(opener, service.URLs, service.Metadata)
	service.TempDir = t.TempDir()
	return service
}

func startMavenRepository(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"python", "-c", mavenRepositoryScript},
		WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(context.Background())
	}
	return endpoint, cleanup
}

func fetchRepoRequests(t *testing.T, endpoint string) []repoRequest {
	t.Helper()
	resp, err := http.Get(endpoint + "/_requests")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var requests []repoRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&requests))
	return requests
}

// mavenRepositoryScript serves a writable Maven layout. Uploads require
// basic auth, downloads are anonymous.
const mavenRepositoryScript = `
import base64
import json
from http.server import BaseHTTPRequestHandler, ThreadingHTTPServer

files = {}
requests = []

def basic_user(header_value):
    if not header_value or not header_value.startswith("Basic "):
        return "", ""
    try:
        decoded = base64.b64decode(header_value.split(" ", 1)[1]).decode("utf-8")
        user, _, password = decoded.partition(":")
        return user, password
    except Exception:
        return "", ""

class Handler(BaseHTTPRequestHandler):
    def do_PUT(self):
        length = int(self.headers.get("Content-Length", "0"))
        body = self.rfile.read(length) if length > 0 else b""
        user, password = basic_user(self.headers.get("Authorization", ""))
        requests.append({"method": "PUT", "path": self.path, "user": user})
        if user != "` + repoUser + `" or password != "` + repoPass + `":
            self.send_response(401)
            self.end_headers()
            return
        files[self.path] = body
        self.send_response(201)
        self.end_headers()

    def do_GET(self):
        if self.path == "/_requests":
            payload = json.dumps(requests).encode("utf-8")
            self.send_response(200)
            self.send_header("Content-Type", "application/json")
            self.send_header("Content-Length", str(len(payload)))
            self.end_headers()
            self.wfile.write(payload)
            return
        requests.append({"method": "GET", "path": self.path, "user": ""})
        body = files.get(self.path)
        if body is None:
            self.send_response(404)
            self.send_header("Content-Length", "0")
            self.end_headers()
            return
        self.send_response(200)
        self.send_header("Content-Length", str(len(body)))
        self.end_headers()
        self.wfile.write(body)

    def log_message(self, format, *args):
        return

def main():
    server = ThreadingHTTPServer(("0.0.0.0", 8080), Handler)
    server.serve_forever()

if __name__ == "__main__":
    main()
`
