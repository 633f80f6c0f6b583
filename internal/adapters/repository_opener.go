package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"prospero/internal/ports"
	"prospero/internal/shared"
	"prospero/internal/types"
)

var _ ports.RepositoryOpenerPort = RepositoryOpenerAdapter{}
var _ ports.URLFetchPort = URLFetchAdapter{}

// RepositoryOpenerAdapter picks a repository implementation by URL scheme:
// http and https are remote, file URLs and plain paths are local.
type RepositoryOpenerAdapter struct {
	Username     string
	Password     string
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

func NewRepositoryOpenerAdapter() RepositoryOpenerAdapter {
	return RepositoryOpenerAdapter{}
}

func (a RepositoryOpenerAdapter) Open(repo types.Repository) (ports.RepositoryPort, error) {
	location := strings.TrimSpace(repo.URL)
	if location == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("repository %s has no url", repo.ID))
	}
	path, remote, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	if remote {
		return NewMavenHTTPRepositoryAdapter(location, a.Username, a.Password, a.TimeoutSec, a.Retries, a.RetryDelayMs), nil
	}
	return NewMavenFileRepositoryAdapter(path), nil
}

// URLFetchAdapter reads manifests from http(s) URLs, file URLs and paths.
type URLFetchAdapter struct {
	Timeout time.Duration
}

func NewURLFetchAdapter() URLFetchAdapter {
	return URLFetchAdapter{Timeout: defaultRepositoryTimeout}
}

func (a URLFetchAdapter) FetchURL(ctx context.Context, location string) ([]byte, error) {
	path, remote, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	if !remote {
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeNotFound).
					WithMsg(fmt.Sprintf("manifest %s not found", location))
			}
			return nil, types.StorageFailure(fmt.Sprintf("failed to read manifest %s", location), err)
		}
		return content, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create manifest request").
			WithCause(err)
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultRepositoryTimeout
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return nil, types.ResolutionFailure(fmt.Sprintf("failed to download manifest %s", location), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.ResolutionFailure(fmt.Sprintf("failed to download manifest %s", location), err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("manifest %s not found", location))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.ResolutionFailure(fmt.Sprintf("failed to download manifest %s", location),
			shared.HTTPStatusError(resp.StatusCode, location))
	}
	return body, nil
}

// splitLocation returns the local path of a file location, or reports that
// the location is remote.
func splitLocation(location string) (string, bool, error) {
	trimmed := strings.TrimSpace(location)
	if !strings.Contains(trimmed, "://") {
		return trimmed, false, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid location %q", location)).
			WithCause(err)
	}
	switch parsed.Scheme {
	case "http", "https":
		return "", true, nil
	case "file":
		return parsed.Path, false, nil
	default:
		return "", false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported location scheme %q", parsed.Scheme))
	}
}
