package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"prospero/internal/ports"
	"prospero/internal/shared"
	"prospero/internal/types"
)

var _ ports.RepositoryPort = MavenHTTPRepositoryAdapter{}

type MavenHTTPRepositoryAdapter struct {
	Endpoint   string
	Username   string
	Password   string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Clock      func() time.Time
}

const defaultRepositoryRetries = 3
const defaultRepositoryRetryDelay = 200 * time.Millisecond
const defaultRepositoryTimeout = 60 * time.Second
const maxRepositoryRetryDelay = 2 * time.Second

func NewMavenHTTPRepositoryAdapter(endpoint string, username string, password string, timeoutSec int, retries int, retryDelayMs int) MavenHTTPRepositoryAdapter {
	return MavenHTTPRepositoryAdapter{
		Endpoint:   endpoint,
		Username:   username,
		Password:   password,
		Timeout:    normalizeRepositoryTimeout(timeoutSec),
		Retries:    normalizeRepositoryRetries(retries),
		RetryDelay: normalizeRepositoryRetryDelay(retryDelayMs),
		Clock:      time.Now,
	}
}

func (a MavenHTTPRepositoryAdapter) Versions(ctx context.Context, id types.ComponentIdentity) ([]string, error) {
	body, err := a.get(ctx, mavenMetadataRelPath(id), fmt.Sprintf("maven metadata for %s", id.GA()))
	if err != nil {
		return nil, err
	}
	metadata, err := parseMavenMetadata(body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid maven metadata for %s", id.GA())).
			WithCause(err)
	}
	return metadata.versions(), nil
}

func (a MavenHTTPRepositoryAdapter) Fetch(ctx context.Context, artifact types.Artifact) ([]byte, error) {
	return a.get(ctx, artifactRelPath(artifact), fmt.Sprintf("artifact %s", artifact))
}

// Deploy uploads the artifact and then the refreshed maven-metadata.xml.
func (a MavenHTTPRepositoryAdapter) Deploy(ctx context.Context, artifact types.Artifact, content []byte) error {
	if err := a.put(ctx, artifactRelPath(artifact), content); err != nil {
		return err
	}
	metadataPath := mavenMetadataRelPath(artifact.ComponentIdentity)
	metadata := mavenMetadata{}
	existing, err := a.get(ctx, metadataPath, fmt.Sprintf("maven metadata for %s", artifact.GA()))
	switch {
	case err == nil:
		parsed, err := parseMavenMetadata(existing)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid maven metadata for %s", artifact.GA())).
				WithCause(err)
		}
		metadata = parsed
	case errbuilder.CodeOf(err) != errbuilder.CodeNotFound:
		return err
	}
	encoded, err := encodeMavenMetadata(metadata.withVersion(artifact.ComponentIdentity, artifact.Version, a.now()))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode maven metadata").
			WithCause(err)
	}
	if err := a.put(ctx, metadataPath, encoded); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("artifact", artifact.String()).Str("repository", a.Endpoint).Msg("artifact deployed")
	return nil
}

func (a MavenHTTPRepositoryAdapter) get(ctx context.Context, rel string, what string) ([]byte, error) {
	var body []byte
	err := a.withRetries(ctx, func() (bool, error) {
		url, err := a.url(rel)
		if err != nil {
			return false, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create repository request").
				WithCause(err)
		}
		a.applyBasicAuth(req)
		resp, err := a.client().Do(req)
		if err != nil {
			return true, types.ResolutionFailure(fmt.Sprintf("repository %s unreachable", a.Endpoint), err)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, types.ResolutionFailure(fmt.Sprintf("failed to read %s", what), err)
		}
		if resp.StatusCode == http.StatusNotFound {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("%s not found in %s", what, a.Endpoint))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retryableStatus(resp.StatusCode), types.ResolutionFailure(
				fmt.Sprintf("failed to download %s", what),
				shared.HTTPStatusErrorWithBody(resp.StatusCode, url, strings.TrimSpace(string(payload))))
		}
		body = payload
		return false, nil
	})
	return body, err
}

func (a MavenHTTPRepositoryAdapter) put(ctx context.Context, rel string, content []byte) error {
	return a.withRetries(ctx, func() (bool, error) {
		url, err := a.url(rel)
		if err != nil {
			return false, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
		if err != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create repository request").
				WithCause(err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		a.applyBasicAuth(req)
		resp, err := a.client().Do(req)
		if err != nil {
			return true, types.StorageFailure("repository upload failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return false, nil
		}
		body, _ := io.ReadAll(resp.Body)
		return retryableStatus(resp.StatusCode), types.StorageFailure("repository upload failed",
			shared.HTTPStatusErrorWithBody(resp.StatusCode, url, strings.TrimSpace(string(body))))
	})
}

func (a MavenHTTPRepositoryAdapter) withRetries(ctx context.Context, attemptFn func() (bool, error)) error {
	retries := normalizeRepositoryRetries(a.Retries)
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retry, err := attemptFn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == retries-1 {
			return err
		}
		log.Ctx(ctx).Debug().Err(err).Int("attempt", attempt+1).Msg("retrying repository request")
		time.Sleep(a.retryDelay(attempt))
	}
	return lastErr
}

func (a MavenHTTPRepositoryAdapter) retryDelay(attempt int) time.Duration {
	base := a.RetryDelay
	if base <= 0 {
		base = defaultRepositoryRetryDelay
	}
	delay := base * time.Duration(1<<attempt)
	if delay > maxRepositoryRetryDelay {
		delay = maxRepositoryRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func (a MavenHTTPRepositoryAdapter) url(rel string) (string, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(a.Endpoint), "/")
	if endpoint == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository endpoint is empty")
	}
	return endpoint + "/" + strings.TrimLeft(rel, "/"), nil
}

func (a MavenHTTPRepositoryAdapter) client() *http.Client {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultRepositoryTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (a MavenHTTPRepositoryAdapter) applyBasicAuth(req *http.Request) {
	if strings.TrimSpace(a.Password) == "" {
		return
	}
	req.SetBasicAuth(strings.TrimSpace(a.Username), a.Password)
}

func (a MavenHTTPRepositoryAdapter) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

func retryableStatus(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

func normalizeRepositoryTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultRepositoryTimeout
	}
	return timeout
}

func normalizeRepositoryRetries(value int) int {
	if value <= 0 {
		return defaultRepositoryRetries
	}
	return value
}

func normalizeRepositoryRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultRepositoryRetryDelay
	}
	return delay
}
