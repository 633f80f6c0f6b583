// Package shared provides common utility functions used across multiple
// packages in the prospero codebase.
package shared

import (
	"fmt"
	"strings"
)

// GroupPath converts a Maven groupId into its repository directory path,
// replacing dots with slashes.
func GroupPath(groupID string) string {
	return strings.ReplaceAll(strings.TrimSpace(groupID), ".", "/")
}

// ArtifactFileName returns "<artifactId>-<version>[-<classifier>].<extension>".
func ArtifactFileName(artifactID string, version string, classifier string, extension string) string {
	name := artifactID + "-" + version
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + extension
}

// ModuleFileName returns "<artifactId>[-<classifier>].<extension>".
func ModuleFileName(artifactID string, classifier string, extension string) string {
	name := artifactID
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + extension
}

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, body)
}
