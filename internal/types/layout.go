package types

import "path/filepath"

const (
	MetadataDirName         = ".installation"
	ManifestFileName        = "manifest.yaml"
	ChannelsFileName        = "installer-channels.yaml"
	ManifestVersionFileName = "manifest_version.yaml"
	MarkerFileName          = "candidate.marker"
	HistoryDirName          = ".git"
)

// MetadataDir returns the metadata directory of an installation.
func MetadataDir(installDir string) string {
	return filepath.Join(installDir, MetadataDirName)
}
