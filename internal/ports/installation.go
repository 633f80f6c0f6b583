package ports

import "prospero/internal/types"

// InstallationPort reads and writes the metadata files of one installation.
type InstallationPort interface {
	LoadManifest(installDir string) (types.Manifest, error)
	WriteManifest(installDir string, manifest types.Manifest) error
	LoadChannels(installDir string) ([]types.Channel, error)
	// ReadChannelsFile loads a channel configuration outside any installation.
	ReadChannelsFile(path string) ([]types.Channel, error)
	WriteChannels(installDir string, channels []types.Channel) error
	LoadManifestVersions(installDir string) (types.HistorySnapshot, error)
	WriteManifestVersions(installDir string, snapshot types.HistorySnapshot) error
}

// MarkerPort persists the in-progress apply marker.
type MarkerPort interface {
	ReadMarker(installDir string) (*types.MarkerFile, error)
	WriteMarker(installDir string, marker types.MarkerFile) error
	ClearMarker(installDir string) error
}
