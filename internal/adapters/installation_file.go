package adapters

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"prospero/internal/ports"
	"prospero/internal/types"
)

var _ ports.InstallationPort = InstallationFileAdapter{}
var _ ports.MarkerPort = InstallationFileAdapter{}

// InstallationFileAdapter keeps the metadata of an installation as YAML
// files under <installation>/.installation.
type InstallationFileAdapter struct{}

func NewInstallationFileAdapter() InstallationFileAdapter {
	return InstallationFileAdapter{}
}

func (a InstallationFileAdapter) LoadManifest(installDir string) (types.Manifest, error) {
	var manifest types.Manifest
	if err := a.load(metadataPath(installDir, types.ManifestFileName), "installation manifest", &manifest); err != nil {
		return types.Manifest{}, err
	}
	return manifest, nil
}

func (a InstallationFileAdapter) WriteManifest(installDir string, manifest types.Manifest) error {
	if manifest.SchemaVersion == "" {
		manifest.SchemaVersion = types.ManifestSchemaVersion
	}
	return a.write(metadataPath(installDir, types.ManifestFileName), "installation manifest", manifest)
}

func (a InstallationFileAdapter) LoadChannels(installDir string) ([]types.Channel, error) {
	return a.ReadChannelsFile(metadataPath(installDir, types.ChannelsFileName))
}

func (a InstallationFileAdapter) ReadChannelsFile(path string) ([]types.Channel, error) {
	var file types.ChannelsFile
	if err := a.load(path, "channel configuration", &file); err != nil {
		return nil, err
	}
	for i, channel := range file.Channels {
		if channel.Name == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("channel #%d has no name", i+1))
		}
	}
	return file.Channels, nil
}

func (a InstallationFileAdapter) WriteChannels(installDir string, channels []types.Channel) error {
	file := types.ChannelsFile{SchemaVersion: types.ChannelsSchemaVersion, Channels: channels}
	return a.write(metadataPath(installDir, types.ChannelsFileName), "channel configuration", file)
}

// LoadManifestVersions returns an empty snapshot when the installation has
// never recorded manifest versions.
func (a InstallationFileAdapter) LoadManifestVersions(installDir string) (types.HistorySnapshot, error) {
	var snapshot types.HistorySnapshot
	err := a.load(metadataPath(installDir, types.ManifestVersionFileName), "manifest versions", &snapshot)
	if err != nil && errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
		return types.HistorySnapshot{}, nil
	}
	return snapshot, err
}

func (a InstallationFileAdapter) WriteManifestVersions(installDir string, snapshot types.HistorySnapshot) error {
	return a.write(metadataPath(installDir, types.ManifestVersionFileName), "manifest versions", snapshot)
}

// ReadMarker returns nil when no operation is in progress.
func (a InstallationFileAdapter) ReadMarker(installDir string) (*types.MarkerFile, error) {
	var marker types.MarkerFile
	err := a.load(metadataPath(installDir, types.MarkerFileName), "candidate marker", &marker)
	if err != nil {
		if errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &marker, nil
}

func (a InstallationFileAdapter) WriteMarker(installDir string, marker types.MarkerFile) error {
	return a.write(metadataPath(installDir, types.MarkerFileName), "candidate marker", marker)
}

func (a InstallationFileAdapter) ClearMarker(installDir string) error {
	path := metadataPath(installDir, types.MarkerFileName)
	err := os.Remove(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return types.StorageFailure("failed to clear candidate marker", err)
	}
	if err := syncDir(filepath.Dir(path)); err != nil {
		return types.StorageFailure("failed to clear candidate marker", err)
	}
	return nil
}

func (a InstallationFileAdapter) load(path string, what string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("%s not found at %s", what, path)).
				WithCause(err)
		}
		return types.StorageFailure(fmt.Sprintf("failed to read %s", what), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse %s yaml", what)).
			WithCause(err)
	}
	return nil
}

func (a InstallationFileAdapter) write(path string, what string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to encode %s", what)).
			WithCause(err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return types.StorageFailure(fmt.Sprintf("failed to write %s", what), err)
	}
	return nil
}

func metadataPath(installDir string, name string) string {
	return filepath.Join(types.MetadataDir(installDir), name)
}
