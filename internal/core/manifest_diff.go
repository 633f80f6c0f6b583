package core

import (
	"sort"
	"strings"

	"prospero/internal/types"
)

// DiffManifests lists what changed from old to current, keyed by
// groupId:artifactId and sorted by that key.
func DiffManifests(old types.Manifest, current types.Manifest) []types.ArtifactChange {
	oldVersions := old.VersionsByGA()
	currentVersions := current.VersionsByGA()

	keys := make([]string, 0, len(oldVersions)+len(currentVersions))
	for ga := range currentVersions {
		keys = append(keys, ga)
	}
	for ga := range oldVersions {
		if _, ok := currentVersions[ga]; !ok {
			keys = append(keys, ga)
		}
	}
	sort.Strings(keys)

	var changes []types.ArtifactChange
	for _, ga := range keys {
		oldVersion, inOld := oldVersions[ga]
		newVersion, inNew := currentVersions[ga]
		id := identityFromGA(ga)
		switch {
		case inNew && !inOld:
			changes = append(changes, types.NewAddedChange(types.Artifact{ComponentIdentity: id, Version: newVersion}, ""))
		case inOld && !inNew:
			changes = append(changes, types.NewRemovedChange(types.Artifact{ComponentIdentity: id, Version: oldVersion}))
		case oldVersion != newVersion:
			old := types.Artifact{ComponentIdentity: id, Version: oldVersion}
			updated := types.Artifact{ComponentIdentity: id, Version: newVersion}
			changes = append(changes, types.ArtifactChange{Old: &old, New: &updated})
		}
	}
	return changes
}

func identityFromGA(ga string) types.ComponentIdentity {
	group, artifact, _ := strings.Cut(ga, ":")
	return types.ComponentIdentity{GroupID: group, ArtifactID: artifact}
}
