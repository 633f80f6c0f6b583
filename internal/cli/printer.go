package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"prospero/internal/types"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	updatedColor = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
)

func printArtifactChanges(out io.Writer, changes []types.ArtifactChange) {
	for _, change := range changes {
		ga := change.Identity().GA()
		switch {
		case change.IsAdded():
			_, _ = addedColor.Fprintf(out, "  + %s %s\n", ga, change.NewVersion())
		case change.IsRemoved():
			_, _ = removedColor.Fprintf(out, "  - %s %s\n", ga, change.OldVersion())
		default:
			line := fmt.Sprintf("  ~ %s %s -> %s", ga, change.OldVersion(), change.NewVersion())
			if change.Channel != "" {
				line += " [" + change.Channel + "]"
			}
			_, _ = updatedColor.Fprintln(out, line)
		}
	}
}

func printChannelChanges(out io.Writer, changes []types.ChannelVersionChange) {
	for _, change := range changes {
		switch change.Status {
		case types.ChannelAdded:
			_, _ = addedColor.Fprintf(out, "  + channel %s %s\n", change.Name, channelVersion(change.New))
		case types.ChannelRemoved:
			_, _ = removedColor.Fprintf(out, "  - channel %s %s\n", change.Name, channelVersion(change.Old))
		case types.ChannelUnresolvable:
			_, _ = warnColor.Fprintf(out, "  ? channel %s cannot be checked for newer manifests\n", change.Name)
		default:
			_, _ = updatedColor.Fprintf(out, "  ~ channel %s %s -> %s\n", change.Name, channelVersion(change.Old), channelVersion(change.New))
		}
	}
}

func channelVersion(version *types.ChannelVersion) string {
	if version == nil {
		return "-"
	}
	if version.Logical != "" {
		return fmt.Sprintf("%s (%s)", version.Physical, version.Logical)
	}
	return version.Physical
}

func printUpdateSet(out io.Writer, updates types.UpdateSet) {
	if updates.IsEmpty() {
		_, _ = fmt.Fprintln(out, "no updates available")
		return
	}
	if len(updates.Artifacts) > 0 {
		_, _ = fmt.Fprintln(out, "component updates:")
		printArtifactChanges(out, updates.Artifacts)
	}
	if len(updates.Channels) > 0 {
		_, _ = fmt.Fprintln(out, "channel changes:")
		printChannelChanges(out, updates.Channels)
	}
	if !updates.Authoritative {
		_, _ = warnColor.Fprintln(out, "note: some channels resolve versions dynamically, the list may be incomplete")
	}
}

func printRevision(out io.Writer, state types.SavedState) {
	_, _ = fmt.Fprintf(out, "%s  %s  %-13s %s\n",
		color.YellowString(state.RevisionID),
		state.Timestamp.Format("2006-01-02 15:04:05"),
		state.Type,
		state.Summary)
}

func printVersions(out io.Writer, versions []types.VersionRecord) {
	for _, record := range versions {
		line := fmt.Sprintf("    %s %s", record.Name, record.Version)
		if strings.TrimSpace(record.Description) != "" {
			line += " (" + record.Description + ")"
		}
		_, _ = fmt.Fprintln(out, line)
	}
}

// colorPatch colors a unified diff line by line.
func colorPatch(out io.Writer, patch string) {
	for _, line := range strings.SplitAfter(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, _ = fmt.Fprint(out, line)
		case strings.HasPrefix(line, "+"):
			_, _ = addedColor.Fprint(out, line)
		case strings.HasPrefix(line, "-"):
			_, _ = removedColor.Fprint(out, line)
		case strings.HasPrefix(line, "@@"):
			_, _ = updatedColor.Fprint(out, line)
		default:
			_, _ = fmt.Fprint(out, line)
		}
	}
}
