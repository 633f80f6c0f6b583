package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prospero/internal/app"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the installation state and any interrupted operation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd)
		},
	}
}

func runStatus(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Status(ctx, app.StatusRequest{InstallDir: installDir(cmd)})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "components: %d\n", result.Components)
	_, _ = fmt.Fprintf(out, "channels: %d\n", len(result.Channels))
	if result.LatestRevision != nil {
		_, _ = fmt.Fprint(out, "latest revision: ")
		printRevision(out, *result.LatestRevision)
	}
	if result.Marker != nil {
		_, _ = warnColor.Fprintf(out, "%s operation %s, apply the candidate again to finish it\n", result.Marker.Operation, result.Marker.State)
	}
	return nil
}
