package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prospero/internal/app"
)

type promoteOptions struct {
	Source    string
	Target    string
	Channel   string
	Artifacts []string
	Base      string
}

func newPromoteCommand() *cobra.Command {
	opts := promoteOptions{}
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Publish custom artifacts and a new custom channel manifest revision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPromote(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Source, "source-repo", "", "Repository holding the artifacts to promote")
	cmd.Flags().StringVar(&opts.Target, "target-repo", "", "Repository receiving the artifacts and the manifest")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "Custom channel manifest coordinate groupId:artifactId")
	cmd.Flags().StringSliceVar(&opts.Artifacts, "artifact", nil, "Artifact coordinate groupId:artifactId[:ext[:classifier]]:version")
	cmd.Flags().StringVar(&opts.Base, "base-version", "", "Base of new manifest versions (default 1.0.0)")
	return cmd
}

func runPromote(ctx context.Context, cmd *cobra.Command, opts promoteOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Promote(ctx, app.PromoteRequest{
		SourceRepo: resolveString(cmd, opts.Source, "promote_source_repo", "source-repo"),
		TargetRepo: resolveString(cmd, opts.Target, "promote_target_repo", "target-repo"),
		Channel:    resolveString(cmd, opts.Channel, "promote_channel", "channel"),
		Artifacts:  resolveStrings(cmd, opts.Artifacts, "promote_artifacts", "artifact"),
		Base:       resolveString(cmd, opts.Base, "promote_base_version", "base-version"),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if result.Skipped {
		_, _ = fmt.Fprintln(out, "nothing to promote")
		return nil
	}
	for _, artifact := range result.Deployed {
		_, _ = addedColor.Fprintf(out, "  + %s\n", artifact)
	}
	_, _ = fmt.Fprintf(out, "channel manifest version: %s\n", result.ManifestVersion)
	return nil
}
