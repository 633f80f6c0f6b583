package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prospero/internal/app"
)

func newRevertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Return the installation to an earlier revision",
	}
	cmd.AddCommand(newRevertPerformCommand())
	cmd.AddCommand(newRevertPrepareCommand())
	cmd.AddCommand(newRevertApplyCommand())
	return cmd
}

func newRevertPerformCommand() *cobra.Command {
	var metadataOnly bool
	cmd := &cobra.Command{
		Use:   "perform <revision>",
		Short: "Revert the installation to a revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevertPerform(cmd.Context(), cmd, args[0], metadataOnly)
		},
	}
	cmd.Flags().BoolVar(&metadataOnly, "metadata-only", false, "Restore the recorded manifest without re-provisioning components")
	return cmd
}

func runRevertPerform(ctx context.Context, cmd *cobra.Command, revision string, metadataOnly bool) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Revert(ctx, app.RevertRequest{
		InstallDir:   installDir(cmd),
		Revision:     revision,
		MetadataOnly: resolveBool(cmd, metadataOnly, "revert_metadata_only", "metadata-only"),
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reverted to %s, new revision %s\n", revision, result.Revision.RevisionID)
	return nil
}

func newRevertPrepareCommand() *cobra.Command {
	opts := candidateOptions{}
	cmd := &cobra.Command{
		Use:   "prepare <revision>",
		Short: "Provision a revert candidate without touching the installation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevertPrepare(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.CandidateDir, "candidate-dir", "", "Candidate directory (default: a new temporary directory)")
	return cmd
}

func runRevertPrepare(ctx context.Context, cmd *cobra.Command, revision string, opts candidateOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.PrepareRevert(ctx, app.PrepareRevertRequest{
		InstallDir:   installDir(cmd),
		CandidateDir: resolveString(cmd, opts.CandidateDir, "candidate_dir", "candidate-dir"),
		Revision:     revision,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "candidate prepared: %s\n", result.CandidateDir)
	return nil
}

func newRevertApplyCommand() *cobra.Command {
	cmd := newUpdateApplyCommand()
	cmd.Short = "Apply a prepared revert candidate to the installation"
	return cmd
}
