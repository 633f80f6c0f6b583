package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prospero/internal/app"
)

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Find, prepare and apply updates",
	}
	cmd.PersistentFlags().Int("workers", 0, "Concurrent version lookups (default 10)")
	cmd.AddCommand(newUpdateListCommand())
	cmd.AddCommand(newUpdatePrepareCommand())
	cmd.AddCommand(newUpdateApplyCommand())
	cmd.AddCommand(newUpdatePerformCommand())
	return cmd
}

func newUpdateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available component and channel updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdateList(cmd.Context(), cmd)
		},
	}
}

func runUpdateList(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	applyWorkers(cmd, &service)
	result, err := service.ListUpdates(ctx, app.ListUpdatesRequest{InstallDir: installDir(cmd)})
	if err != nil {
		return err
	}
	printUpdateSet(cmd.OutOrStdout(), result.Updates)
	return nil
}

type candidateOptions struct {
	CandidateDir string
}

func newUpdatePrepareCommand() *cobra.Command {
	opts := candidateOptions{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Provision an update candidate without touching the installation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdatePrepare(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.CandidateDir, "candidate-dir", "", "Candidate directory (default: a new temporary directory)")
	return cmd
}

func runUpdatePrepare(ctx context.Context, cmd *cobra.Command, opts candidateOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	applyWorkers(cmd, &service)
	result, err := service.PrepareUpdate(ctx, app.PrepareUpdateRequest{
		InstallDir:   installDir(cmd),
		CandidateDir: resolveString(cmd, opts.CandidateDir, "candidate_dir", "candidate-dir"),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printUpdateSet(out, result.Updates)
	if result.Skipped {
		return nil
	}
	_, _ = fmt.Fprintf(out, "candidate prepared: %s\n", result.CandidateDir)
	return nil
}

func newUpdateApplyCommand() *cobra.Command {
	opts := candidateOptions{}
	var remove bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a prepared candidate to the installation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd.Context(), cmd, opts, remove)
		},
	}
	cmd.Flags().StringVar(&opts.CandidateDir, "candidate-dir", "", "Prepared candidate directory")
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the candidate directory after a successful apply")
	_ = cmd.MarkFlagRequired("candidate-dir")
	return cmd
}

func runApply(ctx context.Context, cmd *cobra.Command, opts candidateOptions, remove bool) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.ApplyCandidate(ctx, app.ApplyRequest{
		InstallDir:      installDir(cmd),
		CandidateDir:    opts.CandidateDir,
		RemoveCandidate: remove,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied, new revision %s\n", result.Revision.RevisionID)
	return nil
}

func newUpdatePerformCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "perform",
		Short: "Prepare and apply all available updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdatePerform(cmd.Context(), cmd)
		},
	}
}

func runUpdatePerform(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	applyWorkers(cmd, &service)
	result, err := service.Update(ctx, app.UpdateRequest{InstallDir: installDir(cmd)})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printUpdateSet(out, result.Updates)
	if result.Applied {
		_, _ = fmt.Fprintf(out, "updated, new revision %s\n", result.Revision.RevisionID)
	}
	return nil
}

func applyWorkers(cmd *cobra.Command, service *app.Service) {
	workers, _ := cmd.Flags().GetInt("workers")
	if resolved := resolveInt(cmd, workers, "update_workers", "workers"); resolved > 0 {
		service.Workers = resolved
	}
}
