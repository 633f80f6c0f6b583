package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prospero/internal/app"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the installation history",
	}
	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryDiffCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List revisions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd.Context(), cmd, verbose)
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show the channel manifest versions of each revision")
	return cmd
}

func runHistoryList(ctx context.Context, cmd *cobra.Command, verbose bool) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.History(ctx, app.HistoryRequest{InstallDir: installDir(cmd)})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(result.Revisions) == 0 {
		_, _ = fmt.Fprintln(out, "no revisions recorded")
		return nil
	}
	for _, revision := range result.Revisions {
		printRevision(out, revision)
		if verbose {
			printVersions(out, revision.Versions)
		}
	}
	return nil
}

type historyDiffOptions struct {
	Revision string
	Patch    bool
}

func newHistoryDiffCommand() *cobra.Command {
	opts := historyDiffOptions{}
	cmd := &cobra.Command{
		Use:   "diff <revision>",
		Short: "Show component changes since a revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Revision = args[0]
			return runHistoryDiff(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Patch, "patch", false, "Also print a unified diff of the manifest (preview)")
	return cmd
}

func runHistoryDiff(ctx context.Context, cmd *cobra.Command, opts historyDiffOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.HistoryDiff(ctx, app.HistoryDiffRequest{
		InstallDir: installDir(cmd),
		Revision:   opts.Revision,
		Patch:      resolveBool(cmd, opts.Patch, "history_patch", "patch"),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(result.Changes) == 0 {
		_, _ = fmt.Fprintf(out, "no changes since %s\n", opts.Revision)
	} else {
		printArtifactChanges(out, result.Changes)
	}
	if result.Patch != "" {
		colorPatch(out, result.Patch)
	}
	return nil
}
