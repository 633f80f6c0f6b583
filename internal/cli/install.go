package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prospero/internal/app"
)

func newInstallCommand() *cobra.Command {
	var channelsFile string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision a new installation from a channel configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), cmd, channelsFile)
		},
	}
	cmd.Flags().StringVar(&channelsFile, "channels", "", "Channel configuration file")
	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, channelsFile string) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Install(ctx, app.InstallRequest{
		InstallDir:   installDir(cmd),
		ChannelsFile: resolveString(cmd, channelsFile, "channels", "channels"),
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "installed %d components, revision %s\n", result.Artifacts, result.Revision.RevisionID)
	return nil
}

func newChannelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Show or replace the channel configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured channels in resolution order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChannelsList(cmd.Context(), cmd)
		},
	})
	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the channel configuration and record the change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChannelsSet(cmd.Context(), cmd, file)
		},
	}
	set.Flags().StringVar(&file, "file", "", "Channel configuration file")
	_ = set.MarkFlagRequired("file")
	cmd.AddCommand(set)
	return cmd
}

func runChannelsList(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.ListChannels(ctx, app.ListChannelsRequest{InstallDir: installDir(cmd)})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, channel := range result.Channels {
		_, _ = fmt.Fprintf(out, "%s (%s)\n", channel.Name, channel.Manifest.Kind())
		for _, repo := range channel.Repositories {
			_, _ = fmt.Fprintf(out, "    %s %s\n", repo.ID, repo.URL)
		}
	}
	return nil
}

func runChannelsSet(ctx context.Context, cmd *cobra.Command, file string) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.SetChannels(ctx, app.SetChannelsRequest{InstallDir: installDir(cmd), ChannelsFile: file})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "channels updated, revision %s\n", result.Revision.RevisionID)
	return nil
}
