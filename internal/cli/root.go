package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"prospero/internal/adapters"
	"prospero/internal/app"
	"prospero/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PROSPERO"

type RootConfig struct {
	ConfigFile     string
	LogLevel       string
	Dir            string
	StabilityLevel string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		log.Debug().Err(err).Msg("command failed")
		_, _ = fmt.Fprintln(os.Stderr, color.RedString("error: %s", errorMessage(err)))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "prospero",
		Short:         "Install, update and roll back server installations from channels",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	cmd.PersistentFlags().StringVar(&cfg.Dir, "dir", ".", "Installation directory")
	cmd.PersistentFlags().StringVar(&cfg.StabilityLevel, "stability-level", "default", "Feature stability level (default, community, preview, experimental)")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("dir", cmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("stability_level", cmd.PersistentFlags().Lookup("stability-level"))

	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newUpdateCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newRevertCommand())
	cmd.AddCommand(newPromoteCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newChannelsCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("prospero")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/prospero")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newAppService builds the service from the resolved configuration. Tests
// replace it to inject stub ports.
var newAppService = func() (app.Service, error) {
	level, err := types.ParseStabilityLevel(viper.GetString("stability_level"))
	if err != nil {
		return app.Service{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid stability level").
			WithCause(err)
	}
	service := app.NewService()
	service.Stability = level
	opener := adapters.NewRepositoryOpenerAdapter()
	opener.Username = viper.GetString("repo_user")
	opener.Password = viper.GetString("repo_password")
	opener.TimeoutSec = viper.GetInt("http_timeout_sec")
	opener.Retries = viper.GetInt("http_retries")
	opener.RetryDelayMs = viper.GetInt("http_retry_delay_ms")
	service.Opener = opener
	service.Provisioner = app.NewLayoutProvisioner(opener, service.URLs, service.Metadata)
	if workers := viper.GetInt("update_workers"); workers > 0 {
		service.Workers = workers
	}
	service.TempDir = viper.GetString("temp_dir")
	return service, nil
}

func installDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("dir")
	return resolveString(cmd, dir, "dir", "dir")
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeAborted, errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeUnavailable, errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	case errbuilder.CodeResourceExhausted:
		return 6
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
