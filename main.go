package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/researchaccelerator-hub/youtube-video-stats/common"
	"github.com/researchaccelerator-hub/youtube-video-stats/dapr"
	"github.com/researchaccelerator-hub/youtube-video-stats/snapshot"
	"github.com/researchaccelerator-hub/youtube-video-stats/standalone"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(viper.New()).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("video-stats failed")
		stop()
		os.Exit(1)
	}
}

// cli carries what the persistent pre-run loads for the subcommands.
type cli struct {
	v          *viper.Viper
	configFile string
	envFile    string
	cfg        common.Config
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	c := &cli{v: v}

	root := &cobra.Command{
		Use:           "video-stats",
		Short:         "Extract daily video statistics for a YouTube channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(c.v, c.envFile, c.configFile)
			if err != nil {
				return err
			}
			if err := common.ConfigureLogging(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Config file (yaml, json or toml)")
	flags.StringVar(&c.envFile, "env-file", ".env", "Dotenv file read when present")
	if err := bindFlags(v, flags); err != nil {
		// Only reachable if a flag name above is misspelled.
		panic(err)
	}

	root.AddCommand(c.runCommand(), c.serveCommand(), c.scheduleCommand(), c.showCommand())
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("api-key", "", "YouTube Data API key (env API_KEY)")
	flags.String("channel-handle", common.DefaultChannelHandle, "Channel handle to extract (env CHANNEL_HANDLE)")
	flags.String("output-dir", common.DefaultOutputDir, "Existing directory snapshots are written to")
	flags.String("api-endpoint", "", "Override the YouTube API base URL")
	flags.Duration("http-timeout", 0, "Per-request timeout, 0 waits indefinitely")
	flags.Duration("run-timeout", common.DefaultRunTimeout, "Whole-run timeout, 0 disables it")
	flags.Float64("requests-per-second", 0, "Pace API calls, 0 is unlimited")
	flags.String("log-level", common.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", common.DefaultLogFormat, "Log format (console or json)")
	flags.Int("dapr-port", common.DefaultDaprPort, "Port the Dapr job service listens on")
	flags.String("job-name", common.DefaultJobName, "Dapr job that triggers a run")
	flags.String("job-schedule", common.DefaultJobSchedule, "Dapr cron schedule for the job")

	bindings := map[string]string{
		common.KeyAPIKey:            "api-key",
		common.KeyChannelHandle:     "channel-handle",
		common.KeyOutputDir:         "output-dir",
		common.KeyAPIEndpoint:       "api-endpoint",
		common.KeyHTTPTimeout:       "http-timeout",
		common.KeyRunTimeout:        "run-timeout",
		common.KeyRequestsPerSecond: "requests-per-second",
		common.KeyLogLevel:          "log-level",
		common.KeyLogFormat:         "log-format",
		common.KeyDaprPort:          "dapr-port",
		common.KeyJobName:           "job-name",
		common.KeyJobSchedule:       "job-schedule",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *cli) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one extraction and write today's snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			result, err := standalone.StartStandaloneMode(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.SnapshotPath)
			return nil
		},
	}
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve Dapr job events, running one extraction per event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			return dapr.StartDaprMode(cmd.Context(), c.cfg)
		},
	}
}

func (c *cli) scheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Register the recurring extraction job with the Dapr scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dapr.ScheduleDaily(cmd.Context(), c.cfg)
		},
	}
}

func (c *cli) showCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := common.ParseSnapshotDate(date)
			if err != nil {
				return err
			}
			records, err := snapshot.NewStore(c.cfg.OutputDir).Load(c.cfg.ChannelHandle, day)
			if err != nil {
				return err
			}
			return snapshot.Encode(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Snapshot date as YYYY-MM-DD, defaults to today (UTC)")
	return cmd
}
