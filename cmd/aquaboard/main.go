package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aquaguardian/aquaboard/internal/daemon"
	"github.com/aquaguardian/aquaboard/internal/version"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aquaboard",
		Short: "Citizen pollution reporting dashboard daemon",
		Long: `aquaboard polls the reporting backend for dashboard metrics,
substitutes demo data for anything missing or unusable, and serves
complete snapshots over HTTP. It also submits reports on behalf of
the signed-in user.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"path to config file (defaults are used when omitted)",
	)
	cmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)",
	)

	cmd.AddCommand(
		runCmd(),
		snapshotCmd(),
		submitCmd(),
		loginCmd(),
		signupCmd(),
		logoutCmd(),
		whoamiCmd(),
		migrateCmd(),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.FullWithPlatform())
		},
	}
}

// setup loads the config (or defaults) and a logger at the configured level.
func setup() (*daemon.Config, *logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	var (
		cfg *daemon.Config
		err error
	)

	if cfgFile != "" {
		cfg, err = daemon.LoadConfig(cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = daemon.DefaultConfig()
		cfg.Backend.ApplyEnv()
	}

	// CLI flag overrides config file.
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	return cfg, log, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the aggregation daemon and status server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(
				context.Background(),
				syscall.SIGINT,
				syscall.SIGTERM,
			)
			defer cancel()

			d, err := daemon.New(log, cfg)
			if err != nil {
				return fmt.Errorf("creating daemon: %w", err)
			}

			log.WithField("version", version.Full()).Info("Starting aquaboard")

			if err := d.Start(ctx); err != nil {
				_ = d.Stop()

				return fmt.Errorf("starting daemon: %w", err)
			}

			<-ctx.Done()

			log.Info("Shutting down aquaboard")

			if err := d.Stop(); err != nil {
				log.WithError(err).Error("Error during shutdown")

				return fmt.Errorf("stopping daemon: %w", err)
			}

			log.Info("Shutdown complete")

			return nil
		},
	}
}
