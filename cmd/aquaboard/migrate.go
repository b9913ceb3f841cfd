package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquaguardian/aquaboard/internal/daemon"
	"github.com/aquaguardian/aquaboard/internal/migrate"
)

func migrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the ClickHouse snapshot history schema",
	}

	cmd.PersistentFlags().StringVar(&dsn, "dsn", "",
		"clickhouse:// DSN (defaults to sinks.history.clickhouse)")

	migrator := func() (*migrate.Migrator, error) {
		cfg, log, err := setup()
		if err != nil {
			return nil, err
		}

		target, err := migrateDSN(dsn, cfg)
		if err != nil {
			return nil, err
		}

		return migrate.New(log, target), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}

				return m.Up(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the newest migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}

				return m.Down(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}

				st, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "version %d of %d (dirty: %t, pending: %t)\n",
					st.Version, st.Latest, st.Dirty, st.Pending())

				return nil
			},
		},
	)

	return cmd
}

// migrateDSN prefers the --dsn flag and falls back to the history sink's
// ClickHouse settings.
func migrateDSN(flag string, cfg *daemon.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}

	ch := cfg.Sinks.History.ClickHouse
	ch.ApplyDefaults()

	if err := ch.Validate(); err != nil {
		return "", fmt.Errorf("no --dsn and %w", err)
	}

	return ch.DSN(), nil
}
