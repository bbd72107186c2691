// Package commands implements the dbal command line.
package commands

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/spiral-modules/dbal/config"
	"github.com/spiral-modules/dbal/database"
	"github.com/spiral-modules/dbal/logger"
	"github.com/spiral-modules/dbal/observability"
)

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Alias      string
}

// NewRootCommand creates the dbal root command with every subcommand attached.
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "dbal",
		Short: "Inspect database schemas and diff them against declarations",
		Long: `dbal connects to the databases configured in dbal.yaml (or DBAL_* environment
variables) and reflects their tables, or renders the DDL needed to bring a database
in line with a declarative schema file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (default dbal.yaml)")
	root.PersistentFlags().StringVarP(&opts.Alias, "database", "d", "", "Database alias (default: configured default)")

	root.AddCommand(
		NewTablesCommand(opts),
		NewDescribeCommand(opts),
		NewDiffCommand(opts),
	)
	return root
}

// session is the state one command runs against.
type session struct {
	manager   *database.Manager
	db        *database.Database
	telemetry observability.Provider
	log       logger.Logger
}

// open loads the configuration, starts telemetry and returns the selected database.
// Callers must close the session.
func (o *GlobalOptions) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level)
	telemetry, err := observability.New(cfg.Telemetry, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	m := database.NewManager(cfg, log, database.ManagerOptions{})
	s := &session{manager: m, telemetry: telemetry, log: log}
	s.db, err = m.Database(ctx, o.Alias)
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	if err := s.manager.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close databases")
	}
	if err := observability.Shutdown(s.telemetry, 0); err != nil {
		s.log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}

func newTable(cmd *cobra.Command, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(cmd.OutOrStdout())
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
