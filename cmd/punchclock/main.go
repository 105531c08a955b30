/*
main.go - Application entry point

PURPOSE:
  The punchclock binary: the HTTP server plus the offline jobs an
  administrator runs from a shell.

COMMANDS:
  serve                               Kiosk and admin API
  export payroll|punch-cards          Write a month's workbook to a file
  import-employees FILE               Bulk-create employees (.csv/.xlsx/.xls)
  hash-password                       bcrypt hash for HR/MGR_PASSWORD_HASH

CONFIGURATION:
  Environment and .env, see config/config.go. DATABASE_URL selects
  PostgreSQL; otherwise SQLITE_PATH (attendance.db).

EXAMPLES:
  # Run the server
  JWT_SECRET=... HR_PASSWORD_HASH=... punchclock serve

  # March payroll
  punchclock export payroll --month 2025-03 --out payroll-202503.xlsx

  # Hash a password without echoing it into shell history
  punchclock hash-password

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
*/
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/httplog/v3"
	"github.com/spf13/cobra"

	"github.com/warp/punchclock/config"
)

const (
	appName = "punchclock"
	version = "v1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Employee time-and-attendance service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newExportCmd(),
		newImportCmd(),
		newHashPasswordCmd(),
	)
	return root
}

// newLogger builds the JSON logger shared by the server and httplog.
func newLogger(cfg *config.Config) *slog.Logger {
	format := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.App.LogLevel,
		ReplaceAttr: format.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("version", version),
		slog.String("env", cfg.App.Env),
	)
}
