package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/warp/punchclock/api"
	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/config"
	"github.com/warp/punchclock/export"
	"github.com/warp/punchclock/importer"
	"github.com/warp/punchclock/report"
)

// =============================================================================
// EXPORT
// =============================================================================

func newExportCmd() *cobra.Command {
	var month, out string

	cmd := &cobra.Command{
		Use:       "export payroll|punch-cards",
		Short:     "Write a month's workbook to a file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"payroll", "punch-cards"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != "payroll" && kind != "punch-cards" {
				return fmt.Errorf("unknown workbook %q (want payroll or punch-cards)", kind)
			}

			m := attendance.MonthOf(time.Now())
			if month != "" {
				var err error
				if m, err = attendance.ParseMonth(month); err != nil {
					return err
				}
			}
			if out == "" {
				out = fmt.Sprintf("%s-%s.xlsx", kind, m.Compact())
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := cfg.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			groups, err := report.NewService(st, cfg.Policy(), nil).All(cmd.Context(), m)
			if err != nil {
				return err
			}

			var f *excelize.File
			if kind == "payroll" {
				f, err = payroll(groups, m, cfg.PayrollTemplate)
			} else {
				f, err = export.PunchCards(groups)
			}
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.SaveAs(out); err != nil {
				return fmt.Errorf("save %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d areas)\n", out, len(groups))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: <kind>-YYYYMM.xlsx)")
	return cmd
}

func payroll(groups []report.AreaReport, m attendance.Month, template string) (*excelize.File, error) {
	if template == "" {
		return export.Payroll(groups, m, nil)
	}
	tf, err := os.Open(template)
	if err != nil {
		return nil, fmt.Errorf("open payroll template: %w", err)
	}
	defer tf.Close()
	return export.Payroll(groups, m, tf)
}

// =============================================================================
// IMPORT
// =============================================================================

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-employees FILE",
		Short: "Bulk-create employees from a .csv, .xlsx or .xls file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := cfg.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := importer.Import(cmd.Context(), st, filepath.Base(path), file)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROW\tID\tRESULT")
			for _, r := range res.Rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Row, r.ID, r.Status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d rows\n", res.Inserted, len(res.Rows))
			return nil
		},
	}
}

// =============================================================================
// HASH PASSWORD
// =============================================================================

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			}
			password, err := readLine(in)
			if err != nil {
				return err
			}
			hash, err := api.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
