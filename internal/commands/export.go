package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/export"
	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

func newExportCommand() *cobra.Command {
	var yearID int64
	var out string

	cmd := &cobra.Command{
		Use:   "export [directory]",
		Short: "Export a fiscal year's ledger to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runExport(cmd, absDir, yearID, out)
		},
	}

	cmd.Flags().Int64Var(&yearID, "year", 0, "fiscal year id (default: active year)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, dir string, yearID int64, out string) error {
	cfg, err := config.Load(filepath.Join(dir, "grandlivre.yaml"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(filepath.Join(dir, cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if yearID == 0 {
		year, err := st.ActiveFiscalYear(ctx)
		if err != nil {
			return fmt.Errorf("no active fiscal year: %w", err)
		}
		yearID = year.ID
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	ex := export.NewService(st, link.NewService(st))
	if err := ex.Export(ctx, yearID, w); err != nil {
		return fmt.Errorf("exporting ledger: %w", err)
	}
	return nil
}
