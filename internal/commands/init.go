package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new grandlivre project",
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

			return runInit(cmd.Context(), absDir)
		},
	}

	return cmd
}

func runInit(ctx context.Context, dir string) error {
	dirs := []string{
		"data",
		"logs",
		"exports",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if err := config.Save(filepath.Join(dir, "grandlivre.yaml"), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	st, err := store.Open(filepath.Join(dir, cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	fmt.Printf("Initialized grandlivre project at %s\n", dir)
	return nil
}
