package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/audit"
	"github.com/grandlivre-dev/grandlivre/internal/billing"
	"github.com/grandlivre-dev/grandlivre/internal/chart"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/events"
	"github.com/grandlivre-dev/grandlivre/internal/export"
	"github.com/grandlivre-dev/grandlivre/internal/fiscalyear"
	"github.com/grandlivre-dev/grandlivre/internal/ledger"
	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/payoff"
	"github.com/grandlivre-dev/grandlivre/internal/server"
	"github.com/grandlivre-dev/grandlivre/internal/store"
	"github.com/grandlivre-dev/grandlivre/internal/sysacc"
)

func newServeCommand() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Serve the accounting API over HTTP",
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

			return runServe(cmd, absDir, addr, debug)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func runServe(cmd *cobra.Command, dir, addr string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(filepath.Join(dir, "grandlivre.yaml"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(filepath.Join(dir, cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	sys, err := sysacc.ByName(cfg.Accounting.System)
	if err != nil {
		return fmt.Errorf("accounting system: %w", err)
	}

	bus := events.NewDispatcher()
	bus.Subscribe(audit.Listener(dir))

	charts := chart.NewService(st, sys)
	years := fiscalyear.NewService(st, sys)
	ld := ledger.NewService(st, cfg.Currency.Decimals)
	links := link.NewService(st)
	bl := billing.NewService(st, charts, sys, cfg, bus)
	po := payoff.NewService(st, bl, charts, cfg)
	ex := export.NewService(st, links)

	srv := server.New(st, cfg, years, charts, ld, links, bl, po, ex)

	slog.Info("server starting", "address", addr)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
