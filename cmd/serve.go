package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guimove/capviz/internal/api"
	"github.com/guimove/capviz/internal/placement"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over HTTP",
	Long: `Starts an HTTP server exposing the engine state, utilization, layout,
actions, undo/redo and the migration ledger as a JSON API, plus /healthz and
/metrics. Ledger changes are saved to the configured store in the background
and flushed on shutdown.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default from config, :8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := orch.Open(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.New(session.Machine, orch.LayoutOptions(),
			api.WithPlacementDefaults(placement.Strategy(cfg.Placement.Strategy), orch.HAPolicy()),
		).Router(zap.L()),
	}
	log := zap.S().Named("serve")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if cerr := session.Close(); cerr != nil {
		log.Warnw("ledger could not be persisted", "store", orch.Store.Name(), "error", cerr)
	}
	return err
}
