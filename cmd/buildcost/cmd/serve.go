package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"buildcost/adapters/watch"
	"buildcost/api"
	"buildcost/internal/config"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

var (
	addr       string
	watchFiles bool
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calculators over HTTP",
	Long: `Serve the calculators over HTTP until interrupted.

With --watch, edits to the active region's factor file under --data-dir
are applied without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "reload regional factors when --data-dir changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if addr != "" {
		cfg.Server.Address = addr
	}
	if watchFiles && cfg.Pricing.DataDir == "" {
		return apperrors.New(apperrors.TypeConfig, "--watch requires --data-dir")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)
	if watchFiles {
		w, err := watch.New(cfg.Pricing.DataDir, a.Engine, watch.DefaultDebounce, a.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	srv := api.NewServer(a, Version)
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Address) })

	if err := g.Wait(); err != nil {
		logging.Error("server stopped", zap.Error(err))
		return err
	}
	logging.Info("server stopped")
	return nil
}
