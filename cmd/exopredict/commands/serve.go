package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/server"
)

// ServeCmd starts the HTTP prediction API
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP prediction API",
	Long: `Load the artifact bundle once and serve predictions over HTTP.

Routes:
  POST /api/analyze       one record -> result card
  POST /api/analyze_csv   array of records -> records with prediction columns
  POST /api/predict       object or array, ?proba=true, ?output=NAME
  GET  /api/history       recent predictions
  GET  /health, /metrics, /favicon.ico, /`,
	RunE: runServe,
}

var (
	servePort      int
	serveWatch     bool
	serveNoHistory bool
)

func init() {
	ServeCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	ServeCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the bundle when artifact files change")
	ServeCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "Do not record predictions")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveNoHistory {
		cfg.Database.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	verbosity := verbosityOf(cmd)
	if verbosity == 0 {
		// Servers log startup and requests by default
		verbosity = logger.VerbosityInfo
		if err := logger.Initialize(cfg.Log.JSON, verbosity); err != nil {
			return err
		}
	}

	p, err := loadPredictor(cfg)
	if err != nil {
		return err
	}

	store, closeHistory, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	opts := []server.Option{server.WithLogger(logger.Logger.Named("server"))}
	if store != nil {
		opts = append(opts, server.WithHistory(store))
	}
	srv := server.New(p, cfg.Server, opts...)

	if serveWatch {
		w, err := artifact.NewWatcher(cfg.Artifacts.Dir, artifact.OptionsFromConfig(cfg.Artifacts), artifact.DefaultDebounce)
		if err != nil {
			return err
		}
		w.OnReload(func(b *artifact.Bundle) { srv.SetPredictor(newPredictor(cfg, b)) })
		w.Start()
		defer w.Stop()
	}

	if logger.ShouldOutput(verbosity, logger.OutputStartup) && !cfg.Log.JSON {
		printStartupBanner(cfg, p.Bundle(), store != nil, serveWatch)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	pterm.Success.Println("Server stopped cleanly")
	return nil
}
