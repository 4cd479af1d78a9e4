// Command replay drives a keep-alive boundary through a YAML trace, prints
// the resulting report and optionally serves Prometheus metrics plus a
// cache snapshot while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/keepalive/internal/config"
	"github.com/IvanBrykalov/keepalive/internal/logging"
	"github.com/IvanBrykalov/keepalive/internal/trace"
	"github.com/IvanBrykalov/keepalive/keepalive"
	pmet "github.com/IvanBrykalov/keepalive/metrics/prom"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func run() error {
	// ---- Flags (override environment) ----
	var (
		envFile  = flag.String("env", ".env", "dotenv file to load")
		path     = flag.String("trace", "", "trace file (YAML)")
		addr     = flag.String("http", "", "serve /metrics and /debug/cache at addr; empty = disabled")
		hold     = flag.Duration("hold", 0, "keep serving for this long after the replay")
		strict   = flag.Bool("strict", false, "panic on host contract violations")
		logLevel = flag.String("log-level", "", "log level: debug | info | warn | error")
		dev      = flag.Bool("dev", false, "human-readable development logging")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace":
			cfg.Trace.Path = *path
		case "http":
			cfg.HTTP.Addr = *addr
		case "hold":
			cfg.HTTP.Hold = *hold
		case "strict":
			cfg.Trace.Strict = *strict
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "dev":
			cfg.Logging.Development = *dev
		}
	})
	if cfg.Trace.Path == "" {
		return errors.New("no trace given (-trace or KEEPALIVE_TRACE)")
	}

	log, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tr, err := trace.Load(cfg.Trace.Path)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	player, err := trace.NewPlayer(tr, keepalive.Options{
		Strict:  cfg.Trace.Strict,
		Metrics: pmet.New(reg, "keepalive", "replay", nil),
		Logger:  log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = player.Boundary().Close() }()

	// Signal-aware root context; SIGINT/SIGTERM stops the replay and the server.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTP.Addr == "" {
		return replay(ctx, player, log)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(reg, player.Boundary()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		if err := replay(gctx, player, log); err != nil {
			return err
		}
		if cfg.HTTP.Hold <= 0 {
			return nil
		}
		timer := time.NewTimer(cfg.HTTP.Hold)
		defer timer.Stop()
		select {
		case <-gctx.Done():
		case <-timer.C:
		}
		return nil
	})
	return g.Wait()
}

func replay(ctx context.Context, p *trace.Player, log *zap.Logger) error {
	start := time.Now()
	rep, err := p.Play(ctx)
	if werr := rep.Write(os.Stdout); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return err
	}
	log.Info("replay finished",
		zap.Int("steps", len(rep.Steps)),
		zap.Int("cached", len(rep.Final)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
