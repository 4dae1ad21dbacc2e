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

	"go.miragespace.co/nskv"
	_ "go.miragespace.co/nskv/backing/sqlite"
	"go.miragespace.co/nskv/config"
	"go.miragespace.co/nskv/gateway"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config JSON file")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
		storeURI   = flag.String("store", "", "Backing URI of the default store (overrides config)")
		dev        = flag.Bool("dev", false, "Use the development logger")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	if *addr != "" {
		cfg.Listen = *addr
	}
	if *storeURI != "" {
		cfg.Stores[gateway.DefaultStore] = *storeURI
	}
	if *dev {
		cfg.Log.Development = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger, &cfg); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger, cfg *config.Config) error {
	manager := nskv.NewManager(logger)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn("Error closing stores", zap.Error(err))
		}
	}()

	for name, uri := range cfg.Stores {
		if err := manager.Configure(name, uri); err != nil {
			return fmt.Errorf("configuring store %q: %w", name, err)
		}
	}

	gw, err := gateway.New(logger, cfg.Gateway, manager)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("ready", zap.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
