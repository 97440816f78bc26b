package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/config"
	"github.com/3bbing/friends-pyramid/internal/game"
	"github.com/3bbing/friends-pyramid/internal/httpapi"
	"github.com/3bbing/friends-pyramid/internal/hub"
	"github.com/3bbing/friends-pyramid/internal/logging"
	"github.com/3bbing/friends-pyramid/internal/questions"
	"github.com/3bbing/friends-pyramid/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	pools, err := questions.NewProvider(cfg.QuestionsDir, st, log)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, auth.DefaultTTL)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, sessions end on restart")
	}

	h := hub.NewHub(ctx)
	opts := game.Options{
		DefaultDepth: cfg.DefaultDepth,
		DefaultTimer: cfg.DefaultTimer,
		TimerOptions: cfg.TimerOptions,
	}
	svc := game.NewService(st, st, pools, h, log, opts)

	// Build the router *with* the service and hub injected
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Service:   svc,
			Issuer:    issuer,
			Hub:       h,
			Log:       log,
			PublicURL: cfg.PublicURL,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return store.NewPostgres(cfg.DatabaseURL, log)
	default:
		return store.NewMemory(), nil
	}
}
