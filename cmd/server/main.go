package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-session-service/internal/config"
	"github.com/jrsteele09/go-session-service/server"
	boltstore "github.com/jrsteele09/go-session-service/store/bolt"
	"github.com/jrsteele09/go-session-service/store/memory"
	redisstore "github.com/jrsteele09/go-session-service/store/redis"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	setupLogging(cfg)
	displayAppname(cfg.AppName)

	repos, cleanup, err := buildRepos(cfg)
	if err != nil {
		return fmt.Errorf("buildRepos: %w", err)
	}
	defer cleanup()

	srv, err := server.New(cfg, repos)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr(), Handler: srv}

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case <-stop:
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildRepos selects the store backend. The redis backend holds token
// records only; user and client records fall back to bolt when a path is
// configured, memory otherwise.
func buildRepos(cfg *config.Config) (server.Repos, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBolt:
		store, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return server.Repos{}, nil, err
		}
		return server.Repos{
			Users:   store.Users(),
			Clients: store.Clients(),
			Access:  store.AccessTokens(),
			Refresh: store.RefreshTokens(),
		}, func() { _ = store.Close() }, nil

	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), redisstore.DefaultDialTimeout)
		defer cancel()

		tokenStore, err := redisstore.New(ctx, redisstore.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return server.Repos{}, nil, err
		}

		directory, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			_ = tokenStore.Close()
			return server.Repos{}, nil, err
		}
		return server.Repos{
				Users:   directory.Users(),
				Clients: directory.Clients(),
				Access:  tokenStore.AccessTokens(),
				Refresh: tokenStore.RefreshTokens(),
			}, func() {
				_ = directory.Close()
				_ = tokenStore.Close()
			}, nil

	default:
		store := memory.New()
		return server.Repos{
			Users:   store.Users(),
			Clients: store.Clients(),
			Access:  store.AccessTokens(),
			Refresh: store.RefreshTokens(),
		}, func() {}, nil
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.Env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
