// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/psykos/internal/binder"
	"github.com/jason-s-yu/psykos/internal/cache"
	"github.com/jason-s-yu/psykos/internal/codes"
	"github.com/jason-s-yu/psykos/internal/content"
	"github.com/jason-s-yu/psykos/internal/game"
	"github.com/jason-s-yu/psykos/internal/handlers"
	"github.com/jason-s-yu/psykos/internal/players"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.4.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func serve(ctx context.Context, cfg *Config) error {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.Infof("START: psykos v%s", releaseVersion)

	var recorder game.ActionRecorder
	if cfg.redisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.redisAddr, cfg.redisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		rec := cache.NewRedisRecorder(rdb, cfg.redisQueue, logger.WithField("component", "actions"))
		defer rec.Close()
		recorder = rec
		logger.Infof("Publishing session actions to redis %s (%s)", cfg.redisAddr, cfg.redisQueue)
	}

	fallback := content.NewFallbackProvider()
	prompts := content.NewLLMProvider(content.LLMConfig{
		BaseURL:     cfg.contentBaseURL,
		APIKey:      cfg.contentAPIKey,
		Model:       cfg.contentModel,
		Timeout:     cfg.contentTimeout,
		Temperature: 0.9,
	}, fallback, logger.WithField("component", "content"))
	if cfg.contentAPIKey == "" {
		logger.Warn("No content API key configured; using fallback prompts only")
	}

	fan := binder.NewFanout(logger.WithField("component", "fanout"))
	dir := players.NewDirectory()
	reg := game.NewRegistry(codes.NewAllocator(nil), dir, game.Deps{
		Broadcaster: fan,
		Prompts:     prompts,
		Scoring:     game.PolicySet{Default: game.FixedPoints(cfg.pointsPerVote)},
		Recorder:    recorder,
		Logger:      logger,
		Settings: game.Settings{
			PromptAttempts: cfg.promptAttempts,
			DefaultRounds:  cfg.defaultRounds,
			MaxRounds:      cfg.maxRounds,
			BindTimeout:    cfg.bindTimeout,
		},
	})
	b := binder.New(reg, fan, dir, logger.WithField("component", "binder"))

	server := handlers.NewSessionServer(reg, b, logger, handlers.Options{
		AllowedOrigins: cfg.allowedOrigins,
		PublicURL:      cfg.publicURL,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           handlers.NewRouter(server),
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go reg.ReaperLoop(ctx, cfg.sessionTimeout)

	errs := make(chan error, 1)
	go func() {
		logger.Infof("Listening on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
