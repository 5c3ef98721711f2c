package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchroom/server/internal/controller"
	recordRedis "github.com/watchroom/server/internal/repository/record/redis"
	sessionInmemory "github.com/watchroom/server/internal/repository/session/inmemory"
	"github.com/watchroom/server/internal/service/playback"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/redisclient"
)

type AppConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	LogLevel           string `json:"log_level"`
	ProgressDebounceMs int    `json:"progress_debounce_ms"`
	WriteCooldownMs    int    `json:"write_cooldown_ms"`
	SeekToleranceMs    int    `json:"seek_tolerance_ms"`
	RedisPort          int    `json:"redis_port"`
	RedisHost          string `json:"redis_host"`
	RedisPassword      string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.ProgressDebounceMs < 1 {
		return fmt.Errorf("progress debounce must be greater than 0")
	}
	if cfg.WriteCooldownMs < 1 {
		return fmt.Errorf("write cooldown must be greater than 0")
	}
	if cfg.SeekToleranceMs < 1 {
		return fmt.Errorf("seek tolerance must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)
	slog.SetDefault(logger)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	recordRepo := recordRedis.NewRepo(rc, 24*14*time.Hour)
	sessionRepo := sessionInmemory.NewRepo(24 * time.Hour)
	roomService := room.NewService(recordRepo, sessionRepo)
	syncCfg := playback.Config{
		ProgressDebounce: time.Duration(cfg.ProgressDebounceMs) * time.Millisecond,
		WriteCooldown:    time.Duration(cfg.WriteCooldownMs) * time.Millisecond,
		SeekTolerance:    time.Duration(cfg.SeekToleranceMs) * time.Millisecond,
	}
	controller := controller.NewController(roomService, recordRepo, syncCfg, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
