package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/config"
	"github.com/rocketscienceinc/damas-backend/internal/msgcat"
	"github.com/rocketscienceinc/damas-backend/internal/notifier"
	"github.com/rocketscienceinc/damas-backend/internal/repository"
	"github.com/rocketscienceinc/damas-backend/internal/repository/storage"
	"github.com/rocketscienceinc/damas-backend/internal/service"
	"github.com/rocketscienceinc/damas-backend/internal/usecase"
	"github.com/rocketscienceinc/damas-backend/transport/rest"
	"github.com/rocketscienceinc/damas-backend/transport/websocket"
)

const webhookQueueSize = 256

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *zap.Logger, conf *config.Config) error {
	log := logger.With(zap.String("component", "app"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", zap.Error(err))
		}
	}()

	sqlStorage, err := storage.NewSQLStorage(ctx, conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		return fmt.Errorf("could not connect to sql storage: %w", err)
	}

	defer func() {
		if err = sqlStorage.Close(); err != nil {
			log.Error("could not close sql storage", zap.Error(err))
		}
	}()

	if err = sqlStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sql schema: %w", err)
	}

	messages, err := msgcat.New(conf.MessagesDir)
	if err != nil {
		return fmt.Errorf("could not load messages: %w", err)
	}

	authService, err := service.NewAuthService(conf.JWTSecretKey, conf.TokenTTL)
	if err != nil {
		return fmt.Errorf("could not create auth service: %w", err)
	}

	// the redis publish stays synchronous so subscribers see snapshots in version order
	notifiers := notifier.Fanout{notifier.NewRedisPublisher(redisStorage.Connection)}
	if conf.Webhook.URL != "" {
		log.Info("Match webhook enabled", zap.String("url", conf.Webhook.URL))

		webhook := notifier.NewAsync(logger, notifier.NewWebhook(conf.Webhook.URL, conf.Webhook.Timeout), webhookQueueSize)
		defer webhook.Close()

		notifiers = append(notifiers, webhook)
	}

	userRepo := repository.NewUserRepository(sqlStorage)
	matchRepo := repository.NewMatchRepository(redisStorage.Connection)

	matchManager := usecase.NewMatchManager(logger, matchRepo, userRepo, notifiers, usecase.MatchOptions{
		DefaultTimeLimit: conf.Game.DefaultTimeLimit,
		WinScore:         conf.Game.WinScore,
	})
	userUseCase := usecase.NewUserUseCase(userRepo)

	handlers := rest.NewHandlers(logger, matchManager, userUseCase, authService, messages)
	routes := handlers.Routes(
		func(ctx context.Context) error { return redisStorage.Connection.Ping(ctx).Err() },
		func(ctx context.Context) error { return sqlStorage.Connection.PingContext(ctx) },
	)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("port", conf.HTTPPort))
		if httpErr := rest.Start(ctx, conf.HTTPPort, routes); httpErr != nil {
			log.Error("HTTP server error", zap.Error(httpErr))
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", zap.String("port", conf.SocketPort))
		wsServer := websocket.New(logger, matchManager, authService, notifier.NewRedisSubscriber(logger, redisStorage.Connection), messages)
		wsServer.OriginPatterns = conf.AllowedOrigins
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", zap.Error(wsErr))
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
