package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/lock"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/memory"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/session"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/worker"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

type finalizeQueue interface {
	EnqueueFinalize(ctx context.Context, roomID string) error
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	var (
		rooms    repository.RoomRepository = memory.NewRoomRepository()
		users    repository.UserRepository = memory.NewUserRepository()
		locker   lock.Locker               = lock.NewLocal()
		queue    finalizeQueue
		redisOpt asynq.RedisClientOpt
		client   *redis.Client
	)

	if conf.Storage.Backend == config.BackendRedis {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		var err error
		client, err = storage.NewRedisStorage(ctx, storage.RedisOptions{
			Addr:     redisAddrString,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = client.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		rooms = repository.NewRoomRepository(client)
		redisOpt = asynq.RedisClientOpt{Addr: redisAddrString, Password: conf.Redis.Password, DB: conf.Redis.DB}

		asynqQueue := worker.NewQueue(redisOpt, conf.Finalize.Queue, conf.Finalize.MaxRetry)
		defer func() {
			if err = asynqQueue.Close(); err != nil {
				log.Error("could not close finalize queue", "error", err)
			}
		}()

		queue = asynqQueue
	}

	if conf.Lock.Backend == config.BackendRedis {
		locker = lock.NewRedis(logger, client, conf.Lock.TTL, conf.Lock.RetryInterval)
	}

	if conf.Postgres.URL != "" {
		if err := storage.Migrate(logger, conf.Postgres.URL); err != nil {
			return fmt.Errorf("could not migrate postgres: %w", err)
		}

		pool, err := storage.NewPostgresStorage(ctx, conf.Postgres.URL)
		if err != nil {
			return fmt.Errorf("could not connect to postgres storage: %w", err)
		}
		defer pool.Close()

		users = repository.NewUserRepository(pool)
	}

	coordinator := broadcast.NewCoordinator(logger)
	sessions := session.NewRegistry()
	finalizer := usecase.NewStatsFinalizer(logger, users)
	roomManager := usecase.NewRoomManager(logger, rooms, users, finalizer, locker, coordinator, queue, conf.Room.OperationTimeout)
	userService := usecase.NewUserService(logger, users)

	if queue != nil {
		workerServer := worker.NewServer(logger, redisOpt, conf.Finalize.Queue, worker.NewFinalizeHandler(logger, roomManager))
		if err := workerServer.Start(); err != nil {
			return err
		}
		defer workerServer.Shutdown()
	} else {
		log.Warn("finalize queue disabled, failed finalizations wait for the next retry on the same room")
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := rest.New(logger, roomManager, userService, conf.CORS.AllowedOrigin)
	wsServer := websocket.New(logger, roomManager, coordinator, sessions, websocket.Options{
		SendBuffer:    conf.WebSocket.SendBuffer,
		PingInterval:  conf.WebSocket.PingInterval,
		PongWait:      conf.WebSocket.PongWait,
		AllowedOrigin: conf.CORS.AllowedOrigin,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := httpServer.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	var runErr error
	select {
	case err := <-httpErrCh:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		runErr = fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("could not shut down HTTP server", "error", err)
	}

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("could not shut down WebSocket server", "error", err)
	}

	return runErr
}
