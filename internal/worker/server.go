package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const concurrency = 4

// Server runs finalize retries pulled from the queue.
type Server struct {
	logger *slog.Logger
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(logger *slog.Logger, opt asynq.RedisClientOpt, queue string, handler *FinalizeHandler) *Server {
	log := logger.With("component", "worker_server")

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      newLogAdapter(log),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Error("task failed", "task_type", task.Type(), "retry", retry, "max_retry", maxRetry, "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeStatsFinalize, handler)

	return &Server{
		logger: log,
		server: server,
		mux:    mux,
	}
}

// Start launches the processors and returns once they are running.
func (that *Server) Start() error {
	that.logger.Info("worker server starting")

	if err := that.server.Start(that.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown() {
	that.server.Shutdown()
	that.logger.Info("worker server stopped")
}
