package worker

import (
	"fmt"
	"log/slog"
	"os"
)

// logAdapter routes asynq's internal logging into slog.
type logAdapter struct {
	logger *slog.Logger
}

func newLogAdapter(logger *slog.Logger) *logAdapter {
	return &logAdapter{logger: logger}
}

func (that *logAdapter) Debug(args ...any) { that.logger.Debug(fmt.Sprint(args...)) }
func (that *logAdapter) Info(args ...any)  { that.logger.Info(fmt.Sprint(args...)) }
func (that *logAdapter) Warn(args ...any)  { that.logger.Warn(fmt.Sprint(args...)) }
func (that *logAdapter) Error(args ...any) { that.logger.Error(fmt.Sprint(args...)) }

func (that *logAdapter) Fatal(args ...any) {
	that.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
