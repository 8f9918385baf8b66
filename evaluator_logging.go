package reactive

import (
	"time"

	"go.uber.org/zap"
)

// EvaluatorLogEvent describes a guard evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Watch    string
	Duration time.Duration
	Result   any
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// ZapEvaluatorLogger writes evaluations at debug level and failures at warn.
func ZapEvaluatorLogger(logger *zap.Logger) EvaluatorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		fields := []zap.Field{
			zap.String("engine", event.Engine),
			zap.String("expr", event.Expr),
			zap.String("watch", event.Watch),
			zap.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			logger.Warn("reactive: guard evaluation failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("reactive: guard evaluated", append(fields, zap.Any("result", event.Result))...)
	})
}

// WithEvaluatorLogger replaces the zap backed evaluator logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *hubConfig) {
		cfg.evaluatorLogger = logger
	}
}
