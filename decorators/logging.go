package decorators

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danpasecinic/detour"
)

// Logging writes one entry when a call starts and one when it returns.
type Logging struct {
	logger *zap.Logger
	level  zapcore.Level
}

type LoggingOption func(*Logging)

func WithLevel(level zapcore.Level) LoggingOption {
	return func(l *Logging) {
		l.level = level
	}
}

func NewLogging(logger *zap.Logger, opts ...LoggingOption) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Logging{logger: logger, level: zapcore.DebugLevel}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logging) String() string {
	return "logging"
}

func (l *Logging) ContextSize() int {
	return 0
}

func (l *Logging) BeforeCall(ctx *detour.CallContext, args []*detour.ArgSlot) bool {
	ce := l.logger.Check(l.level, "call")
	if ce == nil {
		return true
	}

	fields := []zap.Field{zap.String("target", ctx.Target().String())}
	for _, a := range args {
		key := fmt.Sprintf("arg%d", a.Index())
		if c, ok := a.Interface().(context.Context); ok {
			if id := detour.ScopeID(c); id != "" {
				fields = append(fields, zap.String("scope", id))
			}
			continue
		}
		fields = append(fields, zap.Any(key, a.Interface()))
	}
	ce.Write(fields...)
	return true
}

func (l *Logging) AfterCall(ctx *detour.CallContext, results *detour.Results) {
	ce := l.logger.Check(l.level, "return")
	if ce == nil {
		return
	}

	fields := []zap.Field{
		zap.String("target", ctx.Target().String()),
		zap.Bool("vetoed", results.Vetoed()),
	}
	for i := range results.Len() {
		v := results.Interface(i)
		if err, ok := v.(error); ok {
			fields = append(fields, zap.NamedError(fmt.Sprintf("result%d", i), err))
			continue
		}
		fields = append(fields, zap.Any(fmt.Sprintf("result%d", i), v))
	}
	ce.Write(fields...)
}
