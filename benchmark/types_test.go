package benchmark

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/danpasecinic/detour"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config
	Logger *Logger
	closed atomic.Int32
}

func (d *Database) Close() error {
	d.closed.Add(1)
	return nil
}

func newRuntime(b *testing.B) *detour.Runtime {
	b.Helper()
	rt := detour.New(detour.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	b.Cleanup(
		func() {
			_ = rt.Close()
		},
	)
	return rt
}
