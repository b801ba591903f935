package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	level  = new(slog.LevelVar)
	output = &switchWriter{w: os.Stdout}
)

// Logger returns the logger singleton
var Logger = sync.OnceValue(func() *slog.Logger {
	baseHandler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})

	return slog.New(&utcHandler{handler: baseHandler})
})

// SetLevel changes the minimum level of the logger singleton.
// Accepted names are debug, info, warn and error.
func SetLevel(name string) error {
	var l slog.Level

	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}

	level.Set(l)

	return nil
}

// SetOutput redirects the logger singleton to w.
// The returned function restores the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	output.mu.Lock()
	defer output.mu.Unlock()

	prev := output.w
	output.w = w

	return func() {
		output.mu.Lock()
		defer output.mu.Unlock()

		output.w = prev
	}
}

// switchWriter serializes writes to a replaceable writer
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

// utcHandler writes record times in UTC with second precision
type utcHandler struct {
	handler slog.Handler
}

func (h *utcHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *utcHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Time = r.Time.UTC().Truncate(time.Second)
	return h.handler.Handle(ctx, r)
}

func (h *utcHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &utcHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *utcHandler) WithGroup(name string) slog.Handler {
	return &utcHandler{handler: h.handler.WithGroup(name)}
}
