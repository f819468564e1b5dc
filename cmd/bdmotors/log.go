package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// levelRouter sends records below ERROR to one handler and the rest to another.
type levelRouter struct {
	info slog.Handler
	errs slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.errs.Handle(ctx, r)
	}
	return lr.info.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{info: lr.info.WithAttrs(attrs), errs: lr.errs.WithAttrs(attrs)}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{info: lr.info.WithGroup(name), errs: lr.errs.WithGroup(name)}
}

func newLevelRouter(infoW, errorW io.Writer) *levelRouter {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	return &levelRouter{
		info: slog.NewTextHandler(infoW, opts),
		errs: slog.NewTextHandler(errorW, opts),
	}
}

// setupLogger installs the default logger: INFO/WARN to stdout, ERROR to
// stderr, and everything to logPath as well when it is set. The returned
// cleanup closes the log file and is nil when there is none.
func setupLogger(logPath string) (func(), error) {
	infoW := io.Writer(os.Stdout)
	errorW := io.Writer(os.Stderr)

	var cleanup func()
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		infoW = io.MultiWriter(os.Stdout, f)
		errorW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(newLevelRouter(infoW, errorW)))
	return cleanup, nil
}
