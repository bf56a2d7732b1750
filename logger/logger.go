package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout, slog.LevelDebug)
}

// NewWithWriter writes JSON records of at least level to w.
func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// Discard returns a logger that drops everything (tests).
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard, slog.LevelError+1)
}

func (l *Logger) base(action string) []slog.Attr {
	return []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
	}
}

func (l *Logger) log(level slog.Level, action, message string, extra []slog.Attr, args []any) {
	attrs := append(l.base(action), extra...)
	attrs = append(attrs, argsToAttrs(args)...)
	l.handler.LogAttrs(context.TODO(), level, message, attrs...)
}

// Info logs message with key/value pairs in args.
func (l *Logger) Info(action, message string, args ...any) {
	l.log(slog.LevelInfo, action, message, nil, args)
}

func (l *Logger) Debug(action, message string, args ...any) {
	l.log(slog.LevelDebug, action, message, nil, args)
}

func (l *Logger) Warn(action, message string, args ...any) {
	l.log(slog.LevelWarn, action, message, nil, args)
}

func (l *Logger) Error(action, message string, err error, args ...any) {
	var extra []slog.Attr
	if err != nil {
		extra = append(extra, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.log(slog.LevelError, action, message, extra, args)
}

func argsToAttrs(args []any) []slog.Attr {
	var attrs []slog.Attr
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}
