package logger

import (
	"log/slog"

	"github.com/relaycore/httpcore/internal/util"
	"github.com/relaycore/httpcore/theme"
)

// StyledLogger is implemented by both the pterm-colourful and the plain
// (non-tty/JSON) logger; NewWithTheme picks the pterm one only when
// PrettyLogs is set and util.ShouldUseColors() holds, so callers never
// branch on terminal capability themselves.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithOrigin(msg string, origin string, args ...any)
	WarnWithOrigin(msg string, origin string, args ...any)
	ErrorWithOrigin(msg string, origin string, args ...any)
	InfoWithPoolKey(msg string, poolKey string, args ...any)
	InfoWithRetry(msg string, category string, attempt int, args ...any)
	InfoWithNumbers(msg string, numbers ...int64)

	GetUnderlying() *slog.Logger
	WithAttrs(attrs ...slog.Attr) StyledLogger
	With(args ...any) StyledLogger
	WithRequestID(requestID string) StyledLogger

	InfoWithContext(msg string, origin string, ctx LogContext)
	WarnWithContext(msg string, origin string, ctx LogContext)
	ErrorWithContext(msg string, origin string, ctx LogContext)
}

// LogContext splits a call's arguments: UserArgs go on the main record,
// and a non-empty DetailedArgs adds a second record carrying origin,
// UserArgs and DetailedArgs. Both records go through the same handlers,
// so the detailed one reaches the console as well as any log file.
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

// NewWithTheme builds both the raw slog.Logger and a theme-aware
// StyledLogger sharing the same handlers.
func NewWithTheme(cfg *Config) (*slog.Logger, StyledLogger, func(), error) {
	l, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := theme.GetTheme(cfg.Theme)

	var styled StyledLogger
	if cfg.PrettyLogs && util.ShouldUseColors() {
		styled = NewPrettyStyledLogger(l, appTheme)
	} else {
		styled = NewPlainStyledLogger(l)
	}

	return l, styled, cleanup, nil
}

func toInterfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
