package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// PlainStyledLogger implements StyledLogger without ANSI styling, for
// non-tty output (piped, redirected, NO_COLOR) or JSON mode.
type PlainStyledLogger struct {
	logger *slog.Logger
}

func NewPlainStyledLogger(logger *slog.Logger) *PlainStyledLogger {
	return &PlainStyledLogger{logger: logger}
}

func (sl *PlainStyledLogger) Debug(msg string, args ...any) { sl.logger.Debug(msg, args...) }
func (sl *PlainStyledLogger) Info(msg string, args ...any)  { sl.logger.Info(msg, args...) }
func (sl *PlainStyledLogger) Warn(msg string, args ...any)  { sl.logger.Warn(msg, args...) }
func (sl *PlainStyledLogger) Error(msg string, args ...any) { sl.logger.Error(msg, args...) }

func (sl *PlainStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s (%d)", msg, count), args...)
}

func (sl *PlainStyledLogger) InfoWithOrigin(msg string, origin string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, origin), args...)
}

func (sl *PlainStyledLogger) WarnWithOrigin(msg string, origin string, args ...any) {
	sl.logger.Warn(fmt.Sprintf("%s %s", msg, origin), args...)
}

func (sl *PlainStyledLogger) ErrorWithOrigin(msg string, origin string, args ...any) {
	sl.logger.Error(fmt.Sprintf("%s %s", msg, origin), args...)
}

func (sl *PlainStyledLogger) InfoWithPoolKey(msg string, poolKey string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, poolKey), args...)
}

func (sl *PlainStyledLogger) InfoWithRetry(msg string, category string, attempt int, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s attempt=%d", msg, category, attempt), args...)
}

func (sl *PlainStyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	formatted := make([]string, len(numbers))
	for i, n := range numbers {
		formatted[i] = fmt.Sprintf("%d", n)
	}
	sl.logger.Info(fmt.Sprintf(msg, toInterfaceSlice(formatted)...))
}

func (sl *PlainStyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

func (sl *PlainStyledLogger) WithRequestID(requestID string) StyledLogger {
	return sl.With("request_id", requestID)
}

func (sl *PlainStyledLogger) WithAttrs(attrs ...slog.Attr) StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	return &PlainStyledLogger{logger: sl.logger.With(args...)}
}

func (sl *PlainStyledLogger) With(args ...any) StyledLogger {
	return &PlainStyledLogger{logger: sl.logger.With(args...)}
}

func (sl *PlainStyledLogger) InfoWithContext(msg string, origin string, ctx LogContext) {
	sl.logWithContext(LogLevelInfo, msg, origin, ctx)
}

func (sl *PlainStyledLogger) WarnWithContext(msg string, origin string, ctx LogContext) {
	sl.logWithContext(LogLevelWarn, msg, origin, ctx)
}

func (sl *PlainStyledLogger) ErrorWithContext(msg string, origin string, ctx LogContext) {
	sl.logWithContext(LogLevelError, msg, origin, ctx)
}

func (sl *PlainStyledLogger) logWithContext(level string, msg string, origin string, ctx LogContext) {
	styledMsg := fmt.Sprintf("%s %s", msg, origin)

	switch level {
	case LogLevelInfo:
		sl.logger.Info(styledMsg, ctx.UserArgs...)
	case LogLevelWarn:
		sl.logger.Warn(styledMsg, ctx.UserArgs...)
	case LogLevelError:
		sl.logger.Error(styledMsg, ctx.UserArgs...)
	}

	if len(ctx.DetailedArgs) > 0 {
		allArgs := make([]any, 0, len(ctx.UserArgs)+len(ctx.DetailedArgs)+2)
		allArgs = append(allArgs, "origin", origin)
		allArgs = append(allArgs, ctx.UserArgs...)
		allArgs = append(allArgs, ctx.DetailedArgs...)

		detailedCtx := context.WithValue(context.Background(), DefaultDetailedCookie, true)

		switch level {
		case LogLevelInfo:
			sl.logger.InfoContext(detailedCtx, msg, allArgs...)
		case LogLevelWarn:
			sl.logger.WarnContext(detailedCtx, msg, allArgs...)
		case LogLevelError:
			sl.logger.ErrorContext(detailedCtx, msg, allArgs...)
		}
	}
}
