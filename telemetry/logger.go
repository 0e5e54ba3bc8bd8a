package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hollowmap/cartographer/core"
)

// Logger is a component-tagging structured logger implementing
// core.ComponentAwareLogger. It writes JSON lines in production
// (CARTO_LOG_FORMAT=json) and human-readable text otherwise, and rate-limits
// error lines so a misbehaving model provider cannot flood stdout.
type Logger struct {
	level     string
	format    string
	component string
	output    io.Writer
	mu        *sync.Mutex

	errorLimiter *rateLimiter
}

// NewLogger creates a root logger at the given level ("debug", "info",
// "warn", "error") and format ("json" or "text").
func NewLogger(level, format string) *Logger {
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "text"
	}
	return &Logger{
		level:        strings.ToUpper(level),
		format:       format,
		output:       os.Stdout,
		mu:           &sync.Mutex{},
		errorLimiter: newRateLimiter(time.Second),
	}
}

// WithComponent returns a logger that stamps every line with component,
// sharing this logger's level, format, output, and rate limiter.
func (l *Logger) WithComponent(component string) core.Logger {
	return &Logger{
		level:        l.level,
		format:       l.format,
		component:    component,
		output:       l.output,
		mu:           l.mu,
		errorLimiter: l.errorLimiter,
	}
}

// SetOutput redirects log lines; used by tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

func (l *Logger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	if !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("INFO", msg, withTraceFields(ctx, fields))
}
func (l *Logger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("WARN", msg, withTraceFields(ctx, fields))
}
func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, withTraceFields(ctx, fields))
}
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, withTraceFields(ctx, fields))
}

func withTraceFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok && traceID != "" {
		merged := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			merged[k] = v
		}
		merged["trace_id"] = traceID
		return merged
	}
	return fields
}

func (l *Logger) log(level, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}
}

func (l *Logger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"message":   msg,
	}
	if l.component != "" {
		entry["component"] = l.component
	}
	for k, v := range fields {
		entry[k] = v
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *Logger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}

	comp := l.component
	if comp == "" {
		comp = "engine"
	}
	fmt.Fprintf(l.output, "%s [%s] [%s] %s%s\n", timestamp, level, comp, msg, b.String())
}

var logLevels = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

func (l *Logger) shouldLog(level string) bool {
	cur, ok1 := logLevels[l.level]
	msg, ok2 := logLevels[level]
	if !ok1 || !ok2 {
		return true
	}
	return msg >= cur
}

var _ core.ComponentAwareLogger = (*Logger)(nil)
