// Package logger wraps a process-wide logrus logger with cluster and cycle
// scoped helpers.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	cycleIDKey contextKey = "cycle_id"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}

// Setup applies the configured level. Development mode switches to a human
// readable text formatter; every other mode keeps JSON.
func Setup(level, mode string) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}
	log.SetLevel(parsedLevel)

	if mode == "development" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithCycleID tags a context with the id of one poll cycle.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey, cycleID)
}

func CycleIDFromContext(ctx context.Context) string {
	if cycleID, ok := ctx.Value(cycleIDKey).(string); ok {
		return cycleID
	}
	return ""
}

// FromContext returns an entry carrying whichever trace and cycle ids the
// context holds.
func FromContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		fields["trace_id"] = traceID
	}
	if cycleID := CycleIDFromContext(ctx); cycleID != "" {
		fields["cycle_id"] = cycleID
	}
	return log.WithFields(fields)
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}

func WithCluster(clusterID string) *logrus.Entry {
	return log.WithField("cluster_id", clusterID)
}

// WithClusterCtx is WithCluster plus the context's trace and cycle ids.
func WithClusterCtx(ctx context.Context, clusterID string) *logrus.Entry {
	return FromContext(ctx).WithField("cluster_id", clusterID)
}

func WithComponent(component string) *logrus.Entry {
	return log.WithField("component", component)
}

func Debug(msg string) {
	log.Debug(msg)
}

func Info(msg string) {
	log.Info(msg)
}

func Warn(msg string) {
	log.Warn(msg)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}
