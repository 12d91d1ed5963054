package log

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/seenhealth/hccinfhir/conf"
	"github.com/seenhealth/hccinfhir/hcc/constants"
	"github.com/sirupsen/logrus"
)

var (
	API     logrus.FieldLogger
	Request logrus.FieldLogger

	Engine  logrus.FieldLogger
	Tables  logrus.FieldLogger
	Extract logrus.FieldLogger
	Batch   logrus.FieldLogger
)

func init() {
	SetupLoggers()
}

// SetupLoggers builds every package logger from the current configuration.
// Called once at package load and again by tests after redirecting log
// destinations.
func SetupLoggers() {
	API = Logger(logrus.New(), conf.GetEnv("HCC_ERROR_LOG"), "api", "error")
	Request = Logger(logrus.New(), conf.GetEnv("HCC_REQUEST_LOG"), "api", "request")

	Engine = Logger(logrus.New(), conf.GetEnv("HCC_ENGINE_LOG"), "engine", "engine")
	Tables = Logger(logrus.New(), conf.GetEnv("HCC_TABLES_LOG"), "engine", "tables")
	Extract = Logger(logrus.New(), conf.GetEnv("HCC_EXTRACT_LOG"), "engine", "extract")
	Batch = Logger(logrus.New(), conf.GetEnv("HCC_BATCH_LOG"), "batch", "batch")
}

// Logger configures the supplied logger to write JSON entries to outputFile
// (stderr when unset or unopenable) and returns it with the standard fields
// attached.
func Logger(logger *logrus.Logger, outputFile string,
	application, logType string) logrus.FieldLogger {

	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"log_type":    logType,
		"environment": conf.GetEnv("DEPLOYMENT_TARGET"),
		"version":     constants.Version,
		"source_app":  "hccinfhir"})
}

// defaultFieldLogger is the fallback used when a context carries no logger.
func defaultFieldLogger(logType string) logrus.FieldLogger {
	return Logger(logrus.New(), "", "default", logType)
}

type CtxLoggerKeyType string

// CtxLoggerKey is the context key under which the request middleware stores
// its *StructuredLoggerEntry.
const CtxLoggerKey CtxLoggerKeyType = "ctxLogger"

// GetCtxLogger returns the logger stored in ctx by the request middleware.
// Contexts without one (CLI paths, tests) get the API logger.
func GetCtxLogger(ctx context.Context) logrus.FieldLogger {
	if entry, ok := ctx.Value(CtxLoggerKey).(*StructuredLoggerEntry); ok {
		return entry.Logger
	}
	return API
}

// SetLoggerFields attaches fields to the context logger and stores the
// result back in the context so later handlers see them too.
func SetLoggerFields(ctx context.Context, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	entry := &StructuredLoggerEntry{Logger: GetCtxLogger(ctx).WithFields(fields)}
	return context.WithValue(ctx, CtxLoggerKey, entry), entry.Logger
}

// WriteErrorWithFields logs msg at error level with the given fields and
// returns a context carrying the enriched logger.
func WriteErrorWithFields(ctx context.Context, msg string, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	ctx, logger := SetLoggerFields(ctx, fields)
	logger.Error(msg)
	return ctx, logger
}

// WriteWarnWithFields logs msg at warn level with the given fields and
// returns a context carrying the enriched logger.
func WriteWarnWithFields(ctx context.Context, msg string, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	ctx, logger := SetLoggerFields(ctx, fields)
	logger.Warn(msg)
	return ctx, logger
}

// WriteInfoWithFields logs msg at info level with the given fields and
// returns a context carrying the enriched logger.
func WriteInfoWithFields(ctx context.Context, msg string, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	ctx, logger := SetLoggerFields(ctx, fields)
	logger.Info(msg)
	return ctx, logger
}
