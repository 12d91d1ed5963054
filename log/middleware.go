package log

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/seenhealth/hccinfhir/hcc/servicemux"
)

// https://github.com/go-chi/chi/blob/master/_examples/logging/main.go

// NewStructuredLogger returns a chi request logger writing request start and
// completion lines through the Request logger.
func NewStructuredLogger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&StructuredLogger{Logger: Request})
}

type StructuredLogger struct {
	Logger logrus.FieldLogger
}

func (l *StructuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	scheme := "http"
	if servicemux.IsHTTPS(r) {
		scheme = "https"
	}

	fields := logrus.Fields{
		"ts":            time.Now().UTC().Format(time.RFC1123),
		"http_scheme":   scheme,
		"http_proto":    r.Proto,
		"http_method":   r.Method,
		"remote_addr":   r.RemoteAddr,
		"forwarded_for": r.Header.Get("X-Forwarded-For"),
		"user_agent":    r.UserAgent(),
		"uri":           fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI),
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields["req_id"] = reqID
	}

	entry := &StructuredLoggerEntry{Logger: l.Logger.WithFields(fields)}
	entry.Logger.Infoln("request started")
	return entry
}

type StructuredLoggerEntry struct {
	Logger logrus.FieldLogger
}

func (l *StructuredLoggerEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	l.Logger = l.Logger.WithFields(logrus.Fields{
		"resp_status":       status,
		"resp_bytes_length": bytes,
		"resp_elapsed_ms":   float64(elapsed.Nanoseconds()) / 1000000.0,
	})
	l.Logger.Infoln("request complete")
}

func (l *StructuredLoggerEntry) Panic(v interface{}, stack []byte) {
	l.Logger = l.Logger.WithFields(logrus.Fields{
		"panic": fmt.Sprintf("%+v", v),
		"stack": string(stack),
	})
}

// NewCtxLogger stores a request-scoped logger in the context, seeded with the
// request id, so downstream packages can enrich it through SetLoggerFields.
func NewCtxLogger(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		entry := &StructuredLoggerEntry{Logger: API.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
		})}
		ctx := context.WithValue(r.Context(), CtxLoggerKey, entry)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}
