package log

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenhealth/hccinfhir/conf"
	"github.com/seenhealth/hccinfhir/hcc/constants"
	"github.com/seenhealth/hccinfhir/hcc/testUtils"
)

// TestSetupLoggers redirects each package logger to a temp file and checks
// the JSON entry it writes carries the standard fields.
func TestSetupLoggers(t *testing.T) {
	deployment := uuid.New()
	conf.SetEnv(t, "DEPLOYMENT_TARGET", deployment)

	loggers := []struct {
		env         string
		application string
		logType     string
		// Suppliers, not values: SetupLoggers rebinds the package vars.
		current func() logrus.FieldLogger
	}{
		{"HCC_ERROR_LOG", "api", "error", func() logrus.FieldLogger { return API }},
		{"HCC_REQUEST_LOG", "api", "request", func() logrus.FieldLogger { return Request }},
		{"HCC_ENGINE_LOG", "engine", "engine", func() logrus.FieldLogger { return Engine }},
		{"HCC_TABLES_LOG", "engine", "tables", func() logrus.FieldLogger { return Tables }},
		{"HCC_EXTRACT_LOG", "engine", "extract", func() logrus.FieldLogger { return Extract }},
		{"HCC_BATCH_LOG", "batch", "batch", func() logrus.FieldLogger { return Batch }},
	}
	for _, lt := range loggers {
		t.Run(lt.env, func(t *testing.T) {
			out, err := os.CreateTemp("", "*.log")
			require.NoError(t, err)
			prev := conf.GetEnv(lt.env)
			t.Cleanup(func() {
				assert.NoError(t, os.Remove(out.Name()))
				assert.NoError(t, conf.SetEnv(t, lt.env, prev))
			})
			require.NoError(t, conf.SetEnv(t, lt.env, out.Name()))

			SetupLoggers()
			marker := uuid.New()
			lt.current().Info(marker)

			raw, err := io.ReadAll(out)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
			require.Len(t, lines, 1)

			var entry logrus.Fields
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
			assert.Equal(t, marker, entry["msg"])
			assert.Equal(t, lt.application, entry["application"])
			assert.Equal(t, lt.logType, entry["log_type"])
			assert.Equal(t, deployment, entry["environment"])
			assert.Equal(t, constants.Version, entry["version"])
			assert.Equal(t, "hccinfhir", entry["source_app"])
			_, err = time.Parse(time.RFC3339Nano, entry["time"].(string))
			assert.NoError(t, err)
		})
	}
}

func TestDefaultFieldLogger(t *testing.T) {
	logger := defaultFieldLogger("scoring")
	hook := test.NewLocal(testUtils.GetLogger(logger))

	marker := uuid.New()
	logger.Info(marker)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, marker, entry.Message)
	assert.Equal(t, "default", entry.Data["application"])
	assert.Equal(t, "scoring", entry.Data["log_type"])
	assert.Equal(t, conf.GetEnv("DEPLOYMENT_TARGET"), entry.Data["environment"])
	assert.Equal(t, constants.Version, entry.Data["version"])
}

func TestSetLoggerFields(t *testing.T) {
	scoped := defaultFieldLogger("scoring")
	hook := test.NewLocal(testUtils.GetLogger(scoped))
	ctx := context.WithValue(context.Background(), CtxLoggerKey,
		&StructuredLoggerEntry{Logger: scoped})

	_, logger := SetLoggerFields(ctx, logrus.Fields{"request_id": "req-42", "mrn": "M0001"})
	logger.WithField("model", "CMS-HCC Model V28").Error("score failed")

	entry := hook.LastEntry()
	assert.Equal(t, "score failed", entry.Message)
	assert.Equal(t, "req-42", entry.Data["request_id"])
	assert.Equal(t, "M0001", entry.Data["mrn"])
	assert.Equal(t, "CMS-HCC Model V28", entry.Data["model"])
}

func TestWriteWithFields(t *testing.T) {
	tests := []struct {
		name  string
		write func(context.Context, string, logrus.Fields) (context.Context, logrus.FieldLogger)
		level logrus.Level
	}{
		{"error", WriteErrorWithFields, logrus.ErrorLevel},
		{"warn", WriteWarnWithFields, logrus.WarnLevel},
		{"info", WriteInfoWithFields, logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scoped := defaultFieldLogger("scoring")
			hook := test.NewLocal(testUtils.GetLogger(scoped))
			ctx := context.WithValue(context.Background(), CtxLoggerKey,
				&StructuredLoggerEntry{Logger: scoped})

			ctx, logger := tt.write(ctx, "member scored", logrus.Fields{"mrn": "M0001", "rows": 2})

			entry := hook.LastEntry()
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "member scored", entry.Message)
			assert.Equal(t, "M0001", entry.Data["mrn"])
			assert.Equal(t, 2, entry.Data["rows"])

			// Fields stick to the returned logger and to the one in ctx.
			logger.Error("follow-up")
			assert.Equal(t, "M0001", hook.LastEntry().Data["mrn"])

			GetCtxLogger(ctx).Error("ctx follow-up")
			assert.Equal(t, "M0001", hook.LastEntry().Data["mrn"])
		})
	}
}
