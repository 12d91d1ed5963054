package testUtils

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// GetLogger returns the underlying implementation of the field logger, so
// tests can attach logrus test hooks to it.
func GetLogger(logger logrus.FieldLogger) *logrus.Logger {
	if entry, ok := logger.(*logrus.Entry); ok {
		return entry.Logger
	}
	return logger.(*logrus.Logger)
}

// RandomMRN returns a record number in the M-prefixed shape the synthetic
// cohorts use, unique enough for concurrent tests.
func RandomMRN(t *testing.T) string {
	b := make([]byte, 4)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return "M" + hex.EncodeToString(b)
}

// CopyToTemporaryDirectory copies everything under src into a fresh temporary
// directory and returns its path. Removal is registered on t.
func CopyToTemporaryDirectory(t *testing.T, src string) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	require.NoError(t, copy.Copy(src, dir))
	return dir
}
