package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvInt(t *testing.T) {
	t.Setenv("API_READ_TIMEOUT", "45")
	t.Setenv("API_IDLE_TIMEOUT", "not-a-number")

	assert.Equal(t, 45, GetEnvInt("API_READ_TIMEOUT", 10))
	assert.Equal(t, 120, GetEnvInt("API_IDLE_TIMEOUT", 120))
	assert.Equal(t, 20, GetEnvInt("API_WRITE_TIMEOUT", 20))
}
