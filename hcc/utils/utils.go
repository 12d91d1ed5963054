package utils

import (
	"strconv"

	"github.com/seenhealth/hccinfhir/conf"
)

// GetEnvInt returns the named variable as an int, or defaultVal when it is
// unset or not a number.
func GetEnvInt(varName string, defaultVal int) int {
	if v, err := strconv.Atoi(conf.GetEnv(varName)); err == nil {
		return v
	}
	return defaultVal
}
