package conf

/*
   Package conf wraps viper for the hccinfhir services. Configuration is
   resolved in two layers: a local env-format config file when one is found
   (local development, test fixtures), and process environment variables
   everywhere else. Values read from the environment are cached into the
   in-memory store so repeated lookups avoid OS calls.

   Assumptions:
   1. The configuration file is an env file named local.env.
   2. Once loaded, the file contents stay immutable for the lifetime of the
   process (tests are the exception and go through SetEnv/UnsetEnv).
*/

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type config struct {
	viper  *viper.Viper
	gopath string
}

// Only made accessible through the public functions below.
var envVars config

// State machine tracking whether a config file was found and parsed.
const (
	configgood uint8 = iota
	configbad
	noconfigfound
)

var state = configgood

// setup points a fresh viper instance at dir and parses dir/local.env.
func setup(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		state = configbad
	}

	return v
}

func init() {
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		gopath = os.Getenv("HOME") + "/go"
	}

	// Possible config file locations: an operator-supplied directory and the
	// container image layout, in that order.
	locations := []string{
		os.Getenv("HCCINFHIR_CONFIG_DIR"),
		gopath + "/src/github.com/seenhealth/hccinfhir/shared_files/decrypted",
	}

	if success, loc := findEnv(locations); success {
		envVars = config{viper: setup(loc), gopath: gopath}
	} else {
		envVars = config{gopath: gopath}
		state = noconfigfound
	}
}

// findEnv walks the candidate locations and reports the first one holding a
// local.env file.
func findEnv(location []string) (bool, string) {
	if len(location) == 0 {
		return false, ""
	}

	if location[0] != "" {
		if _, err := os.Stat(location[0] + "/local.env"); err == nil {
			return true, location[0]
		}
	}

	return findEnv(location[1:])
}

// cache stores a key/value pair in the in-memory config so later lookups skip
// the OS. Only meaningful while a config file is loaded.
func cache(key, value string) {
	if state == configgood && envVars.viper != nil {
		envVars.viper.Set(key, value)
	}
}

// GetEnv retrieves the value stored in conf for key. If the key exists in
// neither the config file nor the environment, the empty string is returned.
func GetEnv(key string) string {
	if state == configgood && envVars.viper != nil {
		value := envVars.viper.GetString(key)

		// Keys missing from the config file may still exist in the
		// environment. Copy them over so UnsetEnv can clear both.
		if value == "" {
			if v, ok := os.LookupEnv(key); ok {
				cache(key, v)
				value = v
			}
		}

		return value
	}

	return os.Getenv(key)
}

// LookupEnv augments os.LookupEnv to consult the in-memory config first.
func LookupEnv(key string) (string, bool) {
	if state == configgood && envVars.viper != nil {
		if value := envVars.viper.Get(key); value != nil && value != "" {
			return value.(string), true
		}

		if v, ok := os.LookupEnv(key); ok {
			cache(key, v)
			return v, true
		}

		return "", false
	}

	return os.LookupEnv(key)
}

// SetEnv adds a key/value pair to conf. The protect parameter is *testing.T
// so callers knowingly restrict use to tests (and this package).
func SetEnv(protect *testing.T, key string, value string) error {
	var err error

	if state == configgood && envVars.viper != nil {
		envVars.viper.Set(key, value)
	} else {
		err = os.Setenv(key, value)
	}

	return err
}

// UnsetEnv removes a variable from conf and from the process environment.
// Like SetEnv, it should only be used in tests.
func UnsetEnv(protect *testing.T, key string) error {
	if state == configgood && envVars.viper != nil {
		envVars.viper.Set(key, "")
	}

	// The variable may have been cached from the environment by GetEnv, so
	// clear it there too.
	return os.Unsetenv(key)
}

// Checkout copies configuration values into the value provided by the caller.
// A pointer to a struct has each settable field filled from the key named by
// its `conf` tag (field name when untagged, `conf:"-"` skips the field, and
// `conf_default` supplies the value when the key is unset). A slice of
// strings has each element replaced by the value of the key it names.
func Checkout(v interface{}) error {
	val := reflect.ValueOf(v)

	switch val.Kind() {
	case reflect.Ptr:
		ref := val.Elem()
		if ref.Kind() != reflect.Struct {
			return errors.New("Checkout: pointer must reference a struct")
		}
		return checkoutStruct(ref)
	case reflect.Slice:
		keys, ok := v.([]string)
		if !ok {
			return errors.New("Checkout: slice must be a []string of keys")
		}
		for i, key := range keys {
			keys[i] = GetEnv(key)
		}
		return nil
	default:
		return errors.New("Checkout: accepts a struct pointer or a []string")
	}
}

func checkoutStruct(ref reflect.Value) error {
	structType := ref.Type()

	for i := 0; i < ref.NumField(); i++ {
		field := ref.Field(i)
		info := structType.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := checkoutStruct(field); err != nil {
				return err
			}
			continue
		}

		key := info.Tag.Get("conf")
		if key == "-" {
			continue
		}
		if key == "" {
			key = info.Name
		}

		value, found := LookupEnv(key)
		if !found || value == "" {
			value = info.Tag.Get("conf_default")
		}
		if value == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "Checkout: invalid integer %q for %s", value, key)
			}
			field.SetInt(n)
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return errors.Wrapf(err, "Checkout: invalid boolean %q for %s", value, key)
			}
			field.SetBool(b)
		case reflect.Float64:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return errors.Wrapf(err, "Checkout: invalid float %q for %s", value, key)
			}
			field.SetFloat(f)
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(strings.Split(value, ",")))
			}
		}
	}

	return nil
}
