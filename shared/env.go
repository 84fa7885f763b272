package shared

import (
	"fmt"
	"os"
	"strconv"
)

const Version = "0.1.0"

// EnvParser converts a raw environment value into T.
type EnvParser[T any] func(raw string) (T, error)

func GetenvString(raw string) (string, error) {
	return raw, nil
}

func GetenvInt(raw string) (int, error) {
	return strconv.Atoi(raw)
}

func GetenvBool(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

// Getenv reads and parses an environment variable. An unset or empty
// variable yields the fallback, or ErrEnvMissing when required.
func Getenv[T any](parse EnvParser[T], key string, required bool, fallback T) (T, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		if required {
			var zero T
			return zero, fmt.Errorf("%s: %w", key, ErrEnvMissing)
		}
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, nil
}

// MustGetenv is Getenv for values the process cannot start without.
func MustGetenv[T any](parse EnvParser[T], key string, required bool, fallback T) T {
	v, err := Getenv(parse, key, required, fallback)
	if err != nil {
		panic(err)
	}
	return v
}
