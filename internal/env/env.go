// Package env provides type-safe environment variable parsing with validation.
package env

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

var (
	// ErrMissing indicates a required environment variable was not set.
	ErrMissing = errors.New("environment variable missing")
	// ErrParsing indicates an environment variable could not be parsed.
	ErrParsing = errors.New("environment variable parsing failed")
)

// Error represents an environment variable error with the variable name.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("environment variable %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Get retrieves an environment variable with a default value.
// An unset variable yields the default; a set but invalid one is an error,
// so a typo in a tuning knob does not silently fall back.
func Get[T any](key string, defaultValue T, parser func(string) (T, error)) (T, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}

	parsed, err := parser(value)
	if err != nil {
		return defaultValue, &Error{Key: key, Err: errors.Join(ErrParsing, err)}
	}
	return parsed, nil
}

// GetRequired retrieves a required environment variable.
// Returns an error if the variable is not set or parsing fails.
func GetRequired[T any](key string, parser func(string) (T, error)) (T, error) {
	var zero T

	value, ok := os.LookupEnv(key)
	if !ok {
		return zero, &Error{Key: key, Err: ErrMissing}
	}

	parsed, err := parser(value)
	if err != nil {
		return zero, &Error{Key: key, Err: errors.Join(ErrParsing, err)}
	}
	return parsed, nil
}

// ParseString returns the input string as-is without validation.
func ParseString(s string) (string, error) {
	return s, nil
}

// ParseNonEmptyString validates that the input string is not empty.
func ParseNonEmptyString(s string) (string, error) {
	if s == "" {
		return "", errors.New("empty string not allowed")
	}
	return s, nil
}

// ParsePositiveInt parses a base-10 integer greater than zero.
func ParsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

// ParsePositiveFloat parses a float64 greater than zero.
func ParsePositiveFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("%g is not positive", f)
	}
	return f, nil
}

// ParseDuration parses a string as a time.Duration (e.g., "30s", "5m").
func ParseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

// ParsePositiveDuration parses a time.Duration greater than zero.
func ParsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s is not positive", d)
	}
	return d, nil
}

// ParseHTTPURL validates an absolute http or https URL.
func ParseHTTPURL(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("host is empty")
	}
	return s, nil
}
