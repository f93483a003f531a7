// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
)

// ParseString reads a string from an environment variable or returns
// the default. The chosen source is logged; values under keys that look
// sensitive are never logged verbatim.
func ParseString(key, defaultValue string) string {
	logger := xglog.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "secret") {
		logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
	} else {
		logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	}
	return v
}

// ParseInt reads an integer from an environment variable, falling back
// to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := xglog.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return i
}

// ParseBool reads a boolean from an environment variable. It accepts
// "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := xglog.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		logger.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// ParseDuration reads a Go duration (e.g. "5s") from an environment
// variable, falling back to the default on parse errors.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := xglog.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return d
}

// ParseFloat reads a float64 from an environment variable, falling back
// to the default on parse errors.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := xglog.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	return f
}
