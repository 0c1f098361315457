// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/m3uingest/internal/log"
	"github.com/rs/zerolog"
)

// lookupEnv returns the parsed value of key, or def when the variable is
// unset, empty or unparsable. Only malformed values are logged above debug.
func lookupEnv[T any](logger zerolog.Logger, key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", def).
			Str("source", "default").
			Msg("using default value")
		return def
	}
	v, err := parse(raw)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("key", key).
			Str("value", raw).
			Interface("default", def).
			Msg("invalid value in environment variable, using default")
		return def
	}

	evt := logger.Debug().Str("key", key).Str("source", "environment")
	if sensitive(key) {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Interface("value", v)
	}
	evt.Msg("using environment variable")
	return v
}

func sensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "token")
}

// ParseString reads a string from the environment, falling back to defaultValue.
func ParseString(key, defaultValue string) string {
	return lookupEnv(log.WithComponent("config"), key, defaultValue,
		func(s string) (string, error) { return s, nil })
}

// ParseInt reads a decimal integer from the environment.
func ParseInt(key string, defaultValue int) int {
	return lookupEnv(log.WithComponent("config"), key, defaultValue, strconv.Atoi)
}

// ParseDuration reads a Go duration such as "90s" or "168h" from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return lookupEnv(log.WithComponent("config"), key, defaultValue, time.ParseDuration)
}

var errNotBool = errors.New("not a boolean (true/false, 1/0, yes/no)")

// ParseBool reads a boolean from the environment. It accepts true/false,
// 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return lookupEnv(log.WithComponent("config"), key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, errNotBool
	})
}

// ParseFloat reads a float64 from the environment.
func ParseFloat(key string, defaultValue float64) float64 {
	return lookupEnv(log.WithComponent("config"), key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// expandPath expands ${VAR}, $VAR and a leading "~/" in configured paths.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = home + p[1:]
		}
	}
	return p
}
