// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

// Sentinels returned (wrapped) by Loader.Load. Match them with errors.Is.
var (
	// ErrUnknownConfigField marks a key the strict YAML decoder did not recognise.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrUnsupportedFormat marks a config file that is not .yaml or .yml.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrTrailingContent marks a config file holding more than one YAML document.
	ErrTrailingContent = errors.New("config file contains multiple documents or trailing content")

	// ErrInvalidConfig wraps validation failures of the merged configuration.
	ErrInvalidConfig = errors.New("invalid config")
)
