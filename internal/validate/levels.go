// SPDX-License-Identifier: MIT

package validate

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogLevels lists the accepted log level names, most verbose first.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// LogLevel checks that level names a zerolog level between trace and error.
// Numeric levels and fatal or panic are rejected.
func (v *Validator) LogLevel(field, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err == nil && level != "" && lvl >= zerolog.TraceLevel && lvl <= zerolog.ErrorLevel &&
		strings.EqualFold(lvl.String(), level) {
		return
	}
	v.AddError(field, "must be one of "+strings.Join(LogLevels, ", "), level)
}
