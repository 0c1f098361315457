// SPDX-License-Identifier: MIT

package sqlite

import (
	"fmt"
	"strings"
	"time"
)

// CheckMode selects the integrity pragma.
type CheckMode string

const (
	// QuickCheck runs PRAGMA quick_check, which skips index consistency.
	QuickCheck CheckMode = "quick"
	// FullCheck runs PRAGMA integrity_check.
	FullCheck CheckMode = "full"
)

func (m CheckMode) pragma() string {
	if m == FullCheck {
		return "PRAGMA integrity_check"
	}
	return "PRAGMA quick_check"
}

// VerifyIntegrity opens path read-only and runs the check selected by mode.
// It returns nil for a healthy database and the diagnostic rows otherwise.
// An error means the check itself could not run, which for a file that is
// not a database at all is the usual outcome.
func VerifyIntegrity(path string, mode CheckMode) ([]string, error) {
	db, err := Open(path, Config{BusyTimeout: 2 * time.Second, MaxOpenConns: 1, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open database for verification: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(mode.pragma())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mode.pragma(), err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan integrity result: %w", err)
		}
		problems = append(problems, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", mode.pragma(), err)
	}

	switch {
	case len(problems) == 1 && strings.EqualFold(problems[0], "ok"):
		return nil, nil
	case len(problems) == 0:
		return []string{"integrity check returned no rows"}, nil
	}
	return problems, nil
}
