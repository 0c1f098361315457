// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"in range", 5, 1, 10, false},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"below min", 0, 1, 10, true},
		{"above max", 11, 1, 10, true},
		{"negative range", -5, -10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("testValue", tt.value, tt.min, tt.max)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentDir := filepath.Join(tmpDir, "nonexistent")

	tests := []struct {
		name      string
		path      string
		mustExist bool
		wantErr   bool
	}{
		{"existing dir", tmpDir, true, false},
		{"existing dir no mustExist", tmpDir, false, false},
		{"nonexistent mustExist", nonExistentDir, true, true},
		{"nonexistent create", filepath.Join(tmpDir, "autocreate"), false, false},
		{"empty path", "", false, true},
		{"path traversal", "../etc", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Directory("testDir", tt.path, tt.mustExist)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_NotEmpty(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"non-empty", "hello", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"tab only", "\t", true},
		{"newline only", "\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.NotEmpty("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_OneOf(t *testing.T) {
	allowed := []string{"red", "green", "blue"}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid red", "red", false},
		{"valid green", "green", false},
		{"valid blue", "blue", false},
		{"invalid yellow", "yellow", true},
		{"invalid empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.OneOf("testField", tt.value, allowed)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Positive(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"positive 1", 1, false},
		{"positive 100", 100, false},
		{"zero", 0, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Positive("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_NonNegative(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"positive 1", 1, false},
		{"zero", 0, false},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.NonNegative("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Custom(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		validator func(interface{}) error
		wantErr   bool
	}{
		{
			name:  "passes custom validation",
			value: "hello",
			validator: func(v interface{}) error {
				s, ok := v.(string)
				if !ok {
					return errors.New("expected string value")
				}
				if len(s) >= 3 {
					return nil
				}
				return errors.New("too short")
			},
			wantErr: false,
		},
		{
			name:  "fails custom validation",
			value: "hi",
			validator: func(v interface{}) error {
				s, ok := v.(string)
				if !ok {
					return errors.New("expected string value")
				}
				if len(s) >= 3 {
					return nil
				}
				return errors.New("too short")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Custom("testField", tt.value, tt.validator)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_MultipleErrors(t *testing.T) {
	v := New()

	v.Positive("chunk_size", 0)         // Invalid
	v.HostPort("redis.addr", "no-port") // Invalid
	v.NotEmpty("name", "")              // Invalid

	if v.IsValid() {
		t.Fatal("expected errors, got none")
	}

	errs := v.Errors()
	if len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d", len(errs))
	}

	err := v.Err()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var ve ValidationError
	if !errors.As(err, &ve) || len(ve.Errors()) != 3 {
		t.Errorf("expected ValidationError with 3 entries, got %T", err)
	}
	errorMsg := err.Error()
	for _, field := range []string{"chunk_size", "redis.addr", "name"} {
		if !strings.Contains(errorMsg, field) {
			t.Errorf("error message should mention %q", field)
		}
	}
}

func TestValidator_Chaining(t *testing.T) {
	v := New()

	v.HostPort("redis.addr", "localhost:6379")
	v.Range("redis.db", 0, 0, 15)
	v.Fraction("sampling_rate", 0.25, 0, 1)
	v.MinDuration("cleanup_interval", time.Hour, time.Second)
	v.NotEmpty("backend", "file")

	if !v.IsValid() {
		t.Errorf("unexpected errors: %v", v.Err())
	}
}

func TestValidator_HostPort(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"host and port", "localhost:6379", false},
		{"ipv4", "127.0.0.1:6380", false},
		{"ipv6", "[::1]:6379", false},
		{"missing port", "localhost", true},
		{"missing host", ":6379", true},
		{"port zero", "localhost:0", true},
		{"port out of range", "localhost:70000", true},
		{"non numeric port", "localhost:redis", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.HostPort("addr", tt.addr)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Fraction(t *testing.T) {
	tests := []struct {
		value   float64
		wantErr bool
	}{
		{0, false},
		{0.5, false},
		{1, false},
		{-0.1, true},
		{1.01, true},
	}

	for _, tt := range tests {
		v := New()
		v.Fraction("rate", tt.value, 0, 1)
		if v.IsValid() == tt.wantErr {
			t.Errorf("Fraction(%g): valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
		}
	}
}

func TestValidator_MinDuration(t *testing.T) {
	v := New()
	v.MinDuration("period", 500*time.Millisecond, time.Millisecond)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.MinDuration("period", 0, time.Millisecond)
	if v.IsValid() {
		t.Fatal("expected error for zero duration")
	}
	if got := v.Errors()[0].Field; got != "period" {
		t.Errorf("expected field period, got %s", got)
	}
}

func TestValidator_DirectoryCreation(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "auto", "create", "nested")

	v := New()
	v.Directory("testDir", newDir, false)

	if !v.IsValid() {
		t.Errorf("unexpected error: %v", v.Err())
	}

	// Check that directory was actually created
	if _, err := os.Stat(newDir); os.IsNotExist(err) {
		t.Error("directory was not created")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"trace", true},
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"WARN", true},
		{"fatal", false},
		{"panic", false},
		{"disabled", false},
		{"1", false},
		{"chatty", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			v := New()
			v.LogLevel("log.level", tt.level)
			if v.IsValid() != tt.valid {
				t.Errorf("LogLevel(%q) valid = %v, want %v", tt.level, v.IsValid(), tt.valid)
			}
		})
	}
}
