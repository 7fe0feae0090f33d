package migrate

import (
	"errors"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		if err := Run("postgres://localhost/test", direction); err == nil {
			t.Errorf("Run with direction %q should return error", direction)
		}
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "://localhost/test", "postgres://"} {
		if err := Run(dsn, "up"); err == nil {
			t.Errorf("Run with invalid DSN %q should return error", dsn)
		}
	}
}

func TestRun_NeverSurfacesErrNoChange(t *testing.T) {
	// ErrNoChange is swallowed inside Run; callers only see real failures.
	if err := Run("postgres://localhost/nonexistent", "up"); errors.Is(err, ErrNoChange) {
		t.Error("Run should not return ErrNoChange")
	}
}
