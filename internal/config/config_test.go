package config_test

import (
	"os"
	"testing"

	"github.com/emi420/underpass-go/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"REPLICATION_BASE_URL", "CHANGESET_BASE_URL",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadMissingRequiredFieldsFails(t *testing.T) {
	clearEnv(t)

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected an error when required DB fields are unset")
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	clearEnv(t)
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_PORT", "5432")
	os.Setenv("DB_USER", "underpass")
	os.Setenv("DB_NAME", "underpass")
	defer clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Replication.BaseURL == "" || cfg.Replication.ChangesetURL == "" {
		t.Fatalf("expected replication URL defaults to be applied")
	}
	if cfg.Replication.PollInterval == 0 {
		t.Fatalf("expected a non-zero poll interval default")
	}
	if cfg.Store.SSLMode != "disable" {
		t.Fatalf("expected default SSL mode, got %q", cfg.Store.SSLMode)
	}
}
