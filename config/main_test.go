package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain refuses to run unless GO_ENV=test, since ConnectDatabase migrates whatever
// DATABASE_URL points at. The tests run from an empty working directory so Load never
// picks up a developer's .env files.
func TestMain(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "test" {
		fmt.Fprintf(os.Stderr, "config tests need GO_ENV=test, got %q (use make test)\n", env)
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "config-test-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating working directory: %v\n", err)
		os.Exit(1)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "entering %s: %v\n", dir, err)
		os.Exit(1)
	}

	code := m.Run()

	_ = os.Chdir(wd)
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// unsetForTest clears key for one test and restores it afterwards
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_ReadsEnvironmentFile(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "RECEIPT_OVERRIDE_ROLE"} {
		unsetForTest(t, key)
	}
	t.Setenv("TRANSITION_POLICY", "strict")

	file := filepath.Join(".", ".env.test")
	contents := "DATABASE_URL=postgresql://localhost/jewelry_erp_from_file\n" +
		"RECEIPT_OVERRIDE_ROLE=supervisor\n" +
		"TRANSITION_POLICY=forward\n"
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))
	t.Cleanup(func() { _ = os.Remove(file) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgresql://localhost/jewelry_erp_from_file", cfg.DatabaseURL)
	assert.Equal(t, "supervisor", cfg.ReceiptOverrideRole)
	assert.Equal(t, "strict", cfg.TransitionPolicy, "variables already set win over the file")
}

func TestLoad_WithoutEnvironmentFile(t *testing.T) {
	unsetForTest(t, "DATABASE_URL")

	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is required")
}
