package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMemoryConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  in_memory: true\nredis:\n  addr: \"\"\n"), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", writeMemoryConfig(t)}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSweepHolds(t *testing.T) {
	out, err := run(t, "sweep", "holds")
	require.NoError(t, err)
	assert.Contains(t, out, "expired 0 holds")
}

func TestSweepWaitlist(t *testing.T) {
	out, err := run(t, "sweep", "waitlist")
	require.NoError(t, err)
	assert.Contains(t, out, "expired 0 waitlist offers")
}

func TestCohortCreate(t *testing.T) {
	out, err := run(t, "cohort", "create", "--program", "go-101", "--capacity", "12", "--price", "30000", "--currency", "eur")
	require.NoError(t, err)
	assert.Contains(t, out, "12 seats, OPEN")
}

func TestPromoCreate_Validation(t *testing.T) {
	_, err := run(t, "promo", "create", "spring")
	assert.Error(t, err)

	_, err = run(t, "promo", "create", "spring", "--percent", "120")
	assert.Error(t, err)

	out, err := run(t, "promo", "create", "spring", "--percent", "20", "--max-uses", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "promo SPRING created")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestReplay_UnknownPayment(t *testing.T) {
	_, err := run(t, "replay", "missing")
	assert.Error(t, err)
}

func TestRefund_RequiresReason(t *testing.T) {
	_, err := run(t, "refund", "pay-1")
	assert.Error(t, err)
}

func TestPromote_UnknownCohort(t *testing.T) {
	_, err := run(t, "promote", "missing")
	assert.Error(t, err)
}
