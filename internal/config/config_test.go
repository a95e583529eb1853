package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresAccountAddress(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load()
	require.ErrorContains(t, err, "account.address")
}

func TestLoad_EnvOnlyWithDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AURAMAIL_ACCOUNT_ADDRESS", " Me@Example.COM ")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "me@example.com", cfg.Account.Address)
	require.Equal(t, "AI Assistant", cfg.Account.DisplayName)
	require.Equal(t, 10*time.Second, cfg.Poll.Interval)
	require.Equal(t, 8, cfg.Workers.Max)
	require.Equal(t, 5, cfg.Events.DrainMax)
	require.Equal(t, "db/auramail.db", cfg.Paths.DB)
	require.Empty(t, cfg.Redis.Addr)
	require.Empty(t, cfg.Rules)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
account:
  address: Owner@Example.com
  display_name: Owner
poll:
  interval: 30s
workers:
  max: 4
events:
  drain_max: 10
paths:
  db: /var/lib/auramail/auramail.db
  email_state: /var/lib/auramail/email_state.json
redis:
  addr: localhost:6379
rules:
  - name: drop newsletters
    when: sender contains "newsletter@"
    action: ignore
  - name: boss always notifies
    when: sender contains "boss@corp.example"
    action: notify
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", cfg.Account.Address)
	require.Equal(t, "Owner", cfg.Account.DisplayName)
	require.Equal(t, 30*time.Second, cfg.Poll.Interval)
	require.Equal(t, 4, cfg.Workers.Max)
	require.Equal(t, 10, cfg.Events.DrainMax)
	require.Equal(t, "/var/lib/auramail/auramail.db", cfg.Paths.DB)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)

	require.Len(t, cfg.Rules, 2)
	require.Equal(t, "drop newsletters", cfg.Rules[0].Name)
	require.Equal(t, "ignore", cfg.Rules[0].Action)
	require.Equal(t, "notify", cfg.Rules[1].Action)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
account:
  address: owner@example.com
workers:
  max: 4
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))
	t.Setenv("AURAMAIL_WORKERS_MAX", "16")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Workers.Max)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile("config.yaml", []byte("::: not yaml"), 0o644))

	_, err := Load()
	require.Error(t, err)
}
