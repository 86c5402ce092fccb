package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

const watchTOML = `
[accounts.personal]
provider = "gmail"
user = "test@gmail.com"
password = "secret"
labels = ["inbox"]
default = true

[accounts.bridge]
provider = "protonmail-bridge"
user = "me@proton.me"
password_cmd = "echo secret"
labels = ["INBOX", "Sent"]
imap_port = 1144

[watch]
poll_interval = 60
notify = true

[state]
backend = "sqlite"
path = "state.db"
`

const noWatchTOML = `
[accounts.personal]
provider = "imap"
user = "test@example.com"
password = "secret"
imap_host = "mail.example.com"
labels = ["inbox"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "accounts.toml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, watchTOML), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Watch.PollInterval != 60 || !cfg.Watch.Notify {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}
	if cfg.State.Backend != StateBackendSQLite || cfg.State.Path != "state.db" {
		t.Errorf("unexpected state config %+v", cfg.State)
	}
	if _, ok := cfg.Accounts["watch"]; ok {
		t.Error("[watch] section leaked into accounts")
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(cfg.Accounts))
	}

	personal := cfg.Accounts["personal"]
	if personal.IMAPHost != "imap.gmail.com" || personal.IMAPPort != 993 || personal.IMAPStartTLS {
		t.Errorf("gmail preset not applied: %+v", personal)
	}
	if personal.SyncDays != defaultSyncDays {
		t.Errorf("expected default sync days, got %d", personal.SyncDays)
	}

	bridge := cfg.Accounts["bridge"]
	if bridge.IMAPHost != "127.0.0.1" || !bridge.IMAPStartTLS {
		t.Errorf("bridge preset not applied: %+v", bridge)
	}
	if bridge.IMAPPort != 1144 {
		t.Errorf("explicit port should win over preset, got %d", bridge.IMAPPort)
	}
	if len(bridge.Labels) != 2 || bridge.PasswordCmd != "echo secret" {
		t.Errorf("unexpected bridge account %+v", bridge)
	}

	name, _, ok := cfg.DefaultAccount()
	if !ok || name != "personal" {
		t.Errorf("expected default account personal, got %q", name)
	}
	if names := cfg.AccountNames(); names[0] != "bridge" || names[1] != "personal" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, noWatchTOML), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Watch.PollInterval != 300 || cfg.Watch.Notify {
		t.Errorf("unexpected watch defaults %+v", cfg.Watch)
	}
	if cfg.State.Backend != StateBackendJSON || cfg.ConversationsDir != "conversations" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	acct := cfg.Accounts["personal"]
	if acct.IMAPHost != "mail.example.com" || acct.IMAPPort != 993 {
		t.Errorf("unexpected account defaults %+v", acct)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Watch.PollInterval != 300 || len(cfg.Accounts) != 0 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_IntervalFlag(t *testing.T) {
	flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flags.Int("interval", 0, "poll interval")
	if err := flags.Parse([]string{"--interval", "5"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := LoadConfig(writeConfig(t, watchTOML), flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Watch.PollInterval != 5 {
		t.Errorf("expected flag override 5, got %d", cfg.Watch.PollInterval)
	}
}

func TestLoadConfig_UnsetIntervalFlagKeepsFile(t *testing.T) {
	flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flags.Int("interval", 0, "poll interval")

	cfg, err := LoadConfig(writeConfig(t, watchTOML), flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Watch.PollInterval != 60 {
		t.Errorf("expected file value 60, got %d", cfg.Watch.PollInterval)
	}
}

func TestLoadConfig_UnknownBackend(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "[state]\nbackend = \"redis\"\n"), nil)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLegacyAccountFromEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "GMAIL_USER_EMAIL=legacy@gmail.com\nGMAIL_APP_PASSWORD=abcd efgh ijkl mnop\nGMAIL_SYNC_LABELS=inbox, correspondence ,\nGMAIL_SYNC_DAYS=30\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing env: %v", err)
	}

	for _, k := range []string{"GMAIL_USER_EMAIL", "GMAIL_APP_PASSWORD", "GMAIL_SYNC_LABELS", "GMAIL_SYNC_DAYS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	acct, err := LegacyAccountFromEnv(envPath)
	if err != nil {
		t.Fatalf("LegacyAccountFromEnv failed: %v", err)
	}
	if acct.User != "legacy@gmail.com" || acct.Password != "abcdefghijklmnop" {
		t.Errorf("unexpected credentials %+v", acct)
	}
	if len(acct.Labels) != 2 || acct.Labels[0] != "inbox" || acct.Labels[1] != "correspondence" {
		t.Errorf("unexpected labels %v", acct.Labels)
	}
	if acct.SyncDays != 30 || acct.IMAPHost != "imap.gmail.com" || !acct.Default {
		t.Errorf("unexpected account %+v", acct)
	}
}

func TestResolveAccounts_NoEnv(t *testing.T) {
	t.Setenv("GMAIL_USER_EMAIL", "")
	os.Unsetenv("GMAIL_USER_EMAIL")

	cfg := defaultAppConfig()
	if _, err := cfg.ResolveAccounts(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error without accounts or env")
	}
}
