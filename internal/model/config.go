package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Provider names with built-in connection presets.
const (
	ProviderGmail            = "gmail"
	ProviderProtonMailBridge = "protonmail-bridge"
	ProviderIMAP             = "imap"
)

// State backends.
const (
	StateBackendJSON   = "json"
	StateBackendSQLite = "sqlite"
)

const (
	defaultIMAPPort     = 993
	defaultSyncDays     = 3650
	defaultPollInterval = 300
)

// AccountConfig holds the connection and sync settings for one mail
// account.
type AccountConfig struct {
	// Provider selects connection presets ("gmail", "protonmail-bridge",
	// or "imap" for none).
	Provider string `mapstructure:"provider" yaml:"provider"`

	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`

	// PasswordCmd is a shell command whose trimmed stdout is the password.
	PasswordCmd string `mapstructure:"password_cmd" yaml:"password_cmd"`

	// Labels are the mailboxes archived for this account.
	Labels []string `mapstructure:"labels" yaml:"labels"`

	IMAPHost     string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port" yaml:"imap_port"`
	IMAPStartTLS bool   `mapstructure:"imap_starttls" yaml:"imap_starttls"`

	// SyncDays is the lookback window, in days, searched on every sync.
	SyncDays int `mapstructure:"sync_days" yaml:"sync_days"`

	Default bool `mapstructure:"default" yaml:"default"`
}

// WatchConfig holds settings for the polling daemon.
type WatchConfig struct {
	// PollInterval is the delay between poll cycles, in seconds.
	PollInterval int `mapstructure:"poll_interval" yaml:"poll_interval"`

	// Notify enables desktop notifications when new mail is archived.
	Notify bool `mapstructure:"notify" yaml:"notify"`

	// CollabSyncCmd runs after a cycle that archived new mail.
	CollabSyncCmd string `mapstructure:"collab_sync_cmd" yaml:"collab_sync_cmd"`
}

// StateConfig selects where sync progress is persisted.
type StateConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// ConversationsDir is the root directory Markdown threads are written to.
	ConversationsDir string `mapstructure:"conversations_dir" yaml:"conversations_dir"`

	Accounts map[string]AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Watch    WatchConfig              `mapstructure:"watch" yaml:"watch"`
	State    StateConfig              `mapstructure:"state" yaml:"state"`
}

type providerPreset struct {
	host     string
	port     int
	startTLS bool
}

var providerPresets = map[string]providerPreset{
	ProviderGmail:            {host: "imap.gmail.com", port: 993},
	ProviderProtonMailBridge: {host: "127.0.0.1", port: 1143, startTLS: true},
}

// DefaultConfigPath is where the account configuration is looked up
// when no --config flag is given.
const DefaultConfigPath = "accounts.toml"

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		ConversationsDir: "conversations",
		Accounts:         map[string]AccountConfig{},
		Watch: WatchConfig{
			PollInterval: defaultPollInterval,
		},
		State: StateConfig{
			Backend: StateBackendJSON,
			Path:    ".sync-state.json",
		},
	}
}

// LoadConfig reads configuration from the given TOML file path using
// Viper. Environment variables prefixed with CORKY_ override file values,
// and an "interval" flag in flags, when set, overrides
// watch.poll_interval. If the file does not exist, it returns a default
// configuration with no accounts.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("CORKY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("conversations_dir", "conversations")
	v.SetDefault("watch.poll_interval", defaultPollInterval)
	v.SetDefault("watch.notify", false)
	v.SetDefault("watch.collab_sync_cmd", "")
	v.SetDefault("state.backend", StateBackendJSON)
	v.SetDefault("state.path", ".sync-state.json")

	if flags != nil {
		if f := flags.Lookup("interval"); f != nil {
			if err := v.BindPFlag("watch.poll_interval", f); err != nil {
				return nil, fmt.Errorf("binding interval flag: %w", err)
			}
		}
	}

	cfg := defaultAppConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Accounts == nil {
		cfg.Accounts = map[string]AccountConfig{}
	}

	for name, acct := range cfg.Accounts {
		explicitStartTLS := v.IsSet(fmt.Sprintf("accounts.%s.imap_starttls", name))
		cfg.Accounts[name] = applyAccountDefaults(acct, explicitStartTLS)
	}

	if cfg.Watch.PollInterval <= 0 {
		cfg.Watch.PollInterval = defaultPollInterval
	}
	switch cfg.State.Backend {
	case StateBackendJSON, StateBackendSQLite:
	default:
		return nil, fmt.Errorf(
			"parsing config %s: unknown state backend %q", path, cfg.State.Backend,
		)
	}

	return cfg, nil
}

// applyAccountDefaults fills fields left unset with provider preset and
// global default values. Explicit account values always win.
func applyAccountDefaults(acct AccountConfig, explicitStartTLS bool) AccountConfig {
	if acct.Provider == "" {
		acct.Provider = ProviderIMAP
	}

	if preset, ok := providerPresets[acct.Provider]; ok {
		if acct.IMAPHost == "" {
			acct.IMAPHost = preset.host
		}
		if acct.IMAPPort == 0 {
			acct.IMAPPort = preset.port
		}
		if !explicitStartTLS {
			acct.IMAPStartTLS = preset.startTLS
		}
	}

	if acct.IMAPPort == 0 {
		acct.IMAPPort = defaultIMAPPort
	}
	if acct.SyncDays <= 0 {
		acct.SyncDays = defaultSyncDays
	}
	return acct
}

// AccountNames returns the configured account names in sorted order.
func (c *AppConfig) AccountNames() []string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultAccount returns the account marked default, or the first
// account by name.
func (c *AppConfig) DefaultAccount() (string, AccountConfig, bool) {
	names := c.AccountNames()
	for _, name := range names {
		if c.Accounts[name].Default {
			return name, c.Accounts[name], true
		}
	}
	if len(names) == 0 {
		return "", AccountConfig{}, false
	}
	return names[0], c.Accounts[names[0]], true
}

// LegacyAccountFromEnv builds an account from the GMAIL_* variables of
// the pre-accounts.toml setup. Variables are read from envPath (usually
// ".env") without overriding the process environment.
func LegacyAccountFromEnv(envPath string) (AccountConfig, error) {
	if envPath != "" {
		if err := gotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AccountConfig{}, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	user := os.Getenv("GMAIL_USER_EMAIL")
	if user == "" {
		return AccountConfig{}, fmt.Errorf(
			"no accounts configured and GMAIL_USER_EMAIL is not set",
		)
	}

	syncDays := defaultSyncDays
	if raw := os.Getenv("GMAIL_SYNC_DAYS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return AccountConfig{}, fmt.Errorf("parsing GMAIL_SYNC_DAYS %q: %w", raw, err)
		}
		syncDays = n
	}

	var labels []string
	for _, l := range strings.Split(os.Getenv("GMAIL_SYNC_LABELS"), ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}

	acct := AccountConfig{
		Provider: ProviderGmail,
		User:     user,
		Password: strings.ReplaceAll(os.Getenv("GMAIL_APP_PASSWORD"), " ", ""),
		Labels:   labels,
		SyncDays: syncDays,
		Default:  true,
	}
	return applyAccountDefaults(acct, false), nil
}

// ResolveAccounts returns the configured accounts, falling back to a
// single legacy account built from envPath when none are configured.
func (c *AppConfig) ResolveAccounts(envPath string) (map[string]AccountConfig, error) {
	if len(c.Accounts) > 0 {
		return c.Accounts, nil
	}
	acct, err := LegacyAccountFromEnv(envPath)
	if err != nil {
		return nil, err
	}
	c.Accounts = map[string]AccountConfig{LegacyAccount: acct}
	return c.Accounts, nil
}
