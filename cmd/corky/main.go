// Command corky archives IMAP mail as Markdown conversation threads.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/btakita/correspondence-kit/internal/model"
)

const usage = `Usage: corky <command> [flags]

Commands:
  watch          poll all accounts on an interval until interrupted
  sync           archive new mail once
  status         show per-label sync progress
  folders        list the mailboxes of each account
  set-password   store an account password in the system keyring

Run "corky <command> --help" for command flags.
`

// errUsage marks errors caused by bad invocation.
var errUsage = errors.New("usage error")

type command func(env *environment, args []string) error

var commands = map[string]command{
	"watch":        runWatch,
	"sync":         runSync,
	"status":       runStatus,
	"folders":      runFolders,
	"set-password": runSetPassword,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "corky: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	env := &environment{stdin: stdin, stdout: stdout, stderr: stderr}
	err := cmd(env, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "corky %s: %v\n", args[0], err)
		return 2
	default:
		fmt.Fprintf(stderr, "corky %s: %v\n", args[0], err)
		return 1
	}
}

// environment carries what every command needs once flags are parsed.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	envPath    string
	verbose    bool

	cfg *model.AppConfig
	log *slog.Logger
}

// newFlagSet returns a flag set with the global flags registered.
func (e *environment) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("corky "+name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVarP(&e.configPath, "config", "c", model.DefaultConfigPath, "path to accounts.toml")
	fs.StringVar(&e.envPath, "env-file", ".env", "legacy .env file read when no accounts are configured")
	fs.BoolVarP(&e.verbose, "verbose", "v", false, "enable debug logging")
	return fs
}

// setup parses args and loads configuration.
func (e *environment) setup(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	level := slog.LevelInfo
	if e.verbose {
		level = slog.LevelDebug
	}
	e.log = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(e.log)

	cfg, err := model.LoadConfig(e.configPath, fs)
	if err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// noArgs rejects positional arguments.
func noArgs(fs *pflag.FlagSet) error {
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}

// accounts returns the configured accounts, or only the named one.
func (e *environment) accounts(only string) (map[string]model.AccountConfig, error) {
	all, err := e.cfg.ResolveAccounts(e.envPath)
	if err != nil {
		return nil, err
	}
	if only == "" {
		return all, nil
	}
	acct, ok := all[only]
	if !ok {
		return nil, fmt.Errorf("%w: no account named %q in %s", errUsage, only, e.configPath)
	}
	return map[string]model.AccountConfig{only: acct}, nil
}
