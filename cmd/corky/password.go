package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/btakita/correspondence-kit/internal/credential"
)

func runSetPassword(env *environment, args []string) error {
	fs := env.newFlagSet("set-password")
	fs.Usage = func() {
		fmt.Fprintln(env.stderr, "Usage: corky set-password [account]")
		fmt.Fprintln(env.stderr, "Prompts for the password on a terminal, otherwise reads one line from stdin.")
		fmt.Fprintln(env.stderr, "Without an account, the default account is used.")
		fs.PrintDefaults()
	}
	if err := env.setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: expected at most one account name", errUsage)
	}

	name := fs.Arg(0)
	if name == "" {
		defaultName, _, ok := env.cfg.DefaultAccount()
		if !ok {
			return fmt.Errorf("%w: no account given and none configured in %s", errUsage, env.configPath)
		}
		name = defaultName
	} else if _, ok := env.cfg.Accounts[name]; !ok {
		env.log.Warn("account is not in the config file", "account", name, "config", env.configPath)
	}

	password, err := readPassword(env, name)
	if err != nil {
		return err
	}
	if err := credential.Set(credential.AccountKey(name), password); err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "Stored password for %s\n", name)
	return nil
}

// terminalInput returns r as a file when it is an interactive terminal.
func terminalInput(r io.Reader) (*os.File, bool) {
	f, ok := r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}

// readPassword prompts without echo on a terminal and reads a single
// line from piped input.
func readPassword(env *environment, name string) (string, error) {
	if in, ok := terminalInput(env.stdin); ok {
		return promptPassword(in, env.stderr, name)
	}

	line, err := bufio.NewReader(env.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", fmt.Errorf("%w: empty password", errUsage)
	}
	return password, nil
}

func promptPassword(in *os.File, out io.Writer, name string) (string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password for " + name).
				Description("IMAP password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(validateRequired("Password")),
		),
	).WithInput(in).WithOutput(out)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", fmt.Errorf("%w: aborted", errUsage)
		}
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(password), nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
