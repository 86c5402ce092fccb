package credential

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/btakita/correspondence-kit/internal/model"
)

// AccountKey returns the keyring key holding the IMAP password for the
// named account.
func AccountKey(account string) string {
	return "imap-" + account
}

// Resolver looks up account passwords. The zero value uses the system
// keyring.
type Resolver struct {
	// Lookup reads a keyring entry. Defaults to Get.
	Lookup func(key string) (string, error)
}

// ResolvePassword returns the account's password: the inline value if
// set, else the trimmed output of password_cmd, else the keyring entry.
func (r Resolver) ResolvePassword(ctx context.Context, name string, acct model.AccountConfig) (string, error) {
	if acct.Password != "" {
		return acct.Password, nil
	}

	if acct.PasswordCmd != "" {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "sh", "-c", acct.PasswordCmd)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf(
				"running password_cmd for %s: %w: %s",
				name, err, strings.TrimSpace(stderr.String()),
			)
		}
		return strings.TrimSpace(stdout.String()), nil
	}

	lookup := r.Lookup
	if lookup == nil {
		lookup = Get
	}
	password, err := lookup(AccountKey(name))
	if err != nil {
		return "", fmt.Errorf(
			"account %s (%s) has no password, password_cmd, or keyring entry: %w",
			name, acct.User, err,
		)
	}
	return password, nil
}
