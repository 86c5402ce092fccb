package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "corky"

// ErrNotFound is returned by Get when the keyring has no entry for a key.
var ErrNotFound = errors.New("credential not found")

// open is swapped for an in-memory keyring in tests.
var open = func() (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/corky/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("corky-file-key"),
		KeychainTrustApplication: true,
	})
}

// Get returns the keyring entry stored under key.
func Get(key string) (string, error) {
	ring, err := open()
	if err != nil {
		return "", fmt.Errorf("opening keyring for %q: %w", key, err)
	}

	item, err := ring.Get(key)
	switch {
	case errors.Is(err, keyring.ErrKeyNotFound):
		return "", fmt.Errorf("%w: %q in service %s", ErrNotFound, key, serviceName)
	case err != nil:
		return "", fmt.Errorf("reading %q from keyring: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key, replacing any previous entry.
func Set(key, value string) error {
	if key == "" {
		return errors.New("credential key is empty")
	}

	ring, err := open()
	if err != nil {
		return fmt.Errorf("opening keyring for %q: %w", key, err)
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       serviceName + " " + key,
		Description: "IMAP password",
	})
	if err != nil {
		return fmt.Errorf("storing %q in keyring: %w", key, err)
	}
	return nil
}
