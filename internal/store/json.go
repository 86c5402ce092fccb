package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/btakita/correspondence-kit/internal/model"
)

// JSONStore keeps sync state in a single JSON document.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on the first Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the state file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads and upgrades the state file.
func (s *JSONStore) Load(_ context.Context) (*model.SyncState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewSyncState(), nil
	}
	if err != nil {
		return model.NewSyncState(), &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	state, err := DecodeState(data)
	if err != nil {
		return model.NewSyncState(), &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	return state, nil
}

// DecodeState parses a JSON state document and upgrades legacy layouts.
func DecodeState(data []byte) (*model.SyncState, error) {
	state := model.NewSyncState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	for name, acct := range state.Accounts {
		if acct.Labels == nil {
			state.Accounts[name] = model.NewAccountSyncState()
		}
	}
	model.UpgradeState(state)
	return state, nil
}

// Save writes the state to a temporary file, syncs it, and renames it
// over the state file.
func (s *JSONStore) Save(_ context.Context, state *model.SyncState) error {
	data, err := json.MarshalIndent(state.Clone(), "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func (s *JSONStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Close is a no-op; the JSON store holds no open resources.
func (s *JSONStore) Close() error {
	return nil
}
