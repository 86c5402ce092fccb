package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/store"
)

// NewTestStore opens a SQLite state store in memory and closes it with the test.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening sqlite state store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing sqlite state store: %v", err)
		}
	})
	return s
}

// NewTestJSONStore returns a JSON state store backed by a file in a
// per-test temporary directory.
func NewTestJSONStore(t *testing.T) *store.JSONStore {
	t.Helper()
	return store.NewJSONStore(filepath.Join(t.TempDir(), ".sync-state.json"))
}

// SeedState saves a state holding one label watermark per entry of
// labels, keyed "account/label".
func SeedState(t *testing.T, st store.StateStore, labels map[string]model.LabelState) {
	t.Helper()

	state := model.NewSyncState()
	for key, ls := range labels {
		account, label, ok := strings.Cut(key, "/")
		if !ok || account == "" || label == "" {
			t.Fatalf("seed key %q is not account/label", key)
		}
		acct := state.Account(account)
		if acct.Labels == nil {
			acct.Labels = make(map[string]model.LabelState)
		}
		acct.Labels[label] = ls
		state.SetAccount(account, acct)
	}

	if err := st.Save(context.Background(), state); err != nil {
		t.Fatalf("seeding state: %v", err)
	}
}
