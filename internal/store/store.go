package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btakita/correspondence-kit/internal/model"
)

// PersistenceError reports a failure to read or write sync state.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s state %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err (or any error in its chain) is
// a PersistenceError.
func IsPersistenceError(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

// StateStore persists SyncState between runs.
type StateStore interface {
	// Load returns the persisted state, upgraded to the current layout.
	// It always returns a usable state: when nothing has been persisted
	// yet the state is empty and the error is nil, and when persisted
	// state cannot be read the state is empty and the error is a
	// *PersistenceError.
	Load(ctx context.Context) (*model.SyncState, error)

	// Save replaces the persisted state. A crash mid-save leaves either
	// the old or the new state, never a mix.
	Save(ctx context.Context, state *model.SyncState) error

	Close() error
}

// Cycle is one completed poll cycle.
type Cycle struct {
	ID         string    `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Advanced   int       `db:"advanced"`
	Errors     int       `db:"errors"`
}

// CycleRecorder is implemented by stores that keep a poll history.
type CycleRecorder interface {
	RecordCycle(ctx context.Context, c Cycle) error
	RecentCycles(ctx context.Context, limit int) ([]Cycle, error)
}

// Open returns the state store selected by cfg.
func Open(cfg model.StateConfig) (StateStore, error) {
	switch cfg.Backend {
	case "", model.StateBackendJSON:
		return NewJSONStore(cfg.Path), nil
	case model.StateBackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
