package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/btakita/correspondence-kit/internal/model"
)

// SQLiteStore keeps sync state and poll history in a local SQLite
// database.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

var (
	_ StateStore    = (*SQLiteStore)(nil)
	_ CycleRecorder = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type labelRow struct {
	Account     string `db:"account"`
	Label       string `db:"label"`
	UIDValidity uint32 `db:"uidvalidity"`
	LastUID     uint32 `db:"last_uid"`
}

// Load reads every account and label row into a SyncState.
func (s *SQLiteStore) Load(ctx context.Context) (*model.SyncState, error) {
	state := model.NewSyncState()

	var accounts []string
	if err := s.db.SelectContext(ctx, &accounts, "SELECT name FROM accounts ORDER BY name"); err != nil {
		return model.NewSyncState(), &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	for _, name := range accounts {
		state.Accounts[name] = model.NewAccountSyncState()
	}

	var rows []labelRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT account, label, uidvalidity, last_uid FROM label_state ORDER BY account, label")
	if err != nil {
		return model.NewSyncState(), &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	for _, r := range rows {
		acct, ok := state.Accounts[r.Account]
		if !ok {
			acct = model.NewAccountSyncState()
			state.Accounts[r.Account] = acct
		}
		acct.Labels[r.Label] = model.LabelState{UIDValidity: r.UIDValidity, LastUID: r.LastUID}
	}

	model.UpgradeState(state)
	return state, nil
}

// Save replaces all account and label rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, state *model.SyncState) error {
	state = state.Clone()
	model.UpgradeState(state)

	if err := s.replaceState(ctx, state); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore) replaceState(ctx context.Context, state *model.SyncState) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM label_state"); err != nil {
		return fmt.Errorf("clearing label state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM accounts"); err != nil {
		return fmt.Errorf("clearing accounts: %w", err)
	}

	var rows []labelRow
	for name, acct := range state.Accounts {
		if _, err := tx.ExecContext(ctx, "INSERT INTO accounts (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("inserting account %s: %w", name, err)
		}
		for label, ls := range acct.Labels {
			rows = append(rows, labelRow{
				Account:     name,
				Label:       label,
				UIDValidity: ls.UIDValidity,
				LastUID:     ls.LastUID,
			})
		}
	}

	if len(rows) > 0 {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO label_state (account, label, uidvalidity, last_uid)
			VALUES (:account, :label, :uidvalidity, :last_uid)`, rows)
		if err != nil {
			return fmt.Errorf("inserting label state: %w", err)
		}
	}

	return tx.Commit()
}

// RecordCycle appends a poll cycle to the history. A cycle without an ID
// is assigned a new UUID.
func (s *SQLiteStore) RecordCycle(ctx context.Context, c Cycle) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.StartedAt = c.StartedAt.UTC()
	c.FinishedAt = c.FinishedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO poll_cycles (id, started_at, finished_at, advanced, errors)
		VALUES (:id, :started_at, :finished_at, :advanced, :errors)`, c)
	if err != nil {
		return fmt.Errorf("recording cycle %s: %w", c.ID, err)
	}
	return nil
}

// RecentCycles returns up to limit cycles, most recent first.
func (s *SQLiteStore) RecentCycles(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 10
	}

	var cycles []Cycle
	err := s.db.SelectContext(ctx, &cycles, `
		SELECT id, started_at, finished_at, advanced, errors
		FROM poll_cycles
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	return cycles, nil
}
