package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/source"
	"github.com/btakita/correspondence-kit/internal/store"
)

// WatchState is the watcher's position in its Idle → Polling →
// (Idle | ShuttingDown) cycle.
type WatchState int

const (
	WatchIdle WatchState = iota
	WatchPolling
	WatchShuttingDown
)

func (s WatchState) String() string {
	switch s {
	case WatchIdle:
		return "idle"
	case WatchPolling:
		return "polling"
	case WatchShuttingDown:
		return "shutting down"
	default:
		return fmt.Sprintf("WatchState(%d)", int(s))
	}
}

const (
	// defaultInterval is used when Options.Interval is not positive.
	defaultInterval = 300 * time.Second

	// defaultCollabTimeout bounds one collaborator trigger run.
	defaultCollabTimeout = 10 * time.Minute
)

// SourceFactory connects to the mail source of one account.
type SourceFactory func(ctx context.Context, name string, acct model.AccountConfig) (source.MailSource, error)

// Options configures a Watcher.
type Options struct {
	Store    store.StateStore
	Accounts map[string]model.AccountConfig
	Open     SourceFactory
	Syncer   *Syncer

	// Interval is the wait between the end of one cycle and the start of
	// the next.
	Interval time.Duration

	// Notify enables Notifier after cycles that archived new mail.
	Notify   bool
	Notifier Notifier

	// Collab is triggered once after each cycle that archived new mail.
	// It is cancelled on shutdown and after CollabTimeout.
	Collab        Trigger
	CollabTimeout time.Duration

	Log *slog.Logger
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	// Advanced is the number of (account, label) pairs that archived
	// new mail.
	Advanced int

	// Failed lists accounts whose sync returned an error.
	Failed []string
}

// Watcher polls every configured account on an interval.
type Watcher struct {
	opts Options
	log  *slog.Logger

	mu    gosync.Mutex
	state WatchState
	last  CycleResult
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.CollabTimeout <= 0 {
		opts.CollabTimeout = defaultCollabTimeout
	}
	if opts.Syncer == nil {
		opts.Syncer = &Syncer{}
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{opts: opts, log: log}
}

// State returns the watcher's current state.
func (w *Watcher) State() WatchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastCycle returns the result of the most recent completed cycle.
func (w *Watcher) LastCycle() CycleResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watcher) setState(s WatchState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// Run polls until ctx is cancelled. It checks for cancellation before
// each cycle and while waiting between cycles, and returns nil on
// shutdown. Errors inside a cycle are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watching for new mail",
		"accounts", len(w.opts.Accounts), "interval", w.opts.Interval)

	for {
		if ctx.Err() != nil {
			w.setState(WatchShuttingDown)
			w.log.Info("watcher stopped")
			return nil
		}

		w.setState(WatchPolling)
		if _, err := w.PollOnce(ctx); err != nil {
			w.log.Error("poll cycle failed", "err", err)
		}
		w.setState(WatchIdle)

		timer := time.NewTimer(w.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// PollOnce runs a single cycle: load state, sync every account in name
// order, save, and fire side effects when any label advanced. It returns
// the number of advanced (account, label) pairs. The only error returned
// is a failure to save state; account failures are logged.
func (w *Watcher) PollOnce(ctx context.Context) (int, error) {
	result := CycleResult{ID: uuid.New().String(), StartedAt: time.Now()}
	log := w.log.With("cycle", result.ID)

	state, err := w.opts.Store.Load(ctx)
	if err != nil {
		log.Warn("loading state failed, starting from empty state", "err", err)
	}
	if state == nil {
		state = model.NewSyncState()
	}

	before := TakeSnapshot(state)
	next := state.Clone()

	names := make([]string, 0, len(w.opts.Accounts))
	for name := range w.opts.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		acctState, err := w.syncAccount(ctx, log, name, w.opts.Accounts[name], next.Account(name))
		next.SetAccount(name, acctState)
		if err != nil {
			result.Failed = append(result.Failed, name)
			log.Error("account sync failed", "account", name, "err", err,
				"auth", source.IsAuthError(err))
		}
	}

	// Persist even when shutdown was requested mid-cycle.
	saveCtx := context.WithoutCancel(ctx)
	saveErr := w.opts.Store.Save(saveCtx, next)
	if saveErr != nil {
		log.Error("saving state failed", "err", saveErr)
	}

	result.Advanced = CountAdvanced(before, TakeSnapshot(next)) + CountRegenerated(state, next)
	if result.Advanced > 0 {
		w.afterNewMail(ctx, log, result.Advanced)
	}

	result.FinishedAt = time.Now()
	w.record(saveCtx, log, result)

	log.Info("poll cycle complete",
		"advanced", result.Advanced, "failed", len(result.Failed),
		"took", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if saveErr != nil {
		return result.Advanced, fmt.Errorf("poll cycle %s: %w", result.ID, saveErr)
	}
	return result.Advanced, nil
}

// syncAccount opens the account's source and syncs it. On failure the
// returned state is whatever progress was made, or prev.
func (w *Watcher) syncAccount(
	ctx context.Context,
	log *slog.Logger,
	name string,
	acct model.AccountConfig,
	prev model.AccountSyncState,
) (st model.AccountSyncState, err error) {
	st = prev
	defer func() {
		if r := recover(); r != nil {
			st = prev
			err = fmt.Errorf("panic syncing account %s: %v", name, r)
		}
	}()

	src, err := w.opts.Open(ctx, name, acct)
	if err != nil {
		return prev, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Debug("closing mail source", "account", name, "err", cerr)
		}
	}()

	return w.opts.Syncer.SyncAccount(ctx, name, acct, src, prev)
}

func (w *Watcher) afterNewMail(ctx context.Context, log *slog.Logger, advanced int) {
	if w.opts.Collab != nil {
		collabCtx, cancel := context.WithTimeout(ctx, w.opts.CollabTimeout)
		err := w.opts.Collab.Trigger(collabCtx)
		cancel()
		if err != nil {
			log.Error("collaborator sync failed", "err", err)
		}
	}
	if w.opts.Notify && w.opts.Notifier != nil {
		w.opts.Notifier.Notify("corky", fmt.Sprintf("New mail in %d label(s)", advanced))
	}
}

func (w *Watcher) record(ctx context.Context, log *slog.Logger, result CycleResult) {
	w.mu.Lock()
	w.last = result
	w.mu.Unlock()

	rec, ok := w.opts.Store.(store.CycleRecorder)
	if !ok {
		return
	}
	err := rec.RecordCycle(ctx, store.Cycle{
		ID:         result.ID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Advanced:   result.Advanced,
		Errors:     len(result.Failed),
	})
	if err != nil {
		log.Warn("recording cycle failed", "err", err)
	}
}
