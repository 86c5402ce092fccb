package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/btakita/correspondence-kit/internal/markdown"
	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/source"
	"github.com/btakita/correspondence-kit/internal/source/email"
	"github.com/btakita/correspondence-kit/internal/thread"
)

// Syncer archives the configured labels of one account at a time.
type Syncer struct {
	// Writer receives the rendered threads.
	Writer *markdown.Writer

	// Full ignores stored watermarks and re-archives the whole lookback
	// window.
	Full bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	Log *slog.Logger
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// since returns UTC midnight syncDays before today.
func (s *Syncer) since(syncDays int) time.Time {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -syncDays)
}

// SyncAccount archives every label configured for acct from src and
// returns the account's new state. prev is never modified. Labels that
// do not exist on the server are skipped. A label that fails keeps its
// previous state and its error is included in the returned error; the
// remaining labels are still synced. The returned state is always
// usable, even when the error is non-nil.
func (s *Syncer) SyncAccount(
	ctx context.Context,
	name string,
	acct model.AccountConfig,
	src source.MailSource,
	prev model.AccountSyncState,
) (model.AccountSyncState, error) {
	next := prev.Clone()
	log := s.log().With("account", name)

	var errs []error
	for _, label := range acct.Labels {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		prevLabel := next.Labels[label]
		ls, err := s.syncLabel(ctx, log.With("label", label), acct, src, label, prevLabel)
		if err != nil {
			log.Error("label sync failed", "label", label, "err", err)
			errs = append(errs, fmt.Errorf("label %q: %w", label, err))
			continue
		}
		if ls != prevLabel {
			next.Labels[label] = ls
		}
	}

	return next, errors.Join(errs...)
}

func (s *Syncer) syncLabel(
	ctx context.Context,
	log *slog.Logger,
	acct model.AccountConfig,
	src source.MailSource,
	label string,
	prev model.LabelState,
) (model.LabelState, error) {
	mbox, err := src.Select(ctx, label)
	if errors.Is(err, source.ErrLabelNotFound) {
		log.Warn("label not found, skipping")
		return prev, nil
	}
	if err != nil {
		return prev, err
	}

	next := model.LabelState{UIDValidity: mbox.UIDValidity, LastUID: prev.LastUID}
	if prev.UIDValidity != 0 && prev.UIDValidity != mbox.UIDValidity {
		log.Warn("uidvalidity changed, re-archiving label",
			"old", prev.UIDValidity, "new", mbox.UIDValidity)
		next.LastUID = 0
	}

	// threshold is the UID a message must exceed to trigger a fetch.
	threshold := next.LastUID
	if s.Full {
		threshold = 0
	}

	since := s.since(acct.SyncDays)
	uids, err := src.Search(ctx, since)
	if err != nil {
		return prev, err
	}

	maxUID := uint32(0)
	for _, uid := range uids {
		maxUID = max(maxUID, uid)
	}
	if maxUID <= threshold {
		log.Debug("no new messages", "found", len(uids), "last_uid", next.LastUID)
		return next, nil
	}

	raws, err := src.Fetch(ctx, uids)
	if err != nil {
		return prev, err
	}

	msgs := make([]model.Message, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, email.ParseMessage(raw))
	}

	threads := thread.Assemble(label, msgs).Threads()
	paths, err := s.Writer.WriteThreads(threads, s.now())
	if err != nil {
		return prev, fmt.Errorf("writing threads: %w", err)
	}

	log.Info("label synced",
		"messages", len(msgs), "threads", len(threads), "files", len(paths),
		"last_uid", maxUID, "since", since.Format(time.DateOnly))

	next.LastUID = max(next.LastUID, maxUID)
	return next, nil
}
