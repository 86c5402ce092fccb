package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/btakita/correspondence-kit/internal/credential"
	"github.com/btakita/correspondence-kit/internal/markdown"
	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/source"
	"github.com/btakita/correspondence-kit/internal/source/email"
	"github.com/btakita/correspondence-kit/internal/status"
	"github.com/btakita/correspondence-kit/internal/store"
	mailsync "github.com/btakita/correspondence-kit/internal/sync"
)

const (
	dialTimeout  = 30 * time.Second
	statusCycles = 5
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// sourceFactory dials IMAP with the account's resolved password.
func (e *environment) sourceFactory() mailsync.SourceFactory {
	var resolver credential.Resolver
	return func(ctx context.Context, name string, acct model.AccountConfig) (source.MailSource, error) {
		password, err := resolver.ResolvePassword(ctx, name, acct)
		if err != nil {
			return nil, &source.AuthError{Account: name, Message: err.Error()}
		}

		client, err := email.Dial(ctx, email.Settings{
			Account:  name,
			Host:     acct.IMAPHost,
			Port:     acct.IMAPPort,
			Username: acct.User,
			Password: password,
			StartTLS: acct.IMAPStartTLS,
			Timeout:  dialTimeout,
		}, e.log.With("account", name))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func (e *environment) newWatcher(st store.StateStore, accounts map[string]model.AccountConfig, full bool) *mailsync.Watcher {
	for name, acct := range accounts {
		if len(acct.Labels) == 0 {
			e.log.Warn("account has no labels configured", "account", name)
		}
	}

	return mailsync.New(mailsync.Options{
		Store:    st,
		Accounts: accounts,
		Open:     e.sourceFactory(),
		Syncer: &mailsync.Syncer{
			Writer: &markdown.Writer{Root: e.cfg.ConversationsDir},
			Full:   full,
			Log:    e.log,
		},
		Interval: time.Duration(e.cfg.Watch.PollInterval) * time.Second,
		Notify:   e.cfg.Watch.Notify,
		Notifier: mailsync.DesktopNotifier{},
		Collab:   mailsync.CommandTrigger{Command: e.cfg.Watch.CollabSyncCmd},
		Log:      e.log,
	})
}

func (e *environment) openStore() (store.StateStore, func(), error) {
	st, err := store.Open(e.cfg.State)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			e.log.Warn("closing state store", "err", err)
		}
	}
	return st, closeFn, nil
}

func runWatch(env *environment, args []string) error {
	fs := env.newFlagSet("watch")
	fs.Int("interval", 300, "seconds between poll cycles (overrides watch.poll_interval)")
	if err := env.setup(fs, args); err != nil {
		return err
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	accounts, err := env.accounts("")
	if err != nil {
		return err
	}
	st, closeStore, err := env.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signalContext()
	defer stop()

	return env.newWatcher(st, accounts, false).Run(ctx)
}

func runSync(env *environment, args []string) error {
	fs := env.newFlagSet("sync")
	full := fs.Bool("full", false, "re-archive every message in the lookback window")
	only := fs.String("account", "", "sync only this account")
	if err := env.setup(fs, args); err != nil {
		return err
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	accounts, err := env.accounts(*only)
	if err != nil {
		return err
	}
	st, closeStore, err := env.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signalContext()
	defer stop()

	w := env.newWatcher(st, accounts, *full)
	advanced, err := w.PollOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "%d label(s) with new mail\n", advanced)

	if failed := w.LastCycle().Failed; len(failed) > 0 {
		return fmt.Errorf("sync failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func runStatus(env *environment, args []string) error {
	fs := env.newFlagSet("status")
	if err := env.setup(fs, args); err != nil {
		return err
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	st, closeStore, err := env.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	state, err := st.Load(ctx)
	if err != nil {
		env.log.Warn("reading sync state", "err", err)
	}

	var cycles []store.Cycle
	if rec, ok := st.(store.CycleRecorder); ok {
		cycles, err = rec.RecentCycles(ctx, statusCycles)
		if err != nil {
			env.log.Warn("reading poll history", "err", err)
		}
	}

	return status.Render(env.stdout, state, cycles, time.Now())
}

func runFolders(env *environment, args []string) error {
	fs := env.newFlagSet("folders")
	only := fs.String("account", "", "list folders of this account only")
	if err := env.setup(fs, args); err != nil {
		return err
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	accounts, err := env.accounts(*only)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, stop := signalContext()
	defer stop()

	open := env.sourceFactory()
	results := make([][]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			src, err := open(gctx, name, accounts[name])
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			defer src.Close()

			folders, err := src.Folders(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = folders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		fmt.Fprintf(env.stdout, "%s:\n", name)
		for _, folder := range results[i] {
			fmt.Fprintf(env.stdout, "  %s\n", folder)
		}
	}
	return nil
}
