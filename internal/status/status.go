// Package status renders sync progress for the status command.
package status

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/store"
	"github.com/btakita/correspondence-kit/internal/theme"
)

const (
	accountWidth = 16
	labelWidth   = 28
	numberWidth  = 14
)

// Render writes the per-label watermarks of state and, when given, the
// recent poll cycles. now anchors relative times.
func Render(w io.Writer, state *model.SyncState, cycles []store.Cycle, now time.Time) error {
	var b strings.Builder

	b.WriteString(theme.HeaderStyle.Render("Sync state"))
	b.WriteString("\n\n")
	renderState(&b, state)

	if len(cycles) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.HeaderStyle.Render("Recent cycles"))
		b.WriteString("\n\n")
		renderCycles(&b, cycles, now)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderState(b *strings.Builder, state *model.SyncState) {
	if state == nil || len(state.Accounts) == 0 {
		b.WriteString(theme.HelpStyle.Render("No labels synced yet."))
		b.WriteString("\n")
		return
	}

	b.WriteString(row(theme.ColumnStyle, "ACCOUNT", "LABEL", "UIDVALIDITY", "LAST UID"))

	accounts := make([]string, 0, len(state.Accounts))
	for name := range state.Accounts {
		accounts = append(accounts, name)
	}
	sort.Strings(accounts)

	for _, name := range accounts {
		acct := state.Accounts[name]
		labels := make([]string, 0, len(acct.Labels))
		for label := range acct.Labels {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		if len(labels) == 0 {
			b.WriteString(theme.Cell(accountWidth).Inherit(theme.AccountStyle).Render(name))
			b.WriteString(theme.HelpStyle.Render("no labels"))
			b.WriteString("\n")
			continue
		}

		for i, label := range labels {
			ls := acct.Labels[label]
			account := ""
			if i == 0 {
				account = theme.AccountStyle.Render(name)
			}
			b.WriteString(theme.Cell(accountWidth).Render(account))
			b.WriteString(theme.Cell(labelWidth).Render(label))
			b.WriteString(theme.Cell(numberWidth).Render(fmt.Sprint(ls.UIDValidity)))
			b.WriteString(humanize.Comma(int64(ls.LastUID)))
			b.WriteString("\n")
		}
	}
}

func renderCycles(b *strings.Builder, cycles []store.Cycle, now time.Time) {
	for _, c := range cycles {
		outcome := fmt.Sprintf("%d advanced, %d failed", c.Advanced, c.Errors)
		took := c.FinishedAt.Sub(c.StartedAt).Round(time.Millisecond)

		b.WriteString(theme.Cell(accountWidth).Render(humanize.RelTime(c.FinishedAt, now, "ago", "from now")))
		b.WriteString(theme.Cell(labelWidth).Render(theme.CycleStyle(c.Advanced, c.Errors).Render(outcome)))
		b.WriteString(took.String())
		b.WriteString("\n")
	}
}

func row(style lipgloss.Style, account, label, validity, last string) string {
	return theme.Cell(accountWidth).Render(style.Render(account)) +
		theme.Cell(labelWidth).Render(style.Render(label)) +
		theme.Cell(numberWidth).Render(style.Render(validity)) +
		style.Render(last) + "\n"
}
