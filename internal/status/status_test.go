package status

import (
	"strings"
	"testing"
	"time"

	"github.com/btakita/correspondence-kit/internal/model"
	"github.com/btakita/correspondence-kit/internal/store"
)

func TestRender_Empty(t *testing.T) {
	var b strings.Builder
	if err := Render(&b, model.NewSyncState(), nil, time.Now()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(b.String(), "No labels synced yet.") {
		t.Fatalf("unexpected output:\n%s", b.String())
	}
	if strings.Contains(b.String(), "Recent cycles") {
		t.Fatal("cycle section rendered without cycles")
	}
}

func TestRender_State(t *testing.T) {
	state := model.NewSyncState()
	state.Accounts["work"] = model.AccountSyncState{Labels: map[string]model.LabelState{
		"inbox":           {UIDValidity: 7, LastUID: 12345},
		"[Gmail]/Starred": {UIDValidity: 7, LastUID: 3},
	}}
	state.Accounts["personal"] = model.NewAccountSyncState()

	var b strings.Builder
	if err := Render(&b, state, nil, time.Now()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()

	for _, want := range []string{"work", "inbox", "12,345", "[Gmail]/Starred", "personal", "no labels"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "personal") > strings.Index(out, "work") {
		t.Error("accounts are not sorted by name")
	}
	if strings.Index(out, "[Gmail]/Starred") > strings.Index(out, "inbox") {
		t.Error("labels are not sorted by name")
	}
}

func TestRender_Cycles(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cycles := []store.Cycle{{
		ID:         "c1",
		StartedAt:  now.Add(-5*time.Minute - 1500*time.Millisecond),
		FinishedAt: now.Add(-5 * time.Minute),
		Advanced:   2,
		Errors:     1,
	}}

	var b strings.Builder
	if err := Render(&b, model.NewSyncState(), cycles, now); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()
	for _, want := range []string{"Recent cycles", "5 minutes ago", "2 advanced, 1 failed", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
