package thread

import (
	"testing"

	"github.com/btakita/correspondence-kit/internal/model"
)

func TestKey(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Budget", "budget"},
		{"Re: Budget", "budget"},
		{"RE:  Budget", "budget"},
		{"Fwd: Budget", "budget"},
		{"FW: Budget", "budget"},
		{"re:Budget", "budget"},
		{"  Budget  ", "budget"},
		{"Re: Re: Budget", "re: budget"},
		{"Reply needed", "reply needed"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Key(tt.subject); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestAssemble_GroupsBySubject(t *testing.T) {
	msgs := []model.Message{
		{ID: "1", Subject: "Budget", Date: "Mon, 1 Jan 2024 10:00:00 +0000"},
		{ID: "2", Subject: "Trip", Date: "Mon, 1 Jan 2024 11:00:00 +0000"},
		{ID: "3", Subject: "Re: Budget", Date: "Tue, 2 Jan 2024 09:00:00 +0000"},
		{ID: "4", Subject: "RE:  Budget", Date: "Wed, 3 Jan 2024 09:00:00 +0000"},
	}

	set := Assemble("inbox", msgs)
	if set.Len() != 2 {
		t.Fatalf("expected 2 threads, got %d", set.Len())
	}

	threads := set.Threads()
	if threads[0].ID != "budget" || threads[1].ID != "trip" {
		t.Fatalf("unexpected thread order: %q, %q", threads[0].ID, threads[1].ID)
	}

	budget := threads[0]
	if budget.Label != "inbox" {
		t.Errorf("expected label inbox, got %q", budget.Label)
	}
	if budget.Subject != "Budget" {
		t.Errorf("expected subject of first message, got %q", budget.Subject)
	}
	if len(budget.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(budget.Messages))
	}
	for i, id := range []string{"1", "3", "4"} {
		if budget.Messages[i].ID != id {
			t.Errorf("message %d: expected id %s, got %s", i, id, budget.Messages[i].ID)
		}
		if budget.Messages[i].ThreadKey != "budget" {
			t.Errorf("message %d: expected thread key budget, got %q", i, budget.Messages[i].ThreadKey)
		}
	}
	if budget.LastDate != "Wed, 3 Jan 2024 09:00:00 +0000" {
		t.Errorf("unexpected last date %q", budget.LastDate)
	}
}

func TestAssemble_LastDateFollowsArrivalOrder(t *testing.T) {
	msgs := []model.Message{
		{ID: "1", Subject: "Trip", Date: "Fri, 5 Jan 2024 10:00:00 +0000"},
		{ID: "2", Subject: "Re: Trip", Date: "Thu, 4 Jan 2024 10:00:00 +0000"},
	}

	set := Assemble("inbox", msgs)
	got, ok := set.Get("trip")
	if !ok {
		t.Fatal("expected thread trip")
	}
	if got.LastDate != "Thu, 4 Jan 2024 10:00:00 +0000" {
		t.Errorf("expected last appended date, got %q", got.LastDate)
	}
}

func TestAssemble_Empty(t *testing.T) {
	set := Assemble("inbox", nil)
	if set.Len() != 0 || len(set.Threads()) != 0 {
		t.Fatalf("expected empty set, got %d threads", set.Len())
	}
	if _, ok := set.Get("anything"); ok {
		t.Fatal("expected lookup miss on empty set")
	}
}
