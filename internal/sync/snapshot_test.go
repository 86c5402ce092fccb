package sync

import (
	"reflect"
	"testing"

	"github.com/btakita/correspondence-kit/internal/model"
)

func TestTakeSnapshot(t *testing.T) {
	state := model.NewSyncState()
	state.Accounts["a"] = model.AccountSyncState{Labels: map[string]model.LabelState{
		"inbox": {UIDValidity: 1, LastUID: 100},
	}}

	want := Snapshot{"a": {"inbox": 100}}
	if got := TakeSnapshot(state); !reflect.DeepEqual(got, want) {
		t.Fatalf("TakeSnapshot = %v, want %v", got, want)
	}

	// The snapshot does not alias the state.
	snap := TakeSnapshot(state)
	snap["a"]["inbox"] = 1
	if state.Accounts["a"].Labels["inbox"].LastUID != 100 {
		t.Fatal("mutating the snapshot changed the state")
	}

	if got := TakeSnapshot(nil); len(got) != 0 {
		t.Fatalf("expected empty snapshot for nil state, got %v", got)
	}
}

func TestCountAdvanced(t *testing.T) {
	tests := []struct {
		name   string
		before Snapshot
		after  Snapshot
		want   int
	}{
		{
			name:   "self diff",
			before: Snapshot{"a": {"inbox": 100}},
			after:  Snapshot{"a": {"inbox": 100}},
			want:   0,
		},
		{
			name:   "one label advanced by many messages",
			before: Snapshot{"a": {"inbox": 100, "sent": 50}},
			after:  Snapshot{"a": {"inbox": 105, "sent": 50}},
			want:   1,
		},
		{
			name:   "new account",
			before: Snapshot{},
			after:  Snapshot{"a": {"inbox": 10}},
			want:   1,
		},
		{
			name:   "new label",
			before: Snapshot{"a": {"inbox": 100}},
			after:  Snapshot{"a": {"inbox": 100, "sent": 50}},
			want:   1,
		},
		{
			name:   "account gains two labels",
			before: Snapshot{"a": {}},
			after:  Snapshot{"a": {"inbox": 3, "sent": 9}},
			want:   2,
		},
		{
			name:   "new label with zero uid",
			before: Snapshot{},
			after:  Snapshot{"a": {"inbox": 0}},
			want:   0,
		},
		{
			name:   "regression is not an advance",
			before: Snapshot{"a": {"inbox": 100}},
			after:  Snapshot{"a": {"inbox": 0}},
			want:   0,
		},
		{
			name:   "multiple accounts",
			before: Snapshot{"a": {"inbox": 1}, "b": {"inbox": 1}},
			after:  Snapshot{"a": {"inbox": 2}, "b": {"inbox": 2}, "c": {"x": 1}},
			want:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountAdvanced(tt.before, tt.after); got != tt.want {
				t.Errorf("CountAdvanced = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountRegenerated(t *testing.T) {
	state := func(uv, last uint32) *model.SyncState {
		s := model.NewSyncState()
		s.Accounts["a"] = model.AccountSyncState{Labels: map[string]model.LabelState{
			"inbox": {UIDValidity: uv, LastUID: last},
		}}
		return s
	}

	tests := []struct {
		name          string
		before, after *model.SyncState
		want          int
	}{
		{name: "unchanged", before: state(3, 500), after: state(3, 500), want: 0},
		{name: "uidvalidity reset with mail", before: state(3, 500), after: state(7, 2), want: 1},
		{name: "uidvalidity reset, empty label", before: state(3, 500), after: state(7, 0), want: 0},
		{name: "reset past old watermark counted by CountAdvanced", before: state(3, 5), after: state(7, 9), want: 0},
		{name: "first sync", before: model.NewSyncState(), after: state(7, 2), want: 0},
		{name: "unknown previous uidvalidity", before: state(0, 5), after: state(7, 2), want: 0},
		{name: "nil states", before: nil, after: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountRegenerated(tt.before, tt.after); got != tt.want {
				t.Errorf("CountRegenerated = %d, want %d", got, tt.want)
			}
		})
	}
}
