package model

import "testing"

func TestUpgradeState_MigratesLegacyLabels(t *testing.T) {
	s := &SyncState{
		Labels: map[string]LabelState{
			"inbox": {UIDValidity: 1, LastUID: 100},
			"sent":  {UIDValidity: 2, LastUID: 7},
		},
	}

	if !UpgradeState(s) {
		t.Fatal("expected upgrade to report a change")
	}
	if len(s.Labels) != 0 {
		t.Fatalf("expected flat labels cleared, got %+v", s.Labels)
	}
	legacy, ok := s.Accounts[LegacyAccount]
	if !ok {
		t.Fatalf("expected %s account", LegacyAccount)
	}
	if len(legacy.Labels) != 2 || legacy.Labels["inbox"].LastUID != 100 || legacy.Labels["sent"].LastUID != 7 {
		t.Fatalf("unexpected legacy labels %+v", legacy.Labels)
	}
}

func TestUpgradeState_Idempotent(t *testing.T) {
	s := &SyncState{
		Labels: map[string]LabelState{"inbox": {UIDValidity: 1, LastUID: 100}},
	}

	UpgradeState(s)
	once := s.Clone()

	if UpgradeState(s) {
		t.Fatal("second upgrade should be a no-op")
	}
	if !s.Equal(once) {
		t.Fatalf("second upgrade changed state: %+v vs %+v", s, once)
	}
}

func TestUpgradeState_AccountsWin(t *testing.T) {
	s := &SyncState{
		Accounts: map[string]AccountSyncState{
			"personal": {Labels: map[string]LabelState{"inbox": {UIDValidity: 1, LastUID: 50}}},
		},
		Labels: map[string]LabelState{"inbox": {UIDValidity: 1, LastUID: 10}},
	}

	UpgradeState(s)
	if len(s.Labels) != 0 {
		t.Fatalf("expected flat labels cleared, got %+v", s.Labels)
	}
	if _, ok := s.Accounts[LegacyAccount]; ok {
		t.Fatal("legacy account should not be created when accounts exist")
	}
	if s.Accounts["personal"].Labels["inbox"].LastUID != 50 {
		t.Fatalf("account progress changed: %+v", s.Accounts["personal"])
	}
}

func TestUpgradeState_NilMaps(t *testing.T) {
	s := &SyncState{}
	if UpgradeState(s) {
		t.Fatal("empty state should not report a change")
	}
	if s.Accounts == nil || s.Labels == nil {
		t.Fatal("expected maps to be allocated")
	}
	if UpgradeState(nil) {
		t.Fatal("nil state should not report a change")
	}
}

func TestSyncState_CloneIsDeep(t *testing.T) {
	s := NewSyncState()
	s.SetAccount("a", AccountSyncState{Labels: map[string]LabelState{"inbox": {UIDValidity: 1, LastUID: 1}}})

	c := s.Clone()
	acct := c.Accounts["a"]
	acct.Labels["inbox"] = LabelState{UIDValidity: 1, LastUID: 99}

	if s.Accounts["a"].Labels["inbox"].LastUID != 1 {
		t.Fatal("mutating the clone changed the original")
	}
	if s.Equal(c) {
		t.Fatal("expected states to differ after mutation")
	}
}

func TestSyncState_Account(t *testing.T) {
	s := NewSyncState()
	got := s.Account("missing")
	if got.Labels == nil || len(got.Labels) != 0 {
		t.Fatalf("expected empty labels, got %+v", got)
	}

	s.SetAccount("a", AccountSyncState{Labels: map[string]LabelState{"inbox": {LastUID: 3}}})
	got = s.Account("a")
	got.Labels["inbox"] = LabelState{LastUID: 4}
	if s.Accounts["a"].Labels["inbox"].LastUID != 3 {
		t.Fatal("Account should return a copy")
	}
}
