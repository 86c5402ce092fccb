package model

// LegacyAccount is the account name that progress from the old flat
// state layout is nested under.
const LegacyAccount = "_legacy"

// LabelState is the sync progress for one label within one account.
type LabelState struct {
	// UIDValidity identifies the generation of the label's UID numbering.
	// When the server reports a different value, LastUID is meaningless.
	UIDValidity uint32 `json:"uidvalidity" db:"uidvalidity"`

	// LastUID is the highest message UID already archived.
	LastUID uint32 `json:"last_uid" db:"last_uid"`
}

// AccountSyncState maps label names to their progress for one account.
type AccountSyncState struct {
	Labels map[string]LabelState `json:"labels"`
}

// SyncState is the persisted record of what has already been archived.
type SyncState struct {
	Accounts map[string]AccountSyncState `json:"accounts"`

	// Labels is the legacy flat layout. It is only read so that it can be
	// moved under LegacyAccount by UpgradeState.
	Labels map[string]LabelState `json:"labels"`
}

// NewSyncState returns an empty state with its maps allocated.
func NewSyncState() *SyncState {
	return &SyncState{
		Accounts: make(map[string]AccountSyncState),
		Labels:   make(map[string]LabelState),
	}
}

// NewAccountSyncState returns an empty account state.
func NewAccountSyncState() AccountSyncState {
	return AccountSyncState{Labels: make(map[string]LabelState)}
}

// Account returns a copy of the named account's state. The copy is
// empty if the account has never been synced.
func (s *SyncState) Account(name string) AccountSyncState {
	if s == nil {
		return NewAccountSyncState()
	}
	return s.Accounts[name].Clone()
}

// SetAccount replaces the named account's state.
func (s *SyncState) SetAccount(name string, acct AccountSyncState) {
	if s.Accounts == nil {
		s.Accounts = make(map[string]AccountSyncState)
	}
	s.Accounts[name] = acct.Clone()
}

// Clone returns a deep copy of the state.
func (s *SyncState) Clone() *SyncState {
	out := NewSyncState()
	if s == nil {
		return out
	}
	for name, acct := range s.Accounts {
		out.Accounts[name] = acct.Clone()
	}
	for label, ls := range s.Labels {
		out.Labels[label] = ls
	}
	return out
}

// Equal reports whether two states hold the same progress.
func (s *SyncState) Equal(other *SyncState) bool {
	a, b := s.Clone(), other.Clone()
	if len(a.Accounts) != len(b.Accounts) || len(a.Labels) != len(b.Labels) {
		return false
	}
	for name, acct := range a.Accounts {
		otherAcct, ok := b.Accounts[name]
		if !ok || !acct.Equal(otherAcct) {
			return false
		}
	}
	for label, ls := range a.Labels {
		if b.Labels[label] != ls {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the account state.
func (a AccountSyncState) Clone() AccountSyncState {
	out := NewAccountSyncState()
	for label, ls := range a.Labels {
		out.Labels[label] = ls
	}
	return out
}

// Equal reports whether two account states hold the same progress.
func (a AccountSyncState) Equal(other AccountSyncState) bool {
	if len(a.Labels) != len(other.Labels) {
		return false
	}
	for label, ls := range a.Labels {
		otherLS, ok := other.Labels[label]
		if !ok || otherLS != ls {
			return false
		}
	}
	return true
}

// UpgradeState moves progress recorded in the legacy flat layout under
// LegacyAccount. When accounts are already present the flat map is
// discarded. It reports whether the state was changed. Running it more
// than once is a no-op.
func UpgradeState(s *SyncState) bool {
	if s == nil {
		return false
	}
	if s.Accounts == nil {
		s.Accounts = make(map[string]AccountSyncState)
	}
	if len(s.Labels) == 0 {
		s.Labels = make(map[string]LabelState)
		return false
	}

	if len(s.Accounts) == 0 {
		legacy := NewAccountSyncState()
		for label, ls := range s.Labels {
			legacy.Labels[label] = ls
		}
		s.Accounts[LegacyAccount] = legacy
	}
	s.Labels = make(map[string]LabelState)
	return true
}
