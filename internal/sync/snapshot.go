package sync

import "github.com/btakita/correspondence-kit/internal/model"

// Snapshot maps account → label → last archived UID. It is used only
// to compare state across a poll cycle.
type Snapshot map[string]map[string]uint32

// TakeSnapshot projects state into a Snapshot.
func TakeSnapshot(state *model.SyncState) Snapshot {
	snap := make(Snapshot)
	if state == nil {
		return snap
	}
	for account, acct := range state.Accounts {
		labels := make(map[string]uint32, len(acct.Labels))
		for label, ls := range acct.Labels {
			labels[label] = ls.LastUID
		}
		snap[account] = labels
	}
	return snap
}

// CountAdvanced returns the number of (account, label) pairs whose UID
// in after is greater than in before. Pairs missing from before count
// as 0. The result counts labels with new mail, not messages.
func CountAdvanced(before, after Snapshot) int {
	n := 0
	for account, labels := range after {
		prev := before[account]
		for label, uid := range labels {
			if uid > prev[label] {
				n++
			}
		}
	}
	return n
}

// CountRegenerated returns the number of (account, label) pairs whose
// uidvalidity changed between before and after and which archived mail
// under the new uidvalidity without passing the old watermark. Such
// labels were re-archived even though CountAdvanced does not see them.
func CountRegenerated(before, after *model.SyncState) int {
	if before == nil || after == nil {
		return 0
	}
	n := 0
	for account, acct := range after.Accounts {
		prev := before.Accounts[account]
		for label, ls := range acct.Labels {
			old, ok := prev.Labels[label]
			if !ok || old.UIDValidity == 0 || old.UIDValidity == ls.UIDValidity {
				continue
			}
			if ls.LastUID > 0 && ls.LastUID <= old.LastUID {
				n++
			}
		}
	}
	return n
}
