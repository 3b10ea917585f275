package paygate

import "time"

// recentWindow is how long a confirmed entry still counts as "this action's
// payment" for a re-delivered confirmation.
const recentWindow = 5 * time.Minute

// matcher decides whether an incoming confirmation belongs to the stored
// entry (or, for metadata-only matchers, stands on its own). Matchers are
// evaluated in order; the first hit wins.
type matcher struct {
	name string
	// carriesAction marks the only matcher whose hit hands the pending
	// action back to the caller for execution.
	carriesAction bool
	match         func(e Entry, found bool, conf Confirmation, now time.Time, fee int64) bool
}

// correlationMatchers is the full precedence list, most specific first.
// The later entries are deliberately permissive: confirmations arrive with
// unreliable metadata and no shared correlation ID, so a strict join is
// not possible.
var correlationMatchers = []matcher{
	{
		name:          "pending-action",
		carriesAction: true,
		match: func(e Entry, found bool, _ Confirmation, _ time.Time, _ int64) bool {
			return found && !e.Paid && e.PendingAction != ""
		},
	},
	{
		name: "recent-confirmed",
		match: func(e Entry, found bool, _ Confirmation, now time.Time, _ int64) bool {
			if !found || e.ConfirmedAt == 0 || e.PendingAction == "" {
				return false
			}
			age := now.Unix() - e.ConfirmedAt
			return age >= 0 && age <= int64(recentWindow.Seconds())
		},
	},
	{
		name: "any-entry",
		match: func(e Entry, found bool, _ Confirmation, _ time.Time, _ int64) bool {
			return found && e.ConfirmedAt != 0
		},
	},
	{
		name: "reported-amount",
		match: func(_ Entry, _ bool, conf Confirmation, _ time.Time, fee int64) bool {
			return conf.Amount >= fee
		},
	},
}
