package paygate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func matcherByName(t *testing.T, name string) matcher {
	t.Helper()
	for _, m := range correlationMatchers {
		if m.name == name {
			return m
		}
	}
	t.Fatalf("no matcher named %q", name)
	return matcher{}
}

func TestMatcherOrder(t *testing.T) {
	var names []string
	for _, m := range correlationMatchers {
		names = append(names, m.name)
	}
	assert.Equal(t, []string{
		"pending-action",
		"recent-confirmed",
		"any-entry",
		"reported-amount",
	}, names)
	assert.True(t, correlationMatchers[0].carriesAction)
	for _, m := range correlationMatchers[1:] {
		assert.False(t, m.carriesAction, m.name)
	}
}

func TestPendingActionMatcher(t *testing.T) {
	m := matcherByName(t, "pending-action")
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, m.match(Entry{PendingAction: "p"}, true, Confirmation{}, now, testFee))
	assert.False(t, m.match(Entry{PendingAction: "p", Paid: true}, true, Confirmation{}, now, testFee))
	assert.False(t, m.match(Entry{}, true, Confirmation{}, now, testFee))
	assert.False(t, m.match(Entry{PendingAction: "p"}, false, Confirmation{}, now, testFee))
}

func TestRecentConfirmedMatcher(t *testing.T) {
	m := matcherByName(t, "recent-confirmed")
	now := time.Unix(1_700_000_000, 0)

	fresh := Entry{Paid: true, ConfirmedAt: now.Unix() - 60, PendingAction: "p"}
	assert.True(t, m.match(fresh, true, Confirmation{}, now, testFee))

	stale := Entry{Paid: true, ConfirmedAt: now.Unix() - 301, PendingAction: "p"}
	assert.False(t, m.match(stale, true, Confirmation{}, now, testFee))

	noAction := Entry{Paid: true, ConfirmedAt: now.Unix() - 60}
	assert.False(t, m.match(noAction, true, Confirmation{}, now, testFee))

	unconfirmed := Entry{PendingAction: "p"}
	assert.False(t, m.match(unconfirmed, true, Confirmation{}, now, testFee))
}

func TestAnyEntryMatcher(t *testing.T) {
	m := matcherByName(t, "any-entry")
	now := time.Unix(1_700_000_000, 0)

	old := Entry{Paid: true, ConfirmedAt: now.Unix() - 86_400}
	assert.True(t, m.match(old, true, Confirmation{}, now, testFee))

	assert.False(t, m.match(Entry{PendingAction: "p"}, true, Confirmation{}, now, testFee))
	assert.False(t, m.match(Entry{}, false, Confirmation{}, now, testFee))
}

func TestReportedAmountMatcher(t *testing.T) {
	m := matcherByName(t, "reported-amount")
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, m.match(Entry{}, false, Confirmation{Amount: testFee}, now, testFee))
	assert.True(t, m.match(Entry{}, false, Confirmation{Amount: testFee + 1}, now, testFee))
	assert.False(t, m.match(Entry{}, false, Confirmation{Amount: testFee - 1}, now, testFee))
	assert.False(t, m.match(Entry{}, false, Confirmation{}, now, testFee))
}
