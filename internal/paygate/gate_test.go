package paygate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFee = 500_000 // 0.5 USDT

func newTestGate() *Gate {
	g := New(NewMemoryStore(), "UQservice", testFee)
	g.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return g
}

func TestHasQualifyingPaymentAbsent(t *testing.T) {
	g := newTestGate()
	assert.False(t, g.HasQualifyingPayment("0xAAA"))
}

func TestBeginPaymentRequestEmptyIdentity(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("", "prompt", false)
	assert.ErrorIs(t, err, ErrEmptyIdentity)
}

func TestBeginPaymentRequestDescriptor(t *testing.T) {
	g := newTestGate()

	pr, err := g.BeginPaymentRequest("0xAAA", "prompt A", false)
	require.NoError(t, err)
	assert.Equal(t, "UQservice", pr.Destination)
	assert.Equal(t, int64(testFee), pr.Amount)
	assert.Equal(t, "sora2:0xAAA", pr.Memo)

	// Recording the request does not count as a payment.
	assert.False(t, g.HasQualifyingPayment("0xAAA"))
}

func TestConfirmationWithoutAmountSettlesPendingAction(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "prompt A", false)
	require.NoError(t, err)

	res := g.CorrelateConfirmation(Confirmation{EventID: "ev1"}, "0xAAA")
	assert.Equal(t, CorrelatedAction, res.Kind)
	assert.Equal(t, "prompt A", res.Action)
	assert.True(t, g.HasQualifyingPayment("0xAAA"))
}

func TestConsumeClearsPayment(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "prompt A", false)
	require.NoError(t, err)
	g.CorrelateConfirmation(Confirmation{}, "0xAAA")
	require.True(t, g.HasQualifyingPayment("0xAAA"))

	g.Consume("0xAAA")
	assert.False(t, g.HasQualifyingPayment("0xAAA"))

	// Idempotent.
	g.Consume("0xAAA")
	assert.False(t, g.HasQualifyingPayment("0xAAA"))
}

func TestDuplicateConfirmationDoesNotCarryActionTwice(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "prompt A", false)
	require.NoError(t, err)

	first := g.CorrelateConfirmation(Confirmation{EventID: "ev1"}, "0xAAA")
	require.Equal(t, CorrelatedAction, first.Kind)

	second := g.CorrelateConfirmation(Confirmation{EventID: "ev1"}, "0xAAA")
	assert.Equal(t, CorrelatedNoAction, second.Kind)
	assert.Empty(t, second.Action)
}

func TestSecondRequestOverwritesFirst(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "prompt A", false)
	require.NoError(t, err)
	_, err = g.BeginPaymentRequest("0xAAA", "prompt B", true)
	require.NoError(t, err)

	res := g.CorrelateConfirmation(Confirmation{}, "0xAAA")
	require.Equal(t, CorrelatedAction, res.Kind)
	assert.Equal(t, "prompt B", res.Action)
	assert.True(t, res.TestMode)
}

func TestOrphanedConfirmationWithAmount(t *testing.T) {
	g := newTestGate()

	res := g.CorrelateConfirmation(Confirmation{Amount: testFee}, "0xBBB")
	assert.Equal(t, CorrelatedNoAction, res.Kind)
	assert.Equal(t, "reported-amount", res.Matcher)
	assert.True(t, g.HasQualifyingPayment("0xBBB"))
}

func TestOrphanedConfirmationBelowFee(t *testing.T) {
	g := newTestGate()

	res := g.CorrelateConfirmation(Confirmation{Amount: testFee - 1}, "0xBBB")
	assert.Equal(t, NotCorrelated, res.Kind)
	assert.False(t, g.HasQualifyingPayment("0xBBB"))
}

func TestConfirmationAfterConsumeIsUnrelated(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "cat video", false)
	require.NoError(t, err)
	res := g.CorrelateConfirmation(Confirmation{}, "0xAAA")
	require.Equal(t, "cat video", res.Action)
	g.Consume("0xAAA")

	replay := g.CorrelateConfirmation(Confirmation{}, "0xAAA")
	assert.Equal(t, NotCorrelated, replay.Kind)
}

func TestPaidEntryAllowsDirectGeneration(t *testing.T) {
	g := newTestGate()
	// 0xCCC has a paid, unconsumed entry from an orphaned confirmation.
	g.CorrelateConfirmation(Confirmation{Amount: testFee}, "0xCCC")

	// A new gated request sees the qualifying payment and runs directly,
	// without emitting a new payment request.
	assert.True(t, g.HasQualifyingPayment("0xCCC"))
}

func TestPendingActionPreservedAcrossPromotion(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "prompt A", true)
	require.NoError(t, err)
	g.CorrelateConfirmation(Confirmation{}, "0xAAA")

	e, ok := g.store.Get("0xAAA")
	require.True(t, ok)
	assert.True(t, e.Paid)
	assert.Equal(t, int64(testFee), e.AmountPaid)
	assert.NotZero(t, e.ConfirmedAt)
	assert.Equal(t, "prompt A", e.PendingAction)
	assert.True(t, e.TestMode)
}

func TestAmountPaidIsFixedFeeNotClaimedAmount(t *testing.T) {
	g := newTestGate()
	_, err := g.BeginPaymentRequest("0xAAA", "prompt A", false)
	require.NoError(t, err)
	g.CorrelateConfirmation(Confirmation{Amount: 10 * testFee}, "0xAAA")

	e, _ := g.store.Get("0xAAA")
	assert.Equal(t, int64(testFee), e.AmountPaid)
}
