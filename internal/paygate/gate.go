// Package paygate gates video generation behind a stablecoin micro-payment.
//
// A generation request either finds a qualifying payment already on record
// and runs immediately, or records a pending entry and hands the caller the
// parameters for a transfer request. The on-chain confirmation arrives later
// as a separate event with no shared correlation ID, so the gate matches it
// back to the pending entry with a prioritized list of increasingly
// permissive heuristics (see matchers.go).
package paygate

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrEmptyIdentity = errors.New("paygate: empty identity")

// Confirmation is an inbound payment event from the rail. Amount is the
// claimed transfer amount in minor units; 0 means the metadata did not
// report one, which is common in practice.
type Confirmation struct {
	EventID string
	Amount  int64
	Sender  string
	Comment string
}

// PaymentRequest carries the parameters for building a transfer request.
// The gate only produces them; sending is up to the caller.
type PaymentRequest struct {
	Destination string
	Amount      int64 // minor units
	Memo        string
}

// CorrelationKind classifies a correlation outcome.
type CorrelationKind int

const (
	// NotCorrelated means the confirmation is unrelated to the gate.
	NotCorrelated CorrelationKind = iota
	// CorrelatedNoAction means a qualifying payment was recorded but no
	// deferred action should run now.
	CorrelatedNoAction
	// CorrelatedAction means the payment settles a pending request; the
	// carried action should be executed.
	CorrelatedAction
)

// CorrelationResult is the outcome of matching a confirmation. Action and
// TestMode are only meaningful for CorrelatedAction.
type CorrelationResult struct {
	Kind     CorrelationKind
	Matcher  string
	Action   string
	TestMode bool
}

// Gate decides whether a gated action may proceed for a given identity and
// correlates later confirmations back to pending requests. All mutations go
// through a single mutex: chat updates and payment events arrive on
// separate goroutines.
type Gate struct {
	mu          sync.Mutex
	store       Store
	destination string
	fee         int64 // required fee, minor units

	now func() time.Time
}

// New creates a Gate paying into destination, requiring fee minor units per
// generation.
func New(store Store, destination string, fee int64) *Gate {
	return &Gate{
		store:       store,
		destination: destination,
		fee:         fee,
		now:         time.Now,
	}
}

// HasQualifyingPayment reports whether identity has a confirmed payment
// covering the fee. No side effects.
func (g *Gate) HasQualifyingPayment(identity string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.store.Get(identity)
	return ok && e.Paid && e.AmountPaid >= g.fee
}

// BeginPaymentRequest records a fresh pending entry for identity carrying
// the action, overwriting whatever was there before, and returns the
// transfer parameters. A previous unconsumed entry for the same identity is
// lost; callers should check HasQualifyingPayment first.
func (g *Gate) BeginPaymentRequest(identity, action string, testMode bool) (PaymentRequest, error) {
	if identity == "" {
		return PaymentRequest{}, ErrEmptyIdentity
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.store.Set(identity, Entry{
		Paid:          false,
		AmountPaid:    0,
		ConfirmedAt:   0,
		PendingAction: action,
		TestMode:      testMode,
	})

	return PaymentRequest{
		Destination: g.destination,
		Amount:      g.fee,
		Memo:        fmt.Sprintf("sora2:%s", identity),
	}, nil
}

// CorrelateConfirmation matches an inbound confirmation to identity's entry
// using the matcher precedence list. On any match the entry is promoted to
// paid with AmountPaid set to the required fee (not the claimed on-chain
// amount) and the pending action preserved. Only the pending-action matcher
// hands the action back for execution; a duplicate confirmation therefore
// falls through to a no-action match instead of re-triggering generation.
func (g *Gate) CorrelateConfirmation(conf Confirmation, identity string) CorrelationResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, found := g.store.Get(identity)
	now := g.now()

	for _, m := range correlationMatchers {
		if !m.match(e, found, conf, now, g.fee) {
			continue
		}

		promoted := Entry{
			Paid:          true,
			AmountPaid:    g.fee,
			ConfirmedAt:   now.Unix(),
			PendingAction: e.PendingAction,
			TestMode:      e.TestMode,
		}
		g.store.Set(identity, promoted)

		res := CorrelationResult{
			Kind:    CorrelatedNoAction,
			Matcher: m.name,
		}
		if m.carriesAction {
			res.Kind = CorrelatedAction
			res.Action = e.PendingAction
			res.TestMode = e.TestMode
		}
		return res
	}

	return CorrelationResult{Kind: NotCorrelated}
}

// Consume removes identity's entry after its gated action has been
// delivered. Idempotent.
func (g *Gate) Consume(identity string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.store.Delete(identity)
}
