package storage

import (
	"database/sql"
	"log/slog"

	"github.com/clipchain/sora-bot/internal/paygate"
)

// GateStore is a paygate.Store backed by the gate_entries table, so paid
// but unconsumed entitlements survive a restart. Database failures are
// logged and degrade to "entry absent" rather than crashing the gate.
type GateStore struct {
	s   *Storage
	log *slog.Logger
}

// GateStore returns a persistent store for the payment gate
func (s *Storage) GateStore(log *slog.Logger) *GateStore {
	return &GateStore{s: s, log: log}
}

func (g *GateStore) Get(identity string) (paygate.Entry, bool) {
	var e paygate.Entry
	var paid, testMode int

	err := g.s.db.QueryRow(
		`SELECT paid, amount_paid, confirmed_at, pending_action, test_mode
		 FROM gate_entries WHERE identity = ?`,
		identity,
	).Scan(&paid, &e.AmountPaid, &e.ConfirmedAt, &e.PendingAction, &testMode)

	if err == sql.ErrNoRows {
		return paygate.Entry{}, false
	}
	if err != nil {
		g.log.Error("gate store get", "identity", identity, "error", err)
		return paygate.Entry{}, false
	}

	e.Paid = paid != 0
	e.TestMode = testMode != 0
	return e, true
}

func (g *GateStore) Set(identity string, e paygate.Entry) {
	_, err := g.s.db.Exec(
		`INSERT INTO gate_entries (identity, paid, amount_paid, confirmed_at, pending_action, test_mode)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET
			paid = excluded.paid,
			amount_paid = excluded.amount_paid,
			confirmed_at = excluded.confirmed_at,
			pending_action = excluded.pending_action,
			test_mode = excluded.test_mode`,
		identity, boolInt(e.Paid), e.AmountPaid, e.ConfirmedAt, e.PendingAction, boolInt(e.TestMode),
	)
	if err != nil {
		g.log.Error("gate store set", "identity", identity, "error", err)
	}
}

func (g *GateStore) Delete(identity string) {
	_, err := g.s.db.Exec("DELETE FROM gate_entries WHERE identity = ?", identity)
	if err != nil {
		g.log.Error("gate store delete", "identity", identity, "error", err)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
