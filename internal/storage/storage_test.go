package storage

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipchain/sora-bot/internal/paygate"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLinkWallet(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.LinkWallet(42, "0:abc", "UQabc"))

	w, err := s.GetLinkedWallet(42)
	require.NoError(t, err)
	assert.Equal(t, "0:abc", w.AddressRaw)
	assert.Equal(t, "UQabc", w.AddressDisplay)

	// Relinking replaces the previous address.
	require.NoError(t, s.LinkWallet(42, "0:def", "UQdef"))
	w, err = s.GetLinkedWallet(42)
	require.NoError(t, err)
	assert.Equal(t, "0:def", w.AddressRaw)

	userID, err := s.GetUserByWallet("0:def")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = s.GetUserByWallet("0:abc")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetLinkedWallet(7)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UnlinkWallet(42))
	_, err = s.GetLinkedWallet(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkConfirmationProcessed(t *testing.T) {
	s := newTestStorage(t)

	isNew, err := s.MarkConfirmationProcessed("ev1")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = s.MarkConfirmationProcessed("ev1")
	require.NoError(t, err)
	assert.False(t, isNew)

	isNew, err = s.MarkConfirmationProcessed("ev2")
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestVideosAndLeaderboard(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.SaveVideo(1, 100, "cat video", "https://v/1.mp4")
	require.NoError(t, err)
	_, err = s.SaveVideo(1, 100, "dog video", "https://v/2.mp4")
	require.NoError(t, err)
	_, err = s.SaveVideo(2, 200, "sunset", "https://v/3.mp4")
	require.NoError(t, err)

	last, err := s.GetLastVideo(100)
	require.NoError(t, err)
	assert.Equal(t, "dog video", last.Prompt)
	assert.Equal(t, "https://v/2.mp4", last.URL)

	_, err = s.GetLastVideo(999)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := s.CountVideos(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	top, err := s.TopCreators(10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].UserID)
	assert.Equal(t, 2, top[0].VideoCount)
}

func TestGateStoreRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gs := s.GateStore(log)

	_, ok := gs.Get("0:abc")
	assert.False(t, ok)

	entry := paygate.Entry{
		Paid:          true,
		AmountPaid:    500_000,
		ConfirmedAt:   1_700_000_000,
		PendingAction: "a cat video",
		TestMode:      true,
	}
	gs.Set("0:abc", entry)

	got, ok := gs.Get("0:abc")
	require.True(t, ok)
	assert.Equal(t, entry, got)

	// Last write wins.
	entry.Paid = false
	entry.ConfirmedAt = 0
	gs.Set("0:abc", entry)
	got, _ = gs.Get("0:abc")
	assert.False(t, got.Paid)

	gs.Delete("0:abc")
	_, ok = gs.Get("0:abc")
	assert.False(t, ok)

	// Delete of absent identity is a no-op.
	gs.Delete("0:abc")
}

func TestGateStoreDrivesGate(t *testing.T) {
	s := newTestStorage(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	gate := paygate.New(s.GateStore(log), "UQservice", 500_000)
	_, err := gate.BeginPaymentRequest("0:abc", "a cat video", false)
	require.NoError(t, err)

	res := gate.CorrelateConfirmation(paygate.Confirmation{Amount: 500_000}, "0:abc")
	assert.Equal(t, paygate.CorrelatedAction, res.Kind)
	assert.Equal(t, "a cat video", res.Action)

	// A second gate over the same database sees the paid entry.
	gate2 := paygate.New(s.GateStore(log), "UQservice", 500_000)
	assert.True(t, gate2.HasQualifyingPayment("0:abc"))

	gate2.Consume("0:abc")
	assert.False(t, gate.HasQualifyingPayment("0:abc"))
}
