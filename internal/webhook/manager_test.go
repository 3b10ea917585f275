package webhook

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestSyncLoopReturnsOnCancelledContext(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(nil, "https://example.com/webhook", "0:service-wallet-address-1234567890", log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		m.SyncLoop(ctx, time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SyncLoop did not return after context cancellation")
	}
}
