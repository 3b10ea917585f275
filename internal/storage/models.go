package storage

import "time"

// LinkedWallet connects a chat user to their TON wallet, which serves as
// the requester identity for payment gating.
type LinkedWallet struct {
	UserID         int64
	AddressRaw     string // 0:... format
	AddressDisplay string // UQ.../EQ... format
	LinkedAt       time.Time
}

// VideoRecord is one delivered generation.
type VideoRecord struct {
	ID        int64
	UserID    int64
	ChatID    int64
	Prompt    string
	URL       string
	CreatedAt time.Time
}

// CreatorStat is one leaderboard row.
type CreatorStat struct {
	UserID     int64
	VideoCount int
}
