package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS linked_wallets (
			user_id INTEGER PRIMARY KEY,
			address_raw TEXT NOT NULL,
			address_display TEXT NOT NULL,
			linked_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_linked_wallets_address_raw ON linked_wallets(address_raw)`,

		`CREATE TABLE IF NOT EXISTS processed_confirmations (
			event_id TEXT PRIMARY KEY,
			seen_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS videos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_chat_id ON videos(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_user_id ON videos(user_id)`,

		`CREATE TABLE IF NOT EXISTS gate_entries (
			identity TEXT PRIMARY KEY,
			paid INTEGER NOT NULL,
			amount_paid INTEGER NOT NULL,
			confirmed_at INTEGER NOT NULL,
			pending_action TEXT NOT NULL,
			test_mode INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Linked Wallets ---

// LinkWallet links a wallet to a user, replacing any previous link
func (s *Storage) LinkWallet(userID int64, addressRaw, addressDisplay string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO linked_wallets (user_id, address_raw, address_display, linked_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			address_raw = excluded.address_raw,
			address_display = excluded.address_display,
			linked_at = excluded.linked_at`,
		userID, addressRaw, addressDisplay, now,
	)
	return err
}

// GetLinkedWallet returns the wallet linked to a user
func (s *Storage) GetLinkedWallet(userID int64) (*LinkedWallet, error) {
	var w LinkedWallet
	var linkedAt int64

	err := s.db.QueryRow(
		`SELECT user_id, address_raw, address_display, linked_at
		 FROM linked_wallets WHERE user_id = ?`,
		userID,
	).Scan(&w.UserID, &w.AddressRaw, &w.AddressDisplay, &linkedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	w.LinkedAt = time.Unix(linkedAt, 0)
	return &w, nil
}

// GetUserByWallet returns the user whose linked wallet has the given raw address
func (s *Storage) GetUserByWallet(addressRaw string) (int64, error) {
	var userID int64
	err := s.db.QueryRow(
		`SELECT user_id FROM linked_wallets WHERE address_raw = ?
		 ORDER BY linked_at DESC LIMIT 1`,
		addressRaw,
	).Scan(&userID)

	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return userID, err
}

// UnlinkWallet removes a user's wallet link
func (s *Storage) UnlinkWallet(userID int64) error {
	_, err := s.db.Exec("DELETE FROM linked_wallets WHERE user_id = ?", userID)
	return err
}

// --- Processed Confirmations ---

// MarkConfirmationProcessed records a confirmation event, returns true if it
// was new. A confirmation must be correlated at most once.
func (s *Storage) MarkConfirmationProcessed(eventID string) (bool, error) {
	result, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed_confirmations (event_id, seen_at) VALUES (?, ?)",
		eventID, time.Now().Unix(),
	)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// --- Videos ---

// SaveVideo records a delivered video
func (s *Storage) SaveVideo(userID, chatID int64, prompt, url string) (*VideoRecord, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(
		`INSERT INTO videos (user_id, chat_id, prompt, url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, chatID, prompt, url, now,
	)
	if err != nil {
		return nil, err
	}

	id, _ := result.LastInsertId()
	return &VideoRecord{
		ID:        id,
		UserID:    userID,
		ChatID:    chatID,
		Prompt:    prompt,
		URL:       url,
		CreatedAt: time.Unix(now, 0),
	}, nil
}

// GetLastVideo returns the most recent video delivered in a chat
func (s *Storage) GetLastVideo(chatID int64) (*VideoRecord, error) {
	var v VideoRecord
	var createdAt int64

	err := s.db.QueryRow(
		`SELECT id, user_id, chat_id, prompt, url, created_at
		 FROM videos WHERE chat_id = ? ORDER BY id DESC LIMIT 1`,
		chatID,
	).Scan(&v.ID, &v.UserID, &v.ChatID, &v.Prompt, &v.URL, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	v.CreatedAt = time.Unix(createdAt, 0)
	return &v, nil
}

// CountVideos returns how many videos a user has generated
func (s *Storage) CountVideos(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM videos WHERE user_id = ?",
		userID,
	).Scan(&count)
	return count, err
}

// TopCreators returns users ordered by video count
func (s *Storage) TopCreators(limit int) ([]CreatorStat, error) {
	rows, err := s.db.Query(
		`SELECT user_id, COUNT(*) AS cnt FROM videos
		 GROUP BY user_id ORDER BY cnt DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CreatorStat
	for rows.Next() {
		var st CreatorStat
		if err := rows.Scan(&st.UserID, &st.VideoCount); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}
