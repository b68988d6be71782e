package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Entry is one relayed chat message.
type Entry struct {
	ID        int64
	Peer      string
	Direction Direction
	User      string
	Text      string
	Timestamp time.Time
}

// Store keeps the chat transcript in SQLite.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		peer TEXT NOT NULL,
		direction TEXT NOT NULL,
		username TEXT NOT NULL,
		text TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_peer ON messages(peer, timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (peer, direction, username, text, timestamp) VALUES (?, ?, ?, ?, ?)`,
		e.Peer, string(e.Direction), e.User, e.Text, e.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// List returns messages oldest first. An empty peer matches every peer;
// limit <= 0 means no limit.
func (s *Store) List(peer string, limit int) ([]Entry, error) {
	query := `SELECT id, peer, direction, username, text, timestamp FROM messages`
	args := []interface{}{}
	if peer != "" {
		query += ` WHERE peer = ?`
		args = append(args, peer)
	}
	query += ` ORDER BY timestamp ASC, id ASC`
	if limit > 0 {
		// 新しい順に limit 件を取り、古い順に並べ直す
		query = `SELECT * FROM (` + query + `) ORDER BY timestamp DESC, id DESC LIMIT ?`
		query = `SELECT * FROM (` + query + `) ORDER BY timestamp ASC, id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			dir string
			ts  int64
		)
		if err := rows.Scan(&e.ID, &e.Peer, &dir, &e.User, &e.Text, &ts); err != nil {
			return nil, err
		}
		e.Direction = Direction(dir)
		e.Timestamp = time.Unix(0, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Get(id int64) (*Entry, error) {
	var (
		e   Entry
		dir string
		ts  int64
	)
	err := s.db.QueryRow(
		`SELECT id, peer, direction, username, text, timestamp FROM messages WHERE id = ?`, id,
	).Scan(&e.ID, &e.Peer, &dir, &e.User, &e.Text, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Direction = Direction(dir)
	e.Timestamp = time.Unix(0, ts)
	return &e, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
