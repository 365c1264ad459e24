// Package notes provides the append-only message-record log written by
// the send_message tool.
package notes

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Note is one delivered message record.
type Note struct {
	ID        int64     `json:"id"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Created   time.Time `json:"time"`
}

// Store persists notes in SQLite. The store is shared by all sessions;
// a single connection serializes every mutation, so concurrent
// send_message dispatches cannot interleave ID assignment.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the note log at dbPath. Pass ":memory:"
// for a process-lifetime store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: with :memory: each pooled connection would get
	// its own empty database, and it also serves as the write lock.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recipient TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`

	_, err := s.db.Exec(schema)
	return err
}

// Append records a message and returns it with its assigned ID.
func (s *Store) Append(recipient, content string) (Note, error) {
	now := time.Now()

	res, err := s.db.Exec(
		`INSERT INTO notes (recipient, content, created_at) VALUES (?, ?, ?)`,
		recipient, content, now.Format(time.RFC3339),
	)
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Note{}, fmt.Errorf("note id: %w", err)
	}

	return Note{ID: id, Recipient: recipient, Content: content, Created: now}, nil
}

// List returns all notes in insertion order.
func (s *Store) List() ([]Note, error) {
	rows, err := s.db.Query(`SELECT id, recipient, content, created_at FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var created string
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Content, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			n.Created = t
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Count returns the number of recorded notes.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}
