package questionpooler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/coder/quartz"
	_ "github.com/mattn/go-sqlite3"
)

// HistoryDB stores game sessions and the questions dealt and used in them
type HistoryDB struct {
	db    *sql.DB
	clock quartz.Clock
}

// DBSession represents a game session in the database
type DBSession struct {
	ID         string    `json:"id"`
	Players    int       `json:"players"`
	ContentDir string    `json:"content_dir"`
	Seed       int64     `json:"seed"`
	CreatedAt  time.Time `json:"created_at"`
	Status     string    `json:"status"` // "open", "closed"
}

// OpenHistoryDB opens a new database connection
func OpenHistoryDB(dbPath string, clock quartz.Clock) (*HistoryDB, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &HistoryDB{db: db, clock: clock}, nil
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (h *HistoryDB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			players INTEGER NOT NULL,
			content_dir TEXT NOT NULL,
			seed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'open'
		)`,
		`CREATE TABLE IF NOT EXISTS question_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			player_index INTEGER NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			event TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_question_events_session ON question_events(session_id, player_index)`,
	}

	for _, query := range queries {
		if _, err := h.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateSession creates a new session in the database. A zero CreatedAt is
// filled from the clock.
func (h *HistoryDB) CreateSession(session *DBSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = h.clock.Now()
	}
	if session.Status == "" {
		session.Status = "open"
	}

	_, err := h.db.Exec(
		"INSERT INTO sessions (id, players, content_dir, seed, created_at, status) VALUES (?, ?, ?, ?, ?, ?)",
		session.ID, session.Players, session.ContentDir, session.Seed, session.CreatedAt, session.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (h *HistoryDB) GetSession(id string) (*DBSession, error) {
	var session DBSession
	err := h.db.QueryRow(
		"SELECT id, players, content_dir, seed, created_at, status FROM sessions WHERE id = ?",
		id,
	).Scan(&session.ID, &session.Players, &session.ContentDir, &session.Seed, &session.CreatedAt, &session.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListSessions retrieves sessions newest first, optionally limited by count
func (h *HistoryDB) ListSessions(limit int) ([]DBSession, error) {
	query := "SELECT id, players, content_dir, seed, created_at, status FROM sessions ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := h.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	defer rows.Close()

	var sessions []DBSession
	for rows.Next() {
		var session DBSession
		err := rows.Scan(&session.ID, &session.Players, &session.ContentDir, &session.Seed, &session.CreatedAt, &session.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// UpdateSessionStatus updates the status of a session
func (h *HistoryDB) UpdateSessionStatus(id, status string) error {
	_, err := h.db.Exec("UPDATE sessions SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return nil
}

// RecordEvent stores a dealt or used question. A zero CreatedAt is filled from the clock.
func (h *HistoryDB) RecordEvent(event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = h.clock.Now()
	}

	_, err := h.db.Exec(
		"INSERT INTO question_events (session_id, player_index, category, event, text, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.SessionID, event.PlayerIndex, string(event.Category), string(event.Type), event.Text, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// RecordDraw stores one dealt event per drawn question
func (h *HistoryDB) RecordDraw(sessionID string, playerIndex int, category Category, questions []*Question) error {
	for _, q := range questions {
		err := h.RecordEvent(&Event{
			SessionID:   sessionID,
			PlayerIndex: playerIndex,
			Category:    category,
			Type:        EventDealt,
			Text:        q.Text,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GetEvents retrieves all events for a session in the order they were recorded
func (h *HistoryDB) GetEvents(sessionID string) ([]Event, error) {
	rows, err := h.db.Query(
		"SELECT session_id, player_index, category, event, text, created_at FROM question_events WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event    Event
			category string
			kind     string
		)
		err := rows.Scan(&event.SessionID, &event.PlayerIndex, &category, &kind, &event.Text, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Category = Category(category)
		event.Type = EventType(kind)
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// UsedTexts returns the texts a player has used in a session, oldest first
func (h *HistoryDB) UsedTexts(sessionID string, playerIndex int) ([]string, error) {
	rows, err := h.db.Query(
		"SELECT text FROM question_events WHERE session_id = ? AND player_index = ? AND event = ? ORDER BY id",
		sessionID, playerIndex, string(EventUsed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get used questions: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan used question: %w", err)
		}
		texts = append(texts, text)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating used questions: %w", err)
	}

	return texts, nil
}

// ReplayUsed marks every question recorded as used in a session on a fresh
// pool manager, so a restarted host resumes where the game left off.
func (h *HistoryDB) ReplayUsed(pm *PoolManager, sessionID string) (int, error) {
	replayed := 0
	for player := 0; player < pm.Players(); player++ {
		texts, err := h.UsedTexts(sessionID, player)
		if err != nil {
			return replayed, err
		}
		for _, text := range texts {
			marked, err := pm.UseQuestion(&Question{Text: text}, player)
			if err != nil {
				return replayed, fmt.Errorf("failed to replay used question: %w", err)
			}
			if marked {
				replayed++
			}
		}
	}
	return replayed, nil
}
