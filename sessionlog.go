package questionpooler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// SessionLog writes a plain-text record of every draw and use in one game session
type SessionLog struct {
	file      *os.File
	mu        sync.Mutex
	clock     quartz.Clock
	sessionID string
	path      string
}

// NewSessionLog opens <dir>/<sessionID>.log for appending and writes the
// session header. A resumed session appends a second header to the same file.
func NewSessionLog(dir, sessionID string, players int, clock quartz.Clock) (*SessionLog, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", sessionID))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	sl := &SessionLog{
		file:      file,
		clock:     clock,
		sessionID: sessionID,
		path:      filename,
	}

	sl.Logf("=== Question Session Log ===\n")
	sl.Logf("Session ID: %s\n", sessionID)
	sl.Logf("Players: %d\n", players)
	sl.Logf("Started: %s\n", clock.Now().Format(time.RFC3339))
	sl.Logf("============================\n\n")

	return sl, nil
}

// Path returns the file the log writes to
func (sl *SessionLog) Path() string {
	return sl.path
}

// Logf writes a formatted log entry with timestamp
func (sl *SessionLog) Logf(format string, args ...interface{}) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.file == nil {
		return
	}

	timestamp := sl.clock.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(sl.file, "[%s] %s", timestamp, message)
	sl.file.Sync()
}

// LogDraw records the questions offered to a player
func (sl *SessionLog) LogDraw(playerIndex int, category Category, questions []*Question) {
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, fmt.Sprintf("%q", q.Text))
	}
	sl.Logf("Player %d drew %d %s: %s\n", playerIndex, len(questions), category, strings.Join(texts, ", "))
}

// LogUse records a question being marked used
func (sl *SessionLog) LogUse(playerIndex int, text string) {
	sl.Logf("Player %d used %q\n", playerIndex, text)
}

// LogError records a failed operation
func (sl *SessionLog) LogError(playerIndex int, op string, err error) {
	sl.Logf("Player %d %s failed: %v\n", playerIndex, op, err)
}

// Close writes the footer and closes the log file
func (sl *SessionLog) Close() error {
	sl.Logf("=== Session Complete ===\n")
	sl.Logf("Completed: %s\n", sl.clock.Now().Format(time.RFC3339))
	sl.Logf("========================\n")

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.file == nil {
		return nil
	}
	err := sl.file.Close()
	sl.file = nil
	return err
}
