package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/edem-agent/internal/config"
)

// ConversationLogConfig controls where conversation events are written.
type ConversationLogConfig = config.ConversationLogConfig

// ConversationLogEvent is one NDJSON line of the conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	TurnID     string         `json:"turn_id,omitempty"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records conversation events without blocking callers.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

const maxOpenLogFiles = 64

type fileConversationLogger struct {
	cfg    ConversationLogConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	events chan ConversationLogEvent
	wg     sync.WaitGroup

	// owned by the writer goroutine
	files  map[string]*os.File
	global *os.File
}

// NewConversationLogger starts an asynchronous NDJSON writer. Events go to
// <dir>/<user>/<session>.ndjson and, when enabled, to a single global file.
// A disabled config returns a logger that drops everything.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled && !cfg.GlobalEnabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	l := &fileConversationLogger{
		cfg:    cfg,
		logger: logger,
		events: make(chan ConversationLogEvent, cfg.QueueSize),
		files:  make(map[string]*os.File),
	}

	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create conversation log dir: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

// Log enqueues event. When the queue is full the event is dropped.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.events <- event:
	default:
		l.logger.Warn("Conversation log queue full, dropping event",
			"user_id", event.UserID,
			"event_type", event.EventType)
	}
}

// Close flushes queued events and closes all files.
func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

func (l *fileConversationLogger) run() {
	defer l.wg.Done()
	defer l.closeFiles()

	for event := range l.events {
		line, err := json.Marshal(event)
		if err != nil {
			l.logger.Warn("failed to marshal conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		if l.cfg.Enabled {
			if err := l.writeSession(event, line); err != nil {
				l.logger.Warn("failed to write conversation log",
					"user_id", event.UserID,
					"error", err)
			}
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Warn("failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *fileConversationLogger) writeSession(event ConversationLogEvent, line []byte) error {
	userDir := safePathComponent(event.UserID, "unknown")
	session := safePathComponent(event.SessionID, "default")
	path := filepath.Join(l.cfg.Dir, userDir, session+".ndjson")

	f, ok := l.files[path]
	if !ok {
		if len(l.files) >= maxOpenLogFiles {
			l.closeSessionFiles()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create user log dir: %w", err)
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}
		l.files[path] = f
	}

	_, err := f.Write(line)
	return err
}

func (l *fileConversationLogger) closeSessionFiles() {
	for path, f := range l.files {
		if err := f.Close(); err != nil {
			l.logger.Debug("failed to close conversation log", "path", path, "error", err)
		}
		delete(l.files, path)
	}
}

func (l *fileConversationLogger) closeFiles() {
	l.closeSessionFiles()
	if l.global != nil {
		if err := l.global.Close(); err != nil {
			l.logger.Debug("failed to close global conversation log", "error", err)
		}
	}
}

var unsafePathChars = regexp.MustCompile(`[^\p{L}\p{N}._@-]+`)

func safePathComponent(s, fallback string) string {
	s = unsafePathChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}

var (
	ansiEscape   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*\x07`)
	blankSpaces  = regexp.MustCompile(`[ \t]+`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
)

// cleanForReadability strips terminal escapes and control characters and
// collapses runs of spaces, keeping line breaks.
func cleanForReadability(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = controlChars.ReplaceAllString(s, "")
	s = blankSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
