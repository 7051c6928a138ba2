// Package journal records play sessions in SQLite so they can be audited
// and replayed. It never restores a pet.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/moorebrett0/hatchling/internal/journal/migrations"
	"github.com/moorebrett0/hatchling/internal/pet"
)

// ErrNoSessions means the journal is empty.
var ErrNoSessions = errors.New("journal: no sessions recorded")

// Session describes one run of the pet.
type Session struct {
	ID        string
	StartedAt time.Time
	Device    string
	Species   string
	Tuning    *pet.Tuning // nil for sessions recorded before tuning was kept
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// TickTokens are the tokens drained in one tick, in arrival order.
type TickTokens struct {
	Tick   uint64
	Tokens []string
}

// Entry is one recorded notification.
type Entry struct {
	Tick    uint64
	Kind    pet.Kind
	Stage   pet.Stage
	Mood    int
	Feed    int
	Exp     int
	Choking bool
	Current int
	Goal    int
}

// Store is a SQLite-backed journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal file and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal: path is required")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records the start of a session.
func (s *Store) Begin(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("journal: session id is required")
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	var tuning string
	if sess.Tuning != nil {
		data, err := yaml.Marshal(sess.Tuning)
		if err != nil {
			return fmt.Errorf("journal: encode tuning: %w", err)
		}
		tuning = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, device, species, tuning) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.StartedAt.UTC().UnixMilli(), sess.Device, sess.Species, tuning,
	)
	if err != nil {
		return fmt.Errorf("journal: begin session %s: %w", sess.ID, err)
	}
	return nil
}

// RecordToken stores one drained token. seq orders tokens within a tick.
func (s *Store) RecordToken(ctx context.Context, session string, tick uint64, seq int, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (session_id, tick, seq, token) VALUES (?, ?, ?, ?)`,
		session, int64(tick), seq, token,
	)
	if err != nil {
		return fmt.Errorf("journal: record token: %w", err)
	}
	return nil
}

// RecordNotification stores one emitted notification.
func (s *Store) RecordNotification(ctx context.Context, session string, tick uint64, n pet.Notification) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notifications (session_id, tick, kind, stage, mood, feed, exp, choking, current, goal)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session, int64(tick), n.Kind.String(), int(n.Stats.Stage),
		n.Stats.Mood, n.Stats.Feed, n.Stats.Exp, boolInt(n.Stats.Choking),
		n.Current, n.Goal,
	)
	if err != nil {
		return fmt.Errorf("journal: record notification: %w", err)
	}
	return nil
}

// Tokens returns a session's tokens grouped by tick, ticks ascending.
func (s *Store) Tokens(ctx context.Context, session string) ([]TickTokens, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, token FROM tokens WHERE session_id = ? ORDER BY tick, seq`,
		session,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list tokens: %w", err)
	}
	defer rows.Close()

	var out []TickTokens
	for rows.Next() {
		var (
			tick  int64
			token string
		)
		if err := rows.Scan(&tick, &token); err != nil {
			return nil, fmt.Errorf("journal: scan token: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Tick != uint64(tick) {
			out = append(out, TickTokens{Tick: uint64(tick)})
		}
		last := &out[len(out)-1]
		last.Tokens = append(last.Tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list tokens: %w", err)
	}
	return out, nil
}

// Notifications returns a session's recorded notifications in order.
func (s *Store) Notifications(ctx context.Context, session string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tick, kind, stage, mood, feed, exp, choking, current, goal
FROM notifications WHERE session_id = ? ORDER BY id`,
		session,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list notifications: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			tick  int64
			kind  string
			stage int
		)
		if err := rows.Scan(&tick, &kind, &stage, &e.Mood, &e.Feed, &e.Exp, &e.Choking, &e.Current, &e.Goal); err != nil {
			return nil, fmt.Errorf("journal: scan notification: %w", err)
		}
		e.Tick = uint64(tick)
		e.Kind, _ = pet.ParseKind(kind)
		e.Stage = pet.Stage(stage)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list notifications: %w", err)
	}
	return out, nil
}

// Sessions lists sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, device, species, tuning FROM sessions ORDER BY started_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			startMs int64
			tuning  string
		)
		if err := rows.Scan(&sess.ID, &startMs, &sess.Device, &sess.Species, &tuning); err != nil {
			return nil, fmt.Errorf("journal: scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(startMs).UTC()
		if tuning != "" {
			var t pet.Tuning
			if err := yaml.Unmarshal([]byte(tuning), &t); err != nil {
				return nil, fmt.Errorf("journal: decode tuning of %s: %w", sess.ID, err)
			}
			sess.Tuning = &t
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list sessions: %w", err)
	}
	return out, nil
}

// Latest returns the most recent session.
func (s *Store) Latest(ctx context.Context) (Session, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, ErrNoSessions
	}
	return sessions[0], nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
