package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mixdown/internal/services"
)

const sessionColumns = "id, name, created_at, last_active_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id         string
		name       string
		createdRaw sql.NullString
		activeRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &name, &createdRaw, &activeRaw); err != nil {
		return nil, err
	}

	session := &Session{ID: id, Name: name}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		session.CreatedAt = created
	}
	if active, err := parseTimeString(activeRaw.String); err == nil {
		session.LastActiveAt = active
	}
	return session, nil
}

// CreateSession registers a new session. Names are labels, not identifiers,
// and need not be unique.
func (s *Store) CreateSession(ctx context.Context, name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "create session", "session name must not be empty", nil)
	}

	now := time.Now().UTC()
	session := &Session{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	stamp := now.Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO sessions (id, name, created_at, last_active_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Name, stamp, stamp,
	); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get session", fmt.Sprintf("session %s", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// FindSessionByName returns the oldest session carrying the given name, or
// nil when none exists.
func (s *Store) FindSessionByName(ctx context.Context, name string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE name = ? ORDER BY created_at LIMIT 1`, name)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

// ListSessions returns every session ordered by creation time.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// TouchSession refreshes a session's last activity stamp.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := sessionExistsTx(ctx, tx, id); err != nil {
			return err
		}
		return touchSessionTx(ctx, tx, id, time.Now().UTC())
	})
}

// DeleteSession removes a session and, via the schema's cascade, every file
// entry registered under it. Callers wanting to release backing storage must
// list the entries first. Reports whether a session was removed.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	result, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return affected > 0, nil
}

// ListSessionsIdleSince returns sessions whose last activity predates cutoff.
func (s *Store) ListSessionsIdleSince(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE last_active_at < ? ORDER BY last_active_at`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func sessionExistsTx(ctx context.Context, tx *sql.Tx, id string) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if count == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "check session", fmt.Sprintf("session %s", id), nil)
	}
	return nil
}

func touchSessionTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET last_active_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano), id,
	); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
