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

const entryColumns = "id, session_id, display_name, storage_path, order_index, origin, source_id, producing_module_id, created_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*FileEntry, error) {
	var (
		id          string
		sessionID   string
		displayName string
		storagePath string
		orderIndex  int
		originStr   string
		sourceID    sql.NullString
		moduleID    sql.NullString
		createdRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&displayName,
		&storagePath,
		&orderIndex,
		&originStr,
		&sourceID,
		&moduleID,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	entry := &FileEntry{
		ID:                id,
		SessionID:         sessionID,
		DisplayName:       displayName,
		StoragePath:       storagePath,
		OrderIndex:        orderIndex,
		Origin:            Origin(originStr),
		SourceID:          sourceID.String,
		ProducingModuleID: moduleID.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func validateNewEntry(req NewEntry) error {
	if strings.TrimSpace(req.DisplayName) == "" {
		return services.Wrap(services.ErrValidation, "catalog", "add entry", "display name must not be empty", nil)
	}
	if strings.TrimSpace(req.StoragePath) == "" {
		return services.Wrap(services.ErrValidation, "catalog", "add entry", "storage path must not be empty", nil)
	}
	if _, ok := originSet[req.Origin]; !ok {
		return services.Wrap(services.ErrValidation, "catalog", "add entry", fmt.Sprintf("unknown origin %q", req.Origin), nil)
	}
	switch req.Origin {
	case OriginDerived:
		if req.SourceID == "" || req.ProducingModuleID == "" {
			return services.Wrap(services.ErrValidation, "catalog", "add entry", "derived entries require source and producing module", nil)
		}
	case OriginUploaded:
		if req.SourceID != "" || req.ProducingModuleID != "" {
			return services.Wrap(services.ErrValidation, "catalog", "add entry", "uploaded entries must not carry provenance", nil)
		}
	}
	return nil
}

// AddEntry registers a file at the end of the session's order. The storage
// path must not already be registered anywhere in the catalog.
func (s *Store) AddEntry(ctx context.Context, sessionID string, req NewEntry) (*FileEntry, error) {
	if err := validateNewEntry(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &FileEntry{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		DisplayName:       strings.TrimSpace(req.DisplayName),
		StoragePath:       req.StoragePath,
		Origin:            req.Origin,
		SourceID:          req.SourceID,
		ProducingModuleID: req.ProducingModuleID,
		CreatedAt:         now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := sessionExistsTx(ctx, tx, sessionID); err != nil {
			return err
		}

		var pathCount int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM file_entries WHERE storage_path = ?`, entry.StoragePath).Scan(&pathCount); err != nil {
			return fmt.Errorf("check storage path: %w", err)
		}
		if pathCount > 0 {
			return services.Wrap(services.ErrDuplicatePath, "catalog", "add entry", fmt.Sprintf("storage path %q already registered", entry.StoragePath), nil)
		}

		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(order_index) + 1, 0) FROM file_entries WHERE session_id = ?`, sessionID).Scan(&entry.OrderIndex); err != nil {
			return fmt.Errorf("next order index: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO file_entries (
                id, session_id, display_name, storage_path, order_index,
                origin, source_id, producing_module_id, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.SessionID,
			entry.DisplayName,
			entry.StoragePath,
			entry.OrderIndex,
			entry.Origin,
			nullableString(entry.SourceID),
			nullableString(entry.ProducingModuleID),
			now.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}

		return touchSessionTx(ctx, tx, sessionID, now)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntry fetches one entry scoped to a session.
func (s *Store) GetEntry(ctx context.Context, sessionID, id string) (*FileEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM file_entries WHERE id = ? AND session_id = ?`, id, sessionID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get entry", fmt.Sprintf("file %s", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns a session's entries in display order.
func (s *Store) ListEntries(ctx context.Context, sessionID string) ([]*FileEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM file_entries WHERE session_id = ? ORDER BY order_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*FileEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RemoveEntry deletes an entry and renormalizes the survivors' order indexes.
// The removed entry is returned so callers can release its backing storage.
func (s *Store) RemoveEntry(ctx context.Context, sessionID, id string) (*FileEntry, error) {
	var removed *FileEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+entryColumns+` FROM file_entries WHERE id = ? AND session_id = ?`, id, sessionID)
		entry, err := scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "catalog", "remove entry", fmt.Sprintf("file %s", id), nil)
		}
		if err != nil {
			return fmt.Errorf("load entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM file_entries WHERE id = ?`, entry.ID); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE file_entries SET order_index = order_index - 1 WHERE session_id = ? AND order_index > ?`,
			sessionID, entry.OrderIndex,
		); err != nil {
			return fmt.Errorf("renormalize order: %w", err)
		}

		removed = entry
		return touchSessionTx(ctx, tx, sessionID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// RenameEntry updates the display name of an entry.
func (s *Store) RenameEntry(ctx context.Context, sessionID, id, displayName string) (*FileEntry, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "rename entry", "display name must not be empty", nil)
	}

	var renamed *FileEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+entryColumns+` FROM file_entries WHERE id = ? AND session_id = ?`, id, sessionID)
		entry, err := scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "catalog", "rename entry", fmt.Sprintf("file %s", id), nil)
		}
		if err != nil {
			return fmt.Errorf("load entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE file_entries SET display_name = ? WHERE id = ?`, displayName, entry.ID,
		); err != nil {
			return fmt.Errorf("rename entry: %w", err)
		}
		entry.DisplayName = displayName
		renamed = entry
		return touchSessionTx(ctx, tx, sessionID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// ReorderEntry moves an entry to newIndex and shifts its neighbours so the
// session's order indexes stay contiguous.
func (s *Store) ReorderEntry(ctx context.Context, sessionID, id string, newIndex int) (*FileEntry, error) {
	var moved *FileEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+entryColumns+` FROM file_entries WHERE id = ? AND session_id = ?`, id, sessionID)
		entry, err := scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "catalog", "reorder entry", fmt.Sprintf("file %s", id), nil)
		}
		if err != nil {
			return fmt.Errorf("load entry: %w", err)
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM file_entries WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if newIndex < 0 || newIndex >= count {
			return services.Wrap(services.ErrIndexOutOfRange, "catalog", "reorder entry",
				fmt.Sprintf("index %d outside [0, %d]", newIndex, count-1), nil)
		}

		oldIndex := entry.OrderIndex
		switch {
		case newIndex == oldIndex:
			moved = entry
			return nil
		case newIndex > oldIndex:
			if _, err := tx.ExecContext(ctx,
				`UPDATE file_entries SET order_index = order_index - 1
                 WHERE session_id = ? AND order_index > ? AND order_index <= ?`,
				sessionID, oldIndex, newIndex,
			); err != nil {
				return fmt.Errorf("shift entries down: %w", err)
			}
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE file_entries SET order_index = order_index + 1
                 WHERE session_id = ? AND order_index >= ? AND order_index < ?`,
				sessionID, newIndex, oldIndex,
			); err != nil {
				return fmt.Errorf("shift entries up: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE file_entries SET order_index = ? WHERE id = ?`, newIndex, entry.ID,
		); err != nil {
			return fmt.Errorf("place entry: %w", err)
		}
		entry.OrderIndex = newIndex
		moved = entry
		return touchSessionTx(ctx, tx, sessionID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// ClearEntries removes every entry in the session and returns them so callers
// can release the backing storage. Clearing an empty session is a no-op.
func (s *Store) ClearEntries(ctx context.Context, sessionID string) ([]*FileEntry, error) {
	var cleared []*FileEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := sessionExistsTx(ctx, tx, sessionID); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT `+entryColumns+` FROM file_entries WHERE session_id = ? ORDER BY order_index`, sessionID)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			cleared = append(cleared, entry)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM file_entries WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		return touchSessionTx(ctx, tx, sessionID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// CountEntries returns the number of entries registered for a session.
func (s *Store) CountEntries(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM file_entries WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}
