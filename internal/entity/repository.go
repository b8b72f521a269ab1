package entity

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Repository defines persistence for number entity records and value history.
// This abstraction allows SQLite in production and mocks in tests.
type Repository interface {
	// List retrieves all records ordered by unique ID.
	List(ctx context.Context) ([]Record, error)

	// Upsert inserts a record or updates its descriptive fields.
	// FirstSeen is kept from the original insert; a nil LastValue does not
	// clear a stored one.
	Upsert(ctx context.Context, rec *Record) error

	// Delete removes a record and its history.
	// Returns ErrEntityNotFound if it does not exist.
	Delete(ctx context.Context, uniqueID string) error

	// RecordValue appends a history entry and updates the record's last value.
	// Returns ErrEntityNotFound if the record does not exist.
	RecordValue(ctx context.Context, uniqueID string, value float64, source string) error

	// History returns up to limit entries, newest first.
	History(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository.
// The schema comes from the migrations package.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectRecord = `
	SELECT unique_id, name, device_id, device_name, slug, option_type,
		min_value, max_value, mode, icon, entity_category, last_value,
		first_seen, last_seen
	FROM number_entities`

// List retrieves all records ordered by unique ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, selectRecord+" ORDER BY unique_id")
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return records, nil
}

// Upsert inserts or updates a record. It sets rec.LastSeen, and FirstSeen
// on first insert.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if rec.FirstSeen.IsZero() {
		rec.FirstSeen = now
	}
	rec.LastSeen = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO number_entities (
			unique_id, name, device_id, device_name, slug, option_type,
			min_value, max_value, mode, icon, entity_category, last_value,
			first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			name = excluded.name,
			device_id = excluded.device_id,
			device_name = excluded.device_name,
			slug = excluded.slug,
			option_type = excluded.option_type,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			mode = excluded.mode,
			icon = excluded.icon,
			entity_category = excluded.entity_category,
			last_value = COALESCE(excluded.last_value, number_entities.last_value),
			last_seen = excluded.last_seen`,
		rec.UniqueID,
		rec.Name,
		rec.DeviceID,
		rec.DeviceName,
		rec.Slug,
		rec.OptionType,
		nullableFloat(rec.Min),
		nullableFloat(rec.Max),
		defaultString(rec.Mode, "auto"),
		rec.Icon,
		defaultString(rec.EntityCategory, "config"),
		nullableFloat(rec.LastValue),
		rec.FirstSeen.Format(time.RFC3339),
		rec.LastSeen.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

// Delete removes a record. History rows go with it (ON DELETE CASCADE).
func (r *SQLiteRepository) Delete(ctx context.Context, uniqueID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM number_entities WHERE unique_id = ?", uniqueID)
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// RecordValue appends a history row and updates last_value in one transaction.
func (r *SQLiteRepository) RecordValue(ctx context.Context, uniqueID string, value float64, source string) error {
	if source == "" {
		source = SourcePoll
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	result, err := tx.ExecContext(ctx,
		"UPDATE number_entities SET last_value = ?, last_seen = ? WHERE unique_id = ?",
		value, now, uniqueID,
	)
	if err != nil {
		return fmt.Errorf("updating last value: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	} else if n == 0 {
		return ErrEntityNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO number_value_history (unique_id, value, source, recorded_at) VALUES (?, ?, ?, ?)",
		uniqueID, value, source, now,
	); err != nil {
		return fmt.Errorf("inserting value history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing value: %w", err)
	}
	return nil
}

// History returns recent values, newest first. limit defaults to 50 and is
// capped at 500.
func (r *SQLiteRepository) History(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, unique_id, value, source, recorded_at
		FROM number_value_history
		WHERE unique_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		uniqueID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying value history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		var recordedAt string
		if err := rows.Scan(&e.ID, &e.UniqueID, &e.Value, &e.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning value history: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value history: %w", err)
	}
	return entries, nil
}

func scanRecord(s *sql.Rows) (*Record, error) {
	var (
		rec                 Record
		minV, maxV, lastV   sql.NullFloat64
		firstSeen, lastSeen string
	)
	if err := s.Scan(
		&rec.UniqueID, &rec.Name, &rec.DeviceID, &rec.DeviceName, &rec.Slug, &rec.OptionType,
		&minV, &maxV, &rec.Mode, &rec.Icon, &rec.EntityCategory, &lastV,
		&firstSeen, &lastSeen,
	); err != nil {
		return nil, err
	}

	rec.Min = floatPtr(minV)
	rec.Max = floatPtr(maxV)
	rec.LastValue = floatPtr(lastV)

	var err error
	if rec.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
		return nil, fmt.Errorf("parsing first_seen: %w", err)
	}
	if rec.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", err)
	}
	return &rec, nil
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
