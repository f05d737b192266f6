package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore keeps slots in the save_slots table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens dsn, pings it and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create save_slots table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS save_slots (
			slot     INTEGER PRIMARY KEY,
			id       UUID NOT NULL,
			data     BYTEA NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) Put(ctx context.Context, slot int, data []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	sl := newSlot(slot, len(data))
	query := `
		INSERT INTO save_slots (slot, id, data, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot) DO UPDATE
		SET id = EXCLUDED.id, data = EXCLUDED.data, saved_at = EXCLUDED.saved_at
	`
	if _, err := s.db.ExecContext(ctx, query, slot, sl.ID.String(), data, sl.SavedAt); err != nil {
		return fmt.Errorf("postgres put slot %d failed: %w", slot, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, slot int) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM save_slots WHERE slot = $1`, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get slot %d failed: %w", slot, err)
	}
	return data, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, id, length(data), saved_at FROM save_slots ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("postgres list slots failed: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var sl Slot
		var id string
		if err := rows.Scan(&sl.Number, &id, &sl.Size, &sl.SavedAt); err != nil {
			return nil, err
		}
		if sl.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("slot %d: %w", sl.Number, err)
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, slot int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM save_slots WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("postgres delete slot %d failed: %w", slot, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotNotFound)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
