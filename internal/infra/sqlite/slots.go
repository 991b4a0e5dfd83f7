package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quill-writing/quill/internal/domain"
)

// ─── Progress Slots ─────────────────────────────────────────────────────────

// Get returns the bytes stored in slot, or domain.ErrSlotEmpty.
func (d *DB) Get(ctx context.Context, slot string) ([]byte, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT data FROM progress_slots WHERE slot = ?`, slot,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return data, nil
}

// Put overwrites slot with data.
func (d *DB) Put(ctx context.Context, slot string, data []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO progress_slots (slot, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		slot, data, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	return nil
}

