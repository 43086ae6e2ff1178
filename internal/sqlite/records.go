package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// conn returns the open database or ErrBackendDetached.
func (b *Backend) conn() (*sql.DB, error) {
	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.db, nil
}

// Load returns the record stored under id, or ErrNotFound.
func (b *Backend) Load(ctx context.Context, id types.ID) (types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return types.Record{}, err
	}

	rec := types.Record{ID: id}
	var owner sql.NullString
	row := db.QueryRowContext(ctx, "SELECT class_id, owner_id FROM objects WHERE object_id = ?", string(id))
	if err := row.Scan(&rec.Class, &owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Record{}, fmt.Errorf("object %s: %w", id, types.ErrNotFound)
		}
		return types.Record{}, fmt.Errorf("loading object %s: %w", id, err)
	}
	rec.Owner = types.ID(owner.String)

	rows, err := db.QueryContext(ctx,
		"SELECT field, tag, payload, custom FROM field_values WHERE object_id = ? ORDER BY position",
		string(id))
	if err != nil {
		return types.Record{}, fmt.Errorf("loading fields of %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var fr types.FieldRecord
		var custom int64
		if err := rows.Scan(&fr.Field, &fr.Tag, &fr.Payload, &custom); err != nil {
			return types.Record{}, fmt.Errorf("scanning field of %s: %w", id, err)
		}
		fr.Custom = custom != 0
		rec.Fields = append(rec.Fields, fr)
	}
	if err := rows.Err(); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

// IDsOfClass lists stored ids whose class is one of classes, in id order.
func (b *Backend) IDsOfClass(ctx context.Context, classes []types.ClassID) ([]types.ID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(classes))
	args := make([]any, len(classes))
	for i, c := range classes {
		placeholders[i] = "?"
		args[i] = string(c)
	}
	query := fmt.Sprintf(
		"SELECT object_id FROM objects WHERE class_id IN (%s) ORDER BY object_id",
		strings.Join(placeholders, ", "),
	)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ids of %v: %w", classes, err)
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}

// Put upserts records and removes deleted ids in one transaction, then
// rewrites both JSONL files from the committed tables.
func (b *Backend) Put(ctx context.Context, records []types.Record, deleted []types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning put transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range deleted {
		if err := deleteObject(ctx, tx, id); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := upsertRecord(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := persistTableJSONL(tx, b.config.DataDir, "objects", "object_id", objectsJSONL); err != nil {
		return err
	}
	if err := persistTableJSONL(tx, b.config.DataDir, "field_values", "object_id, position", fieldValueJSONL); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteObject(ctx context.Context, tx *sql.Tx, id types.ID) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM field_values WHERE object_id = ?", string(id)); err != nil {
		return fmt.Errorf("deleting fields of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM objects WHERE object_id = ?", string(id)); err != nil {
		return fmt.Errorf("deleting object %s: %w", id, err)
	}
	return nil
}

// upsertRecord replaces the stored row and field values for rec.
func upsertRecord(ctx context.Context, tx *sql.Tx, rec types.Record) error {
	if rec.ID.IsZero() {
		return fmt.Errorf("record without id: %w", types.ErrInvalidField)
	}
	var owner any
	if !rec.Owner.IsZero() {
		owner = string(rec.Owner)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO objects (object_id, class_id, owner_id) VALUES (?, ?, ?)
		ON CONFLICT(object_id) DO UPDATE SET class_id = excluded.class_id, owner_id = excluded.owner_id`,
		string(rec.ID), string(rec.Class), owner)
	if err != nil {
		return fmt.Errorf("writing object %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM field_values WHERE object_id = ?", string(rec.ID)); err != nil {
		return fmt.Errorf("clearing fields of %s: %w", rec.ID, err)
	}
	for i, fr := range rec.Fields {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO field_values (object_id, position, field, tag, payload, custom) VALUES (?, ?, ?, ?, ?, ?)",
			string(rec.ID), i, fr.Field, fr.Tag, fr.Payload, fr.Custom)
		if err != nil {
			return fmt.Errorf("writing field %s of %s: %w", fr.Field, rec.ID, err)
		}
	}
	return nil
}
