package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/ace/internal/dbx"
	"github.com/google/uuid"
)

type SQLiteRepository struct {
	db     *sql.DB
	origin string
	now    func() time.Time
}

// NewSQLiteRepository binds a repository to db. Every repository gets a fresh
// origin id, so two repositories over the same file behave like two processes.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, origin: uuid.NewString(), now: time.Now}
}

func (r *SQLiteRepository) Origin() string {
	return r.origin
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	return r.SetMany(ctx, map[string]string{key: value})
}

// SetMany writes keys in sorted order so the change log is deterministic.
func (r *SQLiteRepository) SetMany(ctx context.Context, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, key := range keys {
			if err := r.upsert(ctx, tx, key, values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set kv: %w", err)
	}
	return nil
}

// upsert writes key and logs a change only when the stored value actually
// changes, mirroring how storage events are not raised for no-op writes.
func (r *SQLiteRepository) upsert(ctx context.Context, tx dbx.DBTX, key, value string) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE kv.value <> excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	if n == 0 {
		return nil
	}
	return r.logChange(ctx, tx, key, sql.NullString{String: value, Valid: true})
}

func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, key := range keys {
			res, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
			if err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			if n == 0 {
				continue
			}
			if err := r.logChange(ctx, tx, key, sql.NullString{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete kv: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) logChange(ctx context.Context, tx dbx.DBTX, key string, value sql.NullString) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kv_changes (key, value, origin, created_at) VALUES (?, ?, ?, ?)`,
		key, value, r.origin, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("log change %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Changes(ctx context.Context, afterSeq int64) ([]Change, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, key, value, origin FROM kv_changes
		WHERE seq > ? AND origin <> ?
		ORDER BY seq
	`, afterSeq, r.origin)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv changes: %w", err)
	}
	defer rows.Close()

	var result []Change
	for rows.Next() {
		var (
			c     Change
			value sql.NullString
		)
		if err := rows.Scan(&c.Seq, &c.Key, &value, &c.Origin); err != nil {
			return nil, fmt.Errorf("failed to scan kv change: %w", err)
		}
		c.Value, c.Present = value.String, value.Valid
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv changes: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM kv_changes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read last change seq: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) PruneChanges(ctx context.Context, before time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_changes WHERE created_at < ?`, before.UnixMilli()); err != nil {
		return fmt.Errorf("failed to prune kv changes: %w", err)
	}
	return nil
}
