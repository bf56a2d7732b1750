package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cafe-telegram/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS menu_items (
    id          TEXT PRIMARY KEY,
    category    TEXT NOT NULL,
    pos         INTEGER NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price       INTEGER NOT NULL CHECK (price > 0),
    prep_time   TEXT NOT NULL DEFAULT '',
    photo_ref   TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS carts (
    user_id    INTEGER PRIMARY KEY,
    lines      TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id           TEXT PRIMARY KEY,
    seq          INTEGER NOT NULL,
    user_id      INTEGER NOT NULL,
    username     TEXT NOT NULL DEFAULT '',
    items        TEXT NOT NULL,
    status       TEXT NOT NULL CHECK (status IN ('new', 'done')),
    submitted_at INTEGER NOT NULL,
    completed_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
`

// SQLiteStore is the single-file backend. Timestamps are stored as unix
// nanoseconds so both drivers read them back identically.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the schema if it is missing.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	st := &State{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, name, description, price, prep_time, photo_ref, created_at
		FROM menu_items
		ORDER BY category, pos`)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	for rows.Next() {
		var it models.MenuItem
		var created int64
		if err := rows.Scan(&it.ID, &it.Category, &it.Name, &it.Description, &it.Price, &it.PrepTime, &it.PhotoRef, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		it.CreatedAt = fromNanos(created)
		st.Items = append(st.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT user_id, lines, created_at FROM carts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	for rows.Next() {
		var c models.Cart
		var lines string
		var created int64
		if err := rows.Scan(&c.UserID, &lines, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &c.Lines); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to unmarshal cart lines: %w", err)
		}
		c.CreatedAt = fromNanos(created)
		st.Carts = append(st.Carts, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, user_id, username, items, status, submitted_at, completed_at
		FROM orders
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o models.Order
		var items string
		var submitted int64
		var completed sql.NullInt64
		if err := rows.Scan(&o.ID, &o.UserID, &o.Username, &items, &o.Status, &submitted, &completed); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
		o.SubmittedAt = fromNanos(submitted)
		if completed.Valid {
			t := fromNanos(completed.Int64)
			o.CompletedAt = &t
		}
		st.Orders = append(st.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return st, nil
}

// Save rewrites all tables inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM menu_items`, `DELETE FROM carts`, `DELETE FROM orders`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}

	pos := map[string]int{}
	for _, it := range st.Items {
		p := pos[it.Category]
		pos[it.Category] = p + 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, category, pos, name, description, price, prep_time, photo_ref, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Category, p, it.Name, it.Description, it.Price, it.PrepTime, it.PhotoRef, toNanos(nonZero(it.CreatedAt)),
		)
		if err != nil {
			return fmt.Errorf("insert menu item %s: %w", it.ID, err)
		}
	}
	for _, c := range st.Carts {
		lines, err := json.Marshal(c.Lines)
		if err != nil {
			return fmt.Errorf("failed to marshal cart lines: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO carts (user_id, lines, created_at) VALUES (?, ?, ?)`,
			c.UserID, string(lines), toNanos(nonZero(c.CreatedAt))); err != nil {
			return fmt.Errorf("insert cart %d: %w", c.UserID, err)
		}
	}
	for i, o := range st.Orders {
		items, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal order items: %w", err)
		}
		var completed sql.NullInt64
		if o.CompletedAt != nil {
			completed = sql.NullInt64{Int64: toNanos(*o.CompletedAt), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, seq, user_id, username, items, status, submitted_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, o.UserID, o.Username, string(items), o.Status, toNanos(o.SubmittedAt), completed,
		)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
