package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cafe-telegram/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the state in the tables created by migrations/*.sql.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context) (*State, error) {
	st := &State{}

	rows, err := s.pool.Query(ctx, `
		SELECT id, category, name, description, price, prep_time, photo_ref, created_at
		FROM menu_items
		ORDER BY category, pos`)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	for rows.Next() {
		var it models.MenuItem
		if err := rows.Scan(&it.ID, &it.Category, &it.Name, &it.Description, &it.Price, &it.PrepTime, &it.PhotoRef, &it.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		st.Items = append(st.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT user_id, lines, created_at FROM carts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	for rows.Next() {
		var c models.Cart
		var linesJSON []byte
		if err := rows.Scan(&c.UserID, &linesJSON, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		if err := json.Unmarshal(linesJSON, &c.Lines); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to unmarshal cart lines: %w", err)
		}
		st.Carts = append(st.Carts, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, user_id, username, items, status, submitted_at, completed_at
		FROM orders
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o models.Order
		var itemsJSON []byte
		if err := rows.Scan(&o.ID, &o.UserID, &o.Username, &itemsJSON, &o.Status, &o.SubmittedAt, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
		st.Orders = append(st.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return st, nil
}

// Save rewrites all three tables in one transaction.
func (s *PostgresStore) Save(ctx context.Context, st *State) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM menu_items`)
	batch.Queue(`DELETE FROM carts`)
	batch.Queue(`DELETE FROM orders`)

	pos := map[string]int{}
	for _, it := range st.Items {
		p := pos[it.Category]
		pos[it.Category] = p + 1
		batch.Queue(`
			INSERT INTO menu_items (id, category, pos, name, description, price, prep_time, photo_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, it.Category, p, it.Name, it.Description, it.Price, it.PrepTime, it.PhotoRef, nonZero(it.CreatedAt),
		)
	}
	for _, c := range st.Carts {
		linesJSON, err := json.Marshal(c.Lines)
		if err != nil {
			return fmt.Errorf("failed to marshal cart lines: %w", err)
		}
		batch.Queue(`INSERT INTO carts (user_id, lines, created_at) VALUES ($1, $2, $3)`,
			c.UserID, linesJSON, nonZero(c.CreatedAt),
		)
	}
	for i, o := range st.Orders {
		itemsJSON, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal order items: %w", err)
		}
		batch.Queue(`
			INSERT INTO orders (id, seq, user_id, username, items, status, submitted_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, i, o.UserID, o.Username, itemsJSON, o.Status, o.SubmittedAt, o.CompletedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func nonZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
