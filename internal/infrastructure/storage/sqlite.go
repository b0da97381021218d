package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

// SQLiteStore persists the account order log. Market data is never stored
// here; only orders this account placed and their streamed state changes.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			inst_id TEXT NOT NULL,
			side TEXT NOT NULL,
			type TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			size REAL NOT NULL DEFAULT 0,
			filled_size REAL NOT NULL DEFAULT 0,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_inst_id ON orders(inst_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_state ON orders(state);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO orders
		 (order_id, inst_id, side, type, price, size, filled_size, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.InstID, string(order.Side), string(order.Type),
		order.Price, order.Size, order.FilledSize, string(order.State),
		order.CreatedAt, order.UpdatedAt,
	)
	return err
}

// UpdateOrder applies a streamed order update. Updates can arrive for orders
// placed before this process started, so an unknown order is inserted.
func (s *SQLiteStore) UpdateOrder(ctx context.Context, order *domain.Order) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET price = ?, size = ?, filled_size = ?, state = ?, updated_at = ?
		 WHERE order_id = ?`,
		order.Price, order.Size, order.FilledSize, string(order.State),
		order.UpdatedAt, order.OrderID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.SaveOrder(ctx, order)
	}
	return nil
}

func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT order_id, inst_id, side, type, price, size, filled_size, state, created_at, updated_at
		 FROM orders WHERE order_id = ?`, orderID)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, inst_id, side, type, price, size, filled_size, state, created_at, updated_at
		 FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var side, typ, state string
	if err := row.Scan(&o.OrderID, &o.InstID, &side, &typ, &o.Price, &o.Size,
		&o.FilledSize, &state, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Side = domain.Side(side)
	o.Type = domain.OrderType(typ)
	o.State = domain.OrderState(state)
	return &o, nil
}
