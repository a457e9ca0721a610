package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-andiamo/modelmap"
	"github.com/go-andiamo/modelmap/orderitem"
)

const orderItemsTable = "order_items"

// DB is the subset of *sql.DB used by the stores
type DB interface {
	modelmap.SqlInterface
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// OrderItemStore persists order items
type OrderItemStore struct {
	db      DB
	dialect Dialect
	mapper  modelmap.RowMapper[orderitem.OrderItem]
	log     *slog.Logger
}

// NewOrderItemStore creates a new SQL backed order item store
func NewOrderItemStore(db DB, dialect Dialect, log *slog.Logger) (*OrderItemStore, error) {
	mapper, err := modelmap.NewRowMapper[orderitem.OrderItem](orderitem.Schema,
		modelmap.Query("FROM "+orderItemsTable),
		modelmap.ErrorOnUnknownColumns(true),
		modelmap.ErrorTranslatorFunc(translateError))
	if err != nil {
		return nil, err
	}
	return &OrderItemStore{
		db:      db,
		dialect: dialect,
		mapper:  mapper,
		log:     log,
	}, nil
}

// List returns order items ordered by id (limit <= 0 means all)
func (s *OrderItemStore) List(ctx context.Context, limit int) ([]orderitem.OrderItem, error) {
	if limit <= 0 {
		return s.mapper.Rows(ctx, s.db, nil, modelmap.AddClause("ORDER BY id"))
	}
	// MaxRows still guards the read in case the driver ignores the LIMIT
	return s.mapper.Rows(ctx, s.db, []any{int64(limit)}, modelmap.AddClause(s.dialect.Rebind("ORDER BY id LIMIT ?")), modelmap.MaxRows(limit))
}

// Get returns the order item with the given id (ErrNotFound if there isn't one)
func (s *OrderItemStore) Get(ctx context.Context, id int64) (orderitem.OrderItem, error) {
	return s.mapper.ExactlyOneRow(ctx, s.db, []any{id}, modelmap.AddClause(s.dialect.Rebind("WHERE id = ?")))
}

// Create inserts the order item and sets its id
func (s *OrderItemStore) Create(ctx context.Context, item *orderitem.OrderItem) error {
	cols := orderitem.Schema.WritableColumns()
	args := orderitem.Schema.WritableValues(item)
	markers := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	query := s.dialect.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", orderItemsTable, strings.Join(cols, ","), markers))

	if s.dialect == Postgres {
		if err := s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&item.ID); err != nil {
			return translateError(err)
		}
	} else {
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return translateError(err)
		}
		if item.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}
	s.log.Debug("order item created", "order_item_id", item.ID)
	return nil
}

// Update writes all writable fields of the order item (ErrNotFound if there is no row with its id)
func (s *OrderItemStore) Update(ctx context.Context, item orderitem.OrderItem) error {
	cols := orderitem.Schema.WritableColumns()
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}
	args := append(orderitem.Schema.WritableValues(&item), item.ID)
	query := s.dialect.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", orderItemsTable, strings.Join(sets, ", ")))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	if err = checkAffected(result); err != nil {
		return err
	}
	s.log.Debug("order item updated", "order_item_id", item.ID)
	return nil
}

// Delete removes the order item with the given id (ErrNotFound if there isn't one)
func (s *OrderItemStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind("DELETE FROM "+orderItemsTable+" WHERE id = ?"), id)
	if err != nil {
		return translateError(err)
	}
	if err = checkAffected(result); err != nil {
		return err
	}
	s.log.Debug("order item deleted", "order_item_id", id)
	return nil
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
