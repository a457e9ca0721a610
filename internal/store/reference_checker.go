package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-andiamo/modelmap"
	"github.com/go-andiamo/modelmap/orderitem"
)

// ReferenceChecker checks referenced rows exist - it is passed to the serializer as its modelmap.ReferenceChecker
type ReferenceChecker struct {
	db      modelmap.SqlInterface
	dialect Dialect
	tables  map[string]string
}

var _ modelmap.ReferenceChecker = (*ReferenceChecker)(nil)

// NewReferenceChecker creates a reference checker that knows the product model
func NewReferenceChecker(db modelmap.SqlInterface, dialect Dialect) *ReferenceChecker {
	return &ReferenceChecker{
		db:      db,
		dialect: dialect,
		tables: map[string]string{
			orderitem.ProductModel: "products",
		},
	}
}

func (c *ReferenceChecker) Exists(ctx context.Context, model string, pk int64) (bool, error) {
	table, ok := c.tables[model]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	var one int
	err := c.db.QueryRowContext(ctx, c.dialect.Rebind("SELECT 1 FROM "+table+" WHERE id = ?"), pk).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
