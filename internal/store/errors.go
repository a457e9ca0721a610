package store

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	ErrNotFound           = errors.New("order item not found")
	ErrReferenceViolation = errors.New("referenced row does not exist")
	ErrUnknownModel       = errors.New("unknown reference model")
)

const (
	mysqlNoReferencedRow    = 1452
	postgresForeignKeyError = "23503"
)

// translateError maps driver specific errors onto the store's sentinel errors
func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlNoReferencedRow {
		return errors.Join(ErrReferenceViolation, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == postgresForeignKeyError {
		return errors.Join(ErrReferenceViolation, err)
	}
	return err
}
