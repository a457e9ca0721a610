package modelmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// SqlInterface is the query side of *sql.DB, *sql.Tx and *sql.Conn used to read rows
type SqlInterface interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Query is an option for NewRowMapper (the default query) or the read methods (overriding it)
//
// it is the query without the 'SELECT cols' part, the columns always come from the Schema
type Query string

// AddClause is an option for the read methods that appends a clause (e.g. WHERE or ORDER BY) to the query
type AddClause string

// ErrorOnUnknownColumns is a type that can be passed as an option to NewRowMapper
// and determines whether an error is raised when a schema field's column is not present in the query result
type ErrorOnUnknownColumns bool

// ErrorOnUnMappedColumns is a type that can be passed as an option to NewRowMapper
// and determines whether an error is raised when there are result columns that are not mapped to fields
type ErrorOnUnMappedColumns bool

// RowMapper is the interface returned by NewRowMapper / MustNewRowMapper
//
// it reads entities of type T from database rows, using the columns declared on the Schema
type RowMapper[T any] interface {
	// Rows reads all rows and maps them into a slice of `T`
	//
	// options can be any of Query, AddClause, RowPostProcessor[T], ErrorTranslator or Limiter
	Rows(ctx context.Context, db SqlInterface, args []any, options ...any) ([]T, error)
	// Iterate iterates over the rows and calls the supplied handler with each row
	//
	// iteration stops at the end of rows - or an error is encountered - or the supplied handler returns false for `cont` (continue)
	//
	// options can be any of Query, AddClause, RowPostProcessor[T], ErrorTranslator or Limiter
	Iterate(ctx context.Context, db SqlInterface, args []any, handler func(row T) (cont bool, err error), options ...any) error
	// FirstRow reads just the first row and maps it into a `T`
	//
	// if there are no rows, returns nil
	FirstRow(ctx context.Context, db SqlInterface, args []any, options ...any) (*T, error)
	// ExactlyOneRow reads exactly one row and maps it into a `T`
	//
	// if there are no rows, returns error sql.ErrNoRows
	ExactlyOneRow(ctx context.Context, db SqlInterface, args []any, options ...any) (T, error)
}

type rowMapper[T any] struct {
	schema                 *Schema[T]
	cols                   string
	defaultQuery           string
	mu                     sync.RWMutex
	mapped                 bool
	fieldMappers           func(*T) []any
	errorOnUnknownColumns  bool
	errorOnUnMappedColumns bool
	mapError               error
	postProcessors         []RowPostProcessor[T]
	errorTranslator        ErrorTranslator
}

// NewRowMapper creates a new row mapper for reading entities from database rows
//
// options can be any of Query, ErrorOnUnknownColumns, ErrorOnUnMappedColumns, RowPostProcessor[T] or ErrorTranslator
func NewRowMapper[T any](schema *Schema[T], options ...any) (RowMapper[T], error) {
	if schema == nil {
		return nil, errors.New("row mapper requires a schema")
	}
	return (&rowMapper[T]{
		schema:          schema,
		cols:            schema.columnList(),
		errorTranslator: defaultErrorTranslator,
	}).processInitialOptions(options)
}

// MustNewRowMapper is the same as NewRowMapper except that it panics on error
func MustNewRowMapper[T any](schema *Schema[T], options ...any) RowMapper[T] {
	result, err := NewRowMapper[T](schema, options...)
	if err != nil {
		panic(err)
	}
	return result
}

func (m *rowMapper[T]) Rows(ctx context.Context, db SqlInterface, args []any, options ...any) ([]T, error) {
	result := make([]T, 0)
	translator, err := m.each(ctx, db, args, options, func(item T) (bool, error) {
		result = append(result, item)
		return true, nil
	})
	if err != nil {
		return nil, translateError(err, translator)
	}
	return result, nil
}

func (m *rowMapper[T]) Iterate(ctx context.Context, db SqlInterface, args []any, handler func(row T) (cont bool, err error), options ...any) error {
	translator, err := m.each(ctx, db, args, options, handler)
	return translateError(err, translator)
}

func (m *rowMapper[T]) FirstRow(ctx context.Context, db SqlInterface, args []any, options ...any) (*T, error) {
	var result *T
	translator, err := m.each(ctx, db, args, options, func(item T) (bool, error) {
		result = &item
		return false, nil
	})
	if err != nil {
		return nil, translateError(err, translator)
	}
	return result, nil
}

func (m *rowMapper[T]) ExactlyOneRow(ctx context.Context, db SqlInterface, args []any, options ...any) (T, error) {
	var result T
	found := false
	translator, err := m.each(ctx, db, args, options, func(item T) (bool, error) {
		result, found = item, true
		return false, nil
	})
	if err == nil && !found {
		err = sql.ErrNoRows
	}
	return result, translateError(err, translator)
}

// each runs the query and passes every mapped (and post processed) row to yield
//
// reading stops when yield returns false or an error, or when the limiter is reached
//
// the returned error is untranslated, the returned ErrorTranslator is the one that applies to this read
func (m *rowMapper[T]) each(ctx context.Context, db SqlInterface, args []any, options []any, yield func(item T) (bool, error)) (ErrorTranslator, error) {
	opts, err := m.readOptions(options)
	if err != nil {
		return opts.errorTranslator, err
	}
	rows, err := db.QueryContext(ctx, opts.query, args...)
	if err != nil {
		return opts.errorTranslator, err
	}
	defer func() {
		_ = rows.Close()
	}()
	fieldPtrs, err := m.getFieldMappers(rows)
	if err != nil {
		return opts.errorTranslator, err
	}
	for rowCount := 1; rows.Next(); rowCount++ {
		if opts.limiter.LimitReached(rowCount) {
			break
		}
		var item T
		if err = rows.Scan(fieldPtrs(&item)...); err != nil {
			return opts.errorTranslator, err
		}
		if err = m.postProcess(ctx, db, opts.postProcessors, &item); err != nil {
			return opts.errorTranslator, err
		}
		if cont, err := yield(item); err != nil || !cont {
			return opts.errorTranslator, err
		}
	}
	return opts.errorTranslator, rows.Err()
}

func (m *rowMapper[T]) postProcess(ctx context.Context, db SqlInterface, postProcessors []RowPostProcessor[T], item *T) error {
	for _, pp := range postProcessors {
		if err := pp.PostProcess(ctx, db, item); err != nil {
			return err
		}
	}
	return nil
}

func (m *rowMapper[T]) processInitialOptions(options []any) (RowMapper[T], error) {
	for _, o := range options {
		if o != nil {
			switch option := o.(type) {
			case Query:
				if m.defaultQuery != "" {
					return nil, errors.New("cannot use multiple default queries")
				}
				q, err := m.selectQuery(option)
				if err != nil {
					return nil, err
				}
				m.defaultQuery = q
			case ErrorOnUnknownColumns:
				m.errorOnUnknownColumns = bool(option)
			case ErrorOnUnMappedColumns:
				m.errorOnUnMappedColumns = bool(option)
			case RowPostProcessor[T]:
				m.postProcessors = append(m.postProcessors, option)
			case ErrorTranslator:
				m.errorTranslator = option
			default:
				return nil, fmt.Errorf("unknown option type: %T", o)
			}
		}
	}
	return m, nil
}

// readSettings are the options in effect for a single read
type readSettings[T any] struct {
	query           string
	postProcessors  []RowPostProcessor[T]
	limiter         Limiter
	errorTranslator ErrorTranslator
}

// readOptions merges the per read options over the row mapper's own
//
// the returned error translator is usable even when an error is returned
func (m *rowMapper[T]) readOptions(options []any) (readSettings[T], error) {
	opts := readSettings[T]{
		query:           m.defaultQuery,
		postProcessors:  append([]RowPostProcessor[T]{}, m.postProcessors...),
		limiter:         defaultLimiter,
		errorTranslator: m.errorTranslator,
	}
	for _, o := range options {
		if o == nil {
			continue
		}
		switch option := o.(type) {
		case Query:
			q, err := m.selectQuery(option)
			if err != nil {
				return opts, err
			}
			opts.query = q
		case AddClause:
			if opts.query == "" {
				return opts, errors.New("add clause must have a query set")
			}
			opts.query += " " + string(option)
		case RowPostProcessor[T]:
			opts.postProcessors = append(opts.postProcessors, option)
		case Limiter:
			opts.limiter = option
		case ErrorTranslator:
			opts.errorTranslator = option
		default:
			return opts, fmt.Errorf("unknown option type: %T", o)
		}
	}
	if opts.query == "" {
		return opts, errors.New("no default query")
	}
	return opts, nil
}

// selectQuery prefixes the query with the schema's columns
func (m *rowMapper[T]) selectQuery(query Query) (string, error) {
	if strings.HasPrefix(strings.TrimLeft(string(query), " \t\r\n"), ",") {
		return "", errors.New("cannot forge extra columns using Query")
	}
	return "SELECT " + m.cols + " " + string(query), nil
}

func (m *rowMapper[T]) getFieldMappers(rows *sql.Rows) (func(*T) []any, error) {
	m.mu.RLock()
	if m.mapped {
		m.mu.RUnlock()
		return m.fieldMappers, m.mapError
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapped {
		return m.fieldMappers, m.mapError
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	m.mapped = true
	m.fieldMappers, m.mapError = m.mapColumns(columns)
	return m.fieldMappers, m.mapError
}

func (m *rowMapper[T]) mapColumns(columns []string) (func(*T) []any, error) {
	fields := make([]*Field[T], len(columns))
	present := make(map[string]bool, len(columns))
	unmapped := make([]string, 0)
	for i, col := range columns {
		present[col] = true
		if f, ok := m.schema.fieldByColumn(col); ok {
			fields[i] = f
		} else {
			unmapped = append(unmapped, col)
		}
	}
	if m.errorOnUnMappedColumns && len(unmapped) > 0 {
		return nil, fmt.Errorf("unmapped column(s): %s", `"`+strings.Join(unmapped, `","`)+`"`)
	}
	if m.errorOnUnknownColumns {
		unknown := make([]string, 0)
		for _, col := range m.schema.Columns() {
			if !present[col] {
				unknown = append(unknown, col)
			}
		}
		if len(unknown) > 0 {
			return nil, fmt.Errorf("unknown column(s): %s", `"`+strings.Join(unknown, `","`)+`"`)
		}
	}
	return func(t *T) []any {
		ptrs := make([]any, len(fields))
		for i, f := range fields {
			if f != nil {
				ptrs[i] = &fieldScanner[T]{field: f, target: t}
			} else {
				ptrs[i] = discardScanner{}
			}
		}
		return ptrs
	}, nil
}
