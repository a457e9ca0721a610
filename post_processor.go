package modelmap

import (
	"context"
)

// RowPostProcessor is an interface that can be passed as an option to NewRowMapper (or
// any of the row reading methods - RowMapper.Rows, RowMapper.Iterate, RowMapper.FirstRow, RowMapper.ExactlyOneRow)
//
// Multiple RowPostProcessor can be used, each one is called sequentially after the row is mapped
type RowPostProcessor[T any] interface {
	// PostProcess executes the RowPostProcessor
	PostProcess(ctx context.Context, db SqlInterface, row *T) error
}

// RowPostProcessorFunc is a func adapter for RowPostProcessor
type RowPostProcessorFunc[T any] func(ctx context.Context, db SqlInterface, row *T) error

func (f RowPostProcessorFunc[T]) PostProcess(ctx context.Context, db SqlInterface, row *T) error {
	return f(ctx, db, row)
}
