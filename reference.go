package modelmap

import "context"

// ReferenceChecker is an option that can be passed to NewSerializer
//
// and is used to check the referential validity of reference fields when deserializing
//
// If no ReferenceChecker is supplied, reference fields are only checked for type
type ReferenceChecker interface {
	// Exists reports whether a row of the named model with the given primary key exists
	//
	// a returned error is treated as an infrastructure failure (not a validation error)
	Exists(ctx context.Context, model string, pk int64) (bool, error)
}

// ReferenceCheckerFunc is a func adapter for ReferenceChecker
type ReferenceCheckerFunc func(ctx context.Context, model string, pk int64) (bool, error)

var _ ReferenceChecker = ReferenceCheckerFunc(nil)

func (f ReferenceCheckerFunc) Exists(ctx context.Context, model string, pk int64) (bool, error) {
	return f(ctx, model, pk)
}
