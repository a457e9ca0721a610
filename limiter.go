package modelmap

// Limiter is an interface that can be passed as an option to RowMapper.Rows or RowMapper.Iterate
//
// and is used to limit the number of rows read
type Limiter interface {
	// LimitReached should return true if the rowCount arg exceeds the maximum
	LimitReached(rowCount int) bool
}

// MaxRows is a Limiter that limits the number of rows read (zero or less means no limit)
type MaxRows int

var _ Limiter = MaxRows(0)

func (m MaxRows) LimitReached(rowCount int) bool {
	return m > 0 && rowCount > int(m)
}

var defaultLimiter Limiter = &nullLimiter{}

type nullLimiter struct{}

var _ Limiter = (*nullLimiter)(nil)

func (n *nullLimiter) LimitReached(rowCount int) bool {
	return false
}
