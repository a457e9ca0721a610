package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-andiamo/modelmap/internal/config"
)

// Dialect is the SQL flavour of the underlying database
type Dialect int

const (
	MySQL Dialect = iota
	Postgres
)

// DialectFor returns the Dialect for a configured driver name
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case config.DriverMySQL:
		return MySQL, nil
	case config.DriverPostgres:
		return Postgres, nil
	}
	return 0, fmt.Errorf("unsupported database driver: %s", driverName)
}

// Rebind converts '?' arg markers to the dialect's markers ($1, $2... for postgres)
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
