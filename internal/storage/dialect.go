package storage

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect names a supported SQL database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case SQLite, Postgres, MySQL:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", s)
	}
}

func (d Dialect) driverName() string {
	return string(d)
}

// placeholder returns the bind parameter for the n-th argument (1-based).
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// migrationDSN adjusts dsn for the migration connection; MySQL only runs
// multi-statement migration files with multiStatements enabled.
func (d Dialect) migrationDSN(dsn string) string {
	if d != MySQL {
		return dsn
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return dsn
	}
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}
