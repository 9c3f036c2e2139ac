package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"acvcharts/internal/core"
	"acvcharts/internal/records"
)

// Repository stores the current opportunity batch in a SQL database. The
// batch is replaced as a whole; rows keep their import position so loads
// return records in source order.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ records.Source = (*Repository)(nil)
	_ records.Writer = (*Repository)(nil)
	_ records.Pinger = (*Repository)(nil)
)

// Open connects to the database and applies pending migrations. For SQLite
// dsn is a file path; its directory is created if needed.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Repository, error) {
	if dialect == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if dialect == SQLite {
		// a single writer avoids SQLITE_BUSY during batch replacement
		db.SetMaxOpenConns(1)
	}

	return &Repository{db: db, dialect: dialect}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Name() string {
	return string(r.dialect)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadRecords implements records.Source.
func (r *Repository) LoadRecords(ctx context.Context) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT closed_fiscal_quarter, cust_type, opp_count, acv
		FROM opportunities
		ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	recs := []core.RawRecord{}
	for rows.Next() {
		var (
			rec core.RawRecord
			acv decimal.Decimal
		)
		if err := rows.Scan(&rec.Quarter, &rec.CustType, &rec.Count, &acv); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		rec.ACV = acv
		if err := rec.Validate(); err != nil {
			return nil, core.WithRecordIndex(err, len(recs))
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return recs, nil
}

// ReplaceRecords implements records.Writer. The whole batch is validated
// before the transaction starts; progress, if set, receives the number of
// rows written so far.
func (r *Repository) ReplaceRecords(ctx context.Context, recs []core.RawRecord, progress func(int)) error {
	if err := core.ValidateRecords(recs); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM opportunities`); err != nil {
		return fmt.Errorf("clear opportunities: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO opportunities (position, closed_fiscal_quarter, cust_type, opp_count, acv)
		VALUES (%s, %s, %s, %s, %s)`,
		r.dialect.placeholder(1), r.dialect.placeholder(2), r.dialect.placeholder(3),
		r.dialect.placeholder(4), r.dialect.placeholder(5))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		if _, err := stmt.ExecContext(ctx, i, rec.Quarter, rec.CustType, rec.Count, rec.ACV.String()); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
		if progress != nil {
			progress(i + 1)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CountRecords returns the number of stored opportunity rows.
func (r *Repository) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count opportunities: %w", err)
	}
	return n, nil
}
