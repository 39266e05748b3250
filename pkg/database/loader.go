package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/isabelamendes/case-tecnico-oto/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open routes the DSN to the right driver: mysql:// and mariadb:// URLs are
// converted to the go-sql-driver form, sqlite:// (or a bare file path ending
// in .db/.sqlite) goes to the modernc driver. Returns the native DSN used.
func Open(dsn string) (*sql.DB, string, error) {
	driver, native, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, native, nil
}

func resolveDSN(dsn string) (driver, native string, err error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return "sqlite", dsn, nil
	}
	native, err = toMySQLDSN(dsn)
	return "mysql", native, err
}

// toMySQLDSN converts mariadb:// or mysql:// URLs to the go-sql-driver DSN
// format. Anything else passes through unchanged.
func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("incomplete dsn (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// LoadPurchases scans purchase rows dated within [from, to] into memory.
// NULL columns come back as zero values so the pipeline's own validation
// decides whether to skip or abort; the loader never coerces. onRow, when
// non-nil, is called once per scanned row for progress reporting.
func LoadPurchases(ctx context.Context, db *sql.DB, table string, from, to time.Time, onRow func()) ([]models.PurchaseRecord, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	// Always work in UTC and format boundaries as DATETIME strings.
	const layout = "2006-01-02 15:04:05"
	q := fmt.Sprintf(`
		SELECT customer_id, purchase_date, amount
		FROM %s
		WHERE purchase_date >= ? AND purchase_date <= ?
	`, table)

	rows, err := db.QueryContext(ctx, q, from.UTC().Format(layout), to.UTC().Format(layout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PurchaseRecord
	for rows.Next() {
		var (
			id     sql.NullString
			date   sql.NullTime
			amount sql.NullFloat64
		)
		if err := rows.Scan(&id, &date, &amount); err != nil {
			return nil, err
		}
		rec := models.PurchaseRecord{
			CustomerID: id.String,
			Amount:     amount.Float64,
		}
		if date.Valid {
			rec.PurchaseDate = date.Time.UTC()
		}
		out = append(out, rec)
		if onRow != nil {
			onRow()
		}
	}
	return out, rows.Err()
}
