package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/tokenauth/auth"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// ErrUnsupportedDriver is returned for drivers other than pgx and sqlite.
var ErrUnsupportedDriver = errors.New("directory: unsupported driver")

// Open opens and pings a database. SQLite connections get a busy timeout so
// concurrent readers wait for a writer instead of failing.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if !strings.Contains(dsn, "busy_timeout") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory: ping: %w", err)
	}
	return db, nil
}

// SQLDirectory stores accounts in the accounts and account_attributes
// tables created by Migrate.
type SQLDirectory struct {
	db     *sql.DB
	driver string

	// SQLite allows one writer at a time.
	writeMu sync.Mutex
}

// NewSQLDirectory wraps an open database. The caller owns db.
func NewSQLDirectory(db *sql.DB, driver string) (*SQLDirectory, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return &SQLDirectory{db: db, driver: driver}, nil
}

const lookupQuery = `SELECT a.id, a.password_hash, a.active, t.attr_key, t.attr_value
FROM accounts a
LEFT JOIN account_attributes t ON t.account_id = a.id
WHERE a.id = ?`

// Lookup reads an account and its attributes by exact identifier.
func (d *SQLDirectory) Lookup(ctx context.Context, id string) (*auth.Account, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(lookupQuery), id)
	if err != nil {
		return nil, fmt.Errorf("directory: query account: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var acct *auth.Account
	for rows.Next() {
		var (
			a          auth.Account
			key, value sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.PasswordHash, &a.Active, &key, &value); err != nil {
			return nil, fmt.Errorf("directory: scan account: %w", err)
		}
		if acct == nil {
			acct = &a
		}
		if key.Valid {
			if acct.Attributes == nil {
				acct.Attributes = make(map[string]string)
			}
			acct.Attributes[key.String] = value.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: read account: %w", err)
	}
	if acct == nil {
		return nil, auth.ErrAccountNotFound
	}
	return acct, nil
}

const (
	upsertAccountQuery = `INSERT INTO accounts (id, password_hash, active) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET password_hash = excluded.password_hash, active = excluded.active, updated_at = CURRENT_TIMESTAMP`
	deleteAttributesQuery = `DELETE FROM account_attributes WHERE account_id = ?`
	insertAttributeQuery  = `INSERT INTO account_attributes (account_id, attr_key, attr_value) VALUES (?, ?, ?)`
	deleteAccountQuery    = `DELETE FROM accounts WHERE id = ?`
	setActiveQuery        = `UPDATE accounts SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
)

// Upsert creates or replaces an account, including all its attributes.
func (d *SQLDirectory) Upsert(ctx context.Context, acct *auth.Account) error {
	if acct == nil || acct.ID == "" {
		return errors.New("directory: account id is required")
	}

	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, d.rebind(upsertAccountQuery), acct.ID, acct.PasswordHash, acct.Active); err != nil {
			return fmt.Errorf("directory: upsert account: %w", err)
		}
		if _, err := tx.ExecContext(ctx, d.rebind(deleteAttributesQuery), acct.ID); err != nil {
			return fmt.Errorf("directory: clear attributes: %w", err)
		}

		keys := make([]string, 0, len(acct.Attributes))
		for k := range acct.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, d.rebind(insertAttributeQuery), acct.ID, k, acct.Attributes[k]); err != nil {
				return fmt.Errorf("directory: insert attribute %q: %w", k, err)
			}
		}
		return nil
	})
}

// Delete removes an account. Deleting an unknown account returns
// auth.ErrAccountNotFound.
func (d *SQLDirectory) Delete(ctx context.Context, id string) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, d.rebind(deleteAttributesQuery), id); err != nil {
			return fmt.Errorf("directory: delete attributes: %w", err)
		}
		res, err := tx.ExecContext(ctx, d.rebind(deleteAccountQuery), id)
		if err != nil {
			return fmt.Errorf("directory: delete account: %w", err)
		}
		return requireRow(res)
	})
}

// SetActive flips an account's active flag.
func (d *SQLDirectory) SetActive(ctx context.Context, id string, active bool) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	res, err := d.db.ExecContext(ctx, d.rebind(setActiveQuery), active, id)
	if err != nil {
		return fmt.Errorf("directory: set active: %w", err)
	}
	return requireRow(res)
}

// PingContext verifies the database connection.
func (d *SQLDirectory) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *SQLDirectory) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("directory: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("directory: commit: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("directory: rows affected: %w", err)
	}
	if n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *SQLDirectory) rebind(q string) string {
	if d.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ensure SQLDirectory implements auth.Directory
var _ auth.Directory = (*SQLDirectory)(nil)
