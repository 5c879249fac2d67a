package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/duzagac/village-backend/log"
)

// DB is the engagement store. It holds likes and comments keyed by post identifier.
type DB struct {
	Db      *sql.DB
	dialect dialect

	// Now stamps created_at columns. Tests replace it.
	Now func() time.Time
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// sqlitePragmas go into the DSN so every pooled connection gets them.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Init opens the store named by dsn and creates the tables. A postgres:// or postgresql:// URL
// selects Postgres; anything else is treated as a SQLite file path.
func Init(ctx context.Context, dsn string) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database url is empty")
	}

	d := &DB{Now: time.Now}
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "postgres"
		d.dialect = dialectPostgres
	}

	if d.dialect == dialectSQLite {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqlitePragmas
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	d.Db = conn

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	log.Info.Printf("Creating Tables...\n")
	if err := d.createTables(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Info.Printf("Tables Created...")
	return d, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	if d == nil || d.Db == nil {
		return nil
	}
	return d.Db.Close()
}

func (d *DB) createTables(ctx context.Context) error {
	commentID := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect == dialectPostgres {
		commentID = "id SERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE likes (
			post_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			name_full TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (post_id, device_id)
		)`,
		`CREATE TABLE comments (
			` + commentID + `,
			post_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			name_full TEXT NOT NULL,
			comment TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX comments_post_id ON comments (post_id)`,
	}
	for _, stmt := range stmts {
		_, err := d.Db.ExecContext(ctx, stmt)
		if err == nil {
			continue
		}
		if name, ok := alreadyExists(err); ok {
			log.Warn.Printf("%s: %s", name, err.Error())
			continue
		}
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// alreadyExists reports whether err says a table or index is already there.
func alreadyExists(err error) (string, bool) {
	var perr *pq.Error
	if errors.As(err, &perr) {
		name := perr.Code.Name()
		return name, name == "duplicate_table"
	}
	if strings.Contains(err.Error(), "already exists") {
		return "already_exists", true
	}
	return "", false
}

const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// isUniqueViolation reports whether err came from the likes primary key rejecting a second row.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var perr *pq.Error
	if errors.As(err, &perr) {
		return perr.Code.Name() == "unique_violation"
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// rebind rewrites ? placeholders into $N for Postgres.
func (d *DB) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
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

func (d *DB) timestamp() string {
	return d.Now().Format(timeLayout)
}
