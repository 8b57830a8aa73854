package source

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/normalize"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func selectAll(table string) (string, error) {
	if !tableName.MatchString(table) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return "SELECT * FROM " + table, nil
}

// cellText renders a driver value as the text the normalizer parses.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

var _ dataset.Source = (*SQLite)(nil)

// SQLite reads every row of one table from a SQLite database file.
type SQLite struct {
	db    *sqlx.DB
	path  string
	table string
}

// NewSQLite opens the database read-only in spirit; the source never writes.
func NewSQLite(path, table string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path: %w", ErrNoLocation)
	}
	if _, err := selectAll(table); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db, path: path, table: table}, nil
}

// Name implements dataset.Source.
func (s *SQLite) Name() string { return "sqlite:" + s.path + "#" + s.table }

// Load implements dataset.Source.
func (s *SQLite) Load(ctx context.Context) (normalize.Table, error) {
	q, err := selectAll(s.table)
	if err != nil {
		return normalize.Table{}, err
	}
	rows, err := s.db.QueryxContext(ctx, q)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return normalize.Table{}, fmt.Errorf("columns %s: %w", s.table, err)
	}
	t := normalize.Table{Columns: cols}
	for rows.Next() {
		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return normalize.Table{}, fmt.Errorf("scan %s: %w", s.table, err)
		}
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cellText(m[c])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return normalize.Table{}, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return t, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

var _ dataset.Source = (*Postgres)(nil)

// Postgres reads every row of one table through a pgx pool.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgres connects a pool for dsn.
func NewPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn: %w", ErrNoLocation)
	}
	if _, err := selectAll(table); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Name implements dataset.Source.
func (p *Postgres) Name() string { return "postgres:" + p.table }

// Load implements dataset.Source.
func (p *Postgres) Load(ctx context.Context) (normalize.Table, error) {
	q, err := selectAll(p.table)
	if err != nil {
		return normalize.Table{}, err
	}
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("query %s: %w", p.table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	t := normalize.Table{Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = f.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return normalize.Table{}, fmt.Errorf("scan %s: %w", p.table, err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = pgCellText(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return normalize.Table{}, fmt.Errorf("iterate %s: %w", p.table, err)
	}
	return t, nil
}

func pgCellText(v any) string {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return cellText(f.Float64)
	case pgtype.Date:
		if !x.Valid {
			return ""
		}
		return x.Time.Format(normalize.DateLayout)
	default:
		return cellText(v)
	}
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Names lists the supported source kinds.
func Names() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
