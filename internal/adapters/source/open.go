package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/okian/vor/internal/domain/dataset"
)

// Source kinds accepted by Open.
const (
	KindCSV      = "csv"
	KindGCS      = "gcs"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Settings selects and configures one source.
type Settings struct {
	Kind string

	// csv
	URL string

	// gcs
	Bucket          string
	Object          string
	CredentialsFile string

	// sqlite
	SQLitePath  string
	SQLiteTable string

	// postgres
	PostgresDSN   string
	PostgresTable string
}

type opener func(ctx context.Context, s Settings) (dataset.Source, error)

var kinds = map[string]opener{
	KindCSV: func(_ context.Context, s Settings) (dataset.Source, error) {
		return NewCSV(s.URL), nil
	},
	KindGCS: func(ctx context.Context, s Settings) (dataset.Source, error) {
		return NewGCS(ctx, s.Bucket, s.Object, s.CredentialsFile)
	},
	KindSQLite: func(_ context.Context, s Settings) (dataset.Source, error) {
		return NewSQLite(s.SQLitePath, s.SQLiteTable)
	},
	KindPostgres: func(ctx context.Context, s Settings) (dataset.Source, error) {
		return NewPostgres(ctx, s.PostgresDSN, s.PostgresTable)
	},
}

// Open builds the configured source. Sources holding connections also
// implement io.Closer; use CloseSource when done.
func Open(ctx context.Context, s Settings) (dataset.Source, error) {
	open, ok := kinds[strings.ToLower(strings.TrimSpace(s.Kind))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownKind, s.Kind, strings.Join(Names(), ", "))
	}
	return open(ctx, s)
}

// CloseSource closes src if it holds resources.
func CloseSource(src dataset.Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
