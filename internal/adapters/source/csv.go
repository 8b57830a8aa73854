// Package source loads the raw event table from CSV files, HTTP(S) URLs,
// Google Cloud Storage objects, SQLite tables and Postgres tables.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/normalize"
)

// DefaultCSVURL is the published historical events export.
const DefaultCSVURL = "https://raw.githubusercontent.com/mashley00/venue-webhook/main/data/AllEvents.csv"

const utf8BOM = "\ufeff"

var _ dataset.Source = (*CSV)(nil)

// CSVOption applies a configuration option to the CSV source.
type CSVOption func(*CSV)

// WithHTTPClient replaces the client used for http(s) locations.
func WithHTTPClient(hc *http.Client) CSVOption {
	return func(c *CSV) {
		if hc != nil {
			c.http = hc
		}
	}
}

// CSV reads a comma-separated table from a local path or an http(s) URL.
type CSV struct {
	location string
	http     *http.Client
}

// NewCSV creates a CSV source for location.
func NewCSV(location string, opts ...CSVOption) *CSV {
	c := &CSV{
		location: strings.TrimSpace(location),
		http:     &http.Client{Timeout: time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements dataset.Source.
func (c *CSV) Name() string { return "csv:" + c.location }

// Load implements dataset.Source.
func (c *CSV) Load(ctx context.Context) (normalize.Table, error) {
	if c.location == "" {
		return normalize.Table{}, ErrNoLocation
	}
	rc, err := c.open(ctx)
	if err != nil {
		return normalize.Table{}, err
	}
	defer rc.Close()
	return ReadCSV(rc)
}

func (c *CSV) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(c.location, "http://") && !strings.HasPrefix(c.location, "https://") {
		f, err := os.Open(c.location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", c.location, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w: status %d", c.location, ErrUpstream, resp.StatusCode)
	}
	return resp.Body, nil
}

// ReadCSV parses a header row followed by data rows. Ragged rows are kept;
// the normalizer treats absent cells as missing.
func ReadCSV(r io.Reader) (normalize.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return normalize.Table{}, nil
	}
	if err != nil {
		return normalize.Table{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	t := normalize.Table{Columns: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return normalize.Table{}, fmt.Errorf("read csv row %d: %w", len(t.Rows)+2, err)
		}
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
