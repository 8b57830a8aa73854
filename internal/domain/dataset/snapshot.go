// Package dataset holds immutable snapshots of the event records and swaps
// them atomically when a refresh completes.
package dataset

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/normalize"
	"github.com/okian/vor/internal/domain/topic"
)

// Source supplies the raw event table.
type Source interface {
	Name() string
	Load(ctx context.Context) (normalize.Table, error)
}

// Snapshot is one loaded, normalized dataset. It is never mutated after
// construction.
type Snapshot struct {
	id       string
	source   string
	loadedAt time.Time
	records  []model.EventRecord
}

// NewSnapshot normalizes raw and wraps the records. A missing required column
// fails with a *normalize.SchemaError.
func NewSnapshot(source string, raw normalize.Table, loadedAt time.Time) (*Snapshot, error) {
	records, err := normalize.Records(raw)
	if err != nil {
		return nil, err
	}
	return FromRecords(source, records, loadedAt), nil
}

// FromRecords wraps already-canonical records.
func FromRecords(source string, records []model.EventRecord, loadedAt time.Time) *Snapshot {
	owned := make([]model.EventRecord, len(records))
	copy(owned, records)
	return &Snapshot{
		id:       uuid.NewString(),
		source:   source,
		loadedAt: loadedAt,
		records:  owned,
	}
}

// ID uniquely identifies this snapshot.
func (s *Snapshot) ID() string { return s.id }

// Source names where the snapshot was loaded from.
func (s *Snapshot) Source() string { return s.source }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns a copy of every record.
func (s *Snapshot) Records() []model.EventRecord {
	out := make([]model.EventRecord, len(s.records))
	copy(out, s.records)
	return out
}

// ByTopic returns copies of the records for one topic.
func (s *Snapshot) ByTopic(t topic.Topic) []model.EventRecord {
	var out []model.EventRecord
	for i := range s.records {
		if s.records[i].Topic == t {
			out = append(out, s.records[i])
		}
	}
	return out
}

// Stats summarizes a snapshot for health reporting.
type Stats struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	LoadedAt time.Time      `json:"loaded_at"`
	Records  int            `json:"records"`
	Venues   int            `json:"venues"`
	ByTopic  map[string]int `json:"by_topic"`
	Markets  []string       `json:"markets,omitempty"`
}

// Stats computes the snapshot summary.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		ID:       s.id,
		Source:   s.source,
		LoadedAt: s.loadedAt,
		Records:  len(s.records),
		ByTopic:  make(map[string]int),
	}
	venues := make(map[string]struct{})
	markets := make(map[string]struct{})
	for i := range s.records {
		r := &s.records[i]
		st.ByTopic[r.Topic.String()]++
		venues[r.Venue] = struct{}{}
		if r.City != "" || r.State != "" {
			markets[r.City+", "+r.State] = struct{}{}
		}
	}
	st.Venues = len(venues)
	for m := range markets {
		st.Markets = append(st.Markets, m)
	}
	sort.Strings(st.Markets)
	return st
}

// Holder publishes the current snapshot to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates an empty holder.
func NewHolder() *Holder { return &Holder{} }

// Load returns the current snapshot, or ErrNoSnapshot before the first swap.
func (h *Holder) Load() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// Swap publishes s and returns the previous snapshot, if any.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	return h.current.Swap(s)
}
