package dataset_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/normalize"
	"github.com/okian/vor/internal/domain/topic"
	"github.com/okian/vor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var header = []string{
	"Venue", "City", "State", "Topic", "Event Date", "Event Time",
	"Gross Registrants", "Attended HH", "Registration Max", "FB CPR",
}

func table(rows ...[]string) normalize.Table {
	return normalize.Table{Columns: header, Rows: rows}
}

type fakeSource struct {
	mu    sync.Mutex
	next  []normalize.Table
	errs  []error
	calls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(context.Context) (normalize.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return normalize.Table{}, f.errs[i]
	}
	if i < len(f.next) {
		return f.next[i], nil
	}
	return f.next[len(f.next)-1], nil
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quiet() dataset.RefresherOption {
	return dataset.WithLogger(logger.New(logger.WithOutput(io.Discard)))
}

func TestSnapshot(t *testing.T) {
	Convey("Given a raw table", t, func() {
		loaded := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
		snap, err := dataset.NewSnapshot("csv", table(
			[]string{"Oak Hall", "Springfield", "IL", "TIR", "2024-06-01", "11:00", "40", "20", "80", "10"},
			[]string{"Elm Center", "Springfield", "IL", "EP", "2024-06-02", "18:30", "30", "10", "60", "12"},
			[]string{"Oak Hall", "Chicago", "IL", "TIR", "2024-06-03", "11:00", "40", "20", "80", "10"},
		), loaded)

		Convey("Then the snapshot exposes normalized records", func() {
			So(err, ShouldBeNil)
			So(snap.ID(), ShouldNotBeEmpty)
			So(snap.Source(), ShouldEqual, "csv")
			So(snap.LoadedAt(), ShouldEqual, loaded)
			So(snap.Len(), ShouldEqual, 3)
			So(snap.ByTopic(topic.TaxesInRetirement), ShouldHaveLength, 2)
		})

		Convey("Then callers cannot mutate it through Records", func() {
			recs := snap.Records()
			recs[0].Venue = "changed"
			So(snap.Records()[0].Venue, ShouldEqual, "Oak Hall")
		})

		Convey("Then stats summarize topics, venues and markets", func() {
			st := snap.Stats()
			So(st.Records, ShouldEqual, 3)
			So(st.Venues, ShouldEqual, 2)
			So(st.ByTopic["TIR"], ShouldEqual, 2)
			So(st.Markets, ShouldResemble, []string{"Chicago, IL", "Springfield, IL"})
		})
	})

	Convey("Given a table missing a required column", t, func() {
		raw := table([]string{"Oak Hall"})
		raw.Columns = raw.Columns[:3]
		_, err := dataset.NewSnapshot("csv", raw, time.Now())
		So(errors.Is(err, normalize.ErrSchema), ShouldBeTrue)
	})
}

func TestHolder(t *testing.T) {
	Convey("Given an empty holder", t, func() {
		h := dataset.NewHolder()

		_, err := h.Load()
		So(errors.Is(err, dataset.ErrNoSnapshot), ShouldBeTrue)

		Convey("When snapshots are swapped in", func() {
			a := dataset.FromRecords("a", nil, time.Now())
			b := dataset.FromRecords("b", nil, time.Now())
			So(h.Swap(a), ShouldBeNil)
			So(h.Swap(b), ShouldEqual, a)

			cur, err := h.Load()
			So(err, ShouldBeNil)
			So(cur, ShouldEqual, b)
		})
	})
}

func TestRefresher(t *testing.T) {
	good := table([]string{"Oak Hall", "Springfield", "IL", "TIR", "2024-06-01", "11:00", "40", "20", "80", "10"})

	Convey("Given a refresher over a working source", t, func() {
		src := &fakeSource{next: []normalize.Table{good}}
		h := dataset.NewHolder()
		r := dataset.NewRefresher(src, h, quiet(), dataset.WithInterval(0))

		Convey("When refreshing", func() {
			snap, err := r.Refresh(context.Background())

			Convey("Then the new snapshot is published", func() {
				So(err, ShouldBeNil)
				cur, _ := h.Load()
				So(cur, ShouldEqual, snap)
				So(cur.Len(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a source that fails after the first load", t, func() {
		broken := good
		broken.Columns = broken.Columns[:2]
		src := &fakeSource{
			next: []normalize.Table{good, broken, {}},
			errs: []error{nil, nil, nil, errors.New("network down")},
		}
		h := dataset.NewHolder()
		r := dataset.NewRefresher(src, h, quiet())

		first, err := r.Refresh(context.Background())
		So(err, ShouldBeNil)

		Convey("Then schema errors, empty tables and load errors keep the old snapshot", func() {
			_, err := r.Refresh(context.Background())
			So(errors.Is(err, normalize.ErrSchema), ShouldBeTrue)

			_, err = r.Refresh(context.Background())
			So(errors.Is(err, dataset.ErrEmpty), ShouldBeTrue)

			_, err = r.Refresh(context.Background())
			So(err, ShouldNotBeNil)

			cur, _ := h.Load()
			So(cur, ShouldEqual, first)
		})
	})

	Convey("Given a short refresh interval", t, func() {
		src := &fakeSource{next: []normalize.Table{good}}
		h := dataset.NewHolder()
		r := dataset.NewRefresher(src, h, quiet(), dataset.WithInterval(5*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r.Start(ctx)

		Convey("Then the loop reloads until closed", func() {
			deadline := time.Now().Add(2 * time.Second)
			for src.count() < 3 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(src.count(), ShouldBeGreaterThanOrEqualTo, 3)
			So(r.Close(), ShouldBeNil)
			So(r.Close(), ShouldBeNil)

			_, err := h.Load()
			So(err, ShouldBeNil)
		})
	})
}
