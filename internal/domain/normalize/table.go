package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/topic"
)

// Table is a header row plus string cells, as produced by every dataset
// source. Rows may be ragged; short rows read as missing cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// index maps canonical column names to their position.
func (t Table) index() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// CheckSchema returns a *SchemaError for the first required column the
// (canonical) header set lacks.
func CheckSchema(columns []string) error {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, r := range Required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Column: missing[0], Missing: missing}
	}
	return nil
}

// NormalizeTable renames headers to canonical names, drops later duplicates
// of a canonical column, and rewrites every cell into its canonical text form.
func NormalizeTable(raw Table) (Table, error) {
	keep := make([]int, 0, len(raw.Columns))
	cols := make([]string, 0, len(raw.Columns))
	seen := make(map[string]struct{}, len(raw.Columns))
	for i, c := range raw.Columns {
		name := Canonical(c)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		keep = append(keep, i)
		cols = append(cols, name)
	}
	if err := CheckSchema(cols); err != nil {
		return Table{}, err
	}

	out := Table{Columns: cols, Rows: make([][]string, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		nr := make([]string, len(cols))
		for j, src := range keep {
			nr[j] = normalizeCell(kinds[cols[j]], cell(row, src))
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

func normalizeCell(k kind, v string) string {
	switch k {
	case kindUpper:
		return strings.ToUpper(Text(v))
	case kindTopic:
		s := Text(v)
		if s == "" {
			return ""
		}
		if t, err := topic.Parse(s); err == nil {
			return t.Code()
		}
		return strings.ToUpper(s)
	case kindDate:
		if d, ok := ParseDate(v); ok {
			return d.Format(DateLayout)
		}
		return ""
	case kindClock:
		if h, m, ok := ParseClock(v); ok {
			return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format(ClockLayout)
		}
		return Text(v)
	case kindNumber:
		if f, ok := ParseNumber(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	case kindBool:
		if b, ok := ParseBool(v); ok {
			return strconv.FormatBool(b)
		}
		return ""
	case kindPostal:
		return PostalCode(v)
	default:
		return Text(v)
	}
}

// Records normalizes raw and decodes every row into an EventRecord.
func Records(raw Table) ([]model.EventRecord, error) {
	t, err := NormalizeTable(raw)
	if err != nil {
		return nil, err
	}
	return Decode(t), nil
}

// Decode converts an already normalized table into records. Cells that do
// not parse become missing values.
func Decode(t Table) []model.EventRecord {
	idx := t.index()
	col := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}
	var (
		iVenue    = col(ColVenue)
		iCity     = col(ColCity)
		iState    = col(ColState)
		iTopic    = col(ColTopic)
		iDate     = col(ColEventDate)
		iTime     = col(ColEventTime)
		iGross    = col(ColGrossRegistrants)
		iAttended = col(ColAttendedHouseholds)
		iMax      = col(ColRegistrationMax)
		iCPR      = col(ColMediaCostPerResponse)
		iImage    = col(ColImageAllowed)
		iDisclose = col(ColDisclosureRequired)
		iLat      = col(ColLatitude)
		iLon      = col(ColLongitude)
		iPostal   = col(ColPostalCode)
		iImpr     = col(ColFBImpressions)
		iReach    = col(ColFBReach)
		iCPM      = col(ColCPM)
	)

	num := func(row []string, i int) model.Metric {
		if f, ok := ParseNumber(cell(row, i)); ok {
			return model.Some(f)
		}
		return model.Missing()
	}
	flag := func(row []string, i int) bool {
		b, _ := ParseBool(cell(row, i))
		return b
	}

	out := make([]model.EventRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := model.EventRecord{
			Venue:                Text(cell(row, iVenue)),
			City:                 Text(cell(row, iCity)),
			State:                strings.ToUpper(Text(cell(row, iState))),
			EventTime:            Text(cell(row, iTime)),
			GrossRegistrants:     num(row, iGross),
			AttendedHouseholds:   num(row, iAttended),
			RegistrationMax:      num(row, iMax),
			MediaCostPerResponse: num(row, iCPR),
			ImageAllowed:         flag(row, iImage),
			DisclosureRequired:   flag(row, iDisclose),
			Latitude:             num(row, iLat),
			Longitude:            num(row, iLon),
			PostalCode:           PostalCode(cell(row, iPostal)),
			FBImpressions:        num(row, iImpr),
			FBReach:              num(row, iReach),
			CPM:                  num(row, iCPM),
		}
		if tp, err := topic.Parse(cell(row, iTopic)); err == nil {
			rec.Topic = tp
		}
		if d, ok := ParseDate(cell(row, iDate)); ok {
			rec.EventDate = d
		}
		out = append(out, rec)
	}
	return out
}
