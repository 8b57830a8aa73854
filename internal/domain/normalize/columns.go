// Package normalize conforms raw tabular event rows to the canonical schema.
//
// NormalizeTable is idempotent: feeding its output back in changes nothing.
// Records decodes a raw table into model.EventRecord values, failing fast
// with *SchemaError when a required column is absent and tolerating bad
// values cell by cell.
package normalize

import (
	"strings"
	"unicode"
)

// Canonical column names.
const (
	ColVenue                = "venue"
	ColCity                 = "city"
	ColState                = "state"
	ColTopic                = "topic"
	ColEventDate            = "event_date"
	ColEventTime            = "event_time"
	ColGrossRegistrants     = "gross_registrants"
	ColAttendedHouseholds   = "attended_households"
	ColRegistrationMax      = "registration_max"
	ColMediaCostPerResponse = "media_cost_per_response"
	ColImageAllowed         = "image_allowed"
	ColDisclosureRequired   = "disclosure_required"
	ColLatitude             = "latitude"
	ColLongitude            = "longitude"
	ColPostalCode           = "postal_code"
	ColFBImpressions        = "fb_impressions"
	ColFBReach              = "fb_reach"
	ColCPM                  = "cpm"
)

// Required lists the columns whose absence fails the whole table.
var Required = []string{
	ColVenue,
	ColCity,
	ColState,
	ColTopic,
	ColEventDate,
	ColGrossRegistrants,
	ColAttendedHouseholds,
	ColRegistrationMax,
	ColMediaCostPerResponse,
}

type kind int

const (
	kindText kind = iota
	kindUpper
	kindTopic
	kindDate
	kindClock
	kindNumber
	kindBool
	kindPostal
)

var kinds = map[string]kind{
	ColVenue:                kindText,
	ColCity:                 kindText,
	ColState:                kindUpper,
	ColTopic:                kindTopic,
	ColEventDate:            kindDate,
	ColEventTime:            kindClock,
	ColGrossRegistrants:     kindNumber,
	ColAttendedHouseholds:   kindNumber,
	ColRegistrationMax:      kindNumber,
	ColMediaCostPerResponse: kindNumber,
	ColImageAllowed:         kindBool,
	ColDisclosureRequired:   kindBool,
	ColLatitude:             kindNumber,
	ColLongitude:            kindNumber,
	ColPostalCode:           kindPostal,
	ColFBImpressions:        kindNumber,
	ColFBReach:              kindNumber,
	ColCPM:                  kindNumber,
}

// aliases maps header spellings seen in exported sheets to canonical names.
// Keys are already passed through ColumnName.
var aliases = map[string]string{
	"venue_name":                  ColVenue,
	"topic_code":                  ColTopic,
	"date":                        ColEventDate,
	"time":                        ColEventTime,
	"start_time":                  ColEventTime,
	"registrants":                 ColGrossRegistrants,
	"attended_hh":                 ColAttendedHouseholds,
	"attended":                    ColAttendedHouseholds,
	"reg_max":                     ColRegistrationMax,
	"max_registration":            ColRegistrationMax,
	"fb_cpr":                      ColMediaCostPerResponse,
	"cpr":                         ColMediaCostPerResponse,
	"venue_image_allowed":         ColImageAllowed,
	"venue_image_allowed_current": ColImageAllowed,
	"venue_image_allowedcurrent":  ColImageAllowed,
	"venue_disclosure_needed":     ColDisclosureRequired,
	"disclosure_needed":           ColDisclosureRequired,
	"lat":                         ColLatitude,
	"lon":                         ColLongitude,
	"lng":                         ColLongitude,
	"long":                        ColLongitude,
	"zip":                         ColPostalCode,
	"zip_code":                    ColPostalCode,
	"zipcode":                     ColPostalCode,
	"postcode":                    ColPostalCode,
}

// ColumnName lower-cases a header and collapses runs of whitespace and
// punctuation into single underscores.
func ColumnName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Canonical maps a raw header to its canonical column name. Unknown headers
// are returned in ColumnName form.
func Canonical(s string) string {
	n := ColumnName(s)
	if c, ok := aliases[n]; ok {
		return c
	}
	return n
}
