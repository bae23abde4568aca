package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Well-known reading types. The set is open: any non-empty label is accepted.
const (
	ReadingHeating   = "heating"
	ReadingHotWater  = "hotWater"
	ReadingColdWater = "coldWater"
)

// DefaultReadingTypes is the set the console asks for when none is configured.
var DefaultReadingTypes = []string{ReadingHeating, ReadingHotWater, ReadingColdWater}

// Readings is one month's set of meter values keyed by reading type.
type Readings map[string]float64

// Clone returns an independent copy so stored records stay immutable.
func (r Readings) Clone() Readings {
	if r == nil {
		return nil
	}
	out := make(Readings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Types returns the reading types in sorted order.
func (r Readings) Types() []string {
	types := make([]string, 0, len(r))
	for k := range r {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Equal reports whether both sets carry exactly the same values.
func (r Readings) Equal(other Readings) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

func (r Readings) String() string {
	parts := make([]string, 0, len(r))
	for _, t := range r.Types() {
		parts = append(parts, fmt.Sprintf("%s=%s", t, strconv.FormatFloat(r[t], 'f', -1, 64)))
	}
	return strings.Join(parts, ", ")
}

// ParseMonth converts a month number typed by the user ("1".."12").
func ParseMonth(s string) (time.Month, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !ValidMonth(time.Month(n)) {
		return 0, ErrInvalidMonth
	}
	return time.Month(n), nil
}

// ValidMonth reports whether m is one of the twelve calendar months.
func ValidMonth(m time.Month) bool {
	return m >= time.January && m <= time.December
}

// Submission is one stored readings record of a user.
type Submission struct {
	Month       time.Month
	Readings    Readings
	SubmittedAt time.Time
}

// History is every submission of a user in the order they were submitted.
type History []Submission

// Empty reports whether the user has submitted nothing yet.
func (h History) Empty() bool {
	return len(h) == 0
}

// Last returns the most recently submitted record, not the latest calendar month.
func (h History) Last() (Submission, bool) {
	if len(h) == 0 {
		return Submission{}, false
	}
	return h[len(h)-1], true
}

// Find returns the record for month.
func (h History) Find(month time.Month) (Submission, bool) {
	for _, s := range h {
		if s.Month == month {
			return s, true
		}
	}
	return Submission{}, false
}

// Has reports whether month is already submitted.
func (h History) Has(month time.Month) bool {
	_, ok := h.Find(month)
	return ok
}
