package core

import "strings"

// Month is a position in the Italian month domain. The zero value marks a
// label outside the domain.
type Month int

const (
	MonthUnknown Month = iota
	Gennaio
	Febbraio
	Marzo
	Aprile
	Maggio
	Giugno
	Luglio
	Agosto
	Settembre
	Ottobre
	Novembre
	Dicembre
)

var monthLabels = [...]string{
	"",
	"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
	"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
}

// Months returns the twelve known months in calendar order.
func Months() []Month {
	out := make([]Month, 0, 12)
	for m := Gennaio; m <= Dicembre; m++ {
		out = append(out, m)
	}
	return out
}

// ParseMonth maps a label to its month. Matching is exact after trimming
// surrounding whitespace; "gennaio" is not "Gennaio".
func ParseMonth(label string) (Month, bool) {
	label = strings.TrimSpace(label)
	for m := Gennaio; m <= Dicembre; m++ {
		if monthLabels[m] == label {
			return m, true
		}
	}
	return MonthUnknown, false
}

func (m Month) Valid() bool {
	return m >= Gennaio && m <= Dicembre
}

func (m Month) String() string {
	if !m.Valid() {
		return ""
	}
	return monthLabels[m]
}
