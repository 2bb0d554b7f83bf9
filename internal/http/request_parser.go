package http

import (
	"net/http"
	"net/url"
	"strings"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
)

// Query keys of the dashboard filters. They match the CSV column names.
const (
	paramYear     = core.ColumnYear
	paramMonth    = core.ColumnMonth
	paramCategory = core.ColumnCategory
)

// ParseFilter reads one filter dimension. An absent key selects
// everything; a present key keeps only its non-empty values, so a key
// sent with nothing but empty values selects nothing.
func ParseFilter(query url.Values, key string) analytics.Filter {
	raw, ok := query[key]
	if !ok {
		return analytics.All()
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = sanitizeInput(v); v != "" {
			values = append(values, v)
		}
	}
	return analytics.Only(values...)
}

// ParseSelection reads the three filter dimensions from the query string.
func ParseSelection(query url.Values) analytics.Selection {
	return analytics.Selection{
		Years:      ParseFilter(query, paramYear),
		Months:     ParseFilter(query, paramMonth),
		Categories: ParseFilter(query, paramCategory),
	}
}

// EncodeSelection is the inverse of ParseSelection. Restricted dimensions
// carry an empty marker value so an empty selection survives the round
// trip.
func EncodeSelection(sel analytics.Selection) url.Values {
	q := url.Values{}
	add := func(key string, f analytics.Filter) {
		if f.IsAll() {
			return
		}
		q[key] = append([]string{""}, f.Values()...)
	}
	add(paramYear, sel.Years)
	add(paramMonth, sel.Months)
	add(paramCategory, sel.Categories)
	return q
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure, nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato richiesta non valido")
	}
	return nil
}
