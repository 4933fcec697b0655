package canvas

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is a conjunctive element filter: every populated clause must match
type Query struct {
	Types        []string          // membership check on the type tag
	MinWidth     *float64          // inclusive numeric ranges
	MaxWidth     *float64
	MinHeight    *float64
	MaxHeight    *float64
	TextContains string            // case-insensitive substring on text
	FieldEquals  map[string]string // string equality on any other field
}

// Reserved query parameter names that drive dedicated clauses rather than
// field-equality matching
var reservedQueryKeys = map[string]bool{
	"type":         true,
	"types":        true,
	"minWidth":     true,
	"maxWidth":     true,
	"minHeight":    true,
	"maxHeight":    true,
	"textContains": true,
}

// ParseQuery builds a Query from URL query parameters. Unknown parameters
// become field-equality clauses against the merged element record.
func ParseQuery(values url.Values) Query {
	q := Query{FieldEquals: make(map[string]string)}

	if t := values.Get("type"); t != "" {
		q.Types = append(q.Types, t)
	}
	if list := values.Get("types"); list != "" {
		for _, t := range strings.Split(list, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}

	q.MinWidth = parseBound(values.Get("minWidth"))
	q.MaxWidth = parseBound(values.Get("maxWidth"))
	q.MinHeight = parseBound(values.Get("minHeight"))
	q.MaxHeight = parseBound(values.Get("maxHeight"))
	q.TextContains = values.Get("textContains")

	for key := range values {
		if reservedQueryKeys[key] {
			continue
		}
		q.FieldEquals[key] = values.Get(key)
	}

	return q
}

func parseBound(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Matches reports whether the element satisfies every clause
func (q Query) Matches(el *Element) bool {
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if el.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if q.MinWidth != nil && el.Width < *q.MinWidth {
		return false
	}
	if q.MaxWidth != nil && el.Width > *q.MaxWidth {
		return false
	}
	if q.MinHeight != nil && el.Height < *q.MinHeight {
		return false
	}
	if q.MaxHeight != nil && el.Height > *q.MaxHeight {
		return false
	}

	if q.TextContains != "" {
		text, ok := el.FieldString("text")
		if !ok || !strings.Contains(strings.ToLower(text), strings.ToLower(q.TextContains)) {
			return false
		}
	}

	for key, want := range q.FieldEquals {
		got, ok := el.FieldString(key)
		if !ok || got != want {
			return false
		}
	}

	return true
}

// Search returns the stored elements matching the query, in Z-order
func (s *Store) Search(q Query) []*Element {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Element, 0)
	for _, el := range s.elements {
		if q.Matches(el) {
			out = append(out, el)
		}
	}
	return out
}
