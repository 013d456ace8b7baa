package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// EqFilter renders the realtime predicate column=eq.value.
func EqFilter(column string, value any) string {
	return fmt.Sprintf("%s=eq.%v", column, value)
}

// ParseFilter splits an "column=eq.value" predicate. Only equality is supported.
func ParseFilter(filter string) (column, value string, err error) {
	col, rest, ok := strings.Cut(filter, "=")
	if !ok || col == "" {
		return "", "", fmt.Errorf("backend.ParseFilter: malformed filter %q", filter)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return "", "", fmt.Errorf("backend.ParseFilter: unsupported operator in %q", filter)
	}
	return col, val, nil
}

// Matches reports whether row satisfies the change spec's filter.
// An empty filter matches every row.
func (s ChangeSpec) Matches(row Row) bool {
	if s.Filter == "" {
		return true
	}
	col, val, err := ParseFilter(s.Filter)
	if err != nil {
		return false
	}
	v, ok := row[col]
	if !ok {
		return false
	}
	return valueString(v) == val
}

func valueString(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Accepts reports whether the event kind is selected by the spec.
func (s ChangeSpec) Accepts(event string) bool {
	return s.Event == "" || s.Event == EventAll || strings.EqualFold(s.Event, event)
}
