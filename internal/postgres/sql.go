package postgres

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wavespace/wavespace/pkg/backend"
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// selectList turns a data-API style column list ("id, title" or "*") into SQL.
func selectList(columns string) (string, error) {
	columns = strings.TrimSpace(columns)
	if columns == "" || columns == "*" {
		return "*", nil
	}
	if strings.ContainsAny(columns, "()") {
		return "", fmt.Errorf("embedded resources are not supported: %q", columns)
	}
	parts := strings.Split(columns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, ident(p))
	}
	if len(out) == 0 {
		return "*", nil
	}
	return strings.Join(out, ", "), nil
}

// where renders equality predicates in key order, numbering placeholders
// from len(args)+1. nil values become IS NULL.
func where(filter map[string]any, args []any) (string, []any) {
	if len(filter) == 0 {
		return "", args
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	preds := make([]string, 0, len(keys))
	for _, k := range keys {
		v := filter[k]
		if v == nil {
			preds = append(preds, ident(k)+" IS NULL")
			continue
		}
		args = append(args, v)
		preds = append(preds, ident(k)+" = $"+strconv.Itoa(len(args)))
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

func buildSelect(table string, q backend.Query) (string, []any, error) {
	cols, err := selectList(q.Columns)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT " + cols + " FROM " + ident(table))
	w, args := where(q.Filter, nil)
	sb.WriteString(w)
	if q.Order != nil && q.Order.Column != "" {
		dir := " DESC"
		if q.Order.Ascending {
			dir = " ASC"
		}
		sb.WriteString(" ORDER BY " + ident(q.Order.Column) + dir)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
	}
	return sb.String(), args, nil
}

func buildCount(table string, filter map[string]any) (string, []any) {
	w, args := where(filter, nil)
	return "SELECT count(*) FROM " + ident(table) + w, args
}

func sortedKeys(row backend.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func buildInsert(table string, row backend.Row) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("empty row")
	}
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = ident(k)
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = row[k]
	}
	sql := "INSERT INTO " + ident(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ") RETURNING *"
	return sql, args, nil
}

func buildUpdate(table string, patch backend.Row, match map[string]any) (string, []any, error) {
	if len(patch) == 0 {
		return "", nil, fmt.Errorf("empty patch")
	}
	if len(match) == 0 {
		return "", nil, fmt.Errorf("refusing to update without a filter")
	}
	keys := sortedKeys(patch)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(match))
	for i, k := range keys {
		args = append(args, patch[k])
		sets[i] = ident(k) + " = $" + strconv.Itoa(len(args))
	}
	w, args := where(match, args)
	return "UPDATE " + ident(table) + " SET " + strings.Join(sets, ", ") + w + " RETURNING *", args, nil
}

func buildDelete(table string, match map[string]any) (string, []any, error) {
	if len(match) == 0 {
		return "", nil, fmt.Errorf("refusing to delete without a filter")
	}
	w, args := where(match, nil)
	return "DELETE FROM " + ident(table) + w, args, nil
}
