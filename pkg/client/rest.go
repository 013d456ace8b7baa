package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/wavespace/wavespace/pkg/backend"
)

var _ backend.Backend = (*Client)(nil)

const restPrefix = "/rest/v1/"

// Select implements backend.Backend.
func (c *Client) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	params, err := selectParams(q)
	if err != nil {
		return nil, fmt.Errorf("client.Select %s: %w", table, err)
	}
	var rows []backend.Row
	if err := c.get(ctx, tablePath(table, params), &rows); err != nil {
		return nil, fmt.Errorf("client.Select %s: %w", table, err)
	}
	return rows, nil
}

// Count implements backend.Backend with an exact, body-less count.
func (c *Client) Count(ctx context.Context, table string, filter map[string]any) (int, error) {
	params := url.Values{}
	params.Set("select", "*")
	if err := addEqFilters(params, filter); err != nil {
		return 0, fmt.Errorf("client.Count %s: %w", table, err)
	}

	resp, err := c.doRequest(ctx, request{
		method: http.MethodHead,
		path:   tablePath(table, params),
		prefer: []string{"count=exact"},
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("client.Count %s: %w", table, err)
	}
	n, err := parseContentRangeTotal(resp.header.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("client.Count %s: %w", table, err)
	}
	return n, nil
}

// Insert implements backend.Backend and returns the inserted rows.
func (c *Client) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	var body any = rows
	if len(rows) == 1 {
		body = rows[0]
	}
	var out []backend.Row
	_, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   tablePath(table, url.Values{"select": {"*"}}),
		body:   body,
		prefer: []string{"return=representation"},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("client.Insert %s: %w", table, err)
	}
	return out, nil
}

// Update implements backend.Backend.
func (c *Client) Update(ctx context.Context, table string, patch backend.Row, match map[string]any) ([]backend.Row, error) {
	params := url.Values{"select": {"*"}}
	if err := addEqFilters(params, match); err != nil {
		return nil, fmt.Errorf("client.Update %s: %w", table, err)
	}

	var out []backend.Row
	_, err := c.doRequest(ctx, request{
		method: http.MethodPatch,
		path:   tablePath(table, params),
		body:   patch,
		prefer: []string{"return=representation"},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("client.Update %s: %w", table, err)
	}
	return out, nil
}

// Delete implements backend.Backend. An empty match is refused so a typo can
// never wipe a table.
func (c *Client) Delete(ctx context.Context, table string, match map[string]any) error {
	if len(match) == 0 {
		return fmt.Errorf("client.Delete %s: refusing delete without a filter", table)
	}
	params := url.Values{}
	if err := addEqFilters(params, match); err != nil {
		return fmt.Errorf("client.Delete %s: %w", table, err)
	}

	if _, err := c.doRequest(ctx, request{method: http.MethodDelete, path: tablePath(table, params)}, nil); err != nil {
		return fmt.Errorf("client.Delete %s: %w", table, err)
	}
	return nil
}

func tablePath(table string, params url.Values) string {
	p := restPrefix + url.PathEscape(table)
	if enc := params.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}

func selectParams(q backend.Query) (url.Values, error) {
	params := url.Values{}
	cols := q.Columns
	if cols == "" {
		cols = "*"
	}
	params.Set("select", cols)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Order != nil && q.Order.Column != "" {
		dir := "desc"
		if q.Order.Ascending {
			dir = "asc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	if err := addEqFilters(params, q.Filter); err != nil {
		return nil, err
	}
	return params, nil
}

// reservedParams are query parameters the data API reads as options, not
// column filters.
var reservedParams = map[string]bool{
	"select":      true,
	"limit":       true,
	"offset":      true,
	"order":       true,
	"columns":     true,
	"on_conflict": true,
}

// ErrReservedFilter is returned for a filter on a column the URL cannot express.
var ErrReservedFilter = errors.New("filter column is a reserved query parameter")

func addEqFilters(params url.Values, filter map[string]any) error {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if k == "" || reservedParams[k] {
			return fmt.Errorf("%w: %q", ErrReservedFilter, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := filter[k]
		if v == nil {
			params.Set(k, "is.null")
			continue
		}
		params.Set(k, "eq."+fmt.Sprint(v))
	}
	return nil
}

// parseContentRangeTotal reads the total from "0-24/3573" or "*/0".
func parseContentRangeTotal(h string) (int, error) {
	_, total, ok := strings.Cut(h, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("missing count in Content-Range %q", h)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range %q: %w", h, err)
	}
	return n, nil
}
