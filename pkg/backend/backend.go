// Package backend defines the contracts between the wavespace services and
// the hosted data store: row queries, mutations and the realtime change feed.
package backend

import (
	"context"
	"time"
)

// Row is a single table row keyed by column name.
type Row = map[string]any

// Order sorts a query by one column.
type Order struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// Query describes a select against one table. Zero values mean "unset".
type Query struct {
	Columns string         `json:"columns,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
	Order   *Order         `json:"order,omitempty"`
	Filter  map[string]any `json:"filter,omitempty"`

	// ForceRefresh skips any cached result. It is not part of the query's identity.
	ForceRefresh bool `json:"-"`
}

// Backend is the row store the services read from and write to.
type Backend interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Count(ctx context.Context, table string, filter map[string]any) (int, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	// Update patches every row matching all equality pairs in match and
	// returns the rows that changed.
	Update(ctx context.Context, table string, patch Row, match map[string]any) ([]Row, error)
	Delete(ctx context.Context, table string, match map[string]any) error
}

// Change events.
const (
	EventAll    = "*"
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeSpec selects which row changes a channel delivers.
type ChangeSpec struct {
	// Name identifies the channel, e.g. "user-42".
	Name   string
	Event  string
	Schema string
	Table  string
	// Filter is a single "column=eq.value" predicate, empty for all rows.
	Filter string
}

// Change is one row change delivered by the realtime feed.
type Change struct {
	Event           string
	Schema          string
	Table           string
	New             Row
	Old             Row
	CommitTimestamp time.Time
}

// ChangeHandler receives change events. It runs on the feed's goroutine and
// must not block.
type ChangeHandler func(Change)

// Channel is an open change-feed subscription.
type Channel interface {
	Unsubscribe() error
}

// Realtime opens change-feed channels.
type Realtime interface {
	Subscribe(ctx context.Context, spec ChangeSpec, h ChangeHandler) (Channel, error)
}
