package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means no backend handle was configured.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrRealtimeUnavailable means no realtime handle was configured.
	ErrRealtimeUnavailable = errors.New("realtime unavailable")
)

// QueryError wraps a failed read. The backend's message is kept verbatim.
type QueryError struct {
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Table, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// MutationError wraps a rejected insert, update or delete.
type MutationError struct {
	Table string
	Op    string
	Err   error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// SubscribeError is returned when a channel could not be joined.
type SubscribeError struct {
	Channel string
	Reason  string
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("subscribe %s: %s", e.Channel, e.Reason)
}
