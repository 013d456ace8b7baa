package postgres

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	id := [16]byte{0x12, 0x34, 0x56, 0x78, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"uuid", id, "12345678-0102-0304-0506-0708090a0b0c"},
		{"uuid array", []any{id}, []any{"12345678-0102-0304-0506-0708090a0b0c"}},
		{"int64", int64(9007199254740993), int64(9007199254740993)},
		{"text", "hello", "hello"},
		{"time", at, at},
		{"null", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalize(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
