package domain

import (
	"testing"
	"time"
)

func TestUserFromRow(t *testing.T) {
	u := UserFromRow(map[string]any{
		"id":         "u-1",
		"username":   "broker_kim",
		"email":      "kim@example.com",
		"points":     float64(150),
		"role":       "user",
		"updated_at": "2025-03-01T10:00:00Z",
		"unknown":    "ignored",
	})
	if u.ID != "u-1" {
		t.Errorf("ID = %q, want %q", u.ID, "u-1")
	}
	if u.Points != 150 {
		t.Errorf("Points = %d, want 150", u.Points)
	}
	if u.Level() != 2 {
		t.Errorf("Level() = %d, want 2", u.Level())
	}
	if !u.UpdatedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", u.UpdatedAt)
	}
}

func TestUserMerge(t *testing.T) {
	u := User{ID: "u-1", Username: "kim", Points: 150, Role: RoleUser}

	if changed := u.Merge(map[string]any{"nickname": "Kim"}); changed {
		t.Error("Merge without points reported a points change")
	}
	if u.Username != "kim" || u.Nickname != "Kim" {
		t.Errorf("Merge clobbered fields: %+v", u)
	}

	if changed := u.Merge(map[string]any{"points": int64(620)}); !changed {
		t.Error("Merge with new points did not report a change")
	}
	if u.Points != 620 {
		t.Errorf("Points = %d, want 620", u.Points)
	}

	if changed := u.Merge(map[string]any{"points": 620}); changed {
		t.Error("Merge with same points reported a change")
	}

	u.Merge(map[string]any{"points": -10})
	if u.Points != 0 {
		t.Errorf("negative points = %d, want clamped 0", u.Points)
	}
}

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"nickname wins", User{Nickname: "Kim", Username: "kim", Email: "k@x"}, "Kim"},
		{"username fallback", User{Username: "kim", Email: "k@x"}, "kim"},
		{"email fallback", User{Email: "k@x"}, "k@x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotificationFromRow(t *testing.T) {
	n := NotificationFromRow(map[string]any{
		"id":         float64(42),
		"user_id":    "u-1",
		"type":       NotifComment,
		"title":      "New comment",
		"message":    "someone replied",
		"is_read":    false,
		"created_at": time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if n.ID != "42" {
		t.Errorf("ID = %q, want %q", n.ID, "42")
	}
	if n.IsRead {
		t.Error("IsRead = true, want false")
	}
	if n.CreatedAt.Year() != 2025 {
		t.Errorf("CreatedAt = %v", n.CreatedAt)
	}
	row := n.Row()
	if _, ok := row["id"]; ok {
		t.Error("Row() must not carry the server-assigned id")
	}
	if _, ok := row["related_id"]; ok {
		t.Error("Row() carried an empty related_id")
	}
}
