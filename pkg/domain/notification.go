package domain

import "time"

// Notification types written to the notifications table.
const (
	NotifComment = "comment"
	NotifLike    = "like"
	NotifPoint   = "point"
	NotifBadge   = "badge"
	NotifSystem  = "system"
	NotifAdmin   = "admin"
	NotifMention = "mention"
	NotifFollow  = "follow"
)

// Notification is a single row of the notifications table.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationFromRow builds a Notification from a raw row.
func NotificationFromRow(row map[string]any) Notification {
	return Notification{
		ID:        rowString(row["id"]),
		UserID:    rowString(row["user_id"]),
		Type:      rowString(row["type"]),
		Title:     rowString(row["title"]),
		Message:   rowString(row["message"]),
		RelatedID: rowString(row["related_id"]),
		IsRead:    rowBool(row["is_read"]),
		CreatedAt: rowTime(row["created_at"]),
	}
}

// Row is the insert payload for the notification. Server-assigned columns are omitted.
func (n Notification) Row() map[string]any {
	row := map[string]any{
		"user_id": n.UserID,
		"type":    n.Type,
		"title":   n.Title,
		"message": n.Message,
		"is_read": n.IsRead,
	}
	if n.RelatedID != "" {
		row["related_id"] = n.RelatedID
	}
	return row
}
