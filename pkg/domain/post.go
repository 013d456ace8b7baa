package domain

import "time"

// Post is a community board entry from the posts table.
type Post struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       string    `json:"author,omitempty"`
	ViewCount    int       `json:"view_count"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// PostFromRow builds a Post from a raw row.
func PostFromRow(row map[string]any) Post {
	return Post{
		ID:           rowString(row["id"]),
		UserID:       rowString(row["user_id"]),
		Category:     rowString(row["category"]),
		Title:        rowString(row["title"]),
		Content:      rowString(row["content"]),
		Author:       rowString(row["author"]),
		ViewCount:    rowInt(row["view_count"]),
		LikeCount:    rowInt(row["like_count"]),
		CommentCount: rowInt(row["comment_count"]),
		CreatedAt:    rowTime(row["created_at"]),
	}
}
