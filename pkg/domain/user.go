package domain

import "time"

// Roles stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the signed-in member's profile row from the users table.
type User struct {
	ID              string    `json:"id"`
	AuthUserID      string    `json:"auth_user_id,omitempty"`
	Username        string    `json:"username"`
	Email           string    `json:"email,omitempty"`
	Nickname        string    `json:"nickname,omitempty"`
	Points          int       `json:"points"`
	Role            string    `json:"role"`
	MemberType      string    `json:"member_type,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// UserFromRow builds a User from a raw users row.
func UserFromRow(row map[string]any) User {
	var u User
	u.Merge(row)
	return u
}

// Merge overwrites the fields present in row, leaving the others untouched.
// It reports whether the points balance changed.
func (u *User) Merge(row map[string]any) (pointsChanged bool) {
	for k, v := range row {
		switch k {
		case "id":
			u.ID = rowString(v)
		case "auth_user_id":
			u.AuthUserID = rowString(v)
		case "username":
			u.Username = rowString(v)
		case "email":
			u.Email = rowString(v)
		case "nickname":
			u.Nickname = rowString(v)
		case "points":
			p := rowInt(v)
			if p < 0 {
				p = 0
			}
			pointsChanged = p != u.Points
			u.Points = p
		case "role":
			u.Role = rowString(v)
		case "member_type":
			u.MemberType = rowString(v)
		case "profile_image_url":
			u.ProfileImageURL = rowString(v)
		case "updated_at":
			u.UpdatedAt = rowTime(v)
		}
	}
	return pointsChanged
}

// DisplayName prefers the nickname over the username.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Level is the user's level derived from their points.
func (u User) Level() int {
	return CalculateLevel(u.Points)
}
