package entity

// UserRole is a role held by a user together with the role's level
type UserRole struct {
	RoleID int64 `json:"role_id"`
	Level  int   `json:"level"`
}

// Contact holds the messaging address of a user
type Contact struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	OpenID string `json:"open_id"`
}
