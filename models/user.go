package models

// UserRole передается в claim "role" токена.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

// Principal - аутентифицированный пользователь, извлеченный из токена.
type Principal struct {
	UserID string
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
