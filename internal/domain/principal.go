package domain

import "github.com/google/uuid"

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManage reports whether the principal owns the resource or is an admin.
func (p Principal) CanManage(ownerID uuid.UUID) bool {
	return p.UserID == ownerID || p.IsAdmin()
}
