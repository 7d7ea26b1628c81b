package enums

import "fmt"

// UserRole is the closed set of actor roles.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleBuyer  UserRole = "buyer"
	RoleSeller UserRole = "seller"
)

var validUserRoles = []UserRole{
	RoleAdmin,
	RoleBuyer,
	RoleSeller,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// SelfRegistrable reports whether the role may be chosen at sign-up.
func (u UserRole) SelfRegistrable() bool {
	return u == RoleBuyer || u == RoleSeller
}
