package enums

import "fmt"

// Role is an account capability grant. Accounts hold one or more roles.
type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

var allRoles = map[Role]struct{}{
	RoleUser:   {},
	RoleSeller: {},
	RoleAdmin:  {},
}

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	_, ok := allRoles[r]
	return ok
}

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return r, nil
}

// ContainsRole reports whether roles includes want.
func ContainsRole(roles []string, want Role) bool {
	for _, r := range roles {
		if Role(r) == want {
			return true
		}
	}
	return false
}
