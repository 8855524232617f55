package types

type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleAgent    UserRole = "AGENT"
	RoleCustomer UserRole = "CUSTOMER"
)

func (r UserRole) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known dashboard roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	default:
		return false
	}
}
