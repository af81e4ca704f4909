package enum

// Role distinguishes the two login surfaces of the storefront.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}
