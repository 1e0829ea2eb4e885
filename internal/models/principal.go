package models

// Role is the coarse permission level of a user
type Role string

const (
	// RoleCustomerService may create returns
	RoleCustomerService Role = "customer_service"
	// RoleWarehouse may approve or reject returns
	RoleWarehouse Role = "warehouse"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleCustomerService || r == RoleWarehouse
}

// CanCreate reports whether the role may log new returns
func (r Role) CanCreate() bool { return r == RoleCustomerService }

// CanDecide reports whether the role may approve or reject returns
func (r Role) CanDecide() bool { return r == RoleWarehouse }

// Principal is the authenticated actor behind a request
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
