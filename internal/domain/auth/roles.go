package auth

import "strings"

// Role is a coarse privilege tier. The four roles form a total order and
// every comparison goes through Rank, so an unrecognized role falls into a
// single controlled case (rank 0, denied everywhere).
type Role string

const (
	RoleEmployee      Role = "employee"
	RoleManager       Role = "manager"
	RoleAdministrator Role = "administrator"
	RoleOwner         Role = "owner"
)

var roleRanks = map[Role]int{
	RoleEmployee:      1,
	RoleManager:       2,
	RoleAdministrator: 3,
	RoleOwner:         4,
}

// Roles returns all known roles in ascending rank order.
func Roles() []Role {
	return []Role{RoleEmployee, RoleManager, RoleAdministrator, RoleOwner}
}

// Rank returns the privilege rank of a role. Unknown roles rank 0.
func Rank(role Role) int {
	return roleRanks[role]
}

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleRanks[role]
	return role, ok
}

// AtLeast reports whether caller holds the required role or outranks it.
func AtLeast(caller, required Role) bool {
	return Rank(caller) >= Rank(required)
}

// AtLeastAny reports whether caller matches or outranks at least one of the
// acceptable roles. An empty set admits nobody.
func AtLeastAny(caller Role, acceptable ...Role) bool {
	for _, role := range acceptable {
		if Rank(caller) >= Rank(role) {
			return true
		}
	}
	return false
}
