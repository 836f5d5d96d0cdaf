// Package authz is the single place Haven's role hierarchy is compared.
// Every operation that needs a yes/no authorization decision asks this
// package instead of re-deriving rank order at the call site.
package authz

import (
	"haven/internal/models"
)

// ranks fixes the total order new < member < admin < superadmin < god.
var ranks = map[models.Role]int{
	models.RoleNew:        0,
	models.RoleMember:     1,
	models.RoleAdmin:      2,
	models.RoleSuperadmin: 3,
	models.RoleGod:        4,
}

// Rank returns the position of a role in the hierarchy. Unknown values rank
// as RoleNew so a corrupted or future role value fails closed.
func Rank(r models.Role) int {
	return ranks[r]
}

// Valid reports whether r is one of the five defined roles.
func Valid(r models.Role) bool {
	_, ok := ranks[r]
	return ok
}

// Permit reports whether role meets or exceeds min.
func Permit(role, min models.Role) bool {
	return Rank(role) >= Rank(min)
}

// Require returns a FORBIDDEN AppError when role is below min.
func Require(role, min models.Role) error {
	if !Permit(role, min) {
		return models.NewForbiddenError("Requires " + string(min) + " access or above")
	}
	return nil
}

// Outranks reports whether role is strictly above other. Used for role
// assignment, where an actor may only manage tiers below their own.
func Outranks(role, other models.Role) bool {
	return Rank(role) > Rank(other)
}
