// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted platform access, may impersonate other accounts
	RoleAdmin UserRole = "admin"

	// Owns a dealership and manages its workers and listings
	RoleDealer UserRole = "dealer"

	// Employed by a dealership, manages its listings only
	RoleWorker UserRole = "worker"

	// Default role for standard registered users
	RoleMember UserRole = "member"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 40
	case RoleDealer:
		return 30
	case RoleWorker:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}
