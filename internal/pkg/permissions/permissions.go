// Package permissions maps roles to fixed capability sets.
package permissions

import (
	"sort"
	"strings"
)

// Permission is a single capability.
type Permission string

const (
	PortalView          Permission = "portal.view"
	TicketsOwn          Permission = "tickets.own"
	AdminAccess         Permission = "admin.access"
	UsersView           Permission = "users.view"
	UsersManage         Permission = "users.manage"
	AdminsManage        Permission = "admins.manage"
	SubscriptionsView   Permission = "subscriptions.view"
	SubscriptionsManage Permission = "subscriptions.manage"
	TicketsManage       Permission = "tickets.manage"
	InvoicesManage      Permission = "invoices.manage"
	LeadsManage         Permission = "leads.manage"
	IntakesView         Permission = "intakes.view"
	AuditView           Permission = "audit.view"
)

const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Set is an immutable-by-convention capability set. The zero value is empty.
type Set map[Permission]struct{}

// NewSet builds a set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// With returns a new set containing s plus perms.
func (s Set) With(perms ...Permission) Set {
	out := make(Set, len(s)+len(perms))
	for p := range s {
		out[p] = struct{}{}
	}
	for _, p := range perms {
		out[p] = struct{}{}
	}
	return out
}

// Union returns a new set with the members of both sets.
func (s Set) Union(other Set) Set {
	out := s.With()
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// List returns the permissions sorted by name.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPermission reports whether caps contains required.
func HasPermission(caps Set, required Permission) bool {
	return caps.Has(required)
}

var (
	customerSet = NewSet(PortalView, TicketsOwn)

	adminSet = customerSet.With(
		AdminAccess,
		UsersView,
		UsersManage,
		SubscriptionsView,
		SubscriptionsManage,
		TicketsManage,
		InvoicesManage,
		LeadsManage,
		IntakesView,
		AuditView,
	)

	superAdminSet = adminSet.With(AdminsManage)
)

// ForRole returns a copy of the capability set of role. Unknown roles get nothing.
func ForRole(role string) Set {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleCustomer:
		return customerSet.With()
	case RoleAdmin:
		return adminSet.With()
	case RoleSuperAdmin:
		return superAdminSet.With()
	default:
		return Set{}
	}
}

// IsKnownRole reports whether role is one of the fixed roles.
func IsKnownRole(role string) bool {
	switch role {
	case RoleCustomer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanManageUser reports whether an actor holding caps may edit or delete a
// user with targetRole. Super admin rows are reserved for super admins.
func CanManageUser(caps Set, targetRole string) bool {
	if !caps.Has(UsersManage) {
		return false
	}
	return targetRole != RoleSuperAdmin || caps.Has(AdminsManage)
}

// CanAssignRole reports whether caps allows moving a user from one role to
// another. Every role change touches an admin role, so any change needs
// admins.manage.
func CanAssignRole(caps Set, from, to string) bool {
	if from == to {
		return caps.Has(UsersManage)
	}
	return IsKnownRole(to) && caps.Has(AdminsManage)
}
