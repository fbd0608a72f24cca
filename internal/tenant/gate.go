// Package tenant resolves the effective tenant id for an inbound operation
// and enforces ownership on every read and write (spec.md §4.1). It is
// deliberately store-free: Resolve only computes the scoping decision, and
// the registry, progression and store callers apply it.
package tenant

import (
	"github.com/matchgrid/tourney/internal/models"
)

// Role mirrors the three principal roles in spec.md §4.1.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Principal is the calling identity, resolved by the transport layer from a
// verified bearer token (auth itself is out of scope, spec.md §1).
type Principal struct {
	UserID int64
	Role   Role

	ViewAll       bool
	ImpersonateID *int64
}

// AllTenants is the sentinel "view all" tenant, only ever produced for
// superadmins who asked to view across tenants. Writes are rejected in this
// scope (spec.md §4.1).
const AllTenants int64 = 0

// Scope is the resolved effective tenant for one operation.
type Scope struct {
	TenantID      int64
	ViewAll       bool
	Impersonating bool
}

// Resolve implements spec.md §4.1's resolution rules.
func Resolve(p *Principal) (Scope, error) {
	if p == nil || p.UserID == 0 {
		return Scope{}, models.Wrap(models.KindUnauthorized, "missing principal", nil)
	}

	if p.ImpersonateID != nil {
		if p.Role != RoleSuperadmin {
			return Scope{}, models.Wrap(models.KindForbidden, "only superadmin may impersonate", nil)
		}
		return Scope{TenantID: *p.ImpersonateID, Impersonating: true}, nil
	}

	if p.ViewAll {
		if p.Role != RoleSuperadmin {
			return Scope{}, models.Wrap(models.KindForbidden, "only superadmin may view all tenants", nil)
		}
		return Scope{TenantID: AllTenants, ViewAll: true}, nil
	}

	return Scope{TenantID: p.UserID}, nil
}

// Owns reports whether the scope may read a resource owned by ownerTenantID.
func (s Scope) Owns(ownerTenantID int64) bool {
	return s.ViewAll || s.TenantID == ownerTenantID
}

// RequireWritable fails view-all scopes, which may never write
// (spec.md §4.1).
func (s Scope) RequireWritable() error {
	if s.ViewAll {
		return models.Wrap(models.KindForbidden, "writes are not permitted while viewing all tenants", nil)
	}
	return nil
}

// CheckOwnership enforces ownership on a read or write of a resource scoped
// to ownerTenantID (spec.md §4.1, "Forbidden" on disagreement).
func (s Scope) CheckOwnership(ownerTenantID int64) error {
	if !s.Owns(ownerTenantID) {
		return models.Wrap(models.KindForbidden, "resource is owned by a different tenant", nil)
	}
	return nil
}
