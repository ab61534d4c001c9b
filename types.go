package goRights

import (
	"slices"

	"github.com/MrEthical07/goRights/rights"
)

// Decision is the three-valued outcome of a vote. The numeric values follow
// the usual voter convention: grant 1, abstain 0, deny -1.
type Decision int8

const (
	// Abstain means the engine has no opinion: the action or resource is not
	// in its catalogs.
	Abstain Decision = 0
	// Grant allows the action.
	Grant Decision = 1
	// Deny refuses the action.
	Deny Decision = -1
)

// String returns "grant", "deny" or "abstain".
func (d Decision) String() string {
	switch d {
	case Grant:
		return "grant"
	case Deny:
		return "deny"
	case Abstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// Principal is the authenticated actor under evaluation.
//
// OverrideRights is only consulted when UsesOverrideRights reports true; a
// nil override buffer then grants nothing.
type Principal interface {
	Roles() []string
	OverrideRights() []byte
	UsesOverrideRights() bool
	Enabled() bool
}

// Identified is implemented by principals that carry a stable identifier.
// Audit events record it when present.
type Identified interface {
	PrincipalID() string
}

// User is the stock [Principal]. A nil *User holds no roles and is
// disabled.
type User struct {
	ID           string
	RoleNames    []string
	Rights       rights.Buffer
	UseOwnRights bool
	Disabled     bool
}

// Roles returns the role names held by u.
func (u *User) Roles() []string {
	if u == nil {
		return nil
	}
	return slices.Clone(u.RoleNames)
}

// OverrideRights returns u.Rights.
func (u *User) OverrideRights() []byte {
	if u == nil {
		return nil
	}
	return u.Rights.Clone()
}

// UsesOverrideRights returns u.UseOwnRights.
func (u *User) UsesOverrideRights() bool {
	return u != nil && u.UseOwnRights
}

// Enabled reports whether u is non-nil and not disabled.
func (u *User) Enabled() bool {
	return u != nil && !u.Disabled
}

// PrincipalID returns u.ID.
func (u *User) PrincipalID() string {
	if u == nil {
		return ""
	}
	return u.ID
}
