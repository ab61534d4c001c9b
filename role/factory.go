package role

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
)

// Default role names of the three tiers.
const (
	NameUser       = "ROLE_USER"
	NameAdmin      = "ROLE_ADMIN"
	NameSuperAdmin = "ROLE_SUPER_ADMIN"
)

// Names maps each tier to the role name a principal must hold to reach it.
// Principals holding neither Admin nor SuperAdmin fall back to the user tier,
// whatever else they hold.
type Names struct {
	User       string
	Admin      string
	SuperAdmin string
}

// DefaultNames returns ROLE_USER, ROLE_ADMIN and ROLE_SUPER_ADMIN.
func DefaultNames() Names {
	return Names{User: NameUser, Admin: NameAdmin, SuperAdmin: NameSuperAdmin}
}

// Policy shapes the user tier.
type Policy struct {
	// FullAccessResources receive every permission in the user tier.
	FullAccessResources []string
	// UserDefaults are granted on every other resource in the user tier.
	UserDefaults []string
}

// DefaultPolicy gives users full control over calculations and read/export
// access to everything else.
func DefaultPolicy() Policy {
	return Policy{
		FullAccessResources: []string{resource.Calculation},
		UserDefaults:        []string{permission.List, permission.Export, permission.Show},
	}
}

// RoleHolder is the part of a principal the factory needs.
type RoleHolder interface {
	Roles() []string
}

// Factory builds canonical tier roles for a pair of catalogs. It is immutable
// after [NewFactory] and safe for concurrent use; accessors return clones.
type Factory struct {
	perms     *permission.Catalog
	resources *resource.Catalog
	names     Names
	policy    Policy

	tiers  [3]*Role
	byName map[string]Tier
}

// NewFactory validates names and policy against the catalogs and precomputes
// the three tier roles.
func NewFactory(perms *permission.Catalog, resources *resource.Catalog, names Names, policy Policy) (*Factory, error) {
	if perms == nil || resources == nil {
		return nil, errors.New("role: catalogs required")
	}
	if names.User == "" || names.Admin == "" || names.SuperAdmin == "" {
		return nil, errors.New("role: tier role names cannot be empty")
	}
	if names.User == names.Admin || names.Admin == names.SuperAdmin || names.User == names.SuperAdmin {
		return nil, errors.New("role: tier role names must be distinct")
	}

	userMask, err := perms.Mask(policy.UserDefaults...)
	if err != nil {
		return nil, fmt.Errorf("role: user defaults: %w", err)
	}
	for _, name := range policy.FullAccessResources {
		if !resources.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
		}
	}

	f := &Factory{
		perms:     perms,
		resources: resources,
		names:     names,
		policy: Policy{
			FullAccessResources: slices.Clone(policy.FullAccessResources),
			UserDefaults:        slices.Clone(policy.UserDefaults),
		},
		byName: map[string]Tier{
			names.User:       TierUser,
			names.Admin:      TierAdmin,
			names.SuperAdmin: TierSuperAdmin,
		},
	}

	full := perms.Full()

	user := New(names.User, TierUser, perms, resources)
	admin := New(names.Admin, TierAdmin, perms, resources)
	super := New(names.SuperAdmin, TierSuperAdmin, perms, resources)

	for _, res := range resources.All() {
		mask := userMask
		if slices.Contains(policy.FullAccessResources, res.Name) {
			mask = full
		}
		if err := user.SetMask(res.Name, mask); err != nil {
			return nil, err
		}
		if err := admin.SetMask(res.Name, full); err != nil {
			return nil, err
		}
		if err := super.SetMask(res.Name, full); err != nil {
			return nil, err
		}
	}

	f.tiers[TierUser] = user
	f.tiers[TierAdmin] = admin
	f.tiers[TierSuperAdmin] = super

	return f, nil
}

// Default returns a factory over the default catalogs, names and policy.
func Default() *Factory {
	f, err := NewFactory(permission.Default(), resource.Default(), DefaultNames(), DefaultPolicy())
	if err != nil {
		panic("role: corrupt default factory: " + err.Error())
	}
	return f
}

// UserTier returns the canonical user role.
func (f *Factory) UserTier() *Role { return f.tiers[TierUser].Clone() }

// AdminTier returns the canonical admin role.
func (f *Factory) AdminTier() *Role { return f.tiers[TierAdmin].Clone() }

// SuperAdminTier returns the canonical super-admin role.
func (f *Factory) SuperAdminTier() *Role { return f.tiers[TierSuperAdmin].Clone() }

// ForTier returns the canonical role of t. Unknown tiers map to the user tier.
func (f *Factory) ForTier(t Tier) *Role {
	if int(t) >= len(f.tiers) {
		t = TierUser
	}
	return f.tiers[t].Clone()
}

// Lookup returns the canonical role registered under name.
func (f *Factory) Lookup(name string) (*Role, bool) {
	t, ok := f.byName[name]
	if !ok {
		return nil, false
	}
	return f.tiers[t].Clone(), true
}

// Names returns the configured tier role names.
func (f *Factory) Names() Names { return f.names }

// Policy returns a copy of the user tier policy.
func (f *Factory) Policy() Policy {
	return Policy{
		FullAccessResources: slices.Clone(f.policy.FullAccessResources),
		UserDefaults:        slices.Clone(f.policy.UserDefaults),
	}
}

// Count returns the number of canonical roles.
func (f *Factory) Count() int { return len(f.tiers) }

// TierOf returns the highest tier reachable with roles.
func (f *Factory) TierOf(roles []string) Tier {
	tier := TierUser
	for _, r := range roles {
		switch r {
		case f.names.SuperAdmin:
			return TierSuperAdmin
		case f.names.Admin:
			tier = TierAdmin
		}
	}
	return tier
}

// IsSuperAdmin reports whether roles include the super-admin role.
func (f *Factory) IsSuperAdmin(roles []string) bool {
	return slices.Contains(roles, f.names.SuperAdmin)
}

// IsAdmin reports whether roles include the admin role.
func (f *Factory) IsAdmin(roles []string) bool {
	return slices.Contains(roles, f.names.Admin)
}

// DeriveForUser returns the canonical role matching the principal's highest
// tier. It depends only on the roles held, never on persisted rights.
func (f *Factory) DeriveForUser(p RoleHolder) *Role {
	if p == nil {
		return f.UserTier()
	}
	return f.ForTier(f.TierOf(p.Roles()))
}
