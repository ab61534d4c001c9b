package role

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/rights"
)

var (
	// ErrUnknownResource is returned when a mask is addressed by a resource
	// name outside the resource catalog.
	ErrUnknownResource = errors.New("role: unknown resource")
	// ErrUnknownPermissionBits is returned when a mask sets bits that no
	// permission owns.
	ErrUnknownPermissionBits = errors.New("role: mask contains unknown permission bits")
	// ErrUnknownTier is returned for tier names that do not parse.
	ErrUnknownTier = errors.New("role: unknown tier")
)

// Tier is one of the canonical privilege levels.
type Tier uint8

const (
	// TierUser is the default tier for every authenticated principal.
	TierUser Tier = iota
	// TierAdmin grants every permission on every resource.
	TierAdmin
	// TierSuperAdmin bypasses rights evaluation.
	TierSuperAdmin
)

// String returns the storage key of the tier.
func (t Tier) String() string {
	switch t {
	case TierUser:
		return "user"
	case TierAdmin:
		return "admin"
	case TierSuperAdmin:
		return "super_admin"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// ParseTier parses the output of [Tier.String].
func ParseTier(s string) (Tier, error) {
	switch s {
	case "user", "default":
		return TierUser, nil
	case "admin":
		return TierAdmin, nil
	case "super_admin", "superadmin":
		return TierSuperAdmin, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
}

// Role is a named bundle of per-resource permission masks.
type Role struct {
	name      string
	tier      Tier
	perms     *permission.Catalog
	resources *resource.Catalog
	rights    rights.Buffer
}

// New returns an empty role (no access anywhere) bound to the given catalogs.
func New(name string, tier Tier, perms *permission.Catalog, resources *resource.Catalog) *Role {
	return &Role{
		name:      name,
		tier:      tier,
		perms:     perms,
		resources: resources,
		rights:    make(rights.Buffer, resources.MaxOffset()+1),
	}
}

// Name returns the role name, e.g. "ROLE_ADMIN".
func (r *Role) Name() string { return r.name }

// Tier returns the privilege tier.
func (r *Role) Tier() Tier { return r.tier }

// Mask returns the permission mask for resourceName, or 0 for unknown names.
func (r *Role) Mask(resourceName string) int {
	return r.rights.Get(r.resources.Offset(resourceName))
}

// SetMask stores mask for resourceName.
func (r *Role) SetMask(resourceName string, mask int) error {
	offset, ok := r.resources.Lookup(resourceName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, resourceName)
	}
	if mask >= 0 && mask <= rights.MaxValue && !r.perms.Covers(mask) {
		return fmt.Errorf("%w: %#x", ErrUnknownPermissionBits, mask)
	}
	next, err := r.rights.Set(offset, mask)
	if err != nil {
		return err
	}
	r.rights = next
	return nil
}

// Grant adds the named permissions to the mask of resourceName.
func (r *Role) Grant(resourceName string, permissionNames ...string) error {
	add, err := r.perms.Mask(permissionNames...)
	if err != nil {
		return err
	}
	return r.SetMask(resourceName, r.Mask(resourceName)|add)
}

// Revoke removes the named permissions from the mask of resourceName.
func (r *Role) Revoke(resourceName string, permissionNames ...string) error {
	drop, err := r.perms.Mask(permissionNames...)
	if err != nil {
		return err
	}
	return r.SetMask(resourceName, r.Mask(resourceName)&^drop)
}

// Can reports whether the role's own rights allow action on resourceName.
// It does not apply the super-admin bypass.
func (r *Role) Can(action, resourceName string) bool {
	bit := r.perms.Bit(action)
	offset := r.resources.Offset(resourceName)
	if bit == permission.Invalid || offset == resource.Invalid {
		return false
	}
	return r.rights.Has(offset, bit)
}

// Permissions lists the permission names granted on resourceName.
func (r *Role) Permissions(resourceName string) []string {
	return r.perms.Names(r.Mask(resourceName))
}

// Rights returns a copy of the role's rights buffer.
func (r *Role) Rights() rights.Buffer {
	return r.rights.Clone()
}

// Clone returns an independent copy of the role.
func (r *Role) Clone() *Role {
	out := *r
	out.rights = r.rights.Clone()
	return &out
}
