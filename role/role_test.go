package role

import (
	"errors"
	"testing"

	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/rights"
)

type holder []string

func (h holder) Roles() []string { return h }

func TestAdminTierHasEveryBitOnEveryResource(t *testing.T) {
	f := Default()
	admin := f.AdminTier()
	full := permission.Default().Full()

	for _, res := range resource.Default().All() {
		if got := admin.Mask(res.Name); got != full {
			t.Fatalf("admin mask on %s = %#x, want %#x", res.Name, got, full)
		}
		for _, p := range permission.Default().All() {
			if !admin.Can(p.Name, res.Name) {
				t.Fatalf("admin cannot %s %s", p.Name, res.Name)
			}
		}
	}
	if admin.Name() != NameAdmin || admin.Tier() != TierAdmin {
		t.Fatalf("unexpected admin identity %s/%s", admin.Name(), admin.Tier())
	}
}

func TestUserTierDefaults(t *testing.T) {
	f := Default()
	user := f.UserTier()
	perms := permission.Default()
	reduced, _ := perms.Mask(permission.List, permission.Export, permission.Show)

	for _, res := range resource.Default().All() {
		got := user.Mask(res.Name)
		if res.Name == resource.Calculation {
			if got != perms.Full() {
				t.Fatalf("user mask on Calculation = %#x, want full", got)
			}
			continue
		}
		if got != reduced {
			t.Fatalf("user mask on %s = %#x, want exactly list|export|show (%#x)", res.Name, got, reduced)
		}
	}

	if user.Can(permission.Delete, resource.Customer) {
		t.Fatalf("user must not delete customers")
	}
	if !user.Can(permission.Show, resource.Customer) {
		t.Fatalf("user must see customers")
	}
}

func TestSuperAdminTierMatchesAdmin(t *testing.T) {
	f := Default()
	if !f.SuperAdminTier().Rights().Equal(f.AdminTier().Rights()) {
		t.Fatalf("super-admin rights must equal admin rights")
	}
}

func TestRightsBufferIsFullyPopulated(t *testing.T) {
	f := Default()
	for _, r := range []*Role{f.UserTier(), f.AdminTier(), f.SuperAdminTier()} {
		if r.Rights().Len() != resource.Default().MaxOffset()+1 {
			t.Fatalf("%s buffer length %d", r.Name(), r.Rights().Len())
		}
	}
}

func TestDeriveForUser(t *testing.T) {
	f := Default()
	tests := []struct {
		roles []string
		want  Tier
	}{
		{nil, TierUser},
		{[]string{"ROLE_DEFAULT"}, TierUser},
		{[]string{NameUser}, TierUser},
		{[]string{NameUser, NameAdmin}, TierAdmin},
		{[]string{NameAdmin, NameSuperAdmin}, TierSuperAdmin},
		{[]string{NameSuperAdmin}, TierSuperAdmin},
	}
	for _, tt := range tests {
		if got := f.DeriveForUser(holder(tt.roles)).Tier(); got != tt.want {
			t.Fatalf("DeriveForUser(%v) = %s, want %s", tt.roles, got, tt.want)
		}
	}
	if f.DeriveForUser(nil).Tier() != TierUser {
		t.Fatalf("nil principal should derive the user tier")
	}
}

func TestFactoryReturnsClones(t *testing.T) {
	f := Default()
	u := f.UserTier()
	if err := u.SetMask(resource.Customer, 0); err != nil {
		t.Fatalf("set mask: %v", err)
	}
	if f.UserTier().Mask(resource.Customer) == 0 {
		t.Fatalf("mutating a returned role changed the factory")
	}
}

func TestSetMaskValidation(t *testing.T) {
	r := New("ROLE_X", TierUser, permission.Default(), resource.Default())

	if err := r.SetMask("Warehouse", 1); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
	if err := r.SetMask(resource.User, 64); !errors.Is(err, ErrUnknownPermissionBits) {
		t.Fatalf("expected ErrUnknownPermissionBits, got %v", err)
	}
	if err := r.SetMask(resource.User, 300); !errors.Is(err, rights.ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}

	if err := r.Grant(resource.User, permission.Edit, permission.Show); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := r.Revoke(resource.User, permission.Show); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := r.Permissions(resource.User); len(got) != 1 || got[0] != permission.Edit {
		t.Fatalf("unexpected permissions %v", got)
	}
	if err := r.Grant(resource.User, "fly"); !errors.Is(err, permission.ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}
}

func TestNewFactoryValidation(t *testing.T) {
	perms, res := permission.Default(), resource.Default()

	if _, err := NewFactory(perms, res, Names{User: "A", Admin: "A", SuperAdmin: "C"}, DefaultPolicy()); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if _, err := NewFactory(perms, res, DefaultNames(), Policy{FullAccessResources: []string{"Warehouse"}}); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
	if _, err := NewFactory(perms, res, DefaultNames(), Policy{UserDefaults: []string{"fly"}}); !errors.Is(err, permission.ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}

	f, err := NewFactory(perms, res, DefaultNames(), Policy{})
	if err != nil {
		t.Fatalf("empty policy: %v", err)
	}
	if f.UserTier().Mask(resource.Calculation) != 0 {
		t.Fatalf("empty policy should give users no access")
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range []Tier{TierUser, TierAdmin, TierSuperAdmin} {
		got, err := ParseTier(tier.String())
		if err != nil || got != tier {
			t.Fatalf("ParseTier(%q) = %v, %v", tier.String(), got, err)
		}
	}
	if _, err := ParseTier("root"); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}
