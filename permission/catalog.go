package permission

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// Invalid is returned by [Catalog.Bit] for names that are not in the catalog.
const Invalid = -1

// MaxPermissions is the number of distinct bits available in one byte.
const MaxPermissions = 8

// Names of the default permission set.
const (
	Add    = "add"
	Delete = "delete"
	Edit   = "edit"
	List   = "list"
	Export = "export"
	Show   = "show"
)

var (
	// ErrEmptyName is returned when a permission has no name.
	ErrEmptyName = errors.New("permission name cannot be empty")
	// ErrDuplicateName is returned when two permissions share a name.
	ErrDuplicateName = errors.New("permission already registered")
	// ErrDuplicateBit is returned when two permissions share a bit.
	ErrDuplicateBit = errors.New("permission bit already assigned")
	// ErrInvalidBit is returned for bits that are not a single power of two in 1..128.
	ErrInvalidBit = errors.New("permission bit must be a power of two within one byte")
	// ErrLimitExceeded is returned when more than [MaxPermissions] names are supplied.
	ErrLimitExceeded = errors.New("permission limit exceeded")
	// ErrUnknownPermission is returned by [Catalog.Mask] for names outside the catalog.
	ErrUnknownPermission = errors.New("permission not registered")
)

// Permission binds an action name to its bit.
type Permission struct {
	Name string
	Bit  int
}

// Catalog maps permission names to bits within a single byte.
//
// A Catalog is immutable after [NewCatalog] returns and is safe for
// concurrent use without locking.
type Catalog struct {
	ordered   []Permission
	nameToBit map[string]int
	bitToName map[int]string
	full      int
}

// NewCatalog validates perms and returns an immutable [Catalog]. Order is
// preserved for enumeration only; it has no effect on evaluation.
func NewCatalog(perms ...Permission) (*Catalog, error) {
	if len(perms) > MaxPermissions {
		return nil, ErrLimitExceeded
	}

	c := &Catalog{
		ordered:   make([]Permission, 0, len(perms)),
		nameToBit: make(map[string]int, len(perms)),
		bitToName: make(map[int]string, len(perms)),
	}

	for _, p := range perms {
		if p.Name == "" {
			return nil, ErrEmptyName
		}
		if p.Bit <= 0 || p.Bit > 0x80 || bits.OnesCount(uint(p.Bit)) != 1 {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidBit, p.Name, p.Bit)
		}
		if _, exists := c.nameToBit[p.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		}
		if other, exists := c.bitToName[p.Bit]; exists {
			return nil, fmt.Errorf("%w: %s and %s share %d", ErrDuplicateBit, other, p.Name, p.Bit)
		}

		c.nameToBit[p.Name] = p.Bit
		c.bitToName[p.Bit] = p.Name
		c.ordered = append(c.ordered, p)
		c.full |= p.Bit
	}

	return c, nil
}

// Sequential builds a catalog assigning 1<<i to the i-th name.
func Sequential(names ...string) (*Catalog, error) {
	if len(names) > MaxPermissions {
		return nil, ErrLimitExceeded
	}
	perms := make([]Permission, len(names))
	for i, name := range names {
		perms[i] = Permission{Name: name, Bit: 1 << i}
	}
	return NewCatalog(perms...)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog of the six standard actions:
// add, delete, edit, list, export, show.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Sequential(Add, Delete, Edit, List, Export, Show)
		if err != nil {
			panic("permission: corrupt default catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Bit returns the bit for name, or [Invalid] if name is not registered.
func (c *Catalog) Bit(name string) int {
	if c == nil {
		return Invalid
	}
	bit, ok := c.nameToBit[name]
	if !ok {
		return Invalid
	}
	return bit
}

// Lookup returns the bit for name, or false if not registered.
func (c *Catalog) Lookup(name string) (int, bool) {
	if c == nil {
		return Invalid, false
	}
	bit, ok := c.nameToBit[name]
	return bit, ok
}

// Name returns the permission name owning bit, or false if unassigned.
func (c *Catalog) Name(bit int) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.bitToName[bit]
	return name, ok
}

// Has reports whether name is part of the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Count returns the number of registered permissions.
func (c *Catalog) Count() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}

// All returns a copy of the permissions in registration order.
func (c *Catalog) All() []Permission {
	if c == nil {
		return nil
	}
	out := make([]Permission, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Full returns the union of every registered bit.
func (c *Catalog) Full() int {
	if c == nil {
		return 0
	}
	return c.full
}

// Mask returns the union of the bits for names.
func (c *Catalog) Mask(names ...string) (int, error) {
	mask := 0
	for _, name := range names {
		bit, ok := c.Lookup(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownPermission, name)
		}
		mask |= bit
	}
	return mask, nil
}

// Names expands mask into permission names in registration order. Bits that
// do not belong to the catalog are ignored.
func (c *Catalog) Names(mask int) []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.ordered))
	for _, p := range c.ordered {
		if mask&p.Bit == p.Bit {
			out = append(out, p.Name)
		}
	}
	return out
}

// Covers reports whether every set bit of mask belongs to the catalog.
func (c *Catalog) Covers(mask int) bool {
	return mask&^c.Full() == 0
}
