package resource

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Invalid is returned by [Catalog.Offset] for names that are not in the catalog.
const Invalid = -1

// Names of the default resource set.
const (
	Calculation      = "Calculation"
	Product          = "Product"
	User             = "User"
	Category         = "Category"
	Customer         = "Customer"
	CalculationState = "CalculationState"
	GlobalMargin     = "GlobalMargin"
)

var (
	// ErrEmptyName is returned when a resource has no name.
	ErrEmptyName = errors.New("resource name cannot be empty")
	// ErrDuplicateName is returned when two resources share a name.
	ErrDuplicateName = errors.New("resource already registered")
	// ErrOffsetCollision is returned when two resources share an offset.
	ErrOffsetCollision = errors.New("resource offset already assigned")
	// ErrNegativeOffset is returned for offsets below zero.
	ErrNegativeOffset = errors.New("resource offset must be non-negative")
)

// Resource binds an entity type name to its byte offset.
type Resource struct {
	Name   string
	Offset int
}

// Named lets a value choose its resource name instead of relying on its Go
// type name.
type Named interface {
	ResourceName() string
}

// Catalog maps resource names to byte offsets. It is immutable after
// [NewCatalog] returns and safe for concurrent use.
type Catalog struct {
	ordered      []Resource
	nameToOffset map[string]int
	offsetToName map[int]string
	maxOffset    int
}

// NewCatalog validates res and returns an immutable [Catalog].
func NewCatalog(res ...Resource) (*Catalog, error) {
	c := &Catalog{
		ordered:      make([]Resource, 0, len(res)),
		nameToOffset: make(map[string]int, len(res)),
		offsetToName: make(map[int]string, len(res)),
		maxOffset:    -1,
	}

	for _, r := range res {
		if r.Name == "" {
			return nil, ErrEmptyName
		}
		if r.Offset < 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrNegativeOffset, r.Name, r.Offset)
		}
		if _, exists := c.nameToOffset[r.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, r.Name)
		}
		if other, exists := c.offsetToName[r.Offset]; exists {
			return nil, fmt.Errorf("%w: %s and %s share %d", ErrOffsetCollision, other, r.Name, r.Offset)
		}

		c.nameToOffset[r.Name] = r.Offset
		c.offsetToName[r.Offset] = r.Name
		c.ordered = append(c.ordered, r)
		if r.Offset > c.maxOffset {
			c.maxOffset = r.Offset
		}
	}

	return c, nil
}

// Sequential builds a catalog assigning offsets 0..N-1 in order.
func Sequential(names ...string) (*Catalog, error) {
	res := make([]Resource, len(names))
	for i, name := range names {
		res[i] = Resource{Name: name, Offset: i}
	}
	return NewCatalog(res...)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog of the seven standard resources.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Sequential(Calculation, Product, User, Category, Customer, CalculationState, GlobalMargin)
		if err != nil {
			panic("resource: corrupt default catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Offset returns the byte offset for name, or [Invalid].
func (c *Catalog) Offset(name string) int {
	if c == nil {
		return Invalid
	}
	off, ok := c.nameToOffset[name]
	if !ok {
		return Invalid
	}
	return off
}

// Lookup returns the offset for name, or false if not registered.
func (c *Catalog) Lookup(name string) (int, bool) {
	if c == nil {
		return Invalid, false
	}
	off, ok := c.nameToOffset[name]
	return off, ok
}

// Name returns the resource owning offset, or false.
func (c *Catalog) Name(offset int) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.offsetToName[offset]
	return name, ok
}

// Has reports whether name is part of the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Count returns the number of resources.
func (c *Catalog) Count() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}

// MaxOffset returns the highest assigned offset, or -1 for an empty catalog.
func (c *Catalog) MaxOffset() int {
	if c == nil {
		return -1
	}
	return c.maxOffset
}

// All returns a copy of the resources in registration order.
func (c *Catalog) All() []Resource {
	if c == nil {
		return nil
	}
	out := make([]Resource, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// NameFor derives the resource name of subject. See [NameFor].
func (c *Catalog) NameFor(subject any) string {
	return NameFor(subject)
}

// Resolve derives the resource name of subject and returns its offset.
func (c *Catalog) Resolve(subject any) (string, int) {
	name := NameFor(subject)
	return name, c.Offset(name)
}

// NameFor derives a resource name from subject:
//
//   - string: the final segment after the last '\', '/' or '.'.
//   - [Named]: the value returned by ResourceName.
//   - [reflect.Type]: the type name, pointers dereferenced.
//   - anything else: the name of its dynamic type, pointers dereferenced.
//
// A nil subject or an unnamed type yields "".
func NameFor(subject any) string {
	switch s := subject.(type) {
	case nil:
		return ""
	case string:
		return lastSegment(s)
	case Named:
		return lastSegment(s.ResourceName())
	case reflect.Type:
		return typeName(s)
	}

	return typeName(reflect.TypeOf(subject))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	// Instantiated generics carry their type arguments, which may contain
	// qualified names of their own.
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, `\/.`); i >= 0 {
		return s[i+1:]
	}
	return s
}
