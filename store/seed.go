package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSeed is returned by [LoadSeed] for documents that do not match
// the catalogs.
var ErrInvalidSeed = errors.New("store: invalid seed")

// Wildcard selects every resource (as a key) or every permission (as a list
// entry) in a seed document.
const Wildcard = "*"

type seedDocument struct {
	Tiers map[string]map[string][]string `yaml:"tiers"`
}

// Seed holds fully materialized tier buffers parsed from YAML:
//
//	tiers:
//	  user:
//	    "*": [list, export, show]
//	    Calculation: ["*"]
//	  admin:
//	    "*": ["*"]
//
// Explicit resource entries override the wildcard entry of the same tier.
type Seed struct {
	tiers map[role.Tier]rights.Buffer
}

// LoadSeed parses a seed document against the given catalogs.
func LoadSeed(r io.Reader, perms *permission.Catalog, resources *resource.Catalog) (Seed, error) {
	var doc seedDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{tiers: map[role.Tier]rights.Buffer{}}, nil
		}
		return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	out := Seed{tiers: make(map[role.Tier]rights.Buffer, len(doc.Tiers))}
	for tierName, entries := range doc.Tiers {
		tier, err := role.ParseTier(tierName)
		if err != nil {
			return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		if err := checkTier(tier); err != nil {
			return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		// "user" and "default" name the same tier
		if _, dup := out.tiers[tier]; dup {
			return Seed{}, fmt.Errorf("%w: tier %s appears more than once", ErrInvalidSeed, tier)
		}
		buf, err := buildTier(entries, perms, resources)
		if err != nil {
			return Seed{}, fmt.Errorf("%w: tier %s: %v", ErrInvalidSeed, tierName, err)
		}
		out.tiers[tier] = buf
	}
	return out, nil
}

func buildTier(entries map[string][]string, perms *permission.Catalog, resources *resource.Catalog) (rights.Buffer, error) {
	buf := make(rights.Buffer, resources.MaxOffset()+1)

	set := func(offset int, names []string) error {
		mask, err := seedMask(names, perms)
		if err != nil {
			return err
		}
		next, err := buf.Set(offset, mask)
		if err != nil {
			return err
		}
		buf = next
		return nil
	}

	if names, ok := entries[Wildcard]; ok {
		for _, res := range resources.All() {
			if err := set(res.Offset, names); err != nil {
				return nil, err
			}
		}
	}
	for name, names := range entries {
		if name == Wildcard {
			continue
		}
		offset, ok := resources.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown resource %q", name)
		}
		if err := set(offset, names); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func seedMask(names []string, perms *permission.Catalog) (int, error) {
	if slices.Contains(names, Wildcard) {
		return perms.Full(), nil
	}
	return perms.Mask(names...)
}

// Tiers returns the tiers present in the seed, user first.
func (s Seed) Tiers() []role.Tier {
	out := make([]role.Tier, 0, len(s.tiers))
	for _, t := range StoredTiers {
		if _, ok := s.tiers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Buffer returns a copy of the seeded buffer of tier.
func (s Seed) Buffer(tier role.Tier) (rights.Buffer, bool) {
	buf, ok := s.tiers[tier]
	return buf.Clone(), ok
}

// Apply writes every seeded tier to st.
func (s Seed) Apply(ctx context.Context, st Store) error {
	for _, tier := range s.Tiers() {
		if err := st.SetDefaultRights(ctx, tier, s.tiers[tier].Clone()); err != nil {
			return fmt.Errorf("store: seed %s: %w", tier, err)
		}
	}
	return nil
}
