package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
)

var (
	// ErrNotFound is returned when no rights were ever stored for a tier.
	ErrNotFound = errors.New("store: rights not found")
	// ErrTierNotStored is returned for tiers that have no persisted rights.
	ErrTierNotStored = errors.New("store: tier is not persisted")
)

// Store reads and writes the default rights buffer of a tier.
type Store interface {
	DefaultRights(ctx context.Context, tier role.Tier) (rights.Buffer, error)
	SetDefaultRights(ctx context.Context, tier role.Tier, buf rights.Buffer) error
}

// StoredTiers lists the tiers whose defaults are persisted. Super-admins
// bypass rights evaluation and are never stored.
var StoredTiers = []role.Tier{role.TierUser, role.TierAdmin}

func checkTier(tier role.Tier) error {
	switch tier {
	case role.TierUser, role.TierAdmin:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrTierNotStored, tier)
	}
}

// Memory is an in-process [Store].
type Memory struct {
	mu    sync.RWMutex
	tiers map[role.Tier]rights.Buffer
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tiers: make(map[role.Tier]rights.Buffer, len(StoredTiers))}
}

// DefaultRights implements [Store]. The result is a copy.
func (m *Memory) DefaultRights(_ context.Context, tier role.Tier) (rights.Buffer, error) {
	if err := checkTier(tier); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	buf, ok := m.tiers[tier]
	if !ok {
		return nil, ErrNotFound
	}
	return buf.Clone(), nil
}

// SetDefaultRights implements [Store]. buf is copied.
func (m *Memory) SetDefaultRights(_ context.Context, tier role.Tier, buf rights.Buffer) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	stored := buf.Clone()
	if stored == nil {
		stored = rights.Buffer{}
	}

	m.mu.Lock()
	m.tiers[tier] = stored
	m.mu.Unlock()
	return nil
}
