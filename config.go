package goRights

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/MrEthical07/goRights/role"
)

// Config is the complete engine configuration. Obtain a populated value with
// [DefaultConfig] and adjust it; the zero value does not validate.
type Config struct {
	Roles   RolesConfig
	Policy  PolicyConfig
	Voter   VoterConfig
	Store   StoreConfig
	Audit   AuditConfig
	Metrics MetricsConfig

	// Logger receives reload, seeding and refresher messages. Decisions never
	// log. Nil discards.
	Logger *slog.Logger
}

/*
====================================
ROLES / POLICY
====================================
*/

// RolesConfig names the role a principal must hold to reach each tier.
type RolesConfig struct {
	User       string
	Admin      string
	SuperAdmin string
}

// PolicyConfig shapes the canonical user tier.
type PolicyConfig struct {
	FullAccessResources []string
	UserDefaults        []string
}

/*
====================================
VOTER
====================================
*/

// AbstainPolicy controls how Authorize resolves an abstention.
type AbstainPolicy uint8

const (
	// AbstainDeny turns abstentions into ErrPermissionDenied.
	AbstainDeny AbstainPolicy = iota
	// AbstainAllow lets abstentions through.
	AbstainAllow
)

// String returns the policy name.
func (p AbstainPolicy) String() string {
	switch p {
	case AbstainDeny:
		return "deny"
	case AbstainAllow:
		return "allow"
	default:
		return fmt.Sprintf("abstain_policy(%d)", uint8(p))
	}
}

// VoterConfig controls the decision procedure.
type VoterConfig struct {
	// DenyDisabled denies disabled principals before the super-admin
	// short-circuit. When false, a disabled super-admin is still granted.
	DenyDisabled  bool
	AbstainPolicy AbstainPolicy
}

/*
====================================
STORE
====================================
*/

// StoreConfig controls how tier rights are sourced.
type StoreConfig struct {
	// SeedMissing writes the canonical buffer of a tier back to the store when
	// the store has none.
	SeedMissing bool
	// RefreshInterval starts a background reload loop when positive.
	RefreshInterval time.Duration
	// LoadTimeout bounds each store round-trip of a reload.
	LoadTimeout time.Duration
}

/*
====================================
AUDIT / METRICS
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// EmitGrants also records granted decisions. Denials, abstentions,
	// reloads and rights updates are always recorded when Enabled.
	EmitGrants bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: canonical role names and
// user policy, disabled principals denied, abstentions denied, no audit.
func DefaultConfig() Config {
	names := role.DefaultNames()
	policy := role.DefaultPolicy()
	return Config{
		Roles: RolesConfig{
			User:       names.User,
			Admin:      names.Admin,
			SuperAdmin: names.SuperAdmin,
		},
		Policy: PolicyConfig{
			FullAccessResources: policy.FullAccessResources,
			UserDefaults:        policy.UserDefaults,
		},
		Voter: VoterConfig{
			DenyDisabled:  true,
			AbstainPolicy: AbstainDeny,
		},
		Store: StoreConfig{
			SeedMissing:     true,
			RefreshInterval: 0,
			LoadTimeout:     2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
			EmitGrants: false,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Policy.FullAccessResources = slices.Clone(cfg.Policy.FullAccessResources)
	out.Policy.UserDefaults = slices.Clone(cfg.Policy.UserDefaults)
	return out
}

func (c *Config) roleNames() role.Names {
	return role.Names{User: c.Roles.User, Admin: c.Roles.Admin, SuperAdmin: c.Roles.SuperAdmin}
}

func (c *Config) rolePolicy() role.Policy {
	return role.Policy{
		FullAccessResources: slices.Clone(c.Policy.FullAccessResources),
		UserDefaults:        slices.Clone(c.Policy.UserDefaults),
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Catalog
// references in Policy are checked later, by Build.
func (c *Config) Validate() error {
	if c.Roles.User == "" || c.Roles.Admin == "" || c.Roles.SuperAdmin == "" {
		return errors.New("Roles: every tier needs a role name")
	}
	if c.Roles.User == c.Roles.Admin || c.Roles.Admin == c.Roles.SuperAdmin || c.Roles.User == c.Roles.SuperAdmin {
		return errors.New("Roles: tier role names must be distinct")
	}

	if c.Voter.AbstainPolicy > AbstainAllow {
		return errors.New("Voter AbstainPolicy is invalid")
	}

	if c.Store.RefreshInterval < 0 {
		return errors.New("Store RefreshInterval must be >= 0")
	}
	if c.Store.RefreshInterval > 0 && c.Store.RefreshInterval < 100*time.Millisecond {
		return errors.New("Store RefreshInterval must be >= 100ms when enabled")
	}
	if c.Store.LoadTimeout < 0 {
		return errors.New("Store LoadTimeout must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
