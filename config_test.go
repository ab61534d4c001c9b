package goRights

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "empty admin role invalid",
			mutate: func(c *Config) {
				c.Roles.Admin = ""
			},
			wantValid: false,
		},
		{
			name: "duplicate role names invalid",
			mutate: func(c *Config) {
				c.Roles.SuperAdmin = c.Roles.Admin
			},
			wantValid: false,
		},
		{
			name: "custom role names valid",
			mutate: func(c *Config) {
				c.Roles.User = "member"
				c.Roles.Admin = "staff"
				c.Roles.SuperAdmin = "owner"
			},
			wantValid: true,
		},
		{
			name: "abstain allow valid",
			mutate: func(c *Config) {
				c.Voter.AbstainPolicy = AbstainAllow
			},
			wantValid: true,
		},
		{
			name: "abstain policy out of range invalid",
			mutate: func(c *Config) {
				c.Voter.AbstainPolicy = AbstainPolicy(7)
			},
			wantValid: false,
		},
		{
			name: "negative refresh interval invalid",
			mutate: func(c *Config) {
				c.Store.RefreshInterval = -time.Second
			},
			wantValid: false,
		},
		{
			name: "tiny refresh interval invalid",
			mutate: func(c *Config) {
				c.Store.RefreshInterval = 10 * time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "refresh interval valid",
			mutate: func(c *Config) {
				c.Store.RefreshInterval = 30 * time.Second
			},
			wantValid: true,
		},
		{
			name: "negative load timeout invalid",
			mutate: func(c *Config) {
				c.Store.LoadTimeout = -1
			},
			wantValid: false,
		},
		{
			name: "zero load timeout valid",
			mutate: func(c *Config) {
				c.Store.LoadTimeout = 0
			},
			wantValid: true,
		},
		{
			name: "audit without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit disabled ignores buffer",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
		{
			name: "latency without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
		{
			name: "latency with metrics valid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestZeroConfigInvalid(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero config should not validate")
	}
}

func TestCloneConfigDetachesPolicy(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Policy.UserDefaults[0] = "mutated"
	if cfg.Policy.UserDefaults[0] == "mutated" {
		t.Fatalf("cloneConfig shares policy slices")
	}
}

func TestCustomRoleNamesDriveTiers(t *testing.T) {
	engine := newTestEngine(t, func(c *Config) {
		c.Roles.Admin = "staff"
		c.Roles.SuperAdmin = "owner"
	})

	if engine.Decide(&User{RoleNames: []string{"staff"}}, "delete", "User") != Grant {
		t.Fatalf("custom admin name should reach the admin tier")
	}
	if engine.Decide(&User{RoleNames: []string{"ROLE_ADMIN"}}, "delete", "User") != Deny {
		t.Fatalf("default admin name must no longer matter")
	}
	if engine.Decide(&User{RoleNames: []string{"owner"}, UseOwnRights: true}, "delete", "User") != Grant {
		t.Fatalf("custom super-admin name should bypass rights")
	}
}
