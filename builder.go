package goRights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	internalaudit "github.com/MrEthical07/goRights/internal/audit"
	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/role"
	"github.com/MrEthical07/goRights/store"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config    Config
	store     store.Store
	perms     *permission.Catalog
	resources *resource.Catalog
	provider  PrincipalProvider
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the rights store. Without one the engine keeps tier rights
// in a private [store.Memory].
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithPermissions replaces the default permission catalog.
func (b *Builder) WithPermissions(c *permission.Catalog) *Builder {
	b.perms = c
	return b
}

// WithResources replaces the default resource catalog.
func (b *Builder) WithResources(c *resource.Catalog) *Builder {
	b.resources = c
	return b
}

// WithPrincipalProvider sets the provider AuthorizeContext asks for the
// current principal. The default reads [WithPrincipal].
func (b *Builder) WithPrincipalProvider(p PrincipalProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets the sink audit events are delivered to.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for reload and refresher messages.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// WithMetricsEnabled toggles the decision and reload counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the decision latency histogram. It has no
// effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, derives the canonical tier roles,
// loads the initial rights snapshot from the store and, when configured,
// starts the background refresher.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	perms := b.perms
	if perms == nil {
		perms = permission.Default()
	}
	resources := b.resources
	if resources == nil {
		resources = resource.Default()
	}

	// -------- CANONICAL ROLES --------
	factory, err := role.NewFactory(perms, resources, cfg.roleNames(), cfg.rolePolicy())
	if err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}

	st := b.store
	if st == nil {
		st = store.NewMemory()
	}
	provider := b.provider
	if provider == nil {
		provider = ContextPrincipalProvider{}
	}

	engine := &Engine{
		config:    cfg,
		perms:     perms,
		resources: resources,
		roles:     factory,
		store:     st,
		provider:  provider,
		logger:    cfg.logger(),
		stop:      make(chan struct{}),
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	// -------- INITIAL SNAPSHOT --------
	if err := engine.Reload(ctx); err != nil {
		engine.Close()
		return nil, err
	}

	if cfg.Store.RefreshInterval > 0 {
		engine.StartRefresher(context.Background(), cfg.Store.RefreshInterval)
	}

	b.built = true

	return engine, nil
}
