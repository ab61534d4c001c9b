package goRights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/goRights/internal/audit"
	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
	"github.com/MrEthical07/goRights/store"
	"golang.org/x/sync/singleflight"
)

// snapshot is the immutable view of stored tier rights that decisions read.
type snapshot struct {
	user     rights.Buffer
	admin    rights.Buffer
	version  uint64
	loadedAt time.Time
}

// Engine is the decision engine. Decide and its wrappers never block, never
// perform I/O and are safe for concurrent use; they read the latest snapshot
// published by Reload.
type Engine struct {
	config    Config
	perms     *permission.Catalog
	resources *resource.Catalog
	roles     *role.Factory
	store     store.Store
	provider  PrincipalProvider
	logger    *slog.Logger
	audit     *internalaudit.Dispatcher
	metrics   *Metrics

	snap      atomic.Pointer[snapshot]
	reloads   singleflight.Group
	loadSeq   atomic.Uint64
	publishMu sync.Mutex
	published uint64

	// lifeMu orders refresher starts against Close so wg.Add never races
	// wg.Wait.
	lifeMu    sync.Mutex
	stop      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// Close stops the refresher and flushes the audit dispatcher. Decisions keep
// working on the last snapshot.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.lifeMu.Lock()
		e.closed.Store(true)
		close(e.stop)
		e.lifeMu.Unlock()
		e.wg.Wait()
		e.audit.Close()
	})
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// PermissionCatalog returns the permission catalog decisions resolve against.
func (e *Engine) PermissionCatalog() *permission.Catalog { return e.perms }

// ResourceCatalog returns the resource catalog decisions resolve against.
func (e *Engine) ResourceCatalog() *resource.Catalog { return e.resources }

// Roles returns the canonical tier role factory.
func (e *Engine) Roles() *role.Factory { return e.roles }

/*
====================================
DECISIONS
====================================
*/

// Supports reports whether action and the resource derived from subject are
// both known, i.e. whether Decide would vote rather than abstain.
func (e *Engine) Supports(action string, subject any) bool {
	if e == nil {
		return false
	}
	_, _, ok := e.resolve(action, subject)
	return ok
}

// Decide runs the voting procedure for a single action:
//
//  1. unknown action or resource: Abstain
//  2. no principal, or a disabled one under Voter.DenyDisabled: Deny
//  3. super-admin: Grant
//  4. rights: the principal's override buffer when it asks for it, else the
//     admin tier for admins, else the user tier
//  5. offset or mask unresolvable: Deny
//  6. Grant iff the resource byte holds every bit of the action
//
// subject may be a resource name, a qualified type name, a reflect.Type or
// any value whose type names a resource.
func (e *Engine) Decide(principal any, action string, subject any) Decision {
	if e == nil {
		return Abstain
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricDecisionLatency, time.Since(start)) }()
	}

	d := e.decide(principal, action, subject)
	switch d {
	case Grant:
		e.metrics.Inc(MetricDecisionGrant)
	case Deny:
		e.metrics.Inc(MetricDecisionDeny)
	default:
		e.metrics.Inc(MetricDecisionAbstain)
	}
	return d
}

func (e *Engine) decide(principal any, action string, subject any) Decision {
	// 1. support
	if _, _, ok := e.resolve(action, subject); !ok {
		return Abstain
	}

	// 2. principal
	p, ok := asPrincipal(principal)
	if !ok {
		return Deny
	}
	if e.config.Voter.DenyDisabled && !p.Enabled() {
		e.metrics.Inc(MetricDisabledDenied)
		return Deny
	}

	// 3. super-admin
	roles := p.Roles()
	if e.roles.IsSuperAdmin(roles) {
		e.metrics.Inc(MetricSuperAdminBypass)
		return Grant
	}

	// 4. rights selection
	if p.UsesOverrideRights() {
		e.metrics.Inc(MetricOverrideRightsUsed)
	}
	buf := e.selectRights(p, roles)

	// 5. resolved again: the buffer above may come from the principal rather
	// than from the catalogs validated in step 1.
	offset, mask, ok := e.resolve(action, subject)
	if !ok || offset == resource.Invalid || mask == permission.Invalid {
		return Deny
	}

	// 6.
	if rights.HasBit(rights.ReadByteAt(buf, offset), mask) {
		return Grant
	}
	return Deny
}

func (e *Engine) resolve(action string, subject any) (offset, mask int, ok bool) {
	mask = e.perms.Bit(action)
	if mask == permission.Invalid {
		return resource.Invalid, permission.Invalid, false
	}
	offset = e.resources.Offset(resource.NameFor(subject))
	if offset == resource.Invalid {
		return resource.Invalid, mask, false
	}
	return offset, mask, true
}

// selectRights returns the buffer step 4 evaluates. It may alias snapshot
// memory and must not be mutated.
func (e *Engine) selectRights(p Principal, roles []string) []byte {
	if p.UsesOverrideRights() {
		return p.OverrideRights()
	}
	s := e.snap.Load()
	if s == nil {
		return nil
	}
	if e.roles.IsAdmin(roles) {
		return s.admin
	}
	return s.user
}

func asPrincipal(v any) (Principal, bool) {
	if v == nil {
		return nil, false
	}
	p, ok := v.(Principal)
	if !ok || isNilPrincipal(p) {
		return nil, false
	}
	return p, true
}

// isNilPrincipal catches typed nils such as (*User)(nil) hidden in a non-nil
// interface. Their nil-safe methods would otherwise look like a principal
// without roles.
func isNilPrincipal(p Principal) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func (e *Engine) tierOf(p Principal) role.Tier {
	return e.roles.TierOf(p.Roles())
}

// Vote evaluates several actions against one subject. Unsupported actions are
// skipped; with none supported the result is Abstain. Any granted action
// grants; otherwise the vote is Deny.
func (e *Engine) Vote(principal any, subject any, actions ...string) Decision {
	result := Abstain
	for _, action := range actions {
		if !e.Supports(action, subject) {
			continue
		}
		if e.Decide(principal, action, subject) == Grant {
			return Grant
		}
		result = Deny
	}
	return result
}

// Authorize turns a decision into an error: nil on Grant, ErrPermissionDenied
// on Deny. Abstentions follow Voter.AbstainPolicy; under AbstainDeny the error
// also matches ErrAbstained. Every non-grant outcome is audited, and grants
// too when Audit.EmitGrants is set.
func (e *Engine) Authorize(ctx context.Context, principal any, action string, subject any) error {
	if e == nil {
		return ErrEngineNotReady
	}
	d := e.Decide(principal, action, subject)
	p, _ := asPrincipal(principal)
	name := resource.NameFor(subject)

	var err error
	switch d {
	case Grant:
	case Deny:
		err = ErrPermissionDenied
	default:
		if e.config.Voter.AbstainPolicy != AbstainAllow {
			err = fmt.Errorf("%w: %w", ErrPermissionDenied, ErrAbstained)
		}
	}
	e.emitDecision(ctx, p, action, name, d, err)
	return err
}

// AuthorizeContext is Authorize with the principal taken from the configured
// [PrincipalProvider]. A missing principal is denied, not reported as an
// error; other provider failures are returned as-is.
func (e *Engine) AuthorizeContext(ctx context.Context, action string, subject any) error {
	if e == nil {
		return ErrEngineNotReady
	}
	p, err := e.provider.CurrentPrincipal(ctx)
	if err != nil && !errors.Is(err, ErrNoPrincipal) {
		return err
	}
	var principal any
	if p != nil {
		principal = p
	}
	return e.Authorize(ctx, principal, action, subject)
}

// Permissions lists the actions the principal is granted on subject, in
// catalog order.
func (e *Engine) Permissions(principal any, subject any) []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, p := range e.perms.All() {
		if e.decide(principal, p.Name, subject) == Grant {
			out = append(out, p.Name)
		}
	}
	return out
}

/*
====================================
RIGHTS VIEWS
====================================
*/

// DefaultRights returns a copy of the rights currently in effect for tier.
// The super-admin tier reports its canonical full-access buffer.
func (e *Engine) DefaultRights(tier role.Tier) rights.Buffer {
	if e == nil {
		return nil
	}
	switch tier {
	case role.TierSuperAdmin:
		return e.roles.SuperAdminTier().Rights()
	case role.TierAdmin, role.TierUser:
	default:
		return nil
	}
	s := e.snap.Load()
	if s == nil {
		return nil
	}
	if tier == role.TierAdmin {
		return s.admin.Clone()
	}
	return s.user.Clone()
}

// EffectiveRights returns a copy of the buffer decisions for principal are
// evaluated against, or nil when principal is not usable. Super-admins get
// their canonical buffer for display; decisions never read it.
func (e *Engine) EffectiveRights(principal any) rights.Buffer {
	if e == nil {
		return nil
	}
	p, ok := asPrincipal(principal)
	if !ok {
		return nil
	}
	roles := p.Roles()
	if e.roles.IsSuperAdmin(roles) {
		return e.roles.SuperAdminTier().Rights()
	}
	return rights.Buffer(e.selectRights(p, roles)).Clone()
}

// Tier returns the tier derived from the principal's roles, TierUser for
// unusable principals.
func (e *Engine) Tier(principal any) role.Tier {
	p, ok := asPrincipal(principal)
	if e == nil || !ok {
		return role.TierUser
	}
	return e.tierOf(p)
}

// RightsVersion returns the sequence number and load time of the current
// snapshot.
func (e *Engine) RightsVersion() (uint64, time.Time) {
	if e == nil {
		return 0, time.Time{}
	}
	s := e.snap.Load()
	if s == nil {
		return 0, time.Time{}
	}
	return s.version, s.loadedAt
}

/*
====================================
RELOAD / UPDATE
====================================
*/

// Reload pulls the user and admin tier rights from the store and publishes
// them atomically. Concurrent calls share one store round-trip. Tiers the
// store does not know fall back to their canonical roles and, with
// Store.SeedMissing, are written back.
func (e *Engine) Reload(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// the shared round-trip must not inherit one caller's cancellation;
	// each store call is still bounded by Store.LoadTimeout
	ch := e.reloads.DoChan("reload", func() (any, error) {
		return nil, e.reload(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) reload(ctx context.Context) error {
	seq := e.loadSeq.Add(1)
	next := &snapshot{version: seq}
	seeded := make(map[string]string, len(store.StoredTiers))

	for _, tier := range store.StoredTiers {
		buf, wasSeeded, err := e.loadTier(ctx, tier)
		if err != nil {
			e.metrics.Inc(MetricReloadFailure)
			e.logger.Error("rights reload failed",
				slog.String("tier", tier.String()),
				slog.Any("error", err),
			)
			e.emitRights(ctx, AuditEventReload, tier, err, nil)
			return err
		}
		if wasSeeded {
			seeded[tier.String()] = "canonical"
		}
		switch tier {
		case role.TierAdmin:
			next.admin = buf
		default:
			next.user = buf
		}
	}
	next.loadedAt = time.Now().UTC()

	e.publish(next)

	e.metrics.Inc(MetricReloadSuccess)
	e.logger.Debug("rights reloaded", slog.Uint64("version", seq))
	seeded["version"] = strconv.FormatUint(seq, 10)
	e.emitRights(ctx, AuditEventReload, role.TierUser, nil, seeded)
	return nil
}

// publish stores next unless a reload that started later already published.
func (e *Engine) publish(next *snapshot) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	if next.version < e.published {
		return
	}
	e.published = next.version
	e.snap.Store(next)
}

func (e *Engine) loadTier(ctx context.Context, tier role.Tier) (rights.Buffer, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.Store.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Store.LoadTimeout)
		defer cancel()
	}

	buf, err := e.store.DefaultRights(ctx, tier)
	switch {
	case err == nil:
		return buf.Clone(), false, nil
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, false, fmt.Errorf("%w: %s tier: %w", ErrStoreUnavailable, tier, err)
	}

	buf = e.roles.ForTier(tier).Rights()
	if !e.config.Store.SeedMissing {
		return buf, false, nil
	}
	if err := e.store.SetDefaultRights(ctx, tier, buf.Clone()); err != nil {
		e.logger.Warn("seeding canonical rights failed",
			slog.String("tier", tier.String()),
			slog.Any("error", err),
		)
		return buf, false, nil
	}
	e.logger.Info("seeded canonical rights", slog.String("tier", tier.String()))
	return buf, true, nil
}

// UpdateDefaultRights validates buf against the catalogs, writes it to the
// store and reloads. The super-admin tier is never stored. When the write
// succeeds but the reload does not, the error wraps [ErrRightsNotApplied]:
// the store holds buf and the next successful reload publishes it.
func (e *Engine) UpdateDefaultRights(ctx context.Context, tier role.Tier, buf rights.Buffer) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := storedTier(tier); err != nil {
		return err
	}
	if err := e.ValidateRights(buf); err != nil {
		return err
	}

	if err := e.store.SetDefaultRights(ctx, tier, buf.Clone()); err != nil {
		err = fmt.Errorf("%w: %s tier: %w", ErrStoreUnavailable, tier, err)
		e.emitRights(ctx, AuditEventUpdate, tier, err, nil)
		return err
	}

	e.metrics.Inc(MetricRightsUpdated)
	e.logger.Info("default rights updated", slog.String("tier", tier.String()))
	e.emitRights(ctx, AuditEventUpdate, tier, nil, map[string]string{"rights": buf.Encode()})

	// a reload already in flight may have read the store before the write
	e.reloads.Forget("reload")
	if err := e.Reload(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRightsNotApplied, err)
	}
	return nil
}

// UpdateResourceRights replaces the mask of one resource in a tier with the
// named permissions and returns the tier buffer that was stored. The buffer
// is also returned alongside [ErrRightsNotApplied].
func (e *Engine) UpdateResourceRights(ctx context.Context, tier role.Tier, resourceName string, permissions []string) (rights.Buffer, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := storedTier(tier); err != nil {
		return nil, err
	}
	offset, ok := e.resources.Lookup(resourceName)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidRights, role.ErrUnknownResource, resourceName)
	}
	mask, err := e.perms.Mask(permissions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRights, err)
	}

	next, err := e.DefaultRights(tier).Grow(e.resources.MaxOffset()+1).Set(offset, mask)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRights, err)
	}
	if err := e.UpdateDefaultRights(ctx, tier, next); err != nil {
		if errors.Is(err, ErrRightsNotApplied) {
			return next, err
		}
		return nil, err
	}
	return next, nil
}

// ValidateRights checks that buf only sets known permission bits at known
// resource offsets.
func (e *Engine) ValidateRights(buf rights.Buffer) error {
	for offset, b := range buf {
		if b == 0 {
			continue
		}
		if _, known := e.resources.Name(offset); !known {
			return fmt.Errorf("%w: offset %d is not a resource", ErrInvalidRights, offset)
		}
		if !e.perms.Covers(int(b)) {
			return fmt.Errorf("%w: offset %d holds unknown bits %#x", ErrInvalidRights, offset, b)
		}
	}
	return nil
}

func storedTier(tier role.Tier) error {
	switch tier {
	case role.TierUser, role.TierAdmin:
		return nil
	case role.TierSuperAdmin:
		return ErrTierNotStored
	default:
		return fmt.Errorf("%w: %s", role.ErrUnknownTier, tier)
	}
}

// StartRefresher reloads every interval until ctx is done or the engine is
// closed. Failed reloads keep the previous snapshot.
func (e *Engine) StartRefresher(ctx context.Context, interval time.Duration) {
	if e == nil || interval <= 0 {
		return
	}
	e.lifeMu.Lock()
	if e.closed.Load() {
		e.lifeMu.Unlock()
		return
	}
	e.wg.Add(1)
	e.lifeMu.Unlock()
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stop:
				return
			case <-ticker.C:
				if err := e.Reload(ctx); err != nil {
					e.logger.Warn("background rights reload failed", slog.Any("error", err))
				}
			}
		}
	}()
}
