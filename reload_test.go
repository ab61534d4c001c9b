package goRights

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
	"github.com/MrEthical07/goRights/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// flakyStore fails reads while failing is set and counts round-trips.
type flakyStore struct {
	store.Store
	failing atomic.Bool
	reads   atomic.Int64
}

var errBackendDown = errors.New("backend down")

func (s *flakyStore) DefaultRights(ctx context.Context, tier role.Tier) (rights.Buffer, error) {
	s.reads.Add(1)
	if s.failing.Load() {
		return nil, errBackendDown
	}
	return s.Store.DefaultRights(ctx, tier)
}

func TestReloadSeedsRedis(t *testing.T) {
	mr, rdb := newTestRedis(t)
	st := store.NewRedis(rdb, "gr")

	engine, err := New().WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	raw, err := mr.Get(st.Key(role.TierAdmin))
	if err != nil {
		t.Fatalf("admin tier not seeded: %v", err)
	}
	if !rights.Buffer(raw).Equal(role.Default().AdminTier().Rights()) {
		t.Fatalf("seeded admin rights differ from canonical")
	}
	if !mr.Exists(st.Key(role.TierUser)) {
		t.Fatalf("user tier not seeded")
	}
	if mr.Exists("gr:rights:super_admin") {
		t.Fatalf("super-admin rights must never be stored")
	}
}

func TestReloadWithoutSeeding(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := DefaultConfig()
	cfg.Store.SeedMissing = false

	engine, err := New().WithConfig(cfg).WithStore(store.NewRedis(rdb, "")).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no writes, got keys %v", mr.Keys())
	}
	if engine.Decide(&User{}, permission.Show, resource.Customer) != Grant {
		t.Fatalf("canonical fallback should still apply")
	}
}

func TestReloadPicksUpExternalWrites(t *testing.T) {
	mr, rdb := newTestRedis(t)
	st := store.NewRedis(rdb, "gr")
	engine, err := New().WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	user := &User{RoleNames: []string{role.NameUser}}
	if engine.Decide(user, permission.Delete, resource.Customer) != Deny {
		t.Fatalf("user must not delete customers before the write")
	}

	offset := resource.Default().Offset(resource.Customer)
	buf, _ := role.Default().UserTier().Rights().Set(offset, permission.Default().Full())
	if err := mr.Set(st.Key(role.TierUser), string(buf)); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	if engine.Decide(user, permission.Delete, resource.Customer) != Deny {
		t.Fatalf("decisions must not see store writes before a reload")
	}
	before, _ := engine.RightsVersion()
	if err := engine.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	after, _ := engine.RightsVersion()
	if after <= before {
		t.Fatalf("version did not advance: %d -> %d", before, after)
	}
	if engine.Decide(user, permission.Delete, resource.Customer) != Grant {
		t.Fatalf("reloaded rights should grant delete")
	}
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	st := &flakyStore{Store: store.NewMemory()}
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	engine, err := New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	version, _ := engine.RightsVersion()
	st.failing.Store(true)

	err = engine.Reload(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, errBackendDown) {
		t.Fatalf("expected wrapped ErrStoreUnavailable, got %v", err)
	}
	if v, _ := engine.RightsVersion(); v != version {
		t.Fatalf("failed reload replaced the snapshot")
	}
	if engine.Decide(&User{}, permission.Show, resource.Customer) != Grant {
		t.Fatalf("decisions should keep using the last snapshot")
	}
	if engine.MetricsSnapshot().Counters[MetricReloadFailure] != 1 {
		t.Fatalf("reload failure not counted")
	}
}

func TestBuildFailsWhenStoreUnavailable(t *testing.T) {
	st := &flakyStore{Store: store.NewMemory()}
	st.failing.Store(true)
	if _, err := New().WithStore(st).Build(); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	mr, rdb := newTestRedis(t)
	mr.Close()
	if _, err := New().WithStore(store.NewRedis(rdb, "")).Build(); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable with redis down, got %v", err)
	}
}

func TestUpdateDefaultRights(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	st := store.NewRedis(rdb, "gr")
	engine, err := New().WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	admin := &User{RoleNames: []string{role.NameAdmin}}
	next, err := engine.UpdateResourceRights(ctx, role.TierAdmin, resource.GlobalMargin, []string{permission.Show})
	if err != nil {
		t.Fatalf("UpdateResourceRights failed: %v", err)
	}
	if engine.Decide(admin, permission.Edit, resource.GlobalMargin) != Deny {
		t.Fatalf("admin edit on GlobalMargin should be revoked")
	}
	if engine.Decide(admin, permission.Show, resource.GlobalMargin) != Grant {
		t.Fatalf("admin show on GlobalMargin should remain")
	}

	stored, err := st.DefaultRights(ctx, role.TierAdmin)
	if err != nil || !stored.Equal(next) {
		t.Fatalf("store holds %v (%v), want %v", stored, err, next)
	}
	if !engine.DefaultRights(role.TierAdmin).Equal(next) {
		t.Fatalf("snapshot not updated")
	}
}

func TestUpdateCommittedButReloadFailed(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemory()
	st := &flakyStore{Store: backing}
	engine, err := New().WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	user := &User{RoleNames: []string{role.NameUser}}
	st.failing.Store(true)

	next, err := engine.UpdateResourceRights(ctx, role.TierUser, resource.Product, []string{permission.Show})
	if !errors.Is(err, ErrRightsNotApplied) {
		t.Fatalf("expected ErrRightsNotApplied, got %v", err)
	}
	if next == nil {
		t.Fatalf("stored buffer should be returned with ErrRightsNotApplied")
	}
	stored, err := backing.DefaultRights(ctx, role.TierUser)
	if err != nil || !stored.Equal(next) {
		t.Fatalf("write should have committed: %v (%v)", stored, err)
	}
	if engine.Decide(user, permission.List, resource.Product) != Grant {
		t.Fatalf("previous snapshot should stay in effect until a reload succeeds")
	}

	st.failing.Store(false)
	if err := engine.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if engine.Decide(user, permission.List, resource.Product) != Deny {
		t.Fatalf("committed rights should apply after the next reload")
	}
}

// gatedStore blocks reads while gated until release is closed.
type gatedStore struct {
	store.Store
	gated   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) DefaultRights(ctx context.Context, tier role.Tier) (rights.Buffer, error) {
	if s.gated.Load() {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		<-s.release
	}
	return s.Store.DefaultRights(ctx, tier)
}

func TestCancelledCallerDoesNotFailSharedReload(t *testing.T) {
	st := &gatedStore{
		Store:   store.NewMemory(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine, err := New().WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	version, _ := engine.RightsVersion()

	st.gated.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- engine.Reload(ctx) }()
	<-st.entered

	second := make(chan error, 1)
	go func() { second <- engine.Reload(context.Background()) }()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}

	close(st.release)
	if err := <-second; err != nil {
		t.Fatalf("second caller should not see the first caller's cancellation: %v", err)
	}
	if v, _ := engine.RightsVersion(); v <= version {
		t.Fatalf("shared reload should have published, version %d -> %d", version, v)
	}
}

func TestUpdateDefaultRightsRejected(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, nil)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "super-admin tier",
			run:  func() error { return engine.UpdateDefaultRights(ctx, role.TierSuperAdmin, rights.Buffer{}) },
			want: ErrTierNotStored,
		},
		{
			name: "unknown tier",
			run:  func() error { return engine.UpdateDefaultRights(ctx, role.Tier(9), rights.Buffer{}) },
			want: role.ErrUnknownTier,
		},
		{
			name: "zero padding beyond catalog",
			run: func() error {
				return engine.UpdateDefaultRights(ctx, role.TierUser, make(rights.Buffer, 12))
			},
			want: nil,
		},
		{
			name: "byte at unknown offset",
			run: func() error {
				buf, _ := rights.Buffer(nil).Set(40, 1)
				return engine.UpdateDefaultRights(ctx, role.TierUser, buf)
			},
			want: ErrInvalidRights,
		},
		{
			name: "unknown permission bits",
			run: func() error {
				buf, _ := rights.Buffer(nil).Set(0, 0x80)
				return engine.UpdateDefaultRights(ctx, role.TierUser, buf)
			},
			want: ErrInvalidRights,
		},
		{
			name: "unknown resource",
			run: func() error {
				_, err := engine.UpdateResourceRights(ctx, role.TierUser, "Warehouse", []string{permission.Show})
				return err
			},
			want: ErrInvalidRights,
		},
		{
			name: "unknown permission",
			run: func() error {
				_, err := engine.UpdateResourceRights(ctx, role.TierUser, resource.Product, []string{"fly"})
				return err
			},
			want: permission.ErrUnknownPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected zero padding to be accepted, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConcurrentDecisionsDuringReloads(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := context.Background()
	user := &User{RoleNames: []string{role.NameUser}}

	var stop atomic.Bool
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				if d := engine.Decide(user, permission.Show, resource.Product); d == Abstain {
					t.Errorf("supported query abstained")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		perms := []string{permission.Show}
		if i%2 == 0 {
			perms = nil
		}
		if _, err := engine.UpdateResourceRights(ctx, role.TierUser, resource.Product, perms); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}
	stop.Store(true)
	wg.Wait()

	// the last update (i=49) granted show
	if engine.Decide(user, permission.Show, resource.Product) != Grant {
		t.Fatalf("last write should be visible")
	}
}

func TestConcurrentReloadsShareRoundTrip(t *testing.T) {
	st := &flakyStore{Store: store.NewMemory()}
	engine, err := New().WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	before := st.reads.Load()
	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := engine.Reload(context.Background()); err != nil {
				t.Errorf("Reload failed: %v", err)
			}
		}()
	}
	wg.Wait()

	reads := st.reads.Load() - before
	if reads == 0 || reads > int64(n*len(store.StoredTiers)) {
		t.Fatalf("unexpected store reads %d", reads)
	}
}

func TestRefresherReloadsInBackground(t *testing.T) {
	mr, rdb := newTestRedis(t)
	st := store.NewRedis(rdb, "gr")
	cfg := DefaultConfig()
	cfg.Store.RefreshInterval = 100 * time.Millisecond

	engine, err := New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if err := mr.Set(st.Key(role.TierUser), ""); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if engine.Decide(&User{}, permission.Show, resource.Customer) == Deny {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("refresher never picked up the emptied user tier")
}

func TestCloseIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, nil)
	engine.Close()
	engine.Close()
	if engine.Decide(&User{}, permission.Show, resource.Customer) != Grant {
		t.Fatalf("decisions should work after Close")
	}
	engine.StartRefresher(context.Background(), time.Second)
}

func TestRefresherStartRacesClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		engine, err := New().Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			engine.StartRefresher(context.Background(), time.Millisecond)
		}()
		go func() {
			defer wg.Done()
			engine.Close()
		}()
		wg.Wait()

		// both are no-ops once closed
		engine.Close()
		engine.StartRefresher(context.Background(), time.Millisecond)
	}
}
