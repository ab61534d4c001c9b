package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goRights "github.com/MrEthical07/goRights"
	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/role"
	"github.com/MrEthical07/goRights/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		principals  = flag.Int("principals", 10000, "number of synthetic principals")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 1000000, "decisions per phase")
		writes      = flag.Int("writes", 200, "tier rights writes during the contended phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", store.DefaultRedisPrefix, "rights key prefix")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 || *writes < 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency and ops must be > 0, writes >= 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := goRights.New().
		WithStore(store.NewRedis(client, *prefix)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		BuildContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	population := buildPrincipals(*principals)
	queries := buildQueries()

	steady := runDecidePhase(engine, population, queries, *ops, *concurrency, nil)
	contended := runDecidePhase(engine, population, queries, *ops, *concurrency, func(stop <-chan struct{}) int64 {
		return writeLoop(ctx, engine, *writes, stop)
	})

	fmt.Println("---- results ----")
	printStats("decide", steady)
	printStats("decide+writes", contended)

	snap := engine.MetricsSnapshot()
	fmt.Printf("grant=%d deny=%d abstain=%d reloads=%d reload_failures=%d\n",
		snap.Counters[goRights.MetricDecisionGrant],
		snap.Counters[goRights.MetricDecisionDeny],
		snap.Counters[goRights.MetricDecisionAbstain],
		snap.Counters[goRights.MetricReloadSuccess],
		snap.Counters[goRights.MetricReloadFailure],
	)
}

type query struct {
	action   string
	resource string
}

// buildPrincipals mixes tiers roughly 90/9/1 with a few override and
// disabled principals.
func buildPrincipals(n int) []*goRights.User {
	out := make([]*goRights.User, n)
	for i := range out {
		u := &goRights.User{ID: fmt.Sprintf("u-%d", i), RoleNames: []string{role.NameUser}}
		switch {
		case i%100 == 0:
			u.RoleNames = append(u.RoleNames, role.NameSuperAdmin)
		case i%10 == 0:
			u.RoleNames = append(u.RoleNames, role.NameAdmin)
		case i%37 == 0:
			u.UseOwnRights = true
			u.Rights = role.Default().UserTier().Rights()
		case i%53 == 0:
			u.Disabled = true
		}
		out[i] = u
	}
	return out
}

func buildQueries() []query {
	var out []query
	for _, p := range permission.Default().All() {
		for _, r := range resource.Default().All() {
			out = append(out, query{action: p.Name, resource: r.Name})
		}
	}
	// a sprinkle of unknown queries
	out = append(out, query{action: "fly", resource: resource.Customer}, query{action: permission.Show, resource: "Warehouse"})
	return out
}

// writeLoop flips the user tier Product mask until writes are done or stop
// closes, and returns the number of failed writes.
func writeLoop(ctx context.Context, engine *goRights.Engine, writes int, stop <-chan struct{}) int64 {
	var failures int64
	for i := 0; i < writes; i++ {
		select {
		case <-stop:
			return failures
		default:
		}
		perms := []string{permission.List, permission.Show}
		if i%2 == 1 {
			perms = append(perms, permission.Edit)
		}
		if _, err := engine.UpdateResourceRights(ctx, role.TierUser, resource.Product, perms); err != nil {
			failures++
		}
	}
	return failures
}

func runDecidePhase(
	engine *goRights.Engine,
	population []*goRights.User,
	queries []query,
	ops, concurrency int,
	background func(stop <-chan struct{}) int64,
) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		abstains  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	stop := make(chan struct{})
	bgDone := make(chan int64, 1)
	if background != nil {
		go func() { bgDone <- background(stop) }()
	} else {
		bgDone <- 0
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				p := population[r.Intn(len(population))]
				q := queries[r.Intn(len(queries))]
				t0 := time.Now()
				d := engine.Decide(p, q.action, q.resource)
				local = append(local, time.Since(t0))
				if d == goRights.Abstain {
					atomic.AddInt64(&abstains, 1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	close(stop)
	writeFailures := <-bgDone

	s := computeStats(total, latencies)
	s.abstains = abstains
	s.writeFailures = writeFailures
	return s
}

type phaseStats struct {
	total         time.Duration
	ops           int
	abstains      int64
	writeFailures int64
	p50           time.Duration
	p95           time.Duration
	p99           time.Duration
	opsPerS       float64
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d abstains=%d write_failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.abstains,
		s.writeFailures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Nanosecond),
		s.p95.Round(time.Nanosecond),
		s.p99.Round(time.Nanosecond),
	)
}
