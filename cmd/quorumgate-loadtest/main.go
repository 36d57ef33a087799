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

	"github.com/alicebob/miniredis/v2"
	quorumgate "github.com/quorumgate/quorumgate"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (authenticate + verify)")
		origins     = flag.Int("origins", 64, "distinct request origins to spread velocity across")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "qg", "dedupe key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *origins <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and origins must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := quorumgate.DefaultConfig()
	cfg.Validation.MinimumQuorum = 2
	cfg.Validation.FraudThreshold = 0.5
	cfg.Cache.RedisPrefix = *prefix
	cfg.Fraud.HistoryCap = 10000

	engine, err := quorumgate.New().
		WithConfig(cfg).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	authStats, tokens := runAuthenticatePhase(ctx, engine, *ops, *concurrency, *origins)
	verifyStats := runVerifyPhase(engine, tokens, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("verify", verifyStats)
}

func runAuthenticatePhase(ctx context.Context, engine *quorumgate.Engine, ops, concurrency, origins int) (phaseStats, []string) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		tokens    = make([]string, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				req := buildRequest(i, i%origins)
				t0 := time.Now()
				tok, _, err := engine.Authenticate(ctx, req)
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err != nil {
					failures++
				} else {
					tokens = append(tokens, tok)
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), tokens
}

func runVerifyPhase(engine *quorumgate.Engine, tokens []string, ops, concurrency int) phaseStats {
	if len(tokens) == 0 {
		return phaseStats{}
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				tok := tokens[r.Intn(len(tokens))]
				t0 := time.Now()
				_, err := engine.VerifyToken(tok)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func buildRequest(i, origin int) *quorumgate.AuthenticationRequest {
	return &quorumgate.AuthenticationRequest{
		ID:        fmt.Sprintf("req-%d", i),
		Timestamp: time.Now().UnixMilli(),
		Data: map[string]any{
			"resource": "records",
			"action":   "read",
			"sequence": i,
		},
		Metadata: &quorumgate.RequestMetadata{
			Origin:     fmt.Sprintf("clinic-%d", origin),
			UserAgent:  "quorumgate-loadtest/1.0",
			IPAddress:  fmt.Sprintf("10.0.%d.%d", origin%250, i%250),
			Department: "cardiology",
		},
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
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
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
