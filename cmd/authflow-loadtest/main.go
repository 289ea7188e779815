// Command authflow-loadtest drives many concurrent wizard sessions against a
// Redis-backed profile store and reports latency percentiles per phase.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/prometheus"
	"github.com/MrEthical07/authflow/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

const loadPassword = "Load123!"

func main() {
	var (
		profiles    = pflag.Int("profiles", 1000, "number of profiles to seed")
		concurrency = pflag.Int("concurrency", 64, "number of concurrent workers")
		ops         = pflag.Int("ops", 5000, "operations per phase (sign-in + sign-up)")
		contested   = pflag.Int("contested", 100, "distinct emails raced during the sign-up phase")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = pflag.String("prefix", "afload", "redis key prefix")
		argonMemory = pflag.Uint32("argon-memory", 8*1024, "argon2id memory in KB")
		argonTime   = pflag.Uint32("argon-time", 1, "argon2id iterations")
		showMetrics = pflag.Bool("metrics", false, "print controller metrics in Prometheus text format")
		showOTel    = pflag.Bool("otel", false, "print controller counters as collected through OpenTelemetry")
	)
	pflag.Parse()

	if *profiles <= 0 || *concurrency <= 0 || *ops <= 0 || *contested <= 0 {
		fmt.Fprintln(os.Stderr, "profiles, concurrency, ops, and contested must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, where, closeRedis, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer closeRedis()
	fmt.Println("using", where)

	cfg := authflow.DefaultConfig()
	cfg.Password.Memory = *argonMemory
	cfg.Password.Time = *argonTime
	cfg.Password.Parallelism = 1
	cfg.Redis.KeyPrefix = *prefix
	cfg.Metrics.EnableLatencyHistograms = true

	c, store, err := newController(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build controller: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	seedStart := time.Now()
	emails, err := seedProfiles(ctx, store, cfg, *profiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d profiles in %s\n", len(emails), time.Since(seedStart).Round(time.Millisecond))

	signIn := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		return signInFlow(ctx, c, emails[r.Intn(len(emails))], cfg.TwoFactor.StaticCode)
	})

	var created atomic.Int64
	signUp := runPhase(*ops, *concurrency, func(_ *rand.Rand, i int) error {
		ok, err := signUpFlow(ctx, c, fmt.Sprintf("contested-%d@load.test", i%*contested))
		if ok {
			created.Add(1)
		}
		return err
	})

	fmt.Println("== results")
	printStats(os.Stdout, "signin", signIn)
	printStats(os.Stdout, "signup", signUp)
	fmt.Printf("signup: created=%d contested=%d\n", created.Load(), *contested)

	if *showMetrics {
		fmt.Println("== prometheus")
		fmt.Print(prometheus.NewPrometheusExporter(c).Render())
	}
	if *showOTel {
		sums, err := collectOTel(ctx, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "otel collect: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("== otel")
		printSums(os.Stdout, sums)
	}
}

func newController(client redis.UniversalClient, cfg authflow.Config) (*authflow.Controller, *redisstore.Store, error) {
	hasher, err := authflow.NewPasswordHasher(cfg.Password)
	if err != nil {
		return nil, nil, err
	}
	store := redisstore.New(client, cfg.Redis.KeyPrefix, hasher)
	c, err := authflow.New().
		WithConfig(cfg).
		WithProfileStore(store).
		WithPasswordHasher(hasher).
		WithActivitySink(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return c, store, nil
}

// seedProfiles stores n profiles sharing one password hash.
func seedProfiles(ctx context.Context, store *redisstore.Store, cfg authflow.Config, n int) ([]string, error) {
	hasher, err := authflow.NewPasswordHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, err
	}

	emails := make([]string, n)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@load.test", i)
		if _, err := store.CreateProfile(ctx, authflow.NewProfile{
			Email:        emails[i],
			Name:         fmt.Sprintf("User %d", i),
			PasswordHash: hash,
		}); err != nil {
			return nil, err
		}
	}
	return emails, nil
}

// connect dials addr, falling back to $REDIS_ADDR and then to an in-process
// miniredis. where describes the choice for the banner.
func connect(addr string) (client redis.UniversalClient, where string, closeFn func(), err error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	var mr *miniredis.Miniredis
	if addr == "" {
		if mr, err = miniredis.Run(); err != nil {
			return nil, "", nil, err
		}
		addr = mr.Addr()
	}

	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	closeFn = func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	where = "redis at " + addr
	if mr != nil {
		where = "miniredis at " + addr
	}
	return client, where, closeFn, nil
}

// runPhase feeds op indexes 0..ops-1 to concurrency workers and records the
// latency of every call.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	jobs := make(chan int, concurrency)
	samples := make([][]time.Duration, concurrency)
	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(start.UnixNano() ^ int64(w+1)<<20))
			for i := range jobs {
				t0 := time.Now()
				if err := op(r, i); err != nil {
					failures.Add(1)
				}
				samples[w] = append(samples[w], time.Since(t0))
			}
		}()
	}
	for i := range ops {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return computeStats(time.Since(start), slices.Concat(samples...), failures.Load())
}

func signInFlow(ctx context.Context, c *authflow.Controller, email, code string) error {
	sess := c.NewSession()
	defer sess.Close()

	steps := []authflow.Event{
		authflow.SubmitEmail(email),
		authflow.SubmitPassword(loadPassword),
		authflow.SubmitCode(code, "totp"),
	}
	for _, ev := range steps {
		if _, err := sess.Dispatch(ctx, ev); err != nil {
			return err
		}
	}
	if st := sess.State(); st.Step != authflow.StepSuccess {
		return fmt.Errorf("sign-in ended in %s", st.Step)
	}
	return nil
}

// signUpFlow reports whether this session created the profile. Losing the
// race is not an error: the wizard redirects to sign-in.
func signUpFlow(ctx context.Context, c *authflow.Controller, email string) (bool, error) {
	sess := c.NewSession()
	defer sess.Close()

	if _, err := sess.Dispatch(ctx, authflow.StartSignUp()); err != nil {
		return false, err
	}
	st, err := sess.Dispatch(ctx, authflow.SubmitSignUp(authflow.SignUpForm{
		Email:       email,
		Name:        "Load Test",
		Password:    loadPassword,
		Confirm:     loadPassword,
		AcceptTerms: true,
	}))
	if err != nil {
		return false, err
	}
	switch st.Step {
	case authflow.StepTwoFactor:
		return true, nil
	case authflow.StepSignIn:
		return false, nil
	default:
		return false, fmt.Errorf("sign-up ended in %s", st.Step)
	}
}
