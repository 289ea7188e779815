package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/store/redisstore"
	"github.com/MrEthical07/authflow/store/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	storeMemoryRedis = "memory-redis"
	storeRedis       = "redis"
	storeSQLite      = "sqlite"
	storePostgres    = "postgres"
)

type backendOptions struct {
	kind        string
	redisAddr   string
	sqlitePath  string
	postgresDSN string
	activityLog string
	seed        string
}

// backend is everything the wizard needs besides the controller.
type backend struct {
	store    authflow.ProfileStore
	activity authflow.ActivitySink
	resets   authflow.ResetCodeIssuer
	trackers func(subject string) authflow.NoticeTracker
	closers  []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openBackend builds the stores selected by opts. deliver receives issued
// reset codes.
func openBackend(ctx context.Context, opts backendOptions, cfg authflow.Config, hasher *password.Argon2, deliver authflow.CodeDelivery, logger *slog.Logger) (*backend, error) {
	b := &backend{}
	sinks := authflow.MultiActivitySink{}

	switch opts.kind {
	case storeMemoryRedis, storeRedis:
		addr := opts.redisAddr
		if opts.kind == storeMemoryRedis {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			b.closers = append(b.closers, func() error { mr.Close(); return nil })
			addr = mr.Addr()
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		b.closers = append(b.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		logger.Info("using redis", slog.String("addr", addr))

		rs := redisstore.New(client, cfg.Redis.KeyPrefix, hasher)
		resets, err := authflow.NewRedisResetCodes(client, cfg, 5, deliver)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.store = rs
		b.resets = resets
		sinks = append(sinks, rs)
		b.trackers = func(subject string) authflow.NoticeTracker {
			return authflow.NewRedisNoticeTracker(client, cfg.Redis.KeyPrefix, subject)
		}

	case storeSQLite, storePostgres:
		var (
			ss  *sqlstore.Store
			err error
		)
		if opts.kind == storeSQLite {
			ss, err = sqlstore.Open(ctx, opts.sqlitePath, hasher)
		} else {
			ss, err = sqlstore.OpenPostgres(ctx, opts.postgresDSN, hasher)
		}
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, ss.Close)
		logger.Info("using sql store", slog.String("kind", opts.kind))

		b.store = ss
		b.resets = authflow.StaticResetCodes{Code: cfg.TwoFactor.StaticCode, Deliver: deliver}
		sinks = append(sinks, ss)
		var mu sync.Mutex
		memory := map[string]*authflow.MemoryNoticeTracker{}
		b.trackers = func(subject string) authflow.NoticeTracker {
			mu.Lock()
			defer mu.Unlock()
			t, ok := memory[subject]
			if !ok {
				t = authflow.NewMemoryNoticeTracker()
				memory[subject] = t
			}
			return t
		}

	default:
		return nil, fmt.Errorf("unknown store %q", opts.kind)
	}

	if opts.activityLog != "" {
		f, err := os.OpenFile(opts.activityLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open activity log: %w", err)
		}
		b.closers = append(b.closers, f.Close)
		sinks = append(sinks, authflow.NewCBORActivitySink(f))
	}
	b.activity = sinks

	if opts.seed != "" {
		if err := seedProfile(ctx, b.store, hasher, opts.seed); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	return b, nil
}

// seedProfile creates "email:password" unless the email is registered.
func seedProfile(ctx context.Context, store authflow.ProfileStore, hasher *password.Argon2, seed string) error {
	email, pw, ok := strings.Cut(seed, ":")
	if !ok || email == "" || pw == "" {
		return fmt.Errorf("seed must be email:password, got %q", seed)
	}
	exists, err := store.EmailExists(ctx, email)
	if err != nil || exists {
		return err
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		return err
	}
	_, err = store.CreateProfile(ctx, authflow.NewProfile{Email: email, Name: "Demo User", PasswordHash: hash})
	if errors.Is(err, authflow.ErrEmailRegistered) {
		return nil
	}
	return err
}
