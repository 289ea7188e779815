// Command authflow runs the sign-in wizard in the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/internal/telemetry"
	"github.com/MrEthical07/authflow/metrics/export/prometheus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const serviceName = "authflow"

type options struct {
	configPath   string
	backend      backendOptions
	logFile      string
	metricsAddr  string
	noticesPath  string
	totpSecret   string
	dumpActivity string
	report       bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "authflow:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "YAML config file; AUTHFLOW_* env vars are used when empty")
	fs.StringVar(&o.backend.kind, "store", storeMemoryRedis, "profile store: memory-redis, redis, sqlite or postgres")
	fs.StringVar(&o.backend.redisAddr, "redis-addr", "localhost:6379", "redis address for --store=redis")
	fs.StringVar(&o.backend.sqlitePath, "sqlite-path", "authflow.db", "database file for --store=sqlite")
	fs.StringVar(&o.backend.postgresDSN, "postgres-dsn", "", "connection string for --store=postgres")
	fs.StringVar(&o.backend.activityLog, "activity-log", "", "append activity records to this CBOR file")
	fs.StringVar(&o.backend.seed, "seed", "demo@example.com:Demo123!", "profile to create at startup as email:password")
	fs.StringVar(&o.logFile, "log-file", "", "write logs here instead of discarding them")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.StringVar(&o.noticesPath, "notices", "", "YAML file with dashboard notices")
	fs.StringVar(&o.totpSecret, "totp-secret", "", "base32 TOTP secret shared by all profiles when two_factor.mode is totp")
	fs.StringVar(&o.dumpActivity, "dump-activity", "", "print a CBOR activity log as JSON lines and exit")
	fs.BoolVar(&o.report, "report", false, "print the security posture report as YAML and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.dumpActivity != "" {
		return dumpActivity(context.Background(), opts.dumpActivity, os.Stdout)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	notices, err := loadNotices(opts.noticesPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	hasher, err := authflow.NewPasswordHasher(cfg.Password)
	if err != nil {
		return err
	}

	events := make(chan tea.Msg, 64)
	deliver := func(_ context.Context, email, code string) error {
		notify(events, codeMsg{email: email, code: code})
		return nil
	}

	b, err := openBackend(ctx, opts.backend, cfg, hasher, deliver, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	builder := authflow.New().
		WithConfig(cfg).
		WithProfileStore(b.store).
		WithPasswordHasher(hasher).
		WithResetCodes(b.resets).
		WithActivitySink(b.activity).
		WithLogger(logger)

	if cfg.TwoFactor.Mode == authflow.TwoFactorTOTP {
		verifier, err := newTOTP(cfg.TwoFactor, opts.totpSecret, logger)
		if err != nil {
			return err
		}
		builder = builder.WithCodeVerifier(verifier)
	}

	c, err := builder.Build()
	if err != nil {
		return err
	}
	defer c.Close()

	if opts.report {
		return printReport(os.Stdout, c.SecurityReport())
	}

	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, c, logger)
		defer srv.Close()
	}

	m := newWizard(ctx, c, events, b.trackers, notices)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func loadConfig(path string) (authflow.Config, error) {
	if path != "" {
		return authflow.LoadConfigFile(path)
	}
	return authflow.LoadConfigFromEnv("AUTHFLOW_")
}

func loadNotices(path string) ([]authflow.Notice, error) {
	if path == "" {
		return defaultNotices(time.Now()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notices: %w", err)
	}
	var notices []authflow.Notice
	if err := yaml.Unmarshal(data, &notices); err != nil {
		return nil, fmt.Errorf("parse notices %s: %w", path, err)
	}
	return notices, nil
}

func defaultNotices(now time.Time) []authflow.Notice {
	return []authflow.Notice{
		{ID: 1, Title: "Scheduled maintenance", Content: "Sign-in may be slow on Sunday 02:00-04:00 UTC.", Type: "system", Published: true, Pinned: true, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: 2, Title: "Two-factor by SMS", Content: "You can now receive codes by text message.", Type: "feature", Published: true, CreatedAt: now.Add(-24 * time.Hour)},
		{ID: 3, Title: "Draft", Content: "Not published yet.", Type: "feature", CreatedAt: now},
	}
}

func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With(slog.String("component", serviceName))
	return logger, func() { _ = f.Close() }, nil
}

// newTOTP verifies every profile against one shared secret. A fresh secret
// is generated when none is given and its provisioning URI is logged.
func newTOTP(cfg authflow.TwoFactorConfig, secretB32 string, logger *slog.Logger) (*authflow.TOTPVerifier, error) {
	var secret []byte
	holder := authflow.NewTOTPVerifier(cfg, func(context.Context, *authflow.Profile) ([]byte, error) {
		return secret, nil
	})

	if secretB32 == "" {
		raw, encoded, err := holder.GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret, secretB32 = raw, encoded
	} else {
		raw, err := authflow.DecodeTOTPSecret(secretB32)
		if err != nil {
			return nil, err
		}
		secret = raw
	}

	logger.Info("totp enabled", slog.String("uri", holder.ProvisionURI(secretB32, "demo")))
	return holder, nil
}

func serveMetrics(addr string, c *authflow.Controller, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.NewPrometheusExporter(c).Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	return srv
}

func printReport(w io.Writer, r authflow.SecurityReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

func dumpActivity(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := authflow.ReadCBORActivity(f)
	if err != nil {
		return err
	}
	sink := authflow.NewJSONActivitySink(w)
	for _, r := range records {
		if err := sink.RecordActivity(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
