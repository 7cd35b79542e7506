// SPDX-License-Identifier: Apache-2.0

// Command telos runs a goal against a demo capability registry. It is the
// reference host wiring: config, logging, telemetry, session persistence,
// and both orchestration modes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jllopis/telos/pkg/config"
	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/engine"
	"github.com/jllopis/telos/pkg/orchestrate"
	"github.com/jllopis/telos/pkg/registry"
	"github.com/jllopis/telos/pkg/resilience"
	"github.com/jllopis/telos/pkg/resolve"
	"github.com/jllopis/telos/pkg/session"
	"github.com/jllopis/telos/pkg/store"
	"github.com/jllopis/telos/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		configPath = flag.String("config", "", "path to telos.yaml")
		mode       = flag.String("mode", "", "override orchestration mode (plan_first, reactive)")
		goalTypes  = flag.String("goal", "WeatherContext", "comma-separated context types the goal requires")
		refresh    = flag.String("refresh", "", "comma-separated context types to refresh even if present")
		terminal   = flag.String("terminal", "respond", "terminal capability id (empty for none)")
		sessionID  = flag.String("session", "", "resume an existing session id")
		asJSON     = flag.Bool("json", false, "print the run result as JSON")
	)
	flag.Parse()

	if err := run(ctx, *configPath, *mode, *goalTypes, *refresh, *terminal, *sessionID, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "telos:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, mode, goalTypes, refresh, terminal, sessionID string, asJSON bool) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		// Watch the config file so log level and format changes apply
		// without a restart. Orchestration settings stay fixed per run.
		watcher, werr := config.NewWatcher(configPath)
		if werr != nil {
			return werr
		}
		watcher.OnChange(func(next *config.Config) {
			telemetry.ConfigureSlog(os.Stderr, next.Log.Level, next.Log.Format)
		})
		watcher.Start(ctx)
		defer watcher.Stop()
		cfg = watcher.Config()
	} else {
		cfg, err = config.Load("")
		if err != nil {
			return err
		}
	}
	if mode != "" {
		cfg.Orchestration.Mode = mode
	}

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	shutdown, err := telemetry.InitWithConfig("telos", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	st := store.New()
	if cfg.Types.Dir != "" {
		types, err := store.LoadTypesDir(cfg.Types.Dir)
		if err != nil {
			return err
		}
		for _, ct := range types {
			if err := st.RegisterType(ct); err != nil {
				return err
			}
		}
	} else {
		registerDemoTypes(st)
	}

	persist, err := openPersistence(cfg.Persistence)
	if err != nil {
		return err
	}

	sessionOpts := []session.Option{session.WithPersistence(persist)}
	if sessionID != "" {
		sessionOpts = append(sessionOpts, session.WithID(sessionID))
	}
	sess, err := session.Open(ctx, st, sessionOpts...)
	if err != nil {
		return err
	}
	ctx = sess.Context(ctx)
	sess.BeginTurn(ctx)

	reg := registry.New()
	if err := registerDemoCapabilities(reg); err != nil {
		return err
	}

	priority := cfg.Orchestration.TieBreakPriority
	if len(priority) == 0 {
		priority = demoTieBreak
	}
	resolver := resolve.New(reg, st,
		resolve.WithTieBreaker(resolve.Priority{Order: priority}))

	eng := engine.New(st,
		engine.WithDefaults(core.Limits{
			Timeout: cfg.Orchestration.CapabilityTimeout,
			Retries: cfg.Orchestration.Retries,
		}),
		engine.WithRetryConfig(resilience.DefaultRetryConfig()))

	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return err
	}

	opts := []orchestrate.Option{
		orchestrate.WithMode(orchestrate.Mode(cfg.Orchestration.Mode)),
		orchestrate.WithMaxSteps(cfg.Orchestration.MaxReactiveSteps),
		orchestrate.WithMaxParallel(cfg.Orchestration.MaxParallel),
		orchestrate.WithRunTimeout(cfg.Orchestration.RunTimeout),
		orchestrate.WithEmitter(metrics.Emitter()),
	}
	if cfg.Persistence.Backend == "sqlite" {
		audit, err := orchestrate.OpenSQLiteAuditStore(cfg.Persistence.Path)
		if err != nil {
			return err
		}
		defer audit.Close()
		opts = append(opts, orchestrate.WithAuditStore(audit))
	}
	o := orchestrate.New(resolver, eng, opts...)

	goal := core.Goal{
		Require:  splitTypes(goalTypes),
		Refresh:  splitTypes(refresh),
		Terminal: terminal,
	}
	result, runErr := o.Run(ctx, goal)
	if runErr != nil {
		metrics.RecordResolutionFailure(ctx, runErr)
	}

	if err := sess.Close(ctx); err != nil {
		slog.Error("session save", "error", err)
	}

	printResult(result, st, asJSON)
	return runErr
}

func openPersistence(cfg config.PersistenceConfig) (store.Persistence, error) {
	switch cfg.Backend {
	case "", "none":
		return store.NopPersistence{}, nil
	case "file":
		return store.NewFilePersistence(cfg.Path)
	case "sqlite":
		return store.OpenSQLitePersistence(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}

func splitTypes(list string) []store.TypeName {
	var out []store.TypeName
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, store.TypeName(part))
		}
	}
	return out
}

func printResult(result *orchestrate.RunResult, st *store.Store, asJSON bool) {
	if result == nil {
		return
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}
	fmt.Printf("run %s (%s): satisfied=%t terminal=%t in %s\n",
		result.RunID, result.Mode, result.Satisfied, result.Terminal, result.Duration.Round(time.Millisecond))
	for _, step := range result.Steps {
		fmt.Printf("  %-8s %-10s %s\n", step.ID, step.Status, step.Capability)
	}
	if rec, ok := st.Lookup("WeatherContext"); ok {
		fmt.Printf("weather: %v\n", rec.Payload)
	}
}
