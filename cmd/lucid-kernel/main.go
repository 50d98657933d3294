// Command lucid-kernel runs the Lucid scriptable agent runtime: a Lua
// script bridge wired to tools, providers, RAG, and sessions, fronted by
// an HTTP health/diagnostics surface.
//
// Usage:
//
//	lucid-kernel run --script hello.lua         # execute a script and print its result
//	lucid-kernel serve --config kernel.yaml     # start the HTTP health/diagnostics server
//	lucid-kernel version                        # show version information
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lucidkernel/runtime/bridge"
	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/config"
	"github.com/lucidkernel/runtime/event"
	"github.com/lucidkernel/runtime/hook"
	internalcache "github.com/lucidkernel/runtime/internal/cache"
	"github.com/lucidkernel/runtime/internal/telemetry"
	"github.com/lucidkernel/runtime/kernel"
	"github.com/lucidkernel/runtime/perf"
	"github.com/lucidkernel/runtime/provider"
	"github.com/lucidkernel/runtime/rag"
	"github.com/lucidkernel/runtime/session"
	"github.com/lucidkernel/runtime/storage/mongostore"
	"github.com/lucidkernel/runtime/storage/ttlcache"
	"github.com/lucidkernel/runtime/tool"
	"github.com/lucidkernel/runtime/vector"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "lucid-kernel",
		Short:         "Scriptable agent runtime kernel",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to kernel config file (YAML)")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("lucid-kernel %s\n", Version)
			fmt.Printf("  build time: %s\n", BuildTime)
			fmt.Printf("  git commit: %s\n", GitCommit)
			return nil
		},
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	var scriptPath string
	var scriptArgs []string
	var enableRAG bool
	var enableSessions bool
	var enableTrace bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a Lua script against the kernel and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scriptPath == "" && len(args) == 0 {
				return fmt.Errorf("lucid-kernel run: provide --script <path> or an inline script argument")
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer logger.Sync()

			rt, err := bootstrap(cmd.Context(), cfg, logger, bootstrapOptions{
				rag:      enableRAG,
				sessions: enableSessions,
				trace:    enableTrace,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "lucid-kernel: startup failed: %v\n", err)
				os.Exit(2)
			}
			defer rt.shutdown(context.Background())

			script, err := readScript(scriptPath, args)
			if err != nil {
				return err
			}

			scriptSession := bridge.NewSession("cli", rt.deps)
			defer scriptSession.Close()
			if parsed, err := parseScriptArgs(scriptArgs); err != nil {
				return err
			} else {
				scriptSession.SetScriptArgs(parsed)
			}

			result, err := scriptSession.ExecuteScript(cmd.Context(), script)
			if err != nil {
				fmt.Fprintf(os.Stderr, "lucid-kernel: script error: %v\n", err)
				os.Exit(1)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "path to a Lua script file")
	cmd.Flags().StringArrayVar(&scriptArgs, "args", nil, "script argument as key=value, repeatable")
	cmd.Flags().BoolVar(&enableRAG, "rag", false, "wire the RAG facade into the script globals")
	cmd.Flags().BoolVar(&enableSessions, "sessions", false, "wire session/artifact globals into the script")
	cmd.Flags().BoolVar(&enableTrace, "trace", false, "initialize OpenTelemetry tracing from config")

	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var enableRAG bool
	var enableSessions bool
	var enableTrace bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kernel's HTTP health/diagnostics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer logger.Sync()

			logger.Info("starting lucid-kernel",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			rt, err := bootstrap(cmd.Context(), cfg, logger, bootstrapOptions{
				rag:      enableRAG,
				sessions: enableSessions,
				trace:    enableTrace,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "lucid-kernel: startup failed: %v\n", err)
				os.Exit(2)
			}
			defer rt.shutdown(context.Background())

			httpServer := &http.Server{
				Addr:    cfg.Kernel.ListenAddr,
				Handler: rt.server.Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("kernel listening", zap.String("addr", cfg.Kernel.ListenAddr))
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("kernel server: %w", err)
			case <-sigCh:
				logger.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&enableRAG, "rag", true, "wire the RAG facade into the script globals")
	cmd.Flags().BoolVar(&enableSessions, "sessions", true, "wire session/artifact globals into the script")
	cmd.Flags().BoolVar(&enableTrace, "trace", false, "initialize OpenTelemetry tracing from config")

	return cmd
}

func readScript(path string, positional []string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read script %s: %w", path, err)
		}
		return string(data), nil
	}
	return strings.Join(positional, " "), nil
}

func parseScriptArgs(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --args value %q, expected key=value", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// initLogger builds a zap logger the way the kernel's own config wants it:
// console encoding for local/dev runs, JSON otherwise.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := cfg.Format
	if encoding == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoding = "json"
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

type bootstrapOptions struct {
	rag      bool
	sessions bool
	trace    bool
}

// runtimeDeps is everything bootstrap wires up; shutdown releases it in
// reverse order.
type runtimeDeps struct {
	deps       bridge.Dependencies
	server     *kernel.Server
	telemetry  *telemetry.Providers
	diagnostic *kernel.Diagnostics
	closers    []func() error
}

func (r *runtimeDeps) shutdown(ctx context.Context) {
	if r.telemetry != nil {
		_ = r.telemetry.Shutdown(ctx)
	}
	for _, closer := range r.closers {
		_ = closer()
	}
}

// bootstrap wires config into the kernel's component registry, providers,
// optional RAG/session layers, the hook/cache/event infrastructure, and the
// HTTP health/diagnostics server.
func bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts bootstrapOptions) (*runtimeDeps, error) {
	registry := component.NewRegistry()
	registry.Register(tool.NewHashCalculator(tool.DefaultHashCalculatorConfig()))
	registry.Register(tool.NewTemplateEngine(tool.DefaultTemplateEngineConfig()))

	providers := provider.NewManager()

	var closers []func() error

	state, err := openStateBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open state backend: %w", err)
	}
	if closer, ok := state.(interface{ Close() error }); ok {
		closers = append(closers, closer.Close)
	}

	deps := bridge.Dependencies{
		Tools:     registry,
		Providers: providers,
		State:     state,
	}

	bus := event.NewBus(func(err error) { logger.Warn("event handler error", zap.Error(err)) })
	deps.EventBus = bus

	replayStore := perf.NewReplayStore()

	if cfg.Mongo.URI != "" {
		eventLog, err := mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, fmt.Errorf("open mongo event log: %w", err)
		}
		replayStore.WithPersister(eventLog)
		bus.Subscribe("*", func(ctx context.Context, ev event.Event) error {
			return eventLog.Append(ctx, "trace", string(ev.Type), map[string]any{
				"source_id": ev.SourceID,
				"timestamp": ev.Timestamp,
				"data":      ev.Data,
			})
		})
	}

	hooks := hook.NewRegistry()
	deps.Hooks = hooks

	l1 := ttlcache.New(10000, 5*time.Minute)
	var l2 hook.L2
	if cfg.Redis.Addr != "" {
		cacheCfg := internalcache.DefaultConfig()
		cacheCfg.Addr = cfg.Redis.Addr
		cacheCfg.Password = cfg.Redis.Password
		cacheCfg.DB = cfg.Redis.DB
		manager, err := internalcache.NewManager(cacheCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect L2 cache: %w", err)
		}
		l2 = manager
		closers = append(closers, manager.Close)
	}
	cachedHook := hook.NewCachedHook("component-result-cache", l1, l2, 5*time.Minute)
	hooks.Register(hook.PointBeforeExecute, cachedHook, 0)
	hooks.Register(hook.PointAfterExecute, cachedHook, 0)

	hooks.Register(hook.PointAfterExecute, hook.NewReplayRecorder("replay-recorder", replayStore), 10)

	if opts.rag {
		router := vector.NewRouter(nil)
		chunker := rag.DefaultChunkingConfig()
		engine := rag.New(router, chunker, &rag.SimpleTokenizer{}, providers, logger)
		deps.RAG = kernel.NewRAGFacade(engine)
	}

	if opts.sessions {
		storeDir, err := os.MkdirTemp("", "lucid-artifacts-*")
		if err != nil {
			return nil, fmt.Errorf("create artifact store dir: %w", err)
		}
		store, err := session.NewFileStore(storeDir)
		if err != nil {
			return nil, fmt.Errorf("create artifact store: %w", err)
		}
		manager := session.NewManager(session.DefaultManagerConfig(), store, logger)
		deps.Sessions = session.NewRegistry(manager)
		deps.Artifacts = manager
	}

	diagnostics := kernel.NewDiagnostics(500)

	var providers2 *telemetry.Providers
	if opts.trace {
		cfg.Telemetry.Enabled = true
		tp, err := telemetry.Init(cfg.Telemetry, logger)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		providers2 = tp
		diagnostics.WithTracer(tp.Tracer("lucid-kernel"))
	}

	router := kernel.NewRouter(logger)
	monitor := kernel.NewMonitor(router, kernel.Thresholds{
		MaxGoroutines:        10000,
		MaxHeapBytes:         1 << 30,
		MaxAvgExecMS:         5000,
		MaxActiveConnections: 10000,
	})
	metrics := kernel.NewMetrics("lucid")
	server := kernel.NewServer(kernel.ServerConfig{Addr: cfg.Kernel.ListenAddr}, router, monitor, diagnostics, metrics, logger)

	return &runtimeDeps{deps: deps, server: server, telemetry: providers2, diagnostic: diagnostics, closers: closers}, nil
}
