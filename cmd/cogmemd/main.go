// cogmemd runs the cognitive memory engine as a standalone daemon:
// lines read from stdin become sensory input, the sleep cycle runs in
// the background, and Prometheus metrics are served over HTTP.
//
// Usage:
//
//	cogmemd --config cogmem.yaml
//
// Input lines are processed as "text" source facts; a line may select
// its channel with a leading "@source" token, e.g.
//
//	@observation the door was left open
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/synaptica/cogmem/cognition"
	"github.com/synaptica/cogmem/config"
	"github.com/synaptica/cogmem/emotion"
	"github.com/synaptica/cogmem/fact"
	"github.com/synaptica/cogmem/internal/metrics"
	"github.com/synaptica/cogmem/memory"
	"github.com/synaptica/cogmem/pattern"
	"github.com/synaptica/cogmem/provider"
	"github.com/synaptica/cogmem/store"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cogmemd %s (built %s)\n", Version, BuildTime)
		return
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cogmemd: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("cogmemd exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vs, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer vs.Close()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector("cogmem", logger)
		go serveMetrics(cfg.Metrics, logger)
	}

	local := provider.NewLocal(cfg.Provider.Dimension)
	limited := provider.NewLimited(local, local, local, provider.LimitedConfig{
		Timeout: cfg.Provider.Timeout,
		RPS:     cfg.Provider.RatePerSecond,
		Burst:   cfg.Provider.Burst,
	}, logger)

	working := memory.NewWorkingMemory(memory.WorkingMemoryConfig{
		Capacity:    cfg.Memory.Capacity,
		Strategy:    memory.EvictionStrategy(cfg.Memory.Strategy),
		SampleFloor: cfg.Memory.SampleFloor,
	}, logger)
	sensory := memory.NewSensoryContext(cfg.Memory.SensoryWindow)
	state := emotion.NewState(emotion.StateConfig{}, logger)

	patterns := pattern.NewStore(vs, pattern.StoreConfig{
		SimilarityThreshold: cfg.Pattern.SimilarityThreshold,
		SimilarFactLimit:    cfg.Pattern.SimilarFactLimit,
		HalfLife:            cfg.Pattern.HalfLife,
		MinRetention:        cfg.Pattern.MinRetention,
		CreationThreshold:   cfg.Pattern.CreationThreshold,
		WeightIncrement:     cfg.Pattern.WeightIncrement,
	}, logger)
	if err := patterns.Warm(ctx); err != nil {
		logger.Warn("pattern cache warm failed", zap.Error(err))
	}

	orch := cognition.NewOrchestrator(cognition.Dependencies{
		Extractor: limited,
		Embedder:  limited,
		Scorer:    limited,
		Store:     vs,
		Working:   working,
		Sensory:   sensory,
		Patterns:  patterns,
		State:     state,
		Collector: collector,
	}, cognition.OrchestratorConfig{
		ContextWindow: cfg.Provider.ContextWindow,
	}, logger)

	sleep := cognition.NewSleepCycle(working, patterns, state, vs, collector, cognition.SleepConfig{
		Interval:         cfg.Sleep.Interval,
		FactCount:        cfg.Sleep.FactCount,
		ReplayRate:       cfg.Sleep.ReplayRate,
		DecayRate:        cfg.Sleep.DecayRate,
		PruneProbability: cfg.Sleep.PruneProbability,
		Retention:        cfg.Sleep.Retention,
		MinWeight:        cfg.Sleep.MinWeight,
	}, logger)
	sleep.Start(ctx)
	defer sleep.Stop()

	logger.Info("cogmemd started",
		zap.String("version", Version),
		zap.String("store", cfg.Store.Kind),
		zap.Duration("sleep_interval", cfg.Sleep.Interval))

	return readLoop(ctx, orch, logger)
}

// readLoop feeds stdin lines into the pipeline until EOF or shutdown.
func readLoop(ctx context.Context, orch *cognition.Orchestrator, logger *zap.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				logger.Info("input closed, shutting down")
				return nil
			}
			text, source := parseLine(line)
			if text == "" {
				continue
			}

			result, err := orch.ProcessInput(ctx, text, source)
			if err != nil {
				logger.Error("input processing failed", zap.Error(err))
				continue
			}
			logger.Info("fact recorded",
				zap.String("fact_id", result.Fact.ID),
				zap.String("source", string(result.Fact.Source)),
				zap.String("pattern_id", result.PatternID),
				zap.Float64("intensity", result.State.Magnitude()),
				zap.Bool("degraded", result.Degraded))
		}
	}
}

// parseLine splits an optional leading "@source" token from the input.
func parseLine(line string) (string, fact.Source) {
	line = strings.TrimSpace(line)
	source := fact.SourceText
	if strings.HasPrefix(line, "@") {
		head, rest, found := strings.Cut(line, " ")
		if found {
			if s := fact.Source(strings.TrimPrefix(head, "@")); s.Valid() {
				return strings.TrimSpace(rest), s
			}
		}
	}
	return line, source
}

func openStore(cfg config.StoreConfig, logger *zap.Logger) (store.VectorStore, error) {
	switch cfg.Kind {
	case "redis":
		return store.NewRedis(store.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
	case "sqlite":
		return store.NewSQLite(store.SQLiteConfig{Path: cfg.SQLite.Path}, logger)
	default:
		return store.NewInMemory(store.InMemoryConfig{}, logger), nil
	}
}

func serveMetrics(cfg config.MetricsConfig, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("metrics endpoint listening",
		zap.Int("port", cfg.Port),
		zap.String("path", cfg.Path))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

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
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
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

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
