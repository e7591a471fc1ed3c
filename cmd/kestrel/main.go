// Kestrel - AML customer prioritization: feature extraction and scoring.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/demographic"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/extraction"
	"github.com/opensource-finance/kestrel/internal/features"
	"github.com/opensource-finance/kestrel/internal/gate"
	"github.com/opensource-finance/kestrel/internal/params"
	"github.com/opensource-finance/kestrel/internal/reference"
	"github.com/opensource-finance/kestrel/internal/registry"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/window"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	refMonth := flag.String("ref-month", "", "reference month MMYYYY; runs one scoring cycle and exits")
	serve := flag.Bool("serve", false, "serve the monitoring API")
	intermediary := flag.String("intermediary", "", "intermediary code")
	systemID := flag.String("system", "", "detection system id in the dedup registry")
	controlCode := flag.String("control", "", "control code in the dedup registry")
	modelName := flag.String("model", "", "model name (name + training date)")
	modelURL := flag.String("model-url", "", "model service base URL")
	threshold := flag.Float64("threshold", -1, "alert probability threshold")
	windowMonths := flag.Int("window-months", 0, "observation window length in months")
	skipMonths := flag.Int("skip-months", -1, "skip customers reported within this many months (0 disables)")
	excluded := flag.String("excluded-systems", "", "comma-separated sibling systems whose alerts suppress reporting")
	gateExpr := flag.String("gate", "", "CEL acceptance expression over (score, threshold, features)")
	referencePath := flag.String("reference", "", "categorization tables JSON (empty = compiled-in defaults)")
	flag.Parse()

	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg := domain.DefaultConfig()
	applyEnv(cfg)
	applyFlags(cfg, flagValues{
		intermediary: *intermediary,
		systemID:     *systemID,
		controlCode:  *controlCode,
		modelName:    *modelName,
		modelURL:     *modelURL,
		threshold:    *threshold,
		windowMonths: *windowMonths,
		skipMonths:   *skipMonths,
		excluded:     *excluded,
		gateExpr:     *gateExpr,
		refPath:      *referencePath,
	})

	if !*serve && *refMonth == "" {
		fmt.Fprintln(os.Stderr, "usage: kestrel -ref-month MMYYYY [flags]  or  kestrel -serve [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if cfg.Scoring.IntermediaryCode == "" {
		slog.Error("intermediary code is required (-intermediary or KESTREL_INTERMEDIARY)")
		os.Exit(2)
	}

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"intermediary", cfg.Scoring.IntermediaryCode,
		"model", cfg.Scoring.ModelName,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Control-parameter discovery overlays the scoring config when a
	// parameter service is configured.
	if paramsURL := os.Getenv("KESTREL_PARAMS_URL"); paramsURL != "" {
		client := params.NewClient(paramsURL, 30*time.Second)
		set, err := client.Fetch(ctx, cfg.Scoring.SystemID, cfg.Scoring.ControlCode)
		if err != nil {
			slog.Error("failed to fetch control parameters", "url", paramsURL, "error", err)
			os.Exit(1)
		}
		if err := params.ApplyScoring(set, &cfg.Scoring); err != nil {
			slog.Error("invalid control parameters", "error", err)
			os.Exit(1)
		}
		slog.Info("control parameters applied", "url", paramsURL)
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	service, err := buildService(repo, cacheImpl, busImpl, cfg, logger)
	if err != nil {
		slog.Error("failed to build scoring service", "error", err)
		os.Exit(1)
	}

	if *refMonth != "" {
		run, err := service.RunCycle(ctx, *refMonth)
		if err != nil {
			os.Exit(1)
		}
		slog.Info("cycle run recorded",
			"run_id", run.ID,
			"status", run.Status,
			"eligible", run.EligibleCount,
			"scored", run.ScoredCount,
			"alerted", run.AlertedCount,
		)
		if !*serve {
			return
		}
	}

	scope := domain.RegistryScope{
		SystemID:         cfg.Scoring.SystemID,
		ControlCode:      cfg.Scoring.ControlCode,
		IntermediaryCode: cfg.Scoring.IntermediaryCode,
	}
	srv := api.NewServer(cfg.Server, repo, cacheImpl, service, scope, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// buildService wires the scoring pipeline: extraction, windows, aggregation,
// categorization, assembly, the model client, the gate, and the registry.
func buildService(repo domain.Repository, cacheImpl domain.Cache, busImpl domain.EventBus, cfg *domain.Config, logger *slog.Logger) (*scoring.Service, error) {
	tables := reference.Defaults()
	if cfg.Categorization.ReferencePath != "" {
		loaded, err := reference.Load(cfg.Categorization.ReferencePath)
		if err != nil {
			return nil, fmt.Errorf("categorization tables: %w", err)
		}
		tables = loaded
	}

	orchestrator, err := extraction.NewOrchestrator(repo, cfg.Scoring, logger)
	if err != nil {
		return nil, err
	}

	aggregator := aggregate.New(tables)
	categorizer := demographic.New(tables, cfg.Categorization)

	schema, err := features.BuildSchema(aggregator.Fields(), categorizer.Fields())
	if err != nil {
		return nil, err
	}

	g, err := gate.New(cfg.Scoring.GateExpression, cfg.Scoring.Threshold)
	if err != nil {
		return nil, fmt.Errorf("gate expression: %w", err)
	}

	scope := domain.RegistryScope{
		SystemID:         cfg.Scoring.SystemID,
		ControlCode:      cfg.Scoring.ControlCode,
		IntermediaryCode: cfg.Scoring.IntermediaryCode,
	}

	return scoring.NewService(scoring.Deps{
		Repo:         repo,
		Orchestrator: orchestrator,
		Windows:      window.NewResolver(cfg.Scoring.WindowMonths),
		Aggregator:   aggregator,
		Categorizer:  categorizer,
		Assembler:    features.NewAssembler(schema),
		Scorer:       scoring.NewModelClient(cfg.Scoring.ModelURL, cfg.Scoring.ModelName, 60*time.Second),
		Gate:         g,
		Registry:     registry.New(repo, scope, logger),
		Bus:          busImpl,
		Cache:        cacheImpl,
		Config:       cfg.Scoring,
		Logger:       logger,
	}), nil
}

type flagValues struct {
	intermediary string
	systemID     string
	controlCode  string
	modelName    string
	modelURL     string
	threshold    float64
	windowMonths int
	skipMonths   int
	excluded     string
	gateExpr     string
	refPath      string
}

func applyFlags(cfg *domain.Config, f flagValues) {
	if f.intermediary != "" {
		cfg.Scoring.IntermediaryCode = f.intermediary
	}
	if f.systemID != "" {
		cfg.Scoring.SystemID = f.systemID
	}
	if f.controlCode != "" {
		cfg.Scoring.ControlCode = f.controlCode
	}
	if f.modelName != "" {
		cfg.Scoring.ModelName = f.modelName
	}
	if f.modelURL != "" {
		cfg.Scoring.ModelURL = f.modelURL
	}
	if f.threshold >= 0 {
		cfg.Scoring.Threshold = f.threshold
	}
	if f.windowMonths > 0 {
		cfg.Scoring.WindowMonths = f.windowMonths
	}
	if f.skipMonths >= 0 {
		cfg.Scoring.SkipMonths = f.skipMonths
	}
	if f.excluded != "" {
		cfg.Scoring.ExcludedSystems = splitList(f.excluded)
	}
	if f.gateExpr != "" {
		cfg.Scoring.GateExpression = f.gateExpr
	}
	if f.refPath != "" {
		cfg.Categorization.ReferencePath = f.refPath
	}
}

// applyEnv overlays KESTREL_* environment variables onto the defaults.
// Flags win over environment.
func applyEnv(cfg *domain.Config) {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr("KESTREL_HOST", &cfg.Server.Host)
	setInt("KESTREL_PORT", &cfg.Server.Port)

	setStr("KESTREL_DB_DRIVER", &cfg.Repository.Driver)
	setStr("KESTREL_DB_PATH", &cfg.Repository.SQLitePath)
	setStr("KESTREL_PG_HOST", &cfg.Repository.PostgresHost)
	setInt("KESTREL_PG_PORT", &cfg.Repository.PostgresPort)
	setStr("KESTREL_PG_USER", &cfg.Repository.PostgresUser)
	setStr("KESTREL_PG_PASSWORD", &cfg.Repository.PostgresPassword)
	setStr("KESTREL_PG_DB", &cfg.Repository.PostgresDB)
	setStr("KESTREL_PG_SSLMODE", &cfg.Repository.PostgresSSLMode)

	setStr("KESTREL_CACHE", &cfg.Cache.Type)
	setStr("KESTREL_REDIS_ADDR", &cfg.Cache.RedisAddr)
	setStr("KESTREL_REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	setInt("KESTREL_REDIS_DB", &cfg.Cache.RedisDB)

	setStr("KESTREL_BUS", &cfg.EventBus.Type)
	setStr("KESTREL_NATS_URL", &cfg.EventBus.NATSUrl)
	setStr("KESTREL_NATS_TOKEN", &cfg.EventBus.NATSToken)

	setStr("KESTREL_INTERMEDIARY", &cfg.Scoring.IntermediaryCode)
	setStr("KESTREL_SYSTEM", &cfg.Scoring.SystemID)
	setStr("KESTREL_CONTROL", &cfg.Scoring.ControlCode)
	setStr("KESTREL_MODEL", &cfg.Scoring.ModelName)
	setStr("KESTREL_MODEL_URL", &cfg.Scoring.ModelURL)
	setInt("KESTREL_WINDOW_MONTHS", &cfg.Scoring.WindowMonths)
	setInt("KESTREL_SKIP_MONTHS", &cfg.Scoring.SkipMonths)
	setInt("KESTREL_BATCH_SIZE", &cfg.Scoring.BatchSize)
	setInt("KESTREL_FETCH_WORKERS", &cfg.Scoring.FetchWorkers)
	setStr("KESTREL_GATE", &cfg.Scoring.GateExpression)
	setStr("KESTREL_REFERENCE_PATH", &cfg.Categorization.ReferencePath)

	if v := os.Getenv("KESTREL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.Threshold = f
		}
	}
	if v := os.Getenv("KESTREL_EXCLUDED_SYSTEMS"); v != "" {
		cfg.Scoring.ExcludedSystems = splitList(v)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
