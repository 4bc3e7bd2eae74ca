package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rotorlab/tune-engine/internal/api"
	"github.com/rotorlab/tune-engine/internal/cache"
	"github.com/rotorlab/tune-engine/internal/config"
	"github.com/rotorlab/tune-engine/internal/engine"
	"github.com/rotorlab/tune-engine/internal/export"
	"github.com/rotorlab/tune-engine/internal/logsource"
	"github.com/rotorlab/tune-engine/internal/metrics"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
	"github.com/rotorlab/tune-engine/internal/rules"
	"github.com/rotorlab/tune-engine/internal/settings"
	"github.com/rotorlab/tune-engine/internal/utils"
)

func main() {
	var (
		configPath  string
		logPath     string
		profileName string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&logPath, "log", "", "Analyze a single log dump and print the result instead of serving")
	flag.StringVar(&profileName, "profile", "default", "Quad profile to apply in one-shot mode")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	profiles, err := profile.LoadPack(cfg.Profiles.Path)
	if err != nil {
		logger.Error("failed to load profile pack", slog.Any("error", err))
		os.Exit(1)
	}

	level := rules.Level(cfg.Analysis.Level)

	if logPath != "" {
		if err := analyzeFile(logger, logPath, profiles, profileName, level); err != nil {
			logger.Error("analysis failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	logger.Info("starting tune-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var results *cache.ResultCache
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("result cache unavailable", slog.Any("error", err))
		} else {
			defer provider.Close()
			results = cache.NewResultCache(provider, cfg.Cache.ResultTTL)
		}
	}

	handler := api.NewHandler(logger, nil, profiles, level, results, cfg.Server.MaxBodyBytes)

	server, err := api.NewServer(cfg.Server, handler.Routes(), logger)
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("tune-engine stopped")
}

// analyzeFile runs the engine over one dump and prints the result as JSON,
// followed by the CLI commands to apply the recommended changes.
func analyzeFile(logger *slog.Logger, path string, profiles map[string]*profile.QuadProfile, profileName string, level rules.Level) error {
	dump, err := logsource.Load(path)
	if err != nil {
		return err
	}
	prof, ok := profiles[profileName]
	if !ok {
		return fmt.Errorf("unknown profile %q", profileName)
	}

	eng := engine.New(logger, nil, level)
	result := eng.AnalyzeLogWithProgress(dump.Frames, dump.Metadata, prof, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\ranalyzing %d/%d windows", done, total)
	})
	fmt.Fprintln(os.Stderr)
	settings.Annotate(result.Recommendations, dump.Metadata)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	var changes []models.ParameterChange
	for _, rec := range result.Recommendations {
		changes = append(changes, rec.Changes...)
	}
	if cmds := export.RenderCommands(changes); len(cmds) > 0 {
		fmt.Println()
		for _, cmd := range cmds {
			fmt.Println(cmd)
		}
	}
	return nil
}
