package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/godilite/inspection-analytics/internal/config"
	handler "github.com/godilite/inspection-analytics/internal/grpc"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/normalize"
	"github.com/godilite/inspection-analytics/internal/repository"
	"github.com/godilite/inspection-analytics/internal/service"
	"github.com/godilite/inspection-analytics/pkg/cache"
	dbbuilder "github.com/godilite/inspection-analytics/pkg/database"
	grpcsrv "github.com/godilite/inspection-analytics/pkg/grpc/server"
)

type App struct {
	logger        *zap.Logger
	dbPool        *sql.DB
	cache         *cache.Cache
	grpcServer    *grpcsrv.Server
	metricsServer *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithReadOnly(cfg.DBReadOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	// A read-only replica is migrated by its writer.
	if cfg.DBDriver == "sqlite3" && !cfg.DBReadOnly {
		if err := repository.Migrate(ctx, dbPool); err != nil {
			_ = dbPool.Close()
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
	}

	// A nil *cache.Cache must not reach the handlers as a non-nil Cacher.
	var cacher handler.Cacher
	var cacheClient *cache.Cache
	if cfg.RedisEnabled() {
		cacheClient, err = cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPassword(cfg.RedisPassword),
			cache.WithDB(cfg.RedisDB),
			cache.WithKeyPrefix(cfg.RedisKeyPrefix),
		)
		if err != nil {
			logger.Warn("cache unavailable, serving uncached", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			cacheClient = nil
		} else {
			cacher = cacheClient
			logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
		}
	}

	evaluationRepo := repository.NewEvaluationRepository(dbPool)
	normalizer := normalize.New(logger, cfg.Location())

	var oracle insight.Oracle
	if cfg.GeminiAPIKey != "" {
		oracle = insight.NewGemini(insight.GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Endpoint: cfg.GeminiEndpoint,
		}, logger)
		logger.Info("Remote insight oracle enabled", zap.String("oracle", oracle.Name()))
	}
	synthesizer := insight.NewSynthesizer(oracle, cfg.OracleTimeout, logger)

	reportService := service.NewReportService(evaluationRepo, normalizer, synthesizer, logger)

	grpcHandlers := handler.NewGRPCHandlers(reportService, cacher, logger, cfg.CacheTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithRequestID(true),
		grpcsrv.WithMetrics(true),
		grpcsrv.WithLogging(cfg.GRPCLoggingEnabled),
		grpcsrv.WithUnaryInterceptors(handler.CallerInterceptor(logger)),
	)
	if err != nil {
		_ = dbPool.Close()
		if cacheClient != nil {
			_ = cacheClient.Close()
		}
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterAnalyticsServer(s, grpcHandlers)
	})

	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return &App{
		logger:        logger,
		dbPool:        dbPool,
		cache:         cacheClient,
		grpcServer:    grpcServer,
		metricsServer: metricsServer,
	}, nil
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	if a.metricsServer != nil {
		go func() {
			a.logger.Info("metrics server starting", zap.String("addr", a.metricsServer.Addr))
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Error("gRPC shutdown error", zap.Error(err))
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("metrics shutdown error", zap.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			a.logger.Warn("shutdown completed but deadline exceeded")
		}
	default:
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return nil
}
