// Package container wires the service together with Uber FX
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/nutriplan/mealplan/internal/application/generation"
	mealplanapp "github.com/nutriplan/mealplan/internal/application/mealplan"
	"github.com/nutriplan/mealplan/internal/application/prompt"
	"github.com/nutriplan/mealplan/internal/infrastructure/ai"
	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/infrastructure/http/handlers"
	"github.com/nutriplan/mealplan/internal/infrastructure/http/server"
	"github.com/nutriplan/mealplan/internal/infrastructure/persistence/cached"
	gormRepo "github.com/nutriplan/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/nutriplan/mealplan/internal/infrastructure/persistence/memory"
	"github.com/nutriplan/mealplan/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/nutriplan/mealplan/internal/infrastructure/persistence/redis"
	"github.com/nutriplan/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/nutriplan/mealplan/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	AIModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			Service:     cfg.App.Name,
		})
	},
)

// DatabaseModule provides the GORM connection for the configured driver
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		var (
			db  *gorm.DB
			err error
		)

		switch cfg.Database.Driver {
		case "postgres":
			db, err = postgres.Connect(context.Background(), cfg.Database, cfg.GetDSN(), log)
		default:
			db, err = sqlite.SetupDatabase(cfg.Database.Path, gormRepo.ParseLogLevel(cfg.Database.LogLevel))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
		}

		log.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
		return db, nil
	},
)

// CacheModule provides the plan cache. A nil CacheRepository means caching
// is disabled.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.CacheRepository, error) {
		switch cfg.Cache.Driver {
		case "redis":
			client, err := redisRepo.NewClient(context.Background(), cfg.Redis, cfg.RedisAddr())
			if err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return client.Close() },
			})
			log.Info("Using redis plan cache", zap.String("address", cfg.RedisAddr()))
			return redisRepo.NewCacheRepository(client, log), nil

		case "memory":
			cache := memory.NewCacheRepository(time.Minute)
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					cache.Close()
					return nil
				},
			})
			log.Info("Using in-memory plan cache")
			return cache, nil

		default:
			log.Info("Plan cache disabled")
			return nil, nil
		}
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	func(db *gorm.DB, cache outbound.CacheRepository, cfg *config.Config, log *zap.Logger) outbound.MealPlanRepository {
		store := gormRepo.NewMealPlanRepository(db)
		if cache == nil {
			return store
		}
		return cached.NewMealPlanRepository(store, cache, cfg.Cache.TTL, cfg.Cache.KeyPrefix, log)
	},
	gormRepo.NewAccountRepository,
)

// AIModule provides the ordered provider roster and its health checker
var AIModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) ([]outbound.LLMProvider, error) {
		return ai.NewRoster(context.Background(), cfg.AI, log)
	},
	func(providers []outbound.LLMProvider, cfg *config.Config, log *zap.Logger) *ai.HealthChecker {
		return ai.NewHealthChecker(providers, cfg.AI.HealthTimeout, log)
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(cfg *config.Config) *prompt.Builder {
		return prompt.NewBuilder(prompt.Config{
			Persona:      cfg.Prompt.Persona,
			WeightUnit:   cfg.Prompt.WeightUnit,
			HeightUnit:   cfg.Prompt.HeightUnit,
			ProteinRange: cfg.Prompt.ProteinRange,
		})
	},
	func(cfg *config.Config, log *zap.Logger) *generation.Validator {
		return generation.NewValidator(generation.MacroCheck{
			Enabled:   cfg.Generation.MacroCheck,
			Tolerance: cfg.Generation.MacroTolerance,
		}, log)
	},
	generation.NewInvoker,
	mealplanapp.NewService,
)

// HTTPModule provides the HTTP server and handlers
var HTTPModule = fx.Provide(
	handlers.NewMealPlanHandlers,
	func(checker *ai.HealthChecker, cfg *config.Config, log *zap.Logger) *handlers.HealthHandlers {
		return handlers.NewHealthHandlers(checker, cfg.App.Version, log)
	},
	server.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks starts and stops the HTTP server
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	invoker *generation.Invoker,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var roster []string
			for _, p := range invoker.Providers() {
				roster = append(roster, p.Name()+"/"+p.Model())
			}
			log.Info("Starting meal plan service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.Strings("providers", roster),
			)
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down meal plan service")
			err := srv.Shutdown(ctx)
			// Sync fails on terminals; only the shutdown error matters.
			_ = log.Sync()
			return err
		},
	})
}
