//go:build integration

package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DatabaseConfig holds test database configuration
type DatabaseConfig struct {
	Image    string
	Database string
	Username string
	Password string
	Port     string
}

// DefaultDatabaseConfig returns the default test database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Image:    "postgres:15-alpine",
		Database: "mealplan_test",
		Username: "test_user",
		Password: "test_password",
		Port:     "5432",
	}
}

// SetupTestDatabase starts a PostgreSQL container and returns a migrated
// GORM connection. The container is terminated when the test ends.
func SetupTestDatabase(t *testing.T) *gorm.DB {
	cfg := DefaultDatabaseConfig()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.Image,
			ExposedPorts: []string{cfg.Port + "/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.Username,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort(cfg.Port+"/tcp"),
			),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw,noexec,nosuid,size=256m",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dbCfg := config.DatabaseConfig{
		Driver:      "postgres",
		Host:        host,
		Port:        port.Int(),
		Database:    cfg.Database,
		Username:    cfg.Username,
		Password:    cfg.Password,
		SSLMode:     "disable",
		LogLevel:    "silent",
		AutoMigrate: true,
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port.Int(), cfg.Username, cfg.Password, cfg.Database)

	db, err := postgres.Connect(ctx, dbCfg, dsn, zap.NewNop())
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// SetupTestRedis starts a Redis container and returns its host:port
func SetupTestRedis(t *testing.T) string {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}
