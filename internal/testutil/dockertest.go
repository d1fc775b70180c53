// Package testutil starts throwaway Postgres and Redis containers for store
// tests. Tests are skipped when no Docker daemon is reachable.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/persistence"
)

var (
	user        = "postgres"
	password    = "secret"
	dbName      = "unittest"
	dsnTemplate = "postgres://%s:%s@localhost:%s/%s?sslmode=disable"
)

var pool *dockertest.Pool
var poolErr error
var poolOnce sync.Once

func getPool(t *testing.T) *dockertest.Pool {
	t.Helper()
	poolOnce.Do(func() {
		pool, poolErr = dockertest.NewPool("")
		if poolErr != nil {
			return
		}
		pool.MaxWait = time.Second * 30
		poolErr = pool.Client.Ping()
	})
	if poolErr != nil {
		t.Skipf("docker unavailable: %v", poolErr)
	}
	return pool
}

// MigrationsDir returns the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// CreateDB starts Postgres, applies migrations, and returns a pool.
func CreateDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dockerPool := getPool(t)

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbName,
		},
		ExposedPorts: []string{"5432/tcp"},
	})
	if err != nil {
		t.Fatalf("could not start postgres: %v", err)
	}
	t.Cleanup(func() { _ = dockerPool.Purge(resource) })

	dsn := fmt.Sprintf(dsnTemplate, user, password, resource.GetPort("5432/tcp"), dbName)

	var db *pgxpool.Pool
	if err := dockerPool.Retry(func() error {
		var err error
		db, err = pgxpool.New(context.Background(), dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(context.Background()); err != nil {
			db.Close()
			return err
		}
		return nil
	}); err != nil {
		t.Fatalf("could not connect to postgres: %v", err)
	}
	t.Cleanup(db.Close)

	if err := persistence.RunMigrations(context.Background(), db, MigrationsDir(), zap.NewNop()); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

// CreateRDB starts Redis and returns a client.
func CreateRDB(t *testing.T) *redis.Client {
	t.Helper()
	dockerPool := getPool(t)

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository:   "redis",
		Tag:          "7-alpine",
		ExposedPorts: []string{"6379/tcp"},
	})
	if err != nil {
		t.Fatalf("could not start redis: %v", err)
	}
	t.Cleanup(func() { _ = dockerPool.Purge(resource) })

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:" + resource.GetPort("6379/tcp"),
	})
	if err := dockerPool.Retry(func() error {
		return client.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
