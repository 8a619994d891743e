// Package storagetest поднимает PostgreSQL в контейнере для интеграционных тестов
// и применяет к нему миграции схемы.
package storagetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/vocal/internal/migrations"
	"github.com/magabrotheeeer/vocal/internal/storage"
)

const postgresPort nat.Port = "5432/tcp"

// New запускает контейнер postgres:15-alpine, применяет миграции
// и возвращает подключённое хранилище. Контейнер удаляется по окончании теста.
// В режиме -short тест пропускается.
func New(t *testing.T) *storage.Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_DB":       "vocal",
			"POSTGRES_USER":     "vocal",
			"POSTGRES_PASSWORD": "vocal",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, postgresPort)
	require.NoError(t, err, "failed to get port")

	dsn := fmt.Sprintf("postgres://vocal:vocal@%s:%s/vocal?sslmode=disable", host, port.Port())

	var migrateErr error
	for range 10 {
		if migrateErr = migrations.RunDSN(dsn, MigrationsPath(t)); migrateErr == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, migrateErr, "failed to apply migrations")

	s, err := storage.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

// MigrationsPath ищет каталог migrations в корне модуля.
func MigrationsPath(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations")
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "go.mod not found")
		dir = parent
	}
}
