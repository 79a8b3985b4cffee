//go:build database

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRepowatchWithMySQL tests the repowatch CLI with a MySQL backend.
func TestRepowatchWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "repowatch",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/repowatch?parseTime=true", host, port.Port())
	runStoreLifecycle(t, "mysql", connStr)
}

// TestRepowatchWithPostgres tests the repowatch CLI with a PostgreSQL backend.
func TestRepowatchWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	runStoreLifecycle(t, "postgresql", connStr)
}

// runStoreLifecycle drives the registry, scan and health commands end to end
// against the given backend.
func runStoreLifecycle(t *testing.T, backend, connStr string) {
	t.Helper()

	_ = os.Setenv("REPOWATCH_STORE_BACKEND", backend)
	_ = os.Setenv("REPOWATCH_STORE_DB_CONNECT", connStr)
	defer func() { _ = os.Unsetenv("REPOWATCH_STORE_BACKEND") }()
	defer func() { _ = os.Unsetenv("REPOWATCH_STORE_DB_CONNECT") }()

	repoDir := makeFixtureRepo(t, 3)

	// Start clean
	_, err := runRepowatchCommand(t, "store", "clear")
	require.NoError(t, err)

	// Register the fixture repository
	_, err = runRepowatchCommand(t, "mapping", "add", repoDir, "--project", "proj-it", "--mapping-id", "fixture")
	require.NoError(t, err)

	// List it back
	out, err := runRepowatchCommand(t, "mapping", "list", "proj-it")
	require.NoError(t, err)
	require.Contains(t, out, "fixture")

	// Scan the project and check the batch result
	out, err = runRepowatchCommand(t, "scan", "proj-it")
	require.NoError(t, err)
	require.Contains(t, out, "1 repositories")

	// Health report should see one healthy repository
	out, err = runRepowatchCommand(t, "health", "proj-it")
	require.NoError(t, err)
	require.Contains(t, out, "proj-it")

	// Store status reflects the cached entry
	_, err = runRepowatchCommand(t, "store", "status")
	require.NoError(t, err)

	// Remove the mapping
	_, err = runRepowatchCommand(t, "mapping", "remove", "fixture")
	require.NoError(t, err)
}
