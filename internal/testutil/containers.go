package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	qdrantImage   = "qdrant/qdrant:v1.16.3"
	rustfsImage   = "rustfs/rustfs:latest"

	pgCredential     = "brain"
	rustfsCredential = "rustfsadmin"
)

// startContainer runs req and returns the container with its host and the
// host port mapped to port. It fails the test on any error.
func startContainer(ctx context.Context, t *testing.T, name string, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", name, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s container host: %v", name, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("%s container port %s: %v", name, port, err)
	}
	return container, host, mapped.Port()
}

// PostgresContainer is a throwaway Postgres with the pgvector extension available.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	container, host, port := startContainer(ctx, t, "pgvector", testcontainers.ContainerRequest{
		Image:        pgvectorImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		// The entrypoint restarts the server once after init, so the ready line shows twice.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(time.Minute),
	}, "5432")

	return &PostgresContainer{Container: container, Host: host, Port: port}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%[1]s:%[1]s@%[2]s:%[3]s/%[1]s?sslmode=disable", pgCredential, pc.Host, pc.Port)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// QdrantContainer exposes the gRPC port of a Qdrant server.
type QdrantContainer struct {
	Container testcontainers.Container
	Host      string
	GRPCPort  int
}

func NewQdrantContainer(ctx context.Context, t *testing.T) *QdrantContainer {
	container, host, port := startContainer(ctx, t, "qdrant", testcontainers.ContainerRequest{
		Image:        qdrantImage,
		ExposedPorts: []string{"6333/tcp", "6334/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6334/tcp"),
			wait.ForHTTP("/readyz").WithPort("6333/tcp"),
		).WithStartupTimeout(time.Minute),
	}, "6334")

	grpcPort, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("qdrant grpc port %q: %v", port, err)
	}
	return &QdrantContainer{Container: container, Host: host, GRPCPort: grpcPort}
}

func (qc *QdrantContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(qc.Container)
}

// RustFSContainer is an S3-compatible object store for archive tests.
// Access and secret key are both "rustfsadmin".
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	container, host, port := startContainer(ctx, t, "rustfs", testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": rustfsCredential,
			"RUSTFS_SECRET_KEY": rustfsCredential,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")

	return &RustFSContainer{Container: container, Host: host, Port: port}
}

func (rc *RustFSContainer) Endpoint() string {
	return "http://" + rc.Host + ":" + rc.Port
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool connects to pc, waiting up to 10 seconds for the server to
// accept connections, then applies every up migration in migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(ctx, pc.ConnectionString())
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		err = pool.Ping(ctx)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	if err != nil {
		pool.Close()
		t.Fatalf("postgres never became reachable: %v", err)
	}

	if err := ApplyMigrations(ctx, pool, migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

// ApplyMigrations executes every *.up.sql file in migrationsDir in name order.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no up migrations in %s", migrationsDir)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", strings.TrimSuffix(filepath.Base(file), ".up.sql"), err)
		}
	}
	return nil
}
