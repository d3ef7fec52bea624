package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

func init() {
	// Point testcontainers at the podman socket when DOCKER_HOST is unset.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			if sock := strings.TrimSpace(string(out)); sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a migrated Store.
// Tests are skipped when no container runtime is available.
func setupTestDB(t *testing.T) (*Store, string) {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	if _, err := exec.LookPath("podman"); err != nil {
		if _, err := exec.LookPath("docker"); err != nil {
			t.Skip("no container runtime found, skipping integration tests")
		}
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("mailassist_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{DSN: connStr, MigrateOnStart: true})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, connStr
}

func TestPostgres_SetGetDelete(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "openai"); !errors.Is(err, secrets.ErrNotFound) {
		t.Fatalf("Get on empty table: err = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "openai", "sk-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "openai", "sk-2"); err != nil {
		t.Fatalf("Set (replace) failed: %v", err)
	}

	got, err := store.Get(ctx, "openai")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "sk-2" {
		t.Errorf("Get = %q, want %q", got, "sk-2")
	}

	if err := store.Delete(ctx, "openai"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "openai"); !errors.Is(err, secrets.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	store, connStr := setupTestDB(t)
	ctx := context.Background()

	if err := store.Set(ctx, "kimi", "sk-kimi"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	again, err := New(ctx, Config{DSN: connStr, MigrateOnStart: true})
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer again.Close()

	got, err := again.Get(ctx, "kimi")
	if err != nil {
		t.Fatalf("Get after re-migrate failed: %v", err)
	}
	if got != "sk-kimi" {
		t.Errorf("Get = %q, want %q", got, "sk-kimi")
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: "postgres://%zz"})
	if err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
