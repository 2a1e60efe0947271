//go:build smoke

package smoke

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/Padelicious/internal/testutil"
)

type runningServer struct {
	baseURL string
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	done    <-chan struct{}
	waitErr *error
}

func (s *runningServer) logs() string {
	return fmt.Sprintf("stdout:\n%s\nstderr:\n%s", s.stdout.String(), s.stderr.String())
}

func (s *runningServer) assertAlive(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
		t.Fatalf("server exited unexpectedly: %v\n%s", *s.waitErr, s.logs())
	default:
	}
}

// startServer builds cmd/server, writes config/app.yaml into a temp dir
// pointing at dbPath, and waits for /health.
func startServer(t *testing.T, dbPath string) *runningServer {
	t.Helper()

	repoRoot := findRepoRoot(t)
	tempDir := t.TempDir()

	binPath := filepath.Join(tempDir, "padelicious-server")
	buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	buildCmd.Dir = repoRoot
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build server: %v\n%s", err, buildOutput)
	}

	port := reservePort(t)
	configDir := filepath.Join(tempDir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configBody := fmt.Sprintf(`app:
  name: "Padelicious"
  environment: "development"
  port: %d
  base_url: "http://localhost:%d"
  log_level: "debug"

database:
  driver: "sqlite"
  filename: "%s"

booking:
  timezone: "UTC"

storage:
  driver: "local"
  local_dir: "%s"

features:
  enable_scheduler: true
  enable_debug: true
`, port, port, filepath.ToSlash(dbPath), filepath.ToSlash(filepath.Join(tempDir, "proofs")))

	if err := os.WriteFile(filepath.Join(configDir, "app.yaml"), []byte(configBody), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := exec.Command(binPath)
	cmd.Dir = tempDir
	cmd.Env = append(os.Environ(), "PADEL_APP_SECRET_KEY=test-secret-key-for-smoke-tests-only")
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	waitDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(waitDone)
	}()

	t.Cleanup(func() {
		if cmd.Process == nil {
			return
		}
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-waitDone:
			return
		case <-time.After(5 * time.Second):
		}
		_ = cmd.Process.Kill()
		select {
		case <-waitDone:
		case <-time.After(5 * time.Second):
			t.Logf("server process did not exit after kill")
		}
	})

	srv := &runningServer{
		baseURL: fmt.Sprintf("http://localhost:%d", port),
		stdout:  &stdout,
		stderr:  &stderr,
		done:    waitDone,
		waitErr: &waitErr,
	}
	waitForHealth(t, srv)
	return srv
}

func waitForHealth(t *testing.T, srv *runningServer) {
	t.Helper()

	client := &http.Client{Timeout: 500 * time.Millisecond}
	deadline := time.Now().Add(10 * time.Second)

	for {
		select {
		case <-srv.done:
			t.Fatalf("server exited before health check: %v\n%s", *srv.waitErr, srv.logs())
		default:
		}

		resp, err := client.Get(srv.baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for health check\n%s", srv.logs())
		}

		time.Sleep(100 * time.Millisecond)
	}
}

func TestServerStartup(t *testing.T) {
	srv := startServer(t, filepath.Join(t.TempDir(), "db", "smoke.db"))

	resp, err := http.Get(srv.baseURL + "/api/v1/courts")
	if err != nil {
		t.Fatalf("courts request failed: %v\n%s", err, srv.logs())
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("courts status: got %d want 200: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}

	srv.assertAlive(t)
}

func reservePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatal("failed to locate repo root with go.mod")
	return ""
}

func TestMigrationsApplied(t *testing.T) {
	db := testutil.NewTestDB(t)

	expectedTables := []string{
		"users",
		"courts",
		"reservations",
		"payments",
		"membership_plans",
		"user_memberships",
		"notifications",
	}

	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	db := testutil.NewTestDB(t)

	var foreignKeysEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Fatalf("expected foreign_keys pragma enabled, got %d", foreignKeysEnabled)
	}

	_, err := db.Exec(
		`INSERT INTO reservations (court_id, user_id, date, start_time, end_time, status, total_amount)
		 VALUES (9999, 9999, '2030-03-05', '10:00', '11:00', 'PENDING', '20.00')`,
	)
	if err == nil {
		t.Fatal("expected foreign key constraint failure for unknown court and user")
	}
}
