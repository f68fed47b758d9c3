//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// shopServer manages a running startupshop server process.
type shopServer struct {
	cmd      *exec.Cmd
	dataDir  string
	baseURL  string
	logFile  string
	upstream *upstream
	stopped  bool
}

// startShop launches the binary and waits for it to become healthy.
// The server is configured entirely through environment variables.
func startShop(t *testing.T, extraEnv ...string) *shopServer {
	t.Helper()
	requireShop(t)

	dataDir := t.TempDir()
	port := freePort(t)
	up := newUpstream(t)
	catalogDir := copyCatalog(t, up.srv.URL)
	logFile := filepath.Join(dataDir, "startupshop.log")

	cmd := exec.Command(shopBin, "serve")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("STARTUPSHOP_PORT=%d", port),
		"STARTUPSHOP_DB_PATH="+filepath.Join(dataDir, "shop.db"),
		"STARTUPSHOP_CATALOG_DIR="+catalogDir,
		"STARTUPSHOP_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		"STARTUPSHOP_ENV_FILE="+filepath.Join(dataDir, "nonexistent.env"),
		"STARTUPSHOP_SYNC_TOKEN="+syncToken,
		"STARTUPSHOP_ADMIN_SESSION_TOKEN="+adminToken,
		"STARTUPSHOP_LOG_LEVEL=debug",
	)
	cmd.Env = append(cmd.Env, extraEnv...)

	lf, err := os.Create(logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start startupshop: %v", err)
	}

	s := &shopServer{
		cmd:      cmd,
		dataDir:  dataDir,
		baseURL:  fmt.Sprintf("http://127.0.0.1:%d", port),
		logFile:  logFile,
		upstream: up,
	}
	t.Cleanup(func() {
		s.stop(t)
		lf.Close()
	})

	s.waitHealthy(t, 10*time.Second)
	return s
}

func (s *shopServer) waitHealthy(t *testing.T, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(s.baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %v; log:\n%s", timeout, s.logs(t))
}

// stop sends SIGINT and waits for a graceful exit.
func (s *shopServer) stop(t *testing.T) {
	if s.stopped || s.cmd.Process == nil {
		return
	}
	s.stopped = true

	_ = s.cmd.Process.Signal(syscall.SIGINT)
	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		_ = s.cmd.Process.Kill()
		<-done
		t.Errorf("server did not exit after SIGINT; log:\n%s", s.logs(t))
	}
}

func (s *shopServer) logs(t *testing.T) string {
	data, err := os.ReadFile(s.logFile)
	if err != nil {
		return fmt.Sprintf("<read log: %v>", err)
	}
	return string(data)
}

// logMessages returns the msg field of every JSON log line.
func (s *shopServer) logMessages(t *testing.T) []string {
	t.Helper()
	var msgs []string
	for _, line := range strings.Split(s.logs(t), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}
		if msg, ok := entry["msg"].(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (s *shopServer) request(t *testing.T, method, path, body string, header http.Header) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.baseURL+path, r)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

// runShop runs a one-shot CLI command and returns its combined output and exit code.
func runShop(t *testing.T, args ...string) (string, int) {
	t.Helper()
	requireShop(t)

	cmd := exec.Command(shopBin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), exitErr.ExitCode()
		}
		t.Fatalf("run %v: %v", args, err)
	}
	return string(out), 0
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
