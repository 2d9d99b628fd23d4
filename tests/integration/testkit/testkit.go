package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/git-semantic/internal/app"
	"github.com/sha1n/git-semantic/internal/config"
	"github.com/spf13/pflag"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContextImpl struct {
	properties map[string]any
}

func (c *testEnvContextImpl) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContextImpl) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnvImpl struct {
	services []Service
	context  *testEnvContextImpl
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services: services,
		context:  &testEnvContextImpl{properties: make(map[string]any)},
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.GetName(), err)
		}
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var errs []error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *testEnvImpl) GetContext() TestEnvContext {
	return e.context
}

// Property names published by the services in this package.
const (
	PropRepoPath = "repo_path"
	PropSSEURL   = "sse_url"
)

// RequireGit skips the test when the git binary is not available.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// GitRepo is a throwaway repository with deterministic authors and dates.
type GitRepo struct {
	Dir string
}

// NewGitRepo creates an empty repository in a temporary directory.
func NewGitRepo(t testing.TB) *GitRepo {
	t.Helper()
	RequireGit(t)

	repo := &GitRepo{Dir: t.TempDir()}
	if _, err := repo.Start(); err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	return repo
}

// Start initialises the repository.
func (r *GitRepo) Start() (map[string]any, error) {
	if _, err := r.Git(nil, "init", "-q"); err != nil {
		return nil, err
	}
	return map[string]any{PropRepoPath: r.Dir}, nil
}

// Stop is a no-op; the directory belongs to the test.
func (r *GitRepo) Stop() error { return nil }

// GetName returns the service name.
func (r *GitRepo) GetName() string { return "git-repo" }

// Git runs git in the repository with extra environment variables.
func (r *GitRepo) Git(env []string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{
		"-c", "user.name=Test",
		"-c", "user.email=test@example.com",
		"-c", "commit.gpgsign=false",
		"-c", "init.defaultBranch=main",
	}, args...)...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "GIT_CONFIG_GLOBAL="+os.DevNull)
	cmd.Env = append(cmd.Env, env...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// Commit writes files and commits them as author at date, returning the new hash.
func (r *GitRepo) Commit(t testing.TB, author string, date time.Time, message string, files map[string]string) string {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(r.Dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}
	if _, err := r.Git(nil, "add", "-A"); err != nil {
		t.Fatal(err)
	}

	stamp := date.UTC().Format(time.RFC3339)
	env := []string{
		"GIT_AUTHOR_NAME=" + author,
		"GIT_AUTHOR_EMAIL=" + strings.ToLower(author) + "@example.com",
		"GIT_AUTHOR_DATE=" + stamp,
		"GIT_COMMITTER_DATE=" + stamp,
	}
	if _, err := r.Git(env, "commit", "-q", "--allow-empty", "-m", message); err != nil {
		t.Fatal(err)
	}

	hash, err := r.Git(nil, "rev-parse", "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	return hash
}

// AddWorktree checks out a new branch in a linked worktree and returns its path.
func (r *GitRepo) AddWorktree(t testing.TB, branch string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), branch)
	if _, err := r.Git(nil, "worktree", "add", "-q", "-b", branch, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// SSEServer runs the serve command over SSE for a repository.
type SSEServer struct {
	repoPath string
	port     int
	cancel   context.CancelFunc
	srv      *http.Server
	done     chan error
}

// NewSSEServer creates an SSE server service for repoPath on a free port.
func NewSSEServer(t testing.TB, repoPath string) *SSEServer {
	t.Helper()
	return &SSEServer{repoPath: repoPath, port: MustGetFreePort(t)}
}

// Start runs the server and waits until /health answers.
func (s *SSEServer) Start() (map[string]any, error) {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	app.RegisterGlobalFlags(flags)
	app.RegisterServeFlags(flags)
	if err := flags.Parse([]string{
		"--path", s.repoPath,
		"--transport", config.TransportSSE,
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", s.port),
		"--log-level", "warn",
	}); err != nil {
		return nil, err
	}

	ready := make(chan struct{})
	params := app.DefaultRunParams()
	params.StartSSEServer = func(server *mcp.Server, settings *config.Settings) error {
		s.srv = app.NewSSEServer(server, settings)
		close(ready)
		return s.srv.ListenAndServe()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- app.RunServe(ctx, params, flags, "test")
	}()

	select {
	case <-ready:
	case err := <-s.done:
		cancel()
		return nil, err
	case <-time.After(10 * time.Second):
		cancel()
		return nil, errors.New("server did not start")
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", s.port)
	if err := waitForHealth(base+"/health", 10*time.Second); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return map[string]any{PropSSEURL: base + "/sse"}, nil
}

// Stop shuts the server down.
func (s *SSEServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.srv == nil {
		return nil
	}
	srv := s.srv
	s.srv = nil

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		// open SSE streams keep the server busy
		_ = srv.Close()
	}
	if err := <-s.done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetName returns the service name.
func (s *SSEServer) GetName() string { return "sse-server" }

func waitForHealth(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("health check %s did not pass within %s", url, timeout)
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
