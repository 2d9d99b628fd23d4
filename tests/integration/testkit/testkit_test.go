package testkit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Mock service for testing
type mockService struct {
	name       string
	startProps map[string]any
	startErr   error
	stopErr    error
	started    bool
	onStop     func()
}

func (m *mockService) Start() (map[string]any, error) {
	m.started = true
	return m.startProps, m.startErr
}

func (m *mockService) Stop() error {
	if m.onStop != nil {
		m.onStop()
	}
	return m.stopErr
}

func (m *mockService) GetName() string {
	return m.name
}

func TestTestEnvStart(t *testing.T) {
	t.Run("merges properties", func(t *testing.T) {
		svc1 := &mockService{name: "svc1", startProps: map[string]any{"key1": "value1"}}
		svc2 := &mockService{name: "svc2", startProps: map[string]any{"key2": "value2"}}
		env := NewTestEnv(svc1, svc2)

		props, err := env.Start()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !svc1.started || !svc2.started {
			t.Error("Services should have been started")
		}
		if props["key1"] != "value1" || props["key2"] != "value2" {
			t.Errorf("Unexpected properties: %v", props)
		}
		if val, ok := env.GetContext().GetProperty("key2"); !ok || val != "value2" {
			t.Errorf("Expected key2 in context, got %v", val)
		}
		if _, ok := env.GetContext().GetProperty("missing"); ok {
			t.Error("Expected missing property not to be found")
		}
	})

	t.Run("start error names the service", func(t *testing.T) {
		env := NewTestEnv(&mockService{name: "failing-svc", startErr: errors.New("start failed")})

		_, err := env.Start()
		if err == nil || err.Error() != "failing-svc: start failed" {
			t.Errorf("Expected named start error, got %v", err)
		}
	})
}

func TestTestEnvStop(t *testing.T) {
	var stopOrder []string
	svc1 := &mockService{name: "svc1", stopErr: errors.New("error1"), onStop: func() { stopOrder = append(stopOrder, "svc1") }}
	svc2 := &mockService{name: "svc2", stopErr: errors.New("error2"), onStop: func() { stopOrder = append(stopOrder, "svc2") }}

	err := NewTestEnv(svc1, svc2).Stop()

	if strings.Join(stopOrder, ",") != "svc2,svc1" {
		t.Errorf("Expected reverse order [svc2, svc1], got %v", stopOrder)
	}
	if err == nil || !strings.Contains(err.Error(), "error1") || !strings.Contains(err.Error(), "error2") {
		t.Errorf("Expected both stop errors, got %v", err)
	}
}

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if port <= 0 {
		t.Errorf("Expected positive port, got %d", port)
	}
	if MustGetFreePort(t) <= 0 {
		t.Error("Expected positive port")
	}
}

func TestGetFreePortWithAddr_InvalidAddr(t *testing.T) {
	_, err := getFreePortWithAddr("invalid:address:format")
	if err == nil {
		t.Error("Expected error for invalid address")
	}
}

func TestGitRepo_Commit(t *testing.T) {
	repo := NewGitRepo(t)
	date := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	hash := repo.Commit(t, "Alice", date, "add readme", map[string]string{"README.md": "hello\n"})
	if len(hash) != 40 {
		t.Fatalf("Expected a full hash, got %q", hash)
	}

	author, err := repo.Git(nil, "log", "-1", "--format=%an|%ct")
	if err != nil {
		t.Fatal(err)
	}
	if author != "Alice|1714554000" {
		t.Errorf("Expected author and committer date to be pinned, got %q", author)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir, "README.md")); err != nil {
		t.Errorf("Expected README.md to be written: %v", err)
	}
}

func TestGitRepo_AddWorktree(t *testing.T) {
	repo := NewGitRepo(t)
	repo.Commit(t, "Alice", time.Now(), "initial", map[string]string{"a.txt": "a"})

	path := repo.AddWorktree(t, "feature")

	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil {
		t.Fatalf("Expected .git in worktree: %v", err)
	}
	if info.IsDir() {
		t.Error("Expected worktree .git to be a file")
	}
}
