package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sha1n/git-semantic/internal/domain"
)

func TestExecute_Version(t *testing.T) {
	err := Execute("1.0.0", "abc123", "git-semantic", []string{"--version"})
	if err != nil {
		t.Errorf("Expected no error for --version, got: %v", err)
	}
}

func TestExecute_Help(t *testing.T) {
	err := Execute("1.0.0", "abc123", "git-semantic", []string{"--help"})
	if err != nil {
		t.Errorf("Expected no error for --help, got: %v", err)
	}
}

func TestExecute_SubcommandHelp(t *testing.T) {
	for _, cmd := range []string{"index", "update", "search", "stats", "serve"} {
		if err := Execute("1.0.0", "abc123", "git-semantic", []string{cmd, "--help"}); err != nil {
			t.Errorf("Expected no error for %s --help, got: %v", cmd, err)
		}
	}
}

func TestExecute_InvalidFlag(t *testing.T) {
	err := Execute("1.0.0", "abc123", "git-semantic", []string{"index", "--invalid-flag"})
	if err == nil {
		t.Error("Expected error for invalid flag")
	}
}

func TestExecute_SearchRequiresQuery(t *testing.T) {
	err := Execute("1.0.0", "abc123", "git-semantic", []string{"search"})
	if err == nil {
		t.Error("Expected error for missing query")
	}
}

func TestExecute_InvalidTransport(t *testing.T) {
	err := Execute("1.0.0", "abc123", "git-semantic", []string{"serve", "--transport", "invalid"})
	if err == nil {
		t.Fatal("Expected error for invalid transport")
	}
	if !strings.Contains(err.Error(), "transport") {
		t.Errorf("Expected error about transport, got: %v", err)
	}
}

func TestExecute_StatsWithoutIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0644); err != nil {
		t.Fatalf("Failed to write HEAD: %v", err)
	}

	err := Execute("1.0.0", "abc123", "git-semantic", []string{"stats", "-p", dir})
	if err == nil {
		t.Fatal("Expected error without an index")
	}
	if !errors.Is(err, domain.ErrIndexNotFound) && !errors.Is(err, domain.ErrNotAGitRepository) {
		t.Errorf("Expected index or repository error, got: %v", err)
	}
}

func TestRunMain_Success(t *testing.T) {
	exitCode := -1
	mockExit := func(code int) {
		exitCode = code
	}

	// --help should succeed
	runMain([]string{"git-semantic", "--help"}, mockExit)

	if exitCode != -1 {
		t.Errorf("Expected no exit call for --help, got exit code: %d", exitCode)
	}
}

func TestRunMain_Failure(t *testing.T) {
	exitCode := -1
	mockExit := func(code int) {
		exitCode = code
	}

	runMain([]string{"git-semantic", "index", "--invalid"}, mockExit)

	if exitCode != 1 {
		t.Errorf("Expected exit code 1 for invalid flag, got: %d", exitCode)
	}
}
