package history

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// MockExecutor records commands and returns configured responses.
// This is exported for use in tests of dependent packages.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []ExecutorCall
}

// MockCommand defines a mock response for a command prefix.
type MockCommand struct {
	NamePrefix string
	Output     []byte
	Err        error
}

// ExecutorCall records a command invocation.
type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		commands: make([]MockCommand, 0),
		calls:    make([]ExecutorCall, 0),
	}
}

// AddResponse adds a mock response for commands matching the given prefix.
// Responses are consumed in the order they were added.
func (m *MockExecutor) AddResponse(namePrefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, MockCommand{
		NamePrefix: namePrefix,
		Output:     output,
		Err:        err,
	})
}

// Run executes a command and returns the configured mock response.
func (m *MockExecutor) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ExecutorCall{Dir: dir, Name: name, Args: args})

	// Build full command string for matching
	fullCmd := name + " " + strings.Join(args, " ")

	for i, cmd := range m.commands {
		if strings.HasPrefix(fullCmd, cmd.NamePrefix) {
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			return cmd.Output, cmd.Err
		}
	}

	return nil, errors.New("no mock response configured for: " + fullCmd)
}

// GetCalls returns all recorded command calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutorCall(nil), m.calls...)
}

// CountCalls returns how many recorded calls start with the given prefix.
func (m *MockExecutor) CountCalls(prefix string) int {
	n := 0
	for _, call := range m.GetCalls() {
		if strings.HasPrefix(call.Name+" "+strings.Join(call.Args, " "), prefix) {
			n++
		}
	}
	return n
}

// MustGetLastCall returns the last recorded call, fails the test if no calls were made.
func (m *MockExecutor) MustGetLastCall(t *testing.T) ExecutorCall {
	t.Helper()
	calls := m.GetCalls()
	if len(calls) == 0 {
		t.Fatal("Expected at least one command call")
	}
	return calls[len(calls)-1]
}

// LogRecord formats a commit the way Reader's git log format prints it.
func LogRecord(hash, author string, unixTime int64, parents, message string) string {
	return recordSeparator + strings.Join([]string{
		hash,
		author,
		formatInt(unixTime),
		parents,
		message,
	}, fieldSeparator) + "\n"
}
