package planner

import (
	"fmt"
	"path/filepath"
)

// mockHasher serves digests keyed by slash-separated path and records calls.
type mockHasher struct {
	digests map[string]string
	errs    map[string]error
	calls   []string
}

func (m *mockHasher) Hash(path string) (string, error) {
	path = filepath.ToSlash(path)
	m.calls = append(m.calls, path)
	if err, ok := m.errs[path]; ok {
		return "", err
	}
	if d, ok := m.digests[path]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unexpected hash of %s", path)
}

// mockLogger is a mock implementation of logger.Logger for testing
type mockLogger struct {
	errorCalls []errorCall
	debugCalls []string
}

type errorCall struct {
	operation string
	path      string
	err       error
}

func (m *mockLogger) PhaseStart(phase string, totalItems int) {}

func (m *mockLogger) ItemProcessed(phase string, item string, action string) {}

func (m *mockLogger) PhaseComplete(phase string, processedItems int) {}

func (m *mockLogger) Info(msg string, args ...any) {}

func (m *mockLogger) Debug(msg string, args ...any) {
	m.debugCalls = append(m.debugCalls, msg)
}

func (m *mockLogger) Error(operation, path string, err error) {
	m.errorCalls = append(m.errorCalls, errorCall{operation, filepath.ToSlash(path), err})
}
