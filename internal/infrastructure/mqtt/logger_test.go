package mqtt

import "sync"

type mockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *mockLogger) record(msg string) {
	l.mu.Lock()
	l.lines = append(l.lines, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *mockLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.record(msg) }
