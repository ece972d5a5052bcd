package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// lockedBuffer は並列評価中の書き込みとテスト側の読み出しを直列化する。
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

// TestLogger is the zerolog JSON backend writing into memory, plus helpers
// to inspect what was logged.
//
//	logger, _ := log.NewTestLogger(log.LevelDebug)
//	pipeline := preprocessing.NewPipeline(cfg, preprocessing.WithPipelineLogger(logger))
//	...
//	assert.True(t, logger.ContainsField("fit_scope", "train"))
type TestLogger struct {
	*ZerologLogger
	out *lockedBuffer
}

// NewTestLogger returns the logger and the raw buffer it shares with every
// logger derived through With.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	out := &lockedBuffer{}
	return &TestLogger{ZerologLogger: NewZerologLogger(out, level), out: out}, &out.buf
}

// GetLogEntries decodes every captured JSON line.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(t.out.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.out.String(), message)
}

// ContainsField reports whether some entry has entry[key] == value. Numbers
// decode as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.out.Reset()
}
