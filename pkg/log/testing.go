// Test support: an in-memory capturing logger so tests can assert on the
// structured records an analysis run emits.

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

// TestLogger is a JSON logger writing to an in-memory buffer, with
// helpers for inspecting the captured records. It goes through the same
// handler chain as a production logger, stack-trace extraction included.
type TestLogger struct {
	*slog.Logger
	buf *bytes.Buffer
}

// NewTestLogger creates a capturing logger at the given level.
func NewTestLogger(loglevel string) *TestLogger {
	buf := &bytes.Buffer{}
	return &TestLogger{
		Logger: NewLogger(buf, loglevel),
		buf:    buf,
	}
}

// Output returns the raw captured log text.
func (t *TestLogger) Output() string {
	return t.buf.String()
}

// Entries parses the captured output into one map per record.
func (t *TestLogger) Entries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.buf.String()), "\n") {
		if line == "" {
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

// ContainsMessage reports whether any captured record carries msg.
func (t *TestLogger) ContainsMessage(msg string) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry["msg"] == msg {
			return true
		}
	}
	return false
}

// ContainsField reports whether any captured record has the given
// attribute value. JSON numbers compare as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops the captured output, for reuse between test cases.
func (t *TestLogger) Clear() {
	t.buf.Reset()
}
