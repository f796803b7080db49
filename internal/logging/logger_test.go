package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := New().SetOutput(&buf)

	logger.Info("sync finished", map[string]interface{}{"owner": "did:plc:alice", "added": 3})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != "INFO" || e.Message != "sync finished" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Fields["owner"] != "did:plc:alice" {
		t.Fatalf("expected owner field, got %v", e.Fields)
	}
	if e.Fields["added"] != float64(3) {
		t.Fatalf("expected added=3, got %v", e.Fields["added"])
	}
	if e.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New().SetOutput(&buf).SetLevel(LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Fatalf("unexpected levels: %s, %s", entries[0].Level, entries[1].Level)
	}
}

func TestLogger_WithFieldsMerges(t *testing.T) {
	var buf bytes.Buffer
	base := New().SetOutput(&buf)
	child := base.WithField("component", "reconcile").WithFields(map[string]interface{}{"owner": "did:plc:bob"})

	child.Warn("push failed", map[string]interface{}{"target": "did:plc:eve"})
	base.Info("no fields")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	f := entries[0].Fields
	if f["component"] != "reconcile" || f["owner"] != "did:plc:bob" || f["target"] != "did:plc:eve" {
		t.Fatalf("unexpected merged fields: %v", f)
	}
	if entries[1].Fields != nil {
		t.Fatalf("expected parent logger without fields, got %v", entries[1].Fields)
	}
}

func TestLevel_String(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(42):  "UNKNOWN",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}
