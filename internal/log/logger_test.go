package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: DebugLevel},
		{in: "INFO", want: InfoLevel},
		{in: "", want: InfoLevel},
		{in: " warning ", want: WarnLevel},
		{in: "error", want: ErrorLevel},
		{in: "silent", want: SilentLevel},
		{in: "off", want: SilentLevel},
		{in: "trace", want: InfoLevel, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: WarnLevel, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("path edge limit reached", "limit", 10)
	l.Error("failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below WARN were written: %q", out)
	}
	if !strings.Contains(out, "WARN: path edge limit reached limit=10\n") {
		t.Errorf("missing warning line: %q", out)
	}
	if !strings.Contains(out, "ERROR: failed\n") {
		t.Errorf("missing error line: %q", out)
	}

	buf.Reset()
	l.SetLevel(SilentLevel)
	l.Error("dropped")
	if buf.Len() != 0 {
		t.Errorf("silent logger wrote %q", buf.String())
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: DebugLevel, Output: &buf})
	l.SetJSONOutput(true)

	l.Info("solve finished", "path_edges", 12, "level", "shadowed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["message"] != "solve finished" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["path_edges"] != float64(12) {
		t.Errorf("path_edges = %v, want 12", entry["path_edges"])
	}
	if entry["field.level"] != "shadowed" {
		t.Errorf("colliding key not renamed: %v", entry)
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{name: "no args", want: "msg"},
		{name: "pairs", args: []interface{}{"a", 1, "b", "x"}, want: "msg a=1 b=x"},
		{name: "odd leading arg", args: []interface{}{"lone", "k", 2}, want: "msg extra=lone k=2"},
		{name: "non-string key skipped", args: []interface{}{3, "v"}, want: "msg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMessage("msg", tt.args...); got != tt.want {
				t.Errorf("formatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
