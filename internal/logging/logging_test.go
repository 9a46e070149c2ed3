package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// TestJSONFormat 测试 JSON 输出与级别过滤
func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "info", FormatJSON, false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("shown", zap.Int("arrays", 3))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["msg"] != "shown" || entry["arrays"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

// TestConsoleFormat 测试控制台输出
func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "debug", FormatConsole, false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("trace", zap.String("insn", "(const v0 1)"))
	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "(const v0 1)") {
		t.Errorf("output = %q", buf.String())
	}
}

// TestBadOptions 测试非法参数
func TestBadOptions(t *testing.T) {
	if _, err := NewWithWriter(&bytes.Buffer{}, "loud", FormatConsole, false); err == nil {
		t.Error("unknown level accepted")
	}
	if _, err := NewWithWriter(&bytes.Buffer{}, "info", "xml", false); err == nil {
		t.Error("unknown format accepted")
	}
	if ValidFormat("xml") || !ValidFormat(FormatJSON) {
		t.Error("ValidFormat wrong")
	}
}
