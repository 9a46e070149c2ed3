package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `classes:
  - name: LFoo;
    methods:
      - name: make
        static: true
        code: |
          (const v0 2)
          (new-array v0 "[I")
          (move-result-pseudo-object v1)
          (const v2 0)
          (const v3 7)
          (aput v3 v1 v2)
          (const v2 1)
          (aput v3 v1 v2)
          (return-object v1)
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRun 测试命令行完整流程
func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "prog.yaml", sample)
	writeFile(t, dir, "dexopt.toml", "[redex]\nmin_sdk = 24\n\n[log]\nlevel = \"error\"\n")
	out := filepath.Join(dir, "out.yaml")
	prom := filepath.Join(dir, "out.prom")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-verify", "-o", out, "-metrics", prom, input}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "filled-new-array") {
		t.Errorf("output not rewritten:\n%s", data)
	}
	if _, err := os.Stat(prom); err != nil {
		t.Errorf("metrics file missing: %v", err)
	}
	if !strings.Contains(stderr.String(), "num_filled_arrays") {
		t.Errorf("summary missing:\n%s", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("unexpected stdout: %s", stdout.String())
	}
}

// TestRunOverrides 测试命令行参数覆盖配置
func TestRunOverrides(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "prog.yaml", sample)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{input}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stdout.String(), "filled-new-array") {
		t.Error("rewritten with default min_sdk")
	}

	stdout.Reset()
	if err := run(context.Background(), []string{"-min-sdk", "24", "-arch", "arm64", input}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "filled-new-array") {
		t.Errorf("not rewritten with -min-sdk 24:\n%s", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "prog.yaml", sample)
	bad := writeFile(t, dir, "bad.toml", "[redex]\narch = \"sparc\"\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"missing file", []string{filepath.Join(dir, "nope.yaml")}},
		{"bad config", []string{"-config", bad, input}},
		{"bad arch flag", []string{"-arch", "z80", input}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), tt.args, &stdout, &stderr); err == nil {
				t.Error("expected error")
			}
		})
	}
}
