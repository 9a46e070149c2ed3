package pass

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/tangzhangming/dexopt/internal/arraylit"
	"github.com/tangzhangming/dexopt/internal/config"
	"github.com/tangzhangming/dexopt/internal/invariant"
	"github.com/tangzhangming/dexopt/internal/program"
)

// intArrayCode n 个元素的 int 数组构造
func intArrayCode(n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(const v0 %d)\n(new-array v0 \"[I\")\n(move-result-pseudo-object v1)\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "(const v2 %d)\n(const v3 %d)\n(aput v3 v1 v2)\n", i, i*i)
	}
	sb.WriteString("(return-object v1)\n")
	return sb.String()
}

func indent(s string) string {
	return "          " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n          ")
}

func testProgram(t *testing.T) *program.Program {
	t.Helper()
	src := fmt.Sprintf(`classes:
  - name: LFoo;
    methods:
      - name: small
        static: true
        code: |
%s
      - name: big
        static: true
        code: |
%s
      - name: untouched
        static: true
        no_optimizations: true
        code: |
%s
      - name: abstract
  - name: LBar;
    methods:
      - name: bytes
        code: |
          (const v0 1)
          (new-array v0 "[B")
          (move-result-pseudo-object v1)
          (const v2 0)
          (aput-byte v2 v1 v2)
          (return-object v1)
`, indent(intArrayCode(3)), indent(intArrayCode(60)), indent(intArrayCode(2)))
	p, err := program.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func modernConfig() *config.Config {
	c := config.Default()
	c.Redex.MinSdk = 24
	c.Redex.Arch = "arm64"
	return c
}

// TestPipeline 测试完整运行与指标汇总
func TestPipeline(t *testing.T) {
	prog := testProgram(t)
	untouched := prog.Methods()[2].CFG.String()

	v := NewVerifier()
	v.Record(prog)
	if v.Recorded() != 4 {
		t.Errorf("recorded %d methods, want 4", v.Recorded())
	}

	pm := CreateStandardPipeline(modernConfig(), nil)
	if err := pm.Run(context.Background(), prog); err != nil {
		t.Fatal(err)
	}
	if err := v.Check(prog); err != nil {
		t.Errorf("behavior changed: %v", err)
	}

	want := map[string]int{
		arraylit.MetricFilledArrays:                        2,
		arraylit.MetricFilledArrayElements:                 63,
		arraylit.MetricFilledArrayChunks:                   3,
		arraylit.MetricRemainingWideArrays:                 0,
		arraylit.MetricRemainingWideArrayElements:          0,
		arraylit.MetricRemainingUnimplementedArrays:        1,
		arraylit.MetricRemainingUnimplementedArrayElements: 1,
		arraylit.MetricRemainingBuggyArrays:                0,
		arraylit.MetricRemainingBuggyArrayElements:         0,
	}
	if diff := cmp.Diff(want, pm.Metrics(ReduceArrayLiteralsPassName)); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if got := prog.Methods()[2].CFG.String(); got != untouched {
		t.Errorf("no_optimizations method was rewritten:\n%s", got)
	}
	if pm.ReservedMethodRefs() != 1 {
		t.Errorf("ReservedMethodRefs() = %d, want 1", pm.ReservedMethodRefs())
	}
}

// TestDebugMatchesParallel 测试单线程与多线程结果一致
func TestDebugMatchesParallel(t *testing.T) {
	run := func(debug bool, threads int) (string, map[string]int) {
		prog := testProgram(t)
		c := modernConfig()
		c.Passes.ReduceArrayLiterals.Debug = debug
		c.Passes.ReduceArrayLiterals.Threads = threads
		pm := CreateStandardPipeline(c, nil)
		if err := pm.Run(context.Background(), prog); err != nil {
			t.Fatal(err)
		}
		data, err := prog.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		return string(data), pm.Metrics(ReduceArrayLiteralsPassName)
	}
	serial, serialMetrics := run(true, 0)
	parallel, parallelMetrics := run(false, 4)
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("output differs (-debug +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(serialMetrics, parallelMetrics); diff != "" {
		t.Errorf("metrics differ (-debug +parallel):\n%s", diff)
	}
}

// TestOldPlatform 测试旧平台上只计数不改写
func TestOldPlatform(t *testing.T) {
	prog := testProgram(t)
	before, _ := prog.Marshal()
	pm := CreateStandardPipeline(config.Default(), nil)
	if err := pm.Run(context.Background(), prog); err != nil {
		t.Fatal(err)
	}
	after, _ := prog.Marshal()
	if string(before) != string(after) {
		t.Error("code changed on min_sdk 0")
	}
	if got := pm.GetMetric(ReduceArrayLiteralsPassName, arraylit.MetricRemainingBuggyArrays); got != 3 {
		t.Errorf("buggy arrays = %d, want 3", got)
	}
}

// TestInvariantAbortsPass 测试不变量失败中止整个 Pass
func TestInvariantAbortsPass(t *testing.T) {
	c := modernConfig()
	c.Passes.ReduceArrayLiterals.MaxFilledElements = 0
	pm := CreateStandardPipeline(c, nil)
	err := pm.Run(context.Background(), testProgram(t))
	if err == nil {
		t.Fatal("expected the pass to fail")
	}
	if !errors.HasAssertionFailure(err) {
		t.Errorf("%v should be an assertion failure", err)
	}
	if code, ok := invariant.CodeOf(err); !ok || code != invariant.I0200 {
		t.Errorf("CodeOf = %q, %v", code, ok)
	}
}

// TestCancelledContext 测试取消后不再处理方法
func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pm := CreateStandardPipeline(modernConfig(), nil)
	if err := pm.Run(ctx, testProgram(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// TestWriteMetrics 测试 Prometheus 文本输出
func TestWriteMetrics(t *testing.T) {
	pm := CreateStandardPipeline(modernConfig(), nil)
	if err := pm.Run(context.Background(), testProgram(t)); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dexopt.prom")
	if err := pm.WriteMetrics(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `dexopt_pass_metric{metric="num_filled_array_chunks",pass="ReduceArrayLiteralsPass"} 3`
	if !strings.Contains(string(data), want) {
		t.Errorf("metrics file lacks %q:\n%s", want, data)
	}
}

// TestMetricNames 测试指标名按字典序返回
func TestMetricNames(t *testing.T) {
	pm := CreateStandardPipeline(modernConfig(), nil)
	if err := pm.Run(context.Background(), testProgram(t)); err != nil {
		t.Fatal(err)
	}
	want := []string{
		arraylit.MetricFilledArrayChunks,
		arraylit.MetricFilledArrayElements,
		arraylit.MetricFilledArrays,
		arraylit.MetricRemainingBuggyArrayElements,
		arraylit.MetricRemainingBuggyArrays,
		arraylit.MetricRemainingUnimplementedArrayElements,
		arraylit.MetricRemainingUnimplementedArrays,
		arraylit.MetricRemainingWideArrayElements,
		arraylit.MetricRemainingWideArrays,
	}
	if diff := cmp.Diff(want, pm.MetricNames(ReduceArrayLiteralsPassName)); diff != "" {
		t.Errorf("metric names mismatch (-want +got):\n%s", diff)
	}
	if names := pm.MetricNames("NoSuchPass"); len(names) != 0 {
		t.Errorf("unknown pass has metrics %v", names)
	}
}
