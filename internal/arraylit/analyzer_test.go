package arraylit

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tangzhangming/dexopt/internal/asm"
	"github.com/tangzhangming/dexopt/internal/ir"
)

// TestAnalyzerState 测试寄存器状态
func TestAnalyzerState(t *testing.T) {
	cfg := asm.MustParse(`
		(const v0 2)
		(new-array v0 "[I")
		(move-result-pseudo-object v1)
		(const v2 0)
		(move v3 v2)
		(aput v0 v1 v3)
		(const-wide v4 1)
		(return-object v1)
	`)
	a := NewAnalyzer(cfg, nil)
	out := a.ExitStateAt(cfg.Entry())

	arr, ok := out.Get(1).Singleton()
	if !ok || !arr.IsNewArray() || arr.Count() != 1 || arr.Length() != 2 {
		t.Errorf("v1 = %v", out.Get(1))
	}
	if lit, ok := out.Get(3).Singleton(); !ok || !lit.IsLiteral() || lit.LiteralValue() != 0 {
		t.Errorf("v3 = %v", out.Get(3))
	}
	if v, ok := out.Get(4).Singleton(); !ok || v.Kind() != ValueOther {
		t.Errorf("v4 = %v", out.Get(4))
	}
	if !out.Get(5).IsTop() {
		t.Errorf("high half of a wide pair should be top, got %v", out.Get(5))
	}
	if len(a.ArrayLiterals()) != 0 {
		t.Error("incomplete array reported as literal")
	}
	if len(a.Escaped()) != 1 {
		t.Errorf("escaped = %v", a.Escaped())
	}
}

// TestAnalyzerTrace 测试调试日志
func TestAnalyzerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := asm.MustParse(`
		(const v0 1)
		(new-array v0 "[I")
		(move-result-pseudo-object v1)
		(aput v0 v1 v0)
		(return-object v1)
	`)
	NewAnalyzer(cfg, zap.New(core))
	if logs.FilterMessage("analyze").Len() < cfg.NumInstructions() {
		t.Errorf("expected one trace entry per instruction, got %d", logs.FilterMessage("analyze").Len())
	}
	if logs.FilterMessage("new array").Len() == 0 {
		t.Error("missing new array trace")
	}
	// aput v0 v1 v0 写入下标 1，不是下一个下标，因此数组以未完成状态逃逸
	if logs.FilterMessage("non-literal array escaped").Len() == 0 {
		t.Error("missing escape trace")
	}
}

// TestUndefinedRegisterRead 测试只在一条路径上定义的寄存器
func TestUndefinedRegisterRead(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := asm.MustParse(`
		(load-param v2)
		(if-eqz v2 :skip)
		(const v0 1)
		(new-array v0 "[I")
		(move-result-pseudo-object v1)
		(const v3 0)
		(aput v3 v1 v3)
		(:skip)
		(invoke-static (v1) "LFoo;.use:([I)V")
		(return-void)
	`)
	a := NewAnalyzer(cfg, zap.New(core))

	reads := logs.FilterMessage("read of undefined register").FilterField(zap.Stringer("reg", ir.Reg(1)))
	if reads.Len() == 0 {
		t.Error("missing trace for the read of v1 after the join")
	}
	if len(a.ArrayLiterals()) != 0 {
		t.Errorf("array reached through an undefined register reported as literal: %v", a.ArrayLiterals())
	}
	if r := NewReducer(cfg, DefaultOptions(), nil); len(r.Candidates()) != 0 {
		t.Errorf("candidates = %v", r.Candidates())
	}
}
