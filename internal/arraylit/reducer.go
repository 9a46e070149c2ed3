// Package arraylit 把“new-array + 按序 aput”的数组构造改写为 filled-new-array
//
// 分析阶段（Analyzer）找出以确定内容逃逸的数组；Reducer 按程序顺序
// 整理候选，逐个经过平台检查后改写字节码。
package arraylit

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/dexopt/internal/invariant"
	"github.com/tangzhangming/dexopt/internal/ir"
)

// DefaultMaxFilledElements 单条 filled-new-array 的默认最大元素数
const DefaultMaxFilledElements = 27

// Options 改写参数
type Options struct {
	MaxFilledElements int
	MinSdk            int
	Arch              Architecture
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{MaxFilledElements: DefaultMaxFilledElements}
}

// Candidate 一个可改写的数组构造
type Candidate struct {
	NewArray *ir.Instruction
	Aputs    []*ir.Instruction
}

// Reducer 单个方法的数组字面量改写器
type Reducer struct {
	cfg        *ir.CFG
	opts       Options
	candidates []Candidate
	stats      Stats
	logger     *zap.Logger
}

// NewReducer 分析 cfg 并按程序顺序收集候选
//
// 方法中没有 new-array 时不运行分析。
func NewReducer(cfg *ir.CFG, opts Options, logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	invariant.Check(opts.MaxFilledElements > 0 && opts.MaxFilledElements < 0xff,
		invariant.I0200, "max_filled_elements = %d", opts.MaxFilledElements)

	r := &Reducer{cfg: cfg, opts: opts, logger: logger}

	var newArrays []*ir.Instruction
	for it := range cfg.Instructions() {
		if insn := it.Insn(); insn.Opcode() == ir.OpNewArray {
			newArrays = append(newArrays, insn)
		}
	}
	if len(newArrays) == 0 {
		return r
	}

	literals := NewAnalyzer(cfg, logger).ArrayLiterals()
	for _, insn := range newArrays {
		if aputs, ok := literals[insn]; ok {
			r.candidates = append(r.candidates, Candidate{NewArray: insn, Aputs: aputs})
		}
	}
	invariant.Check(len(r.candidates) == len(literals), invariant.I0001,
		"%d ordered, %d found", len(r.candidates), len(literals))
	return r
}

// Candidates 按程序顺序排列的候选
func (r *Reducer) Candidates() []Candidate { return r.candidates }

// Stats 统计
func (r *Reducer) Stats() Stats { return r.stats }

// Patch 检查并改写所有候选
func (r *Reducer) Patch() {
	for _, c := range r.candidates {
		n := len(c.Aputs)
		if n == 0 {
			continue
		}
		v := Classify(r.opts.MinSdk, r.opts.Arch, c.NewArray.Type(), n)
		r.stats.record(v, n)
		if v != Accept {
			r.logger.Debug("array literal kept",
				zap.Stringer("insn", c.NewArray),
				zap.Stringer("reason", v),
				zap.Int("elements", n))
			continue
		}
		r.patchNewArray(c)
	}
}
