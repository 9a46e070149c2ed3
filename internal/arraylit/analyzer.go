// analyzer.go - 数组字面量的数据流分析
//
// 前向分析每个寄存器可能持有的 TrackedValue。数组只有在
// 长度为常量、且逃逸前按下标 0..n-1 恰好各写入一次时才被视为字面量。
// 任何其它用法（作为参数传出、被 move、在未写满时被读）都会让它逃逸为 Top。

package arraylit

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tangzhangming/dexopt/internal/dataflow"
	"github.com/tangzhangming/dexopt/internal/ir"
	"github.com/tangzhangming/dexopt/internal/lattice"
)

// Analyzer 数组字面量分析器
type Analyzer struct {
	cfg     *ir.CFG
	fp      *dataflow.FixpointIterator[Env]
	escaped EscapedArrays
	logger  *zap.Logger
}

// NewAnalyzer 在 cfg 上运行分析直到不动点
func NewAnalyzer(cfg *ir.CFG, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		cfg:     cfg,
		escaped: make(EscapedArrays),
		logger:  logger,
	}
	top := lattice.TopHashedSet[TrackedValue]()
	a.fp = dataflow.NewFixpointIterator[Env](cfg, lattice.NewBottomEnvironment[ir.Reg](top), a.AnalyzeInstruction)
	a.fp.Run(lattice.NewEnvironment[ir.Reg](top))
	return a
}

// EntryStateAt 块入口的寄存器环境
func (a *Analyzer) EntryStateAt(b *ir.Block) Env { return a.fp.EntryStateAt(b) }

// ExitStateAt 块出口的寄存器环境
func (a *Analyzer) ExitStateAt(b *ir.Block) Env { return a.fp.ExitStateAt(b) }

// Escaped 逃逸记录（含 Top）
func (a *Analyzer) Escaped() EscapedArrays { return a.escaped }

// ArrayLiterals 以确定内容逃逸的分配 -> 按下标排列的写入指令
func (a *Analyzer) ArrayLiterals() map[*ir.Instruction][]*ir.Instruction {
	out := make(map[*ir.Instruction][]*ir.Instruction)
	for insn, c := range a.escaped {
		if stores, ok := c.Get(); ok {
			out[insn] = stores
		}
	}
	return out
}

// AnalyzeInstruction 转移函数
func (a *Analyzer) AnalyzeInstruction(insn *ir.Instruction, state Env) {
	if ce := a.logger.Check(zapcore.DebugLevel, "analyze"); ce != nil {
		ce.Write(zap.Stringer("insn", insn))
	}

	switch op := insn.Opcode(); {
	case op == ir.OpConst:
		setAt(state, insn.Dest(), false, lattice.NewHashedSet(Literal(int32(insn.Literal()))))

	case op == ir.OpNewArray:
		if length, ok := singleton(state.Get(insn.Src(0))); ok && length.IsLiteral() && length.LiteralValue() >= 0 {
			a.logger.Debug("new array",
				zap.String("type", string(insn.Type())),
				zap.Int32("length", length.LiteralValue()))
			state.Set(ir.ResultRegister, lattice.NewHashedSet(NewArray(uint32(length.LiteralValue()), insn)))
			return
		}
		a.escaped.markTop(insn)
		a.defaultCase(insn, state)

	case op == ir.OpMoveResultPseudoObject:
		setAt(state, insn.Dest(), false, state.Get(ir.ResultRegister))

	case op.IsAput():
		a.escapeNewArrays(state, insn.Src(0))
		array, okArray := singleton(state.Get(insn.Src(1)))
		index, okIndex := singleton(state.Get(insn.Src(2)))
		if okArray && array.IsNewArray() && !array.IsComplete() && okIndex && index.IsLiteral() {
			idx := int64(index.LiteralValue())
			if array.IsNextIndex(idx) {
				if updated, added := array.AddElement(idx, insn); added {
					a.logger.Debug("array element",
						zap.Int64("index", idx),
						zap.Uint32("length", array.Length()))
					state.Set(insn.Src(1), lattice.NewHashedSet(updated))
					return
				}
			}
		}
		a.defaultCase(insn, state)

	case op == ir.OpMove:
		if v, ok := singleton(state.Get(insn.Src(0))); ok && v.IsLiteral() {
			setAt(state, insn.Dest(), false, lattice.NewHashedSet(v))
			return
		}
		a.defaultCase(insn, state)

	default:
		a.defaultCase(insn, state)
	}
}

// defaultCase 所有源寄存器中的数组逃逸，目标寄存器变为未知
func (a *Analyzer) defaultCase(insn *ir.Instruction, state Env) {
	for _, r := range insn.Srcs() {
		a.escapeNewArrays(state, r)
	}
	switch {
	case insn.HasDest():
		setAt(state, insn.Dest(), insn.DestIsWide(), lattice.NewHashedSet(Other()))
	case insn.HasMoveResult() || insn.HasMoveResultPseudo():
		state.Set(ir.ResultRegister, lattice.NewHashedSet(Other()))
	}
}

// escapeNewArrays 寄存器中可能出现的每个数组都逃逸
//
// Top 寄存器表示至少一条路径上未定义（不可校验的代码），不会持有被跟踪的数组。
func (a *Analyzer) escapeNewArrays(state Env, r ir.Reg) {
	values := state.Get(r)
	if values.IsTop() {
		a.logger.Debug("read of undefined register", zap.Stringer("reg", r))
		return
	}
	for _, v := range values.Elements() {
		if !v.IsNewArray() {
			continue
		}
		if v.IsComplete() {
			a.logger.Debug("literal array escaped", zap.Stringer("array", v))
		} else {
			a.logger.Debug("non-literal array escaped", zap.Stringer("array", v))
		}
		a.escaped.escape(v)
	}
}

// setAt 绑定寄存器；宽寄存器对的高位变为 Top
func setAt(state Env, r ir.Reg, wide bool, v ValueSet) {
	state.Set(r, v)
	if wide {
		state.Set(r+1, lattice.TopHashedSet[TrackedValue]())
	}
}

// singleton 集合恰有一个元素时返回之
func singleton(s ValueSet) (TrackedValue, bool) {
	return s.Singleton()
}
