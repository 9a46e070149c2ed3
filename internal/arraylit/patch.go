// patch.go - 字节码改写
//
// 元素不超过上限时：
//
//	new-array v0, [I                 (删除)
//	move-result-pseudo-object v1     (删除)
//	aput v2, v1, vA                  ->  move t0, v2
//	aput v3, v1, vB                  ->  move t1, v3
//	                                     filled-new-array {t0, t1}, [I
//	                                     move-result-object v1
//
// 超过上限时按块处理：分配保留，作为目标数组；每块构造到临时数组 c，
// 再用 System.arraycopy(c, 0, v1, start, size) 拷贝到目标数组中。

package arraylit

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/dexopt/internal/invariant"
	"github.com/tangzhangming/dexopt/internal/ir"
)

// chunkPlan 一个数组分块改写共享的寄存器
type chunkPlan struct {
	typ       ir.Type
	dest      ir.Reg // 分配的结果寄存器
	chunking  bool
	chunkDest ir.Reg    // 每块的临时数组
	scratch   [3]ir.Reg // arraycopy 的三个整数参数
}

// patchNewArray 改写一个候选
func (r *Reducer) patchNewArray(c Candidate) {
	plan := chunkPlan{
		typ:      c.NewArray.Type(),
		chunking: len(c.Aputs) > r.opts.MaxFilledElements,
	}
	if plan.chunking {
		plan.chunkDest = r.cfg.AllocateTemp()
		for i := range plan.scratch {
			plan.scratch[i] = r.cfg.AllocateTemp()
		}
	}

	it, ok := r.cfg.FindInsn(c.NewArray)
	invariant.Check(ok, invariant.I0103, "%s", c.NewArray)
	mr, ok := r.cfg.MoveResultOf(it)
	invariant.Check(ok && mr.Insn().Opcode() == ir.OpMoveResultPseudoObject,
		invariant.I0102, "%s", c.NewArray)
	plan.dest = mr.Insn().Dest()
	if !plan.chunking {
		r.cfg.RemoveInsn(it)
	}

	chunks := 0
	for start := 0; start < len(c.Aputs); {
		start += r.patchChunk(&plan, start, c.Aputs)
		chunks++
	}
	r.logger.Debug("array literal filled",
		zap.Stringer("dest", plan.dest),
		zap.Int("elements", len(c.Aputs)),
		zap.Int("chunks", chunks))
}

// patchChunk 改写 aputs[start:start+size]，返回 size
func (r *Reducer) patchChunk(plan *chunkPlan, start int, aputs []*ir.Instruction) int {
	size := min(len(aputs)-start, r.opts.MaxFilledElements)
	end := start + size

	temps := make([]ir.Reg, size)
	for i := range temps {
		temps[i] = r.cfg.AllocateTemp()
	}

	fill := ir.NewInstruction(ir.OpFilledNewArray).SetType(plan.typ).SetSrcs(temps...)
	result := plan.dest
	if plan.chunking {
		result = plan.chunkDest
	}
	insns := []*ir.Instruction{
		fill,
		ir.NewInstruction(ir.OpMoveResultObject).SetDest(result),
	}
	if plan.chunking {
		r.stats.FilledArrayChunks++
		insns = append(insns,
			ir.NewInstruction(ir.OpConst).SetDest(plan.scratch[0]).SetLiteral(0),
			ir.NewInstruction(ir.OpConst).SetDest(plan.scratch[1]).SetLiteral(int64(start)),
			ir.NewInstruction(ir.OpConst).SetDest(plan.scratch[2]).SetLiteral(int64(size)),
			ir.NewInstruction(ir.OpInvokeStatic).
				SetMethod(ir.ArrayCopyMethod).
				SetSrcs(plan.chunkDest, plan.scratch[0], plan.dest, plan.scratch[1], plan.scratch[2]),
		)
	}

	last, ok := r.cfg.FindInsn(aputs[end-1])
	invariant.Check(ok, invariant.I0103, "%s", aputs[end-1])
	r.cfg.InsertAfter(last, insns...)

	move := ir.OpMoveObject
	if plan.typ.ComponentType().IsPrimitive() {
		move = ir.OpMove
	}
	for i := start; i < end; i++ {
		aput := aputs[i]
		invariant.Check(aput.Opcode().IsAput(), invariant.I0100, "%s", aput)
		invariant.Check(aput.Src(1) == plan.dest, invariant.I0101,
			"%s stores into %s, allocation result is %s", aput, aput.Src(1), plan.dest)
		it, ok := r.cfg.FindInsn(aput)
		invariant.Check(ok, invariant.I0103, "%s", aput)
		r.cfg.InsertBefore(it, ir.NewInstruction(move).SetDest(temps[i-start]).SetSrc(0, aput.Src(0)))
		r.cfg.RemoveInsn(it)
	}
	return size
}
