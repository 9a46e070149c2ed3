// Package dataflow 实现 CFG 上的前向单调不动点迭代
package dataflow

import (
	"github.com/tangzhangming/dexopt/internal/ir"
)

// State 抽象状态需要满足的约定
//
// Join 返回新值且不修改参数；Clone 返回可独立修改的副本。
type State[E any] interface {
	Join(other E) E
	Equals(other E) bool
	Clone() E
	IsBottom() bool
}

// TransferFunc 单条指令的转移函数，原地修改 state
type TransferFunc[E any] func(insn *ir.Instruction, state E)

// FixpointIterator 前向不动点迭代器
//
// 按逆后序维护工作表；每个块的入口状态为所有前驱出口状态的并，
// 入口块另外并上初始状态。入口状态不再变化时迭代结束。
type FixpointIterator[E State[E]] struct {
	cfg      *ir.CFG
	bottom   E
	transfer TransferFunc[E]

	entry map[*ir.Block]E
	exit  map[*ir.Block]E

	iterations int
}

// NewFixpointIterator 创建迭代器，bottom 为不可达状态
func NewFixpointIterator[E State[E]](cfg *ir.CFG, bottom E, transfer TransferFunc[E]) *FixpointIterator[E] {
	return &FixpointIterator[E]{
		cfg:      cfg,
		bottom:   bottom,
		transfer: transfer,
		entry:    make(map[*ir.Block]E),
		exit:     make(map[*ir.Block]E),
	}
}

// Run 从入口状态 init 开始迭代到不动点
func (f *FixpointIterator[E]) Run(init E) {
	start := f.cfg.Entry()
	if start == nil {
		return
	}
	order := ReversePostOrder(f.cfg)
	rank := make(map[*ir.Block]int, len(order))
	for i, b := range order {
		rank[b] = i
	}

	pending := make([]bool, len(order))
	pending[0] = true
	remaining := 1

	for remaining > 0 {
		i := 0
		for !pending[i] {
			i++
		}
		pending[i] = false
		remaining--
		b := order[i]
		f.iterations++

		in := f.bottom.Clone()
		if b == start {
			in = in.Join(init)
		}
		for _, p := range b.Preds() {
			if out, ok := f.exit[p]; ok {
				in = in.Join(out)
			}
		}
		if old, seen := f.entry[b]; seen && old.Equals(in) {
			continue
		}
		f.entry[b] = in

		out := in.Clone()
		f.AnalyzeBlock(b, out)
		f.exit[b] = out

		for _, s := range b.Succs() {
			if r, ok := rank[s]; ok && !pending[r] {
				pending[r] = true
				remaining++
			}
		}
	}
}

// AnalyzeBlock 依次对块内指令应用转移函数
func (f *FixpointIterator[E]) AnalyzeBlock(b *ir.Block, state E) {
	for insn := range b.Instructions() {
		f.transfer(insn, state)
	}
}

// EntryStateAt 块入口状态；未到达的块为 bottom
func (f *FixpointIterator[E]) EntryStateAt(b *ir.Block) E {
	if s, ok := f.entry[b]; ok {
		return s
	}
	return f.bottom
}

// ExitStateAt 块出口状态；未到达的块为 bottom
func (f *FixpointIterator[E]) ExitStateAt(b *ir.Block) E {
	if s, ok := f.exit[b]; ok {
		return s
	}
	return f.bottom
}

// Iterations 处理块的次数
func (f *FixpointIterator[E]) Iterations() int { return f.iterations }

// ReversePostOrder 从入口可达的块的逆后序
func ReversePostOrder(cfg *ir.CFG) []*ir.Block {
	start := cfg.Entry()
	if start == nil {
		return nil
	}
	visited := make(map[*ir.Block]bool)
	var post []*ir.Block

	// 显式栈，避免深层 CFG 递归
	type frame struct {
		b    *ir.Block
		next int
	}
	stack := []frame{{b: start}}
	visited[start] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.b.Succs()) {
			s := top.b.Succs()[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{b: s})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
