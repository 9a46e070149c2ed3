// cfg.go - 可编辑的控制流图
//
// 每个基本块用双向链表保存指令，迭代器直接持有链表节点：
// 在某个位置前后插入指令、删除其他指令，都不会使已持有的迭代器失效。
// 被删除指令自身的迭代器随之失效。

package ir

import (
	"container/list"
	"fmt"
	"iter"
)

// ============================================================================
// 基本块
// ============================================================================

// Block 基本块
type Block struct {
	id    int
	label string
	insns *list.List // 元素类型为 *Instruction
	preds []*Block
	succs []*Block
	cfg   *CFG
}

// ID 基本块编号（按创建顺序递增）
func (b *Block) ID() int { return b.id }

// Label 基本块标签（可能为空）
func (b *Block) Label() string { return b.label }

// Preds 前驱块
func (b *Block) Preds() []*Block { return b.preds }

// Succs 后继块
func (b *Block) Succs() []*Block { return b.succs }

// Len 指令数量
func (b *Block) Len() int { return b.insns.Len() }

// Instructions 按顺序遍历块内指令
func (b *Block) Instructions() iter.Seq[*Instruction] {
	return func(yield func(*Instruction) bool) {
		for e := b.insns.Front(); e != nil; {
			next := e.Next()
			if !yield(e.Value.(*Instruction)) {
				return
			}
			e = next
		}
	}
}

// Append 在块尾追加指令
func (b *Block) Append(insns ...*Instruction) {
	for _, insn := range insns {
		b.cfg.attach(b, b.insns.PushBack(insn))
	}
}

// LastInsn 块内最后一条指令
func (b *Block) LastInsn() *Instruction {
	if e := b.insns.Back(); e != nil {
		return e.Value.(*Instruction)
	}
	return nil
}

// ============================================================================
// 指令迭代器
// ============================================================================

// InstructionIterator 指向 CFG 中某条指令的位置
type InstructionIterator struct {
	block *Block
	elem  *list.Element
}

// Insn 当前指令
func (it InstructionIterator) Insn() *Instruction { return it.elem.Value.(*Instruction) }

// Block 所在基本块
func (it InstructionIterator) Block() *Block { return it.block }

// Valid 迭代器是否指向一条指令
func (it InstructionIterator) Valid() bool { return it.elem != nil }

// ============================================================================
// 控制流图
// ============================================================================

// CFG 控制流图
type CFG struct {
	blocks        []*Block
	blockID       int
	nextInsnID    int
	registersSize Reg

	// 指令 -> 位置，供 FindInsn 使用
	index map[*Instruction]InstructionIterator
}

// NewCFG 创建空的控制流图
func NewCFG() *CFG {
	return &CFG{
		blocks: make([]*Block, 0),
		index:  make(map[*Instruction]InstructionIterator),
	}
}

// NewBlock 创建新的基本块，第一个创建的块为入口块
func (c *CFG) NewBlock(label string) *Block {
	b := &Block{
		id:    c.blockID,
		label: label,
		insns: list.New(),
		cfg:   c,
	}
	c.blockID++
	c.blocks = append(c.blocks, b)
	return b
}

// Entry 入口块
func (c *CFG) Entry() *Block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[0]
}

// Blocks 所有基本块（按布局顺序）
func (c *CFG) Blocks() []*Block { return c.blocks }

// BlockByLabel 按标签查找基本块
func (c *CFG) BlockByLabel(label string) *Block {
	for _, b := range c.blocks {
		if b.label == label {
			return b
		}
	}
	return nil
}

// AddEdge 添加控制流边
func (c *CFG) AddEdge(from, to *Block) {
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// RegistersSize 已使用的寄存器数量
func (c *CFG) RegistersSize() Reg { return c.registersSize }

// AllocateTemp 分配一个新的临时寄存器
func (c *CFG) AllocateTemp() Reg {
	r := c.registersSize
	c.registersSize++
	return r
}

// AllocateWideTemp 分配一对相邻的临时寄存器
func (c *CFG) AllocateWideTemp() Reg {
	r := c.registersSize
	c.registersSize += 2
	return r
}

// NumInstructions 指令总数
func (c *CFG) NumInstructions() int { return len(c.index) }

// Instructions 按线性顺序遍历全部指令
//
// 遍历过程中可以删除当前指令或在其前后插入指令；
// 在当前指令之后插入的指令不会被本次遍历访问。
func (c *CFG) Instructions() iter.Seq[InstructionIterator] {
	return func(yield func(InstructionIterator) bool) {
		for _, b := range c.blocks {
			for e := b.insns.Front(); e != nil; {
				next := e.Next()
				if !yield(InstructionIterator{block: b, elem: e}) {
					return
				}
				e = next
			}
		}
	}
}

// FindInsn 查找指令所在位置
func (c *CFG) FindInsn(insn *Instruction) (InstructionIterator, bool) {
	it, ok := c.index[insn]
	return it, ok
}

// InsertBefore 在 it 之前插入指令
func (c *CFG) InsertBefore(it InstructionIterator, insns ...*Instruction) {
	for _, insn := range insns {
		c.attach(it.block, it.block.insns.InsertBefore(insn, it.elem))
	}
}

// InsertAfter 在 it 之后按顺序插入指令
func (c *CFG) InsertAfter(it InstructionIterator, insns ...*Instruction) {
	mark := it.elem
	for _, insn := range insns {
		mark = it.block.insns.InsertAfter(insn, mark)
		c.attach(it.block, mark)
	}
}

// RemoveInsn 删除指令；带伪结果的指令会连同其 move-result-pseudo 一起删除
func (c *CFG) RemoveInsn(it InstructionIterator) {
	insn := it.Insn()
	if insn.HasMoveResultPseudo() {
		if mr, ok := c.MoveResultOf(it); ok {
			c.detach(mr)
		}
	}
	c.detach(it)
}

// MoveResultOf 返回紧随 it 之后的 move-result(-pseudo) 指令
func (c *CFG) MoveResultOf(it InstructionIterator) (InstructionIterator, bool) {
	next := it.elem.Next()
	if next == nil {
		return InstructionIterator{}, false
	}
	op := next.Value.(*Instruction).Opcode()
	if !op.IsMoveResult() && !op.IsMoveResultPseudo() {
		return InstructionIterator{}, false
	}
	return InstructionIterator{block: it.block, elem: next}, true
}

// attach 登记新插入的指令
func (c *CFG) attach(b *Block, e *list.Element) {
	insn := e.Value.(*Instruction)
	if _, dup := c.index[insn]; dup {
		panic(fmt.Sprintf("instruction %s inserted twice", insn))
	}
	c.nextInsnID++
	insn.id = c.nextInsnID
	c.index[insn] = InstructionIterator{block: b, elem: e}
	c.reserve(insn)
}

// detach 从块中摘除指令
func (c *CFG) detach(it InstructionIterator) {
	delete(c.index, it.Insn())
	it.block.insns.Remove(it.elem)
}

// reserve 保证寄存器计数覆盖指令用到的所有寄存器
func (c *CFG) reserve(insn *Instruction) {
	use := func(r Reg, wide bool) {
		if r == ResultRegister {
			return
		}
		end := r + 1
		if wide {
			end++
		}
		if end > c.registersSize {
			c.registersSize = end
		}
	}
	if insn.HasDest() {
		use(insn.dest, insn.DestIsWide())
	}
	for n, r := range insn.srcs {
		use(r, insn.SrcIsWide(n))
	}
}
