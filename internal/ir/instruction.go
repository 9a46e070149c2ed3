package ir

import (
	"fmt"
	"math"
)

// Reg 虚拟寄存器编号
type Reg uint32

// ResultRegister 伪寄存器：保存调用或 new-array 等指令的隐式结果，
// 直到紧随其后的 move-result(-pseudo) 将其取出
const ResultRegister Reg = math.MaxUint32

// String 返回寄存器的文本形式
func (r Reg) String() string {
	if r == ResultRegister {
		return "RESULT"
	}
	return fmt.Sprintf("v%d", r)
}

// ============================================================================
// 指令
// ============================================================================

// Instruction 一条 IR 指令
//
// 指令以指针身份区分：同一 CFG 中的两条指令即使内容相同也不相等。
// id 在插入 CFG 时分配，方法内单调递增且不复用，可用于哈希。
type Instruction struct {
	op      Opcode
	dest    Reg
	srcs    []Reg
	literal int64
	typ     Type
	method  *MethodRef
	str     string
	target  string // 跳转目标标签
	id      int
}

// NewInstruction 创建指令
func NewInstruction(op Opcode) *Instruction {
	insn := &Instruction{op: op}
	if n := opTable[op].srcs; n > 0 {
		insn.srcs = make([]Reg, n)
	}
	return insn
}

// Opcode 返回操作码
func (i *Instruction) Opcode() Opcode { return i.op }

// ID 返回指令在所属 CFG 中的编号（未插入时为 0）
func (i *Instruction) ID() int { return i.id }

// HasDest 是否写目标寄存器
func (i *Instruction) HasDest() bool { return opTable[i.op].dest != destNone }

// DestIsWide 目标是否为宽寄存器对
func (i *Instruction) DestIsWide() bool { return opTable[i.op].dest == destWide }

// Dest 返回目标寄存器
func (i *Instruction) Dest() Reg {
	if !i.HasDest() {
		panic(fmt.Sprintf("%s has no destination", i.op))
	}
	return i.dest
}

// SetDest 设置目标寄存器
func (i *Instruction) SetDest(r Reg) *Instruction {
	i.dest = r
	return i
}

// Srcs 返回源寄存器（调用方不得修改）
func (i *Instruction) Srcs() []Reg { return i.srcs }

// SrcsSize 源寄存器数量
func (i *Instruction) SrcsSize() int { return len(i.srcs) }

// Src 返回第 n 个源寄存器
func (i *Instruction) Src(n int) Reg { return i.srcs[n] }

// SetSrc 设置第 n 个源寄存器
func (i *Instruction) SetSrc(n int, r Reg) *Instruction {
	i.srcs[n] = r
	return i
}

// SetSrcs 设置全部源寄存器（仅限可变参数指令或数量一致时）
func (i *Instruction) SetSrcs(regs ...Reg) *Instruction {
	if n := opTable[i.op].srcs; n >= 0 && n != len(regs) {
		panic(fmt.Sprintf("%s expects %d sources, got %d", i.op, n, len(regs)))
	}
	i.srcs = append(i.srcs[:0], regs...)
	return i
}

// SetArgWordCount 设置可变参数指令的源寄存器数量
func (i *Instruction) SetArgWordCount(n int) *Instruction {
	if opTable[i.op].srcs >= 0 {
		panic(fmt.Sprintf("%s has a fixed number of sources", i.op))
	}
	i.srcs = make([]Reg, n)
	return i
}

// SrcIsWide 第 n 个源是否为宽寄存器对
func (i *Instruction) SrcIsWide(n int) bool {
	for _, w := range opTable[i.op].wideSrcs {
		if w == n {
			return true
		}
	}
	return false
}

// HasLiteral 是否携带字面量
func (i *Instruction) HasLiteral() bool { return opTable[i.op].operand == operandLiteral }

// Literal 返回字面量
func (i *Instruction) Literal() int64 { return i.literal }

// SetLiteral 设置字面量
func (i *Instruction) SetLiteral(v int64) *Instruction {
	i.literal = v
	return i
}

// HasType 是否携带类型操作数
func (i *Instruction) HasType() bool { return opTable[i.op].operand == operandType }

// Type 返回类型操作数
func (i *Instruction) Type() Type { return i.typ }

// SetType 设置类型操作数
func (i *Instruction) SetType(t Type) *Instruction {
	i.typ = t
	return i
}

// HasMethod 是否携带方法操作数
func (i *Instruction) HasMethod() bool { return opTable[i.op].operand == operandMethod }

// Method 返回方法操作数
func (i *Instruction) Method() *MethodRef { return i.method }

// SetMethod 设置方法操作数
func (i *Instruction) SetMethod(m *MethodRef) *Instruction {
	i.method = m
	return i
}

// HasString 是否携带字符串操作数
func (i *Instruction) HasString() bool { return opTable[i.op].operand == operandString }

// StringOperand 返回字符串操作数
func (i *Instruction) StringOperand() string { return i.str }

// SetString 设置字符串操作数
func (i *Instruction) SetString(s string) *Instruction {
	i.str = s
	return i
}

// Target 跳转目标标签
func (i *Instruction) Target() string { return i.target }

// SetTarget 设置跳转目标标签
func (i *Instruction) SetTarget(label string) *Instruction {
	i.target = label
	return i
}

// HasMoveResult 结果是否由 move-result* 取出
func (i *Instruction) HasMoveResult() bool { return opTable[i.op].result == resultMove }

// HasMoveResultPseudo 结果是否由 move-result-pseudo* 取出
func (i *Instruction) HasMoveResultPseudo() bool { return opTable[i.op].result == resultPseudo }

// Clone 复制指令（不复制 id）
func (i *Instruction) Clone() *Instruction {
	c := *i
	c.srcs = append([]Reg(nil), i.srcs...)
	c.id = 0
	return &c
}
