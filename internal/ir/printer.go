package ir

import (
	"fmt"
	"strings"
)

// ============================================================================
// 文本表示
// ============================================================================

// String 返回指令的 s-表达式形式，可被 asm 包重新解析
func (i *Instruction) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(i.op.String())

	if i.HasDest() {
		sb.WriteByte(' ')
		sb.WriteString(i.dest.String())
	}

	if opTable[i.op].srcs < 0 {
		sb.WriteString(" (")
		for n, r := range i.srcs {
			if n > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(r.String())
		}
		sb.WriteByte(')')
	} else {
		for _, r := range i.srcs {
			sb.WriteByte(' ')
			sb.WriteString(r.String())
		}
	}

	switch opTable[i.op].operand {
	case operandLiteral:
		fmt.Fprintf(&sb, " %d", i.literal)
	case operandType:
		fmt.Fprintf(&sb, " %q", string(i.typ))
	case operandMethod:
		if i.method != nil {
			fmt.Fprintf(&sb, " %q", i.method.String())
		}
	case operandString:
		fmt.Fprintf(&sb, " %q", i.str)
	}

	if i.target != "" {
		sb.WriteString(" :")
		sb.WriteString(i.target)
	}

	sb.WriteByte(')')
	return sb.String()
}

// String 按布局顺序打印整个 CFG
func (c *CFG) String() string {
	var sb strings.Builder
	for _, b := range c.blocks {
		if b.label != "" {
			fmt.Fprintf(&sb, "(:%s)\n", b.label)
		}
		for insn := range b.Instructions() {
			sb.WriteString(insn.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Dump 打印带块编号与边信息的调试视图
func (c *CFG) Dump() string {
	var sb strings.Builder
	for _, b := range c.blocks {
		fmt.Fprintf(&sb, "B%d", b.id)
		if b.label != "" {
			fmt.Fprintf(&sb, " :%s", b.label)
		}
		sb.WriteString(" preds=[")
		for n, p := range b.preds {
			if n > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "B%d", p.id)
		}
		sb.WriteString("] succs=[")
		for n, s := range b.succs {
			if n > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "B%d", s.id)
		}
		sb.WriteString("]\n")
		for insn := range b.Instructions() {
			fmt.Fprintf(&sb, "  %4d: %s\n", insn.id, insn)
		}
	}
	return sb.String()
}
