// Package asm 解析 IR 文本格式并构建控制流图
//
// 文本格式为每行一条 s-表达式：
//
//	(const v0 3)
//	(new-array v0 "[I")
//	(move-result-pseudo-object v1)
//	(if-eqz v2 :done)
//	(invoke-static (v1) "LFoo;.bar:([I)V")
//	(:done)
//	(return-object v1)
//
// 基本块在标签处以及跳转/返回指令之后切分。分号开始的内容为注释。
package asm

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tangzhangming/dexopt/internal/ir"
)

// segment 待建块：一个可选标签加一串指令
type segment struct {
	label string
	insns []*ir.Instruction
}

// Parse 解析 IR 文本
func Parse(src string) (*ir.CFG, error) {
	nodes, err := newReader(src).readAll()
	if err != nil {
		return nil, err
	}

	var segs []*segment
	cur := &segment{}
	segs = append(segs, cur)
	labels := make(map[string]bool)

	for _, n := range nodes {
		if !n.isList || len(n.list) == 0 {
			return nil, errors.Newf("line %d: expected an instruction list", n.line)
		}
		head := n.list[0]
		if strings.HasPrefix(head.atom, ":") && len(n.list) == 1 {
			name := head.atom[1:]
			if name == "" || labels[name] {
				return nil, errors.Newf("line %d: bad or duplicate label %q", n.line, name)
			}
			labels[name] = true
			if len(cur.insns) == 0 && cur.label == "" {
				cur.label = name
			} else {
				cur = &segment{label: name}
				segs = append(segs, cur)
			}
			continue
		}

		insn, err := parseInsn(n)
		if err != nil {
			return nil, err
		}
		cur.insns = append(cur.insns, insn)
		if insn.Opcode().IsTerminator() {
			cur = &segment{}
			segs = append(segs, cur)
		}
	}

	// 丢弃末尾的空块
	if last := segs[len(segs)-1]; len(segs) > 1 && last.label == "" && len(last.insns) == 0 {
		segs = segs[:len(segs)-1]
	}

	return buildCFG(segs)
}

// MustParse 解析 IR 文本，失败时 panic（用于测试）
func MustParse(src string) *ir.CFG {
	cfg, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return cfg
}

// buildCFG 按切分结果创建基本块并连边
func buildCFG(segs []*segment) (*ir.CFG, error) {
	cfg := ir.NewCFG()
	blocks := make([]*ir.Block, len(segs))
	for i, s := range segs {
		blocks[i] = cfg.NewBlock(s.label)
		blocks[i].Append(s.insns...)
	}

	for i, s := range segs {
		var follow *ir.Block
		if i+1 < len(blocks) {
			follow = blocks[i+1]
		}
		if len(s.insns) == 0 {
			if follow != nil {
				cfg.AddEdge(blocks[i], follow)
			}
			continue
		}
		last := s.insns[len(s.insns)-1]
		switch last.Opcode().Flow() {
		case ir.FlowNext:
			if follow != nil {
				cfg.AddEdge(blocks[i], follow)
			}
		case ir.FlowBranch, ir.FlowGoto:
			target := cfg.BlockByLabel(last.Target())
			if target == nil {
				return nil, errors.Newf("%s: unknown label %q", last, last.Target())
			}
			if last.Opcode().Flow() == ir.FlowBranch && follow != nil && follow != target {
				cfg.AddEdge(blocks[i], follow)
			}
			cfg.AddEdge(blocks[i], target)
		}
	}
	return cfg, nil
}

// parseInsn 解析一条指令
func parseInsn(n *node) (*ir.Instruction, error) {
	head := n.list[0]
	op, ok := ir.LookupOpcode(head.atom)
	if !ok {
		return nil, errors.Newf("line %d: unknown opcode %q", n.line, head.atom)
	}
	insn := ir.NewInstruction(op)
	args := n.list[1:]
	next := func() (*node, error) {
		if len(args) == 0 {
			return nil, errors.Newf("line %d: %s: missing operand", n.line, op)
		}
		a := args[0]
		args = args[1:]
		return a, nil
	}

	if insn.HasDest() {
		a, err := next()
		if err != nil {
			return nil, err
		}
		r, err := parseReg(a)
		if err != nil {
			return nil, err
		}
		insn.SetDest(r)
	}

	switch {
	case op == ir.OpFilledNewArray || op.IsInvoke():
		a, err := next()
		if err != nil {
			return nil, err
		}
		if !a.isList {
			return nil, errors.Newf("line %d: %s: expected a register list", a.line, op)
		}
		regs := make([]ir.Reg, len(a.list))
		for k, e := range a.list {
			if regs[k], err = parseReg(e); err != nil {
				return nil, err
			}
		}
		insn.SetSrcs(regs...)
	default:
		for k := 0; k < insn.SrcsSize(); k++ {
			a, err := next()
			if err != nil {
				return nil, err
			}
			r, err := parseReg(a)
			if err != nil {
				return nil, err
			}
			insn.SetSrc(k, r)
		}
	}

	switch {
	case insn.HasLiteral():
		a, err := next()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(a.atom, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: %s: bad literal", a.line, op)
		}
		insn.SetLiteral(v)
	case insn.HasType():
		s, err := nextString(next)
		if err != nil {
			return nil, err
		}
		t, err := ir.ParseType(s)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n.line)
		}
		insn.SetType(t)
	case insn.HasMethod():
		s, err := nextString(next)
		if err != nil {
			return nil, err
		}
		m, err := ir.ParseMethodRef(s)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n.line)
		}
		insn.SetMethod(m)
	case insn.HasString():
		s, err := nextString(next)
		if err != nil {
			return nil, err
		}
		insn.SetString(s)
	}

	if f := op.Flow(); f == ir.FlowBranch || f == ir.FlowGoto {
		a, err := next()
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(a.atom, ":") || len(a.atom) < 2 {
			return nil, errors.Newf("line %d: %s: expected a label", a.line, op)
		}
		insn.SetTarget(a.atom[1:])
	}

	if len(args) > 0 {
		return nil, errors.Newf("line %d: %s: unexpected trailing operands", n.line, op)
	}
	return insn, nil
}

// parseReg 解析 "vN"
func parseReg(n *node) (ir.Reg, error) {
	if n.isList || n.quoted || !strings.HasPrefix(n.atom, "v") {
		return 0, errors.Newf("line %d: expected a register, got %q", n.line, n.atom)
	}
	v, err := strconv.ParseUint(n.atom[1:], 10, 32)
	if err != nil || ir.Reg(v) == ir.ResultRegister {
		return 0, errors.Newf("line %d: bad register %q", n.line, n.atom)
	}
	return ir.Reg(v), nil
}

// nextString 取下一个字符串字面量
func nextString(next func() (*node, error)) (string, error) {
	a, err := next()
	if err != nil {
		return "", err
	}
	if !a.quoted {
		return "", errors.Newf("line %d: expected a quoted string, got %q", a.line, a.atom)
	}
	return a.atom, nil
}
