package asm

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// node s-表达式节点：原子或列表
type node struct {
	atom   string
	quoted bool
	isList bool
	list   []*node
	line   int
}

// reader 极简的 s-表达式读取器
type reader struct {
	src  string
	pos  int
	line int
}

func newReader(src string) *reader {
	return &reader{src: src, line: 1}
}

// readAll 读取全部顶层表达式
func (r *reader) readAll() ([]*node, error) {
	var out []*node
	for {
		r.skipSpace()
		if r.pos >= len(r.src) {
			return out, nil
		}
		n, err := r.read()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

// skipSpace 跳过空白与注释
func (r *reader) skipSpace() {
	for r.pos < len(r.src) {
		switch c := r.src[r.pos]; {
		case c == '\n':
			r.line++
			r.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			r.pos++
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

// read 读取一个表达式
func (r *reader) read() (*node, error) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return nil, errors.Newf("line %d: unexpected end of input", r.line)
	}
	line := r.line
	switch c := r.src[r.pos]; c {
	case '(':
		r.pos++
		n := &node{isList: true, line: line}
		for {
			r.skipSpace()
			if r.pos >= len(r.src) {
				return nil, errors.Newf("line %d: unterminated list", line)
			}
			if r.src[r.pos] == ')' {
				r.pos++
				return n, nil
			}
			child, err := r.read()
			if err != nil {
				return nil, err
			}
			n.list = append(n.list, child)
		}
	case ')':
		return nil, errors.Newf("line %d: unexpected ')'", line)
	case '"':
		start := r.pos
		r.pos++
		for r.pos < len(r.src) && r.src[r.pos] != '"' {
			if r.src[r.pos] == '\\' {
				r.pos++
			}
			if r.pos < len(r.src) && r.src[r.pos] == '\n' {
				return nil, errors.Newf("line %d: newline in string", line)
			}
			r.pos++
		}
		if r.pos >= len(r.src) {
			return nil, errors.Newf("line %d: unterminated string", line)
		}
		r.pos++
		s, err := strconv.Unquote(r.src[start:r.pos])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad string literal", line)
		}
		return &node{atom: s, quoted: true, line: line}, nil
	default:
		start := r.pos
		for r.pos < len(r.src) {
			c := r.src[r.pos]
			if c == '(' || c == ')' || c == '"' || c == ';' || c == ',' ||
				c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				break
			}
			r.pos++
		}
		return &node{atom: r.src[start:r.pos], line: line}, nil
	}
}
