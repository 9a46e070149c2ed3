// Package interp 是 IR 的参考解释器
//
// 它只实现改写前后可能出现的指令，用来比较一个方法在改写前后的
// 可观察行为：对其它方法的调用序列（参数为深拷贝）、返回值与异常。
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tangzhangming/dexopt/internal/ir"
)

// Kind 运行时值种类
type Kind uint8

const (
	KindInt Kind = iota // 整数（含 long）
	KindNull
	KindString
	KindArray
)

// Array 运行时数组
type Array struct {
	Type  ir.Type
	Elems []Value
}

// Value 运行时值
type Value struct {
	Kind  Kind
	Int   int64
	Str   string
	Array *Array
}

// Int 整数值
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Null 空引用
func Null() Value { return Value{Kind: KindNull} }

// String 字符串值
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// zero 元素类型的默认值
func zero(t ir.Type) Value {
	if t.IsPrimitive() {
		return Int(0)
	}
	return Null()
}

// deepCopy 复制数组内容，用于记录调用时的快照
func (v Value) deepCopy() Value {
	if v.Kind != KindArray {
		return v
	}
	elems := make([]Value, len(v.Array.Elems))
	for i, e := range v.Array.Elems {
		elems[i] = e.deepCopy()
	}
	return Value{Kind: KindArray, Array: &Array{Type: v.Array.Type, Elems: elems}}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.Str)
	case KindArray:
		parts := make([]string, len(v.Array.Elems))
		for i, e := range v.Array.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%s{%s}", v.Array.Type, strings.Join(parts, ", "))
	default:
		return "?"
	}
}

// Call 一次被记录的调用
type Call struct {
	Method string
	Args   []Value
}

// Result 一次执行的可观察结果
type Result struct {
	Calls     []Call
	Return    *Value
	Exception string
}

// String 结果的规范文本，可直接比较
func (r *Result) String() string {
	var sb strings.Builder
	for _, c := range r.Calls {
		sb.WriteString("call ")
		sb.WriteString(c.Method)
		sb.WriteByte('(')
		for i, a := range c.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteString(")\n")
	}
	switch {
	case r.Exception != "":
		fmt.Fprintf(&sb, "throw %s\n", r.Exception)
	case r.Return != nil:
		fmt.Fprintf(&sb, "return %s\n", r.Return)
	default:
		sb.WriteString("return\n")
	}
	return sb.String()
}
