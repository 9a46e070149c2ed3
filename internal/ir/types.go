package ir

import (
	"fmt"
	"strings"
)

// ============================================================================
// 类型描述符
// ============================================================================

// Type 类型描述符，例如 "I"、"J"、"[I"、"Ljava/lang/String;"
type Type string

// 常用类型
const (
	TypeVoid    Type = "V"
	TypeBoolean Type = "Z"
	TypeByte    Type = "B"
	TypeShort   Type = "S"
	TypeChar    Type = "C"
	TypeInt     Type = "I"
	TypeLong    Type = "J"
	TypeFloat   Type = "F"
	TypeDouble  Type = "D"
	TypeObject  Type = "Ljava/lang/Object;"
	TypeString  Type = "Ljava/lang/String;"
)

// IsPrimitive 是否是基本类型（不含 void）
func (t Type) IsPrimitive() bool {
	if len(t) != 1 {
		return false
	}
	return strings.ContainsRune("ZBSCIJFD", rune(t[0]))
}

// IsWide 是否占用两个寄存器（long/double）
func (t Type) IsWide() bool {
	return t == TypeLong || t == TypeDouble
}

// IsArray 是否是数组类型
func (t Type) IsArray() bool {
	return len(t) > 1 && t[0] == '['
}

// IsObject 是否是引用类型（类或数组）
func (t Type) IsObject() bool {
	return t.IsArray() || (len(t) > 2 && t[0] == 'L' && t[len(t)-1] == ';')
}

// ComponentType 数组元素类型；非数组返回空
func (t Type) ComponentType() Type {
	if !t.IsArray() {
		return ""
	}
	return t[1:]
}

// ArrayOf 构造元素类型为 t 的数组类型
func (t Type) ArrayOf() Type {
	return "[" + t
}

// valid 检查描述符是否合法
func (t Type) valid() bool {
	switch {
	case t == TypeVoid, t.IsPrimitive():
		return true
	case t.IsArray():
		c := t.ComponentType()
		return c != TypeVoid && c.valid()
	default:
		return t.IsObject() && !strings.ContainsAny(string(t[1:len(t)-1]), ";[")
	}
}

// ParseType 解析并校验类型描述符
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.valid() {
		return "", fmt.Errorf("invalid type descriptor %q", s)
	}
	return t, nil
}

// ============================================================================
// 方法引用
// ============================================================================

// MethodRef 方法引用 "Lcls;.name:(params)ret"
type MethodRef struct {
	Class  Type
	Name   string
	Params []Type
	Return Type
}

// String 返回方法引用的描述符形式
func (m *MethodRef) String() string {
	var sb strings.Builder
	sb.WriteString(string(m.Class))
	sb.WriteByte('.')
	sb.WriteString(m.Name)
	sb.WriteString(":(")
	for _, p := range m.Params {
		sb.WriteString(string(p))
	}
	sb.WriteByte(')')
	sb.WriteString(string(m.Return))
	return sb.String()
}

// ArgWordCount 调用所需的参数寄存器数量（宽类型占两个）
func (m *MethodRef) ArgWordCount(isStatic bool) int {
	n := 0
	if !isStatic {
		n++
	}
	for _, p := range m.Params {
		if p.IsWide() {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// ParseMethodRef 解析方法引用描述符
func ParseMethodRef(s string) (*MethodRef, error) {
	dot := strings.Index(s, ";.")
	colon := strings.LastIndex(s, ":(")
	if dot < 0 || colon < dot {
		return nil, fmt.Errorf("invalid method reference %q", s)
	}
	cls, err := ParseType(s[:dot+1])
	if err != nil {
		return nil, fmt.Errorf("method reference %q: %w", s, err)
	}
	name := s[dot+2 : colon]
	if name == "" {
		return nil, fmt.Errorf("method reference %q: empty name", s)
	}
	proto := s[colon+2:]
	closing := strings.IndexByte(proto, ')')
	if closing < 0 {
		return nil, fmt.Errorf("method reference %q: unterminated prototype", s)
	}
	params, err := splitDescriptors(proto[:closing])
	if err != nil {
		return nil, fmt.Errorf("method reference %q: %w", s, err)
	}
	ret, err := ParseType(proto[closing+1:])
	if err != nil {
		return nil, fmt.Errorf("method reference %q: %w", s, err)
	}
	return &MethodRef{Class: cls, Name: name, Params: params, Return: ret}, nil
}

// MustParseMethodRef 解析方法引用，失败时 panic（仅用于常量）
func MustParseMethodRef(s string) *MethodRef {
	m, err := ParseMethodRef(s)
	if err != nil {
		panic(err)
	}
	return m
}

// splitDescriptors 拆分连续的类型描述符
func splitDescriptors(s string) ([]Type, error) {
	var out []Type
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] == '[' {
			j++
		}
		if j >= len(s) {
			return nil, fmt.Errorf("truncated descriptor %q", s[i:])
		}
		if s[j] == 'L' {
			end := strings.IndexByte(s[j:], ';')
			if end < 0 {
				return nil, fmt.Errorf("unterminated class descriptor %q", s[i:])
			}
			j += end
		}
		t, err := ParseType(s[i : j+1])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		i = j + 1
	}
	return out, nil
}

// ArrayCopyMethod System.arraycopy，分块构造数组时用于拼接
var ArrayCopyMethod = MustParseMethodRef(
	"Ljava/lang/System;.arraycopy:(Ljava/lang/Object;ILjava/lang/Object;II)V")
