package lattice

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Environment 变量 -> 抽象值 的逐点乘积格
//
// 未绑定的变量隐式为 Top；绑定为 Top 的变量不会被保存。
// 底元表示不可达的程序点。
type Environment[K cmp.Ordered, D Domain[D]] struct {
	bottom   bool
	top      D
	bindings map[K]D
}

// NewEnvironment 创建 Top 环境，top 为值域的 Top 元
func NewEnvironment[K cmp.Ordered, D Domain[D]](top D) *Environment[K, D] {
	return &Environment[K, D]{top: top, bindings: make(map[K]D)}
}

// NewBottomEnvironment 创建底元环境
func NewBottomEnvironment[K cmp.Ordered, D Domain[D]](top D) *Environment[K, D] {
	return &Environment[K, D]{bottom: true, top: top, bindings: make(map[K]D)}
}

// IsBottom 是否为底元
func (e *Environment[K, D]) IsBottom() bool { return e.bottom }

// IsTop 是否为 Top（可达且没有任何约束）
func (e *Environment[K, D]) IsTop() bool { return !e.bottom && len(e.bindings) == 0 }

// Get 取变量的抽象值
func (e *Environment[K, D]) Get(k K) D {
	if v, ok := e.bindings[k]; ok {
		return v
	}
	return e.top
}

// Set 绑定变量；在底元上设置无效果
func (e *Environment[K, D]) Set(k K, v D) {
	if e.bottom {
		return
	}
	if v.IsTop() {
		delete(e.bindings, k)
		return
	}
	e.bindings[k] = v
}

// Keys 已绑定的变量，升序
func (e *Environment[K, D]) Keys() []K {
	keys := make([]K, 0, len(e.bindings))
	for k := range e.bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone 复制环境
func (e *Environment[K, D]) Clone() *Environment[K, D] {
	out := &Environment[K, D]{bottom: e.bottom, top: e.top, bindings: make(map[K]D, len(e.bindings))}
	for k, v := range e.bindings {
		out.bindings[k] = v
	}
	return out
}

// Join 逐点合并，返回新环境
func (e *Environment[K, D]) Join(other *Environment[K, D]) *Environment[K, D] {
	if e.bottom {
		return other.Clone()
	}
	if other.bottom {
		return e.Clone()
	}
	out := &Environment[K, D]{top: e.top, bindings: make(map[K]D)}
	for k, v := range e.bindings {
		w, ok := other.bindings[k]
		if !ok {
			continue
		}
		if j := v.Join(w); !j.IsTop() {
			out.bindings[k] = j
		}
	}
	return out
}

// Equals 环境相等
func (e *Environment[K, D]) Equals(other *Environment[K, D]) bool {
	if e.bottom || other.bottom {
		return e.bottom == other.bottom
	}
	if len(e.bindings) != len(other.bindings) {
		return false
	}
	for k, v := range e.bindings {
		w, ok := other.bindings[k]
		if !ok || !v.Equals(w) {
			return false
		}
	}
	return true
}

func (e *Environment[K, D]) String() string {
	if e.bottom {
		return "_|_"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, k := range e.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v -> %v", k, e.bindings[k])
	}
	sb.WriteByte(']')
	return sb.String()
}
