package lattice

import (
	"fmt"
	"strings"
)

// HashedSet 按 Hash+Equal 去重的有限集合域（幂集格）
//
// 空集是底元，Top 表示“任意值”。元素保持插入顺序，
// 因而同样的操作序列总是得到同样的遍历顺序。
type HashedSet[T Hashable[T]] struct {
	top     bool
	elems   []T
	buckets map[uint64][]int // hash -> elems 下标
}

// NewHashedSet 由给定元素构造集合
func NewHashedSet[T Hashable[T]](elems ...T) HashedSet[T] {
	var s HashedSet[T]
	for _, e := range elems {
		s.insert(e)
	}
	return s
}

// TopHashedSet 返回 Top
func TopHashedSet[T Hashable[T]]() HashedSet[T] {
	return HashedSet[T]{top: true}
}

// Kind 返回种类
func (s HashedSet[T]) Kind() Kind {
	switch {
	case s.top:
		return KindTop
	case len(s.elems) == 0:
		return KindBottom
	default:
		return KindValue
	}
}

// IsTop 是否为 Top
func (s HashedSet[T]) IsTop() bool { return s.top }

// IsBottom 是否为空集
func (s HashedSet[T]) IsBottom() bool { return !s.top && len(s.elems) == 0 }

// Size 元素个数（Top 为 0）
func (s HashedSet[T]) Size() int { return len(s.elems) }

// Elements 返回元素（调用方不得修改）
func (s HashedSet[T]) Elements() []T { return s.elems }

// Singleton 若集合恰有一个元素则返回之
func (s HashedSet[T]) Singleton() (T, bool) {
	if s.top || len(s.elems) != 1 {
		var zero T
		return zero, false
	}
	return s.elems[0], true
}

// Contains 成员测试；Top 包含一切
func (s HashedSet[T]) Contains(v T) bool {
	if s.top {
		return true
	}
	return s.indexOf(v) >= 0
}

// Add 返回加入 v 之后的集合
func (s HashedSet[T]) Add(v T) HashedSet[T] {
	if s.top || s.indexOf(v) >= 0 {
		return s
	}
	out := s.clone()
	out.insert(v)
	return out
}

// Join 集合并
func (s HashedSet[T]) Join(other HashedSet[T]) HashedSet[T] {
	switch {
	case s.top || other.top:
		return TopHashedSet[T]()
	case len(other.elems) == 0:
		return s
	case len(s.elems) == 0:
		return other
	}
	out := s
	copied := false
	for _, e := range other.elems {
		if out.indexOf(e) >= 0 {
			continue
		}
		if !copied {
			out = s.clone()
			copied = true
		}
		out.insert(e)
	}
	return out
}

// Leq 偏序：s ⊆ other
func (s HashedSet[T]) Leq(other HashedSet[T]) bool {
	if other.top {
		return true
	}
	if s.top {
		return false
	}
	for _, e := range s.elems {
		if other.indexOf(e) < 0 {
			return false
		}
	}
	return true
}

// Equals 集合相等（与顺序无关）
func (s HashedSet[T]) Equals(other HashedSet[T]) bool {
	if s.top || other.top {
		return s.top == other.top
	}
	return len(s.elems) == len(other.elems) && s.Leq(other)
}

func (s HashedSet[T]) String() string {
	if s.top {
		return "T"
	}
	parts := make([]string, len(s.elems))
	for i, e := range s.elems {
		parts[i] = fmt.Sprint(e)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s HashedSet[T]) indexOf(v T) int {
	for _, i := range s.buckets[v.Hash()] {
		if s.elems[i].Equal(v) {
			return i
		}
	}
	return -1
}

// insert 原地插入（仅用于尚未共享的集合）
func (s *HashedSet[T]) insert(v T) {
	if s.indexOf(v) >= 0 {
		return
	}
	if s.buckets == nil {
		s.buckets = make(map[uint64][]int)
	}
	h := v.Hash()
	s.buckets[h] = append(s.buckets[h], len(s.elems))
	s.elems = append(s.elems, v)
}

func (s HashedSet[T]) clone() HashedSet[T] {
	out := HashedSet[T]{
		elems:   append(make([]T, 0, len(s.elems)+1), s.elems...),
		buckets: make(map[uint64][]int, len(s.buckets)),
	}
	for h, idx := range s.buckets {
		out.buckets[h] = append([]int(nil), idx...)
	}
	return out
}
