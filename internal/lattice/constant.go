package lattice

import "fmt"

// Constant 常量域：底元、单个具体值或 Top
//
// 两个不同的具体值合并为 Top；Top 一旦出现便不会再回到具体值。
type Constant[T Equaler[T]] struct {
	kind  Kind
	value T
}

// ConstantOf 具体值
func ConstantOf[T Equaler[T]](v T) Constant[T] {
	return Constant[T]{kind: KindValue, value: v}
}

// TopConstant 返回 Top
func TopConstant[T Equaler[T]]() Constant[T] {
	return Constant[T]{kind: KindTop}
}

// Kind 返回种类
func (c Constant[T]) Kind() Kind { return c.kind }

// IsTop 是否为 Top
func (c Constant[T]) IsTop() bool { return c.kind == KindTop }

// IsBottom 是否为底元
func (c Constant[T]) IsBottom() bool { return c.kind == KindBottom }

// Get 取出具体值
func (c Constant[T]) Get() (T, bool) {
	if c.kind != KindValue {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Join 合并
func (c Constant[T]) Join(other Constant[T]) Constant[T] {
	switch {
	case c.kind == KindBottom:
		return other
	case other.kind == KindBottom:
		return c
	case c.kind == KindTop || other.kind == KindTop:
		return TopConstant[T]()
	case c.value.Equal(other.value):
		return c
	default:
		return TopConstant[T]()
	}
}

// Equals 相等
func (c Constant[T]) Equals(other Constant[T]) bool {
	if c.kind != other.kind {
		return false
	}
	return c.kind != KindValue || c.value.Equal(other.value)
}

func (c Constant[T]) String() string {
	if c.kind == KindValue {
		return fmt.Sprint(c.value)
	}
	return c.kind.String()
}
