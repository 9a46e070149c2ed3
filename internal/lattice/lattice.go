// Package lattice 提供数据流分析使用的抽象域：
// 按结构哈希去重的值集合、常量域以及寄存器环境（逐点乘积格）。
//
// 所有域满足并半格约定：Join 满足交换律、结合律、幂等律，
// Top 吸收一切。集合与常量域是不可变值，修改操作返回新值。
package lattice

// Kind 抽象值的种类
type Kind uint8

const (
	KindBottom Kind = iota // 不可达 / 尚无信息
	KindValue              // 具体值
	KindTop                // 无任何约束
)

func (k Kind) String() string {
	switch k {
	case KindBottom:
		return "bottom"
	case KindValue:
		return "value"
	case KindTop:
		return "top"
	default:
		return "unknown"
	}
}

// Domain 可作为环境绑定值的抽象域
type Domain[D any] interface {
	Join(other D) D
	Equals(other D) bool
	IsTop() bool
}

// Hashable 可放入 HashedSet 的元素
type Hashable[T any] interface {
	Hash() uint64
	Equal(other T) bool
}

// Equaler 可作为 Constant 内容的值
type Equaler[T any] interface {
	Equal(other T) bool
}
