// value.go - 寄存器抽象值
//
// 每个寄存器对应一个 TrackedValue 集合：
// 已知的 32 位字面量、正在按下标顺序初始化的数组，或者其它值。

package arraylit

import (
	"fmt"
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tangzhangming/dexopt/internal/ir"
	"github.com/tangzhangming/dexopt/internal/lattice"
)

// ValueKind 抽象值种类
type ValueKind uint8

const (
	ValueOther    ValueKind = iota // 未知值
	ValueLiteral                   // 32 位字面量
	ValueNewArray                  // 正在初始化的数组
)

// TrackedValue 寄存器中可能出现的一个抽象值
//
// NewArray 值记录分配指令、声明长度，以及已按顺序写入的下标 0..count-1
// 对应的 aput 指令。值一旦放入集合便不再修改，追加元素会产生新值。
type TrackedValue struct {
	kind     ValueKind
	literal  int32
	length   uint32
	newArray *ir.Instruction
	aputs    []*ir.Instruction
	recorded mapset.Set[*ir.Instruction] // aputs 的反查集合
}

// ValueSet 寄存器的抽象值集合
type ValueSet = lattice.HashedSet[TrackedValue]

// Env 寄存器环境
type Env = *lattice.Environment[ir.Reg, ValueSet]

// Other 未知值
func Other() TrackedValue { return TrackedValue{kind: ValueOther} }

// Literal 字面量
func Literal(v int32) TrackedValue { return TrackedValue{kind: ValueLiteral, literal: v} }

// NewArray 长度为 length 的新数组，尚无元素
func NewArray(length uint32, insn *ir.Instruction) TrackedValue {
	return TrackedValue{kind: ValueNewArray, length: length, newArray: insn}
}

// Kind 值种类
func (v TrackedValue) Kind() ValueKind { return v.kind }

// IsLiteral 是否为字面量
func (v TrackedValue) IsLiteral() bool { return v.kind == ValueLiteral }

// IsNewArray 是否为数组
func (v TrackedValue) IsNewArray() bool { return v.kind == ValueNewArray }

// LiteralValue 字面量的值
func (v TrackedValue) LiteralValue() int32 { return v.literal }

// Length 数组声明长度
func (v TrackedValue) Length() uint32 { return v.length }

// Count 已写入的元素个数
func (v TrackedValue) Count() int { return len(v.aputs) }

// Allocation 数组的分配指令
func (v TrackedValue) Allocation() *ir.Instruction { return v.newArray }

// IsComplete 数组的每个元素都已按顺序写入
func (v TrackedValue) IsComplete() bool {
	return v.kind == ValueNewArray && uint32(len(v.aputs)) == v.length
}

// IsNextIndex 下标是否正好是下一个待写入的位置
func (v TrackedValue) IsNextIndex(index int64) bool {
	return v.kind == ValueNewArray && index == int64(len(v.aputs))
}

// AddElement 在下一个下标处记录 aput，返回新值
//
// 若同一条 aput 已被记录过则返回 false：
// 这说明控制流让同一条写入指令出现了两次。
func (v TrackedValue) AddElement(index int64, aput *ir.Instruction) (TrackedValue, bool) {
	if !v.IsNextIndex(index) || v.IsComplete() || aput == nil {
		return v, false
	}
	if v.recorded != nil && v.recorded.Contains(aput) {
		return v, false
	}
	out := v
	out.aputs = make([]*ir.Instruction, len(v.aputs)+1)
	copy(out.aputs, v.aputs)
	out.aputs[len(v.aputs)] = aput
	if v.recorded == nil {
		out.recorded = mapset.NewThreadUnsafeSet[*ir.Instruction]()
	} else {
		out.recorded = v.recorded.Clone()
	}
	out.recorded.Add(aput)
	return out, true
}

// Aputs 完整数组的写入指令，按下标排列
func (v TrackedValue) Aputs() []*ir.Instruction {
	if !v.IsComplete() {
		return nil
	}
	return append([]*ir.Instruction(nil), v.aputs...)
}

// Hash 与 Equal 一致的哈希
func (v TrackedValue) Hash() uint64 {
	switch v.kind {
	case ValueLiteral:
		return uint64(int64(v.literal))
	case ValueNewArray:
		return uint64(v.length) + uint64(v.newArray.ID())*0x9e3779b97f4a7c15 ^ uint64(len(v.aputs))
	default:
		return math.MaxUint64
	}
}

// Equal 结构相等；数组按分配指令身份、长度和逐个下标的写入指令比较
func (v TrackedValue) Equal(o TrackedValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueLiteral:
		return v.literal == o.literal
	case ValueNewArray:
		if v.newArray != o.newArray || v.length != o.length || len(v.aputs) != len(o.aputs) {
			return false
		}
		for i := range v.aputs {
			if v.aputs[i] != o.aputs[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v TrackedValue) String() string {
	switch v.kind {
	case ValueLiteral:
		return fmt.Sprintf("lit(%d)", v.literal)
	case ValueNewArray:
		return fmt.Sprintf("array(#%d, %d/%d)", v.newArray.ID(), len(v.aputs), v.length)
	default:
		return "other"
	}
}

// ============================================================================
// 逃逸记录
// ============================================================================

// StoreList 逃逸时数组的完整写入序列
type StoreList []*ir.Instruction

// Equal 逐个比较指令身份
func (l StoreList) Equal(o StoreList) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// EscapedArrays 分配指令 -> 逃逸时的内容
//
// 同一分配以不同内容逃逸，或以未完成状态逃逸，都会变为 Top。
type EscapedArrays map[*ir.Instruction]lattice.Constant[StoreList]

// escape 记录一次逃逸
func (e EscapedArrays) escape(v TrackedValue) {
	if !v.IsNewArray() {
		return
	}
	if !v.IsComplete() {
		e[v.newArray] = lattice.TopConstant[StoreList]()
		return
	}
	c := lattice.ConstantOf(StoreList(v.Aputs()))
	if old, ok := e[v.newArray]; ok {
		c = old.Join(c)
	}
	e[v.newArray] = c
}

// markTop 分配不可改写
func (e EscapedArrays) markTop(insn *ir.Instruction) {
	e[insn] = lattice.TopConstant[StoreList]()
}
