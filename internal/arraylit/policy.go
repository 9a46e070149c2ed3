package arraylit

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/dexopt/internal/ir"
)

// ============================================================================
// 目标平台
// ============================================================================

// Architecture 目标 CPU 架构
type Architecture int

const (
	ArchUnknown Architecture = iota
	ArchX86
	ArchX86_64
	ArchArm
	ArchArmv7
	ArchArm64
	ArchMips
)

var archNames = [...]string{
	ArchUnknown: "unknown",
	ArchX86:     "x86",
	ArchX86_64:  "x86_64",
	ArchArm:     "arm",
	ArchArmv7:   "armv7",
	ArchArm64:   "arm64",
	ArchMips:    "mips",
}

func (a Architecture) String() string {
	if a < 0 || int(a) >= len(archNames) {
		return fmt.Sprintf("Architecture(%d)", int(a))
	}
	return archNames[a]
}

// ParseArchitecture 按名称解析架构（不区分大小写）
func ParseArchitecture(s string) (Architecture, error) {
	for i, name := range archNames {
		if strings.EqualFold(s, name) {
			return Architecture(i), nil
		}
	}
	return ArchUnknown, fmt.Errorf("unknown architecture %q", s)
}

// ============================================================================
// 改写前的平台检查
// ============================================================================

// Verdict 对候选数组的判定
type Verdict int

const (
	Accept        Verdict = iota // 可以改写
	Buggy                        // 目标运行时存在已知缺陷
	Wide                         // 元素为 long/double
	Unimplemented                // 运行时未实现该元素类型
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Buggy:
		return "buggy"
	case Wide:
		return "wide"
	case Unimplemented:
		return "unimplemented"
	default:
		return "unknown"
	}
}

// Classify 按顺序检查平台限制，返回第一条命中的结果
//
// arrayType 为分配指令的数组类型，n 为元素个数。
func Classify(minSdk int, arch Architecture, arrayType ir.Type, n int) Verdict {
	elem := arrayType.ComponentType()

	// Android 5/6 的解释器在执行 filled-new-array 时崩溃
	if minSdk < 24 {
		return Buggy
	}

	if elem.IsWide() {
		return Wide
	}

	// filled-new-array/range 的同一问题；放宽第一条规则后生效
	if minSdk < 24 && n > 5 {
		return Buggy
	}

	// Dalvik 校验器对多维数组取错了元素类型
	if minSdk < 21 && elem.IsArray() {
		return Buggy
	}

	// KitKat 之前 x86-atom 后端处理引用元素有误
	if minSdk < 19 && (arch == ArchUnknown || arch == ArchX86) && !elem.IsPrimitive() {
		return Buggy
	}

	// 已知的 ART 版本只支持 int 元素
	if elem.IsPrimitive() && elem != ir.TypeInt {
		return Unimplemented
	}

	return Accept
}
