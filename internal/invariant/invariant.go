// Package invariant 报告程序内部不变量被破坏的情况
//
// 不变量失败表示实现缺陷而不是输入错误：Failf 直接 panic，
// 由 pass 驱动在工作协程边界用 Recover 转换为错误并中止整个 pass。
package invariant

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ============================================================================
// 不变量编码 (I 开头)
// ============================================================================

// 不变量编码常量
const (
	// I0001-I0099: 分析
	I0001 = "I0001" // 有序结果数量与分析结果数量不一致

	// I0100-I0199: 改写
	I0100 = "I0100" // 被替换的指令不是数组写入
	I0101 = "I0101" // 数组写入的目标寄存器不是分配结果
	I0102 = "I0102" // 分配指令缺少 move-result-pseudo
	I0103 = "I0103" // 找不到待改写的指令

	// I0200-I0299: 配置
	I0200 = "I0200" // max_filled_elements 超出编码范围
)

// codeMessages 编码说明
var codeMessages = map[string]string{
	I0001: "ordered results do not match analysis results",
	I0100: "replaced instruction is not an array store",
	I0101: "array store does not target the allocation",
	I0102: "allocation has no pseudo result",
	I0103: "instruction not found in control flow graph",
	I0200: "max_filled_elements out of range",
}

// Message 返回编码说明
func Message(code string) string {
	if m, ok := codeMessages[code]; ok {
		return m
	}
	return "unknown invariant"
}

// Failure 不变量失败
type Failure struct {
	Code string
	err  error
}

func (f *Failure) Error() string { return fmt.Sprintf("[%s] %s", f.Code, f.err) }

// Unwrap 返回底层的断言错误
func (f *Failure) Unwrap() error { return f.err }

// Failf 以编码和格式化信息触发不变量失败
func Failf(code, format string, args ...any) {
	err := errors.AssertionFailedWithDepthf(1, "%s: "+format, append([]any{Message(code)}, args...)...)
	panic(&Failure{Code: code, err: err})
}

// Check 条件不成立时触发不变量失败
func Check(cond bool, code, format string, args ...any) {
	if !cond {
		Failf(code, format, args...)
	}
}

// Recover 在 defer 中调用，把不变量失败转换为 *errp；其它 panic 继续传播
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(*Failure)
	if !ok {
		panic(r)
	}
	*errp = f
}

// CodeOf 取出错误链中的不变量编码
func CodeOf(err error) (string, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code, true
	}
	return "", false
}
