package ir

import "fmt"

// ============================================================================
// 操作码定义
// ============================================================================

// Opcode 寄存器式字节码操作码
type Opcode int

const (
	OpNop Opcode = iota

	// 参数加载（方法入口）
	OpLoadParam
	OpLoadParamWide
	OpLoadParamObject

	// 常量
	OpConst
	OpConstWide
	OpConstString

	// 寄存器移动
	OpMove
	OpMoveWide
	OpMoveObject
	OpMoveResult
	OpMoveResultWide
	OpMoveResultObject
	OpMoveResultPseudo
	OpMoveResultPseudoWide
	OpMoveResultPseudoObject

	// 数组操作
	OpNewArray
	OpFilledNewArray
	OpArrayLength
	OpAget
	OpAgetWide
	OpAgetObject
	OpAput
	OpAputWide
	OpAputObject
	OpAputBoolean
	OpAputByte
	OpAputChar
	OpAputShort

	// 算术
	OpAddInt
	OpAddIntLit

	// 类型操作
	OpCheckCast

	// 调用
	OpInvokeStatic
	OpInvokeVirtual
	OpInvokeDirect

	// 控制流
	OpIfEqz
	OpIfNez
	OpIfLt
	OpGoto
	OpReturnVoid
	OpReturn
	OpReturnWide
	OpReturnObject
	OpThrow

	numOpcodes
)

// destKind 目标寄存器种类
type destKind uint8

const (
	destNone destKind = iota
	destNormal
	destWide
)

// operandKind 附加操作数种类
type operandKind uint8

const (
	operandNone operandKind = iota
	operandLiteral
	operandType
	operandMethod
	operandString
)

// FlowKind 指令对控制流的影响
type FlowKind uint8

const (
	FlowNext   FlowKind = iota // 顺序执行
	FlowBranch                 // 条件跳转
	FlowGoto                   // 无条件跳转
	FlowReturn                 // 返回
	FlowThrow                  // 抛出
)

// resultKind 结果通过哪种 move-result 取出
type resultKind uint8

const (
	resultNone resultKind = iota
	resultMove
	resultPseudo
)

// opInfo 操作码的静态属性
type opInfo struct {
	name     string
	dest     destKind
	srcs     int   // -1 表示可变数量
	wideSrcs []int // 宽寄存器对的源操作数下标
	operand  operandKind
	flow     FlowKind
	result   resultKind
}

var opTable = [numOpcodes]opInfo{
	OpNop: {name: "nop"},

	OpLoadParam:       {name: "load-param", dest: destNormal},
	OpLoadParamWide:   {name: "load-param-wide", dest: destWide},
	OpLoadParamObject: {name: "load-param-object", dest: destNormal},

	OpConst:       {name: "const", dest: destNormal, operand: operandLiteral},
	OpConstWide:   {name: "const-wide", dest: destWide, operand: operandLiteral},
	OpConstString: {name: "const-string", operand: operandString, result: resultPseudo},

	OpMove:                   {name: "move", dest: destNormal, srcs: 1},
	OpMoveWide:               {name: "move-wide", dest: destWide, srcs: 1, wideSrcs: []int{0}},
	OpMoveObject:             {name: "move-object", dest: destNormal, srcs: 1},
	OpMoveResult:             {name: "move-result", dest: destNormal},
	OpMoveResultWide:         {name: "move-result-wide", dest: destWide},
	OpMoveResultObject:       {name: "move-result-object", dest: destNormal},
	OpMoveResultPseudo:       {name: "move-result-pseudo", dest: destNormal},
	OpMoveResultPseudoWide:   {name: "move-result-pseudo-wide", dest: destWide},
	OpMoveResultPseudoObject: {name: "move-result-pseudo-object", dest: destNormal},

	OpNewArray:       {name: "new-array", srcs: 1, operand: operandType, result: resultPseudo},
	OpFilledNewArray: {name: "filled-new-array", srcs: -1, operand: operandType, result: resultMove},
	OpArrayLength:    {name: "array-length", srcs: 1, result: resultPseudo},
	OpAget:           {name: "aget", srcs: 2, result: resultPseudo},
	OpAgetWide:       {name: "aget-wide", srcs: 2, result: resultPseudo},
	OpAgetObject:     {name: "aget-object", srcs: 2, result: resultPseudo},
	OpAput:           {name: "aput", srcs: 3},
	OpAputWide:       {name: "aput-wide", srcs: 3, wideSrcs: []int{0}},
	OpAputObject:     {name: "aput-object", srcs: 3},
	OpAputBoolean:    {name: "aput-boolean", srcs: 3},
	OpAputByte:       {name: "aput-byte", srcs: 3},
	OpAputChar:       {name: "aput-char", srcs: 3},
	OpAputShort:      {name: "aput-short", srcs: 3},

	OpAddInt:    {name: "add-int", dest: destNormal, srcs: 2},
	OpAddIntLit: {name: "add-int/lit", dest: destNormal, srcs: 1, operand: operandLiteral},

	OpCheckCast: {name: "check-cast", srcs: 1, operand: operandType, result: resultPseudo},

	OpInvokeStatic:  {name: "invoke-static", srcs: -1, operand: operandMethod, result: resultMove},
	OpInvokeVirtual: {name: "invoke-virtual", srcs: -1, operand: operandMethod, result: resultMove},
	OpInvokeDirect:  {name: "invoke-direct", srcs: -1, operand: operandMethod, result: resultMove},

	OpIfEqz:        {name: "if-eqz", srcs: 1, flow: FlowBranch},
	OpIfNez:        {name: "if-nez", srcs: 1, flow: FlowBranch},
	OpIfLt:         {name: "if-lt", srcs: 2, flow: FlowBranch},
	OpGoto:         {name: "goto", flow: FlowGoto},
	OpReturnVoid:   {name: "return-void", flow: FlowReturn},
	OpReturn:       {name: "return", srcs: 1, flow: FlowReturn},
	OpReturnWide:   {name: "return-wide", srcs: 1, wideSrcs: []int{0}, flow: FlowReturn},
	OpReturnObject: {name: "return-object", srcs: 1, flow: FlowReturn},
	OpThrow:        {name: "throw", srcs: 1, flow: FlowThrow},
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

// LookupOpcode 按名称查找操作码
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// String 返回操作码名称
func (op Opcode) String() string {
	if op < 0 || op >= numOpcodes {
		return fmt.Sprintf("UNKNOWN(%d)", int(op))
	}
	return opTable[op].name
}

// Flow 返回控制流种类
func (op Opcode) Flow() FlowKind {
	return opTable[op].flow
}

// IsAput 是否是数组元素写入指令
func (op Opcode) IsAput() bool {
	return op >= OpAput && op <= OpAputShort
}

// IsAget 是否是数组元素读取指令
func (op Opcode) IsAget() bool {
	return op >= OpAget && op <= OpAgetObject
}

// IsInvoke 是否是方法调用
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokeStatic && op <= OpInvokeDirect
}

// IsMoveResultPseudo 是否是伪结果移动
func (op Opcode) IsMoveResultPseudo() bool {
	return op >= OpMoveResultPseudo && op <= OpMoveResultPseudoObject
}

// IsMoveResult 是否是调用结果移动
func (op Opcode) IsMoveResult() bool {
	return op >= OpMoveResult && op <= OpMoveResultObject
}

// IsTerminator 检查指令是否终止基本块
func (op Opcode) IsTerminator() bool {
	return op.Flow() != FlowNext
}
