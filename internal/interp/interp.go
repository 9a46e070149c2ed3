package interp

import (
	"github.com/cockroachdb/errors"

	"github.com/tangzhangming/dexopt/internal/ir"
)

// DefaultMaxSteps 默认最多执行的指令数
const DefaultMaxSteps = 1 << 20

// ErrStepLimit 超过指令数上限
var ErrStepLimit = errors.New("step limit exceeded")

// thrown 运行时异常
type thrown struct{ name string }

// Machine 解释器
type Machine struct {
	MaxSteps int
}

// New 创建解释器
func New() *Machine {
	return &Machine{MaxSteps: DefaultMaxSteps}
}

// frame 一次方法执行的状态
type frame struct {
	regs   map[ir.Reg]Value
	result Value
	args   []Value
	out    *Result
}

// Run 以 args 为参数执行 cfg
func (m *Machine) Run(cfg *ir.CFG, args ...Value) (*Result, error) {
	blocks := cfg.Blocks()
	if len(blocks) == 0 {
		return nil, errors.New("empty control flow graph")
	}
	code := make(map[*ir.Block][]*ir.Instruction, len(blocks))
	layout := make(map[*ir.Block]int, len(blocks))
	for i, b := range blocks {
		layout[b] = i
		for insn := range b.Instructions() {
			code[b] = append(code[b], insn)
		}
	}

	f := &frame{regs: make(map[ir.Reg]Value), args: args, out: &Result{}}
	steps := 0
	b := blocks[0]
	for {
		var next *ir.Block
		done := false
		for _, insn := range code[b] {
			steps++
			if steps > m.MaxSteps {
				return nil, ErrStepLimit
			}
			jump, finished, err := f.exec(insn)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", insn)
			}
			if finished {
				done = true
				break
			}
			if jump != "" {
				next = cfg.BlockByLabel(jump)
				if next == nil {
					return nil, errors.Newf("%s: unknown label", insn)
				}
				break
			}
		}
		if done {
			return f.out, nil
		}
		if next == nil {
			i := layout[b] + 1
			if i >= len(blocks) {
				return nil, errors.New("fell off the end of the method")
			}
			next = blocks[i]
		}
		b = next
	}
}

// exec 执行一条指令，返回跳转标签或是否结束
func (f *frame) exec(insn *ir.Instruction) (jump string, finished bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, ok := r.(thrown)
			if !ok {
				panic(r)
			}
			f.out.Exception = t.name
			finished = true
		}
	}()

	get := func(n int) Value { return f.regs[insn.Src(n)] }
	set := func(v Value) { f.regs[insn.Dest()] = v }

	switch op := insn.Opcode(); op {
	case ir.OpNop:
	case ir.OpLoadParam, ir.OpLoadParamWide, ir.OpLoadParamObject:
		if len(f.args) == 0 {
			return "", false, errors.New("not enough arguments")
		}
		set(f.args[0])
		f.args = f.args[1:]
	case ir.OpConst:
		set(Int(int64(int32(insn.Literal()))))
	case ir.OpConstWide:
		set(Int(insn.Literal()))
	case ir.OpConstString:
		f.result = String(insn.StringOperand())
	case ir.OpMove, ir.OpMoveWide, ir.OpMoveObject:
		set(get(0))
	case ir.OpMoveResult, ir.OpMoveResultWide, ir.OpMoveResultObject,
		ir.OpMoveResultPseudo, ir.OpMoveResultPseudoWide, ir.OpMoveResultPseudoObject:
		set(f.result)

	case ir.OpNewArray:
		n := get(0).Int
		if n < 0 {
			panic(thrown{"NegativeArraySizeException"})
		}
		elems := make([]Value, n)
		for i := range elems {
			elems[i] = zero(insn.Type().ComponentType())
		}
		f.result = Value{Kind: KindArray, Array: &Array{Type: insn.Type(), Elems: elems}}
	case ir.OpFilledNewArray:
		elems := make([]Value, insn.SrcsSize())
		for i := range elems {
			elems[i] = get(i)
		}
		f.result = Value{Kind: KindArray, Array: &Array{Type: insn.Type(), Elems: elems}}
	case ir.OpArrayLength:
		f.result = Int(int64(len(array(get(0)).Elems)))
	case ir.OpAget, ir.OpAgetWide, ir.OpAgetObject:
		a := array(get(0))
		f.result = a.Elems[index(a, get(1))]
	case ir.OpAput, ir.OpAputWide, ir.OpAputObject, ir.OpAputBoolean,
		ir.OpAputByte, ir.OpAputChar, ir.OpAputShort:
		a := array(get(1))
		a.Elems[index(a, get(2))] = get(0)

	case ir.OpAddInt:
		set(Int(int64(int32(get(0).Int) + int32(get(1).Int))))
	case ir.OpAddIntLit:
		set(Int(int64(int32(get(0).Int) + int32(insn.Literal()))))
	case ir.OpCheckCast:
		f.result = get(0)

	case ir.OpInvokeStatic, ir.OpInvokeVirtual, ir.OpInvokeDirect:
		args := make([]Value, insn.SrcsSize())
		for i := range args {
			args[i] = get(i)
		}
		if op == ir.OpInvokeStatic && insn.Method().String() == ir.ArrayCopyMethod.String() {
			arraycopy(args)
			break
		}
		for i := range args {
			args[i] = args[i].deepCopy()
		}
		f.out.Calls = append(f.out.Calls, Call{Method: insn.Method().String(), Args: args})
		f.result = zero(insn.Method().Return)

	case ir.OpIfEqz:
		if isZero(get(0)) {
			return insn.Target(), false, nil
		}
	case ir.OpIfNez:
		if !isZero(get(0)) {
			return insn.Target(), false, nil
		}
	case ir.OpIfLt:
		if get(0).Int < get(1).Int {
			return insn.Target(), false, nil
		}
	case ir.OpGoto:
		return insn.Target(), false, nil
	case ir.OpReturnVoid:
		return "", true, nil
	case ir.OpReturn, ir.OpReturnWide, ir.OpReturnObject:
		v := get(0).deepCopy()
		f.out.Return = &v
		return "", true, nil
	case ir.OpThrow:
		panic(thrown{"Throwable"})
	default:
		return "", false, errors.Newf("unsupported opcode %s", op)
	}
	return "", false, nil
}

func isZero(v Value) bool {
	return v.Kind == KindNull || (v.Kind == KindInt && v.Int == 0)
}

func array(v Value) *Array {
	if v.Kind != KindArray {
		panic(thrown{"NullPointerException"})
	}
	return v.Array
}

func index(a *Array, v Value) int {
	if v.Int < 0 || v.Int >= int64(len(a.Elems)) {
		panic(thrown{"ArrayIndexOutOfBoundsException"})
	}
	return int(v.Int)
}

// arraycopy System.arraycopy(src, srcPos, dst, dstPos, length)
func arraycopy(args []Value) {
	src, dst := array(args[0]), array(args[2])
	sp, dp, n := args[1].Int, args[3].Int, args[4].Int
	if sp < 0 || dp < 0 || n < 0 || sp+n > int64(len(src.Elems)) || dp+n > int64(len(dst.Elems)) {
		panic(thrown{"ArrayIndexOutOfBoundsException"})
	}
	copy(dst.Elems[dp:dp+n], src.Elems[sp:sp+n])
}
