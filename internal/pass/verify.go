package pass

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/tangzhangming/dexopt/internal/interp"
	"github.com/tangzhangming/dexopt/internal/ir"
	"github.com/tangzhangming/dexopt/internal/program"
)

// Verifier 用参考解释器比较无参方法在优化前后的行为
type Verifier struct {
	machine  *interp.Machine
	baseline map[*program.Method]string
}

// NewVerifier 创建校验器
func NewVerifier() *Verifier {
	return &Verifier{
		machine:  interp.New(),
		baseline: make(map[*program.Method]string),
	}
}

// Record 记录优化前的结果；有参数或无法执行的方法被跳过
func (v *Verifier) Record(prog *program.Program) {
	for _, m := range prog.Methods() {
		if !m.HasCode() || takesParams(m.CFG) {
			continue
		}
		res, err := v.machine.Run(m.CFG)
		if err != nil {
			continue
		}
		v.baseline[m] = res.String()
	}
}

// Recorded 已记录的方法数
func (v *Verifier) Recorded() int { return len(v.baseline) }

// Check 重新执行已记录的方法并比较
func (v *Verifier) Check(prog *program.Program) error {
	var errs error
	for _, m := range prog.Methods() {
		want, ok := v.baseline[m]
		if !ok {
			continue
		}
		res, err := v.machine.Run(m.CFG)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "%s", m.FullName()))
			continue
		}
		if got := res.String(); got != want {
			errs = multierr.Append(errs, errors.Newf("%s: behavior changed\nbefore:\n%safter:\n%s", m.FullName(), want, got))
		}
	}
	return errs
}

func takesParams(cfg *ir.CFG) bool {
	for it := range cfg.Instructions() {
		switch it.Insn().Opcode() {
		case ir.OpLoadParam, ir.OpLoadParamWide, ir.OpLoadParamObject:
			return true
		}
	}
	return false
}
