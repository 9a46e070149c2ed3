// fixpoint_test.go - 不动点迭代测试

package dataflow

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tangzhangming/dexopt/internal/asm"
	"github.com/tangzhangming/dexopt/internal/ir"
	"github.com/tangzhangming/dexopt/internal/lattice"
)

type lit int64

func (l lit) Hash() uint64     { return uint64(l) }
func (l lit) Equal(o lit) bool { return l == o }

type env = *lattice.Environment[ir.Reg, lattice.HashedSet[lit]]

// constants 只跟踪 const 的极简分析
func constants(insn *ir.Instruction, state env) {
	if !insn.HasDest() {
		return
	}
	if insn.Opcode() == ir.OpConst {
		state.Set(insn.Dest(), lattice.NewHashedSet(lit(insn.Literal())))
		return
	}
	state.Set(insn.Dest(), lattice.TopHashedSet[lit]())
}

func runConstants(t *testing.T, src string) (*ir.CFG, *FixpointIterator[env]) {
	t.Helper()
	cfg, err := asm.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top := lattice.TopHashedSet[lit]()
	fp := NewFixpointIterator[env](cfg, lattice.NewBottomEnvironment[ir.Reg](top), constants)
	fp.Run(lattice.NewEnvironment[ir.Reg](top))
	return cfg, fp
}

// TestJoinAtMerge 测试汇合点的并
func TestJoinAtMerge(t *testing.T) {
	cfg, fp := runConstants(t, `
		(load-param v2)
		(const v0 1)
		(if-eqz v2 :other)
		(const v1 7)
		(goto :join)
		(:other)
		(const v1 8)
		(:join)
		(return v1)
	`)
	join := cfg.BlockByLabel("join")
	in := fp.EntryStateAt(join)
	if got := in.Get(0); !got.Equals(lattice.NewHashedSet[lit](1)) {
		t.Errorf("v0 at join = %v, want {1}", got)
	}
	if got := in.Get(1); !got.Equals(lattice.NewHashedSet[lit](7, 8)) {
		t.Errorf("v1 at join = %v, want {7, 8}", got)
	}
}

// TestLoopConverges 测试循环收敛
func TestLoopConverges(t *testing.T) {
	cfg, fp := runConstants(t, `
		(load-param v3)
		(const v0 0)
		(const v5 4)
		(:loop)
		(add-int/lit v0 v0 1)
		(if-lt v0 v3 :loop)
		(return v0)
	`)
	loop := cfg.BlockByLabel("loop")
	in := fp.EntryStateAt(loop)
	if !in.Get(0).IsTop() {
		t.Errorf("v0 at loop head = %v, want top", in.Get(0))
	}
	if got := in.Get(5); !got.Equals(lattice.NewHashedSet[lit](4)) {
		t.Errorf("v5 at loop head = %v, want {4}", got)
	}
	if fp.Iterations() > 10 {
		t.Errorf("too many iterations: %d", fp.Iterations())
	}
}

// TestUnreachableBlock 测试不可达块保持 bottom
func TestUnreachableBlock(t *testing.T) {
	cfg, fp := runConstants(t, `
		(const v0 1)
		(return v0)
		(:dead)
		(const v0 2)
		(return v0)
	`)
	dead := cfg.BlockByLabel("dead")
	if !fp.EntryStateAt(dead).IsBottom() || !fp.ExitStateAt(dead).IsBottom() {
		t.Error("unreachable block should stay bottom")
	}
	if got := fp.ExitStateAt(cfg.Entry()).Get(0); !got.Equals(lattice.NewHashedSet[lit](1)) {
		t.Errorf("v0 at entry exit = %v", got)
	}
}

// TestReversePostOrder 测试逆后序
func TestReversePostOrder(t *testing.T) {
	cfg := asm.MustParse(`
		(load-param v0)
		(if-eqz v0 :b)
		(:a)
		(goto :c)
		(:b)
		(nop)
		(:c)
		(return-void)
	`)
	var got []string
	for _, b := range ReversePostOrder(cfg) {
		got = append(got, b.Label())
	}
	// 入口块在前，汇合块在最后
	if got[0] != "" || got[len(got)-1] != "c" {
		t.Errorf("ReversePostOrder = %v", got)
	}
	if diff := cmp.Diff(4, len(got)); diff != "" {
		t.Errorf("block count mismatch (-want +got):\n%s", diff)
	}
}
