// lattice_test.go - 抽象域测试

package lattice

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// num 测试用元素，hash 故意碰撞以覆盖桶内比较
type num int

func (n num) Hash() uint64     { return uint64(n % 2) }
func (n num) Equal(o num) bool { return n == o }

type numList []int

func (l numList) Equal(o numList) bool { return cmp.Equal([]int(l), []int(o)) }

// TestHashedSetBasics 测试集合的基本操作
func TestHashedSetBasics(t *testing.T) {
	s := NewHashedSet[num](1, 2, 3, 1)
	if s.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", s.Size())
	}
	if !s.Contains(3) || s.Contains(4) {
		t.Errorf("Contains wrong for %v", s)
	}
	if _, ok := s.Singleton(); ok {
		t.Error("three-element set reported as singleton")
	}
	if got := s.Kind(); got != KindValue {
		t.Errorf("Kind() = %v, want value", got)
	}

	one := NewHashedSet[num](7)
	if v, ok := one.Singleton(); !ok || v != 7 {
		t.Errorf("Singleton() = %v, %v", v, ok)
	}

	// Add 不修改原集合
	bigger := one.Add(9)
	if one.Size() != 1 || bigger.Size() != 2 {
		t.Errorf("Add mutated the receiver: %v %v", one, bigger)
	}
}

// TestHashedSetJoin 测试集合并的格性质
func TestHashedSetJoin(t *testing.T) {
	a := NewHashedSet[num](1, 2)
	b := NewHashedSet[num](2, 3)
	empty := NewHashedSet[num]()
	top := TopHashedSet[num]()

	tests := []struct {
		name string
		got  HashedSet[num]
		want HashedSet[num]
	}{
		{"union", a.Join(b), NewHashedSet[num](1, 2, 3)},
		{"commutative", b.Join(a), NewHashedSet[num](3, 2, 1)},
		{"idempotent", a.Join(a), a},
		{"bottom identity", a.Join(empty), a},
		{"bottom identity left", empty.Join(a), a},
		{"top absorbs", a.Join(top), top},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equals(tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if a.Size() != 2 || b.Size() != 2 {
		t.Error("Join mutated an operand")
	}
	if !a.Leq(a.Join(b)) || a.Join(b).Leq(a) {
		t.Error("Leq inconsistent with Join")
	}
	if !empty.IsBottom() || top.IsBottom() || !top.IsTop() {
		t.Error("bottom/top predicates wrong")
	}
}

// TestHashedSetOrder 测试遍历顺序确定
func TestHashedSetOrder(t *testing.T) {
	s := NewHashedSet[num](5, 3).Join(NewHashedSet[num](4, 3, 1))
	got := []num(s.Elements())
	want := []num{5, 3, 4, 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Elements() mismatch (-want +got):\n%s", diff)
	}
}

// TestConstant 测试常量域
func TestConstant(t *testing.T) {
	var bottom Constant[numList]
	x := ConstantOf(numList{1, 2})
	y := ConstantOf(numList{1, 2})
	z := ConstantOf(numList{3})

	if !bottom.IsBottom() {
		t.Error("zero Constant should be bottom")
	}
	if got := bottom.Join(x); !got.Equals(x) {
		t.Errorf("bottom ⊔ x = %v", got)
	}
	if got := x.Join(y); !got.Equals(x) {
		t.Errorf("equal values should join to themselves, got %v", got)
	}
	if got := x.Join(z); !got.IsTop() {
		t.Errorf("different values should join to top, got %v", got)
	}
	if got := TopConstant[numList]().Join(x); !got.IsTop() {
		t.Errorf("top is absorbing, got %v", got)
	}
	if v, ok := x.Get(); !ok || len(v) != 2 {
		t.Errorf("Get() = %v, %v", v, ok)
	}
	if _, ok := TopConstant[numList]().Get(); ok {
		t.Error("Get() on top should fail")
	}
}

// TestEnvironment 测试寄存器环境
func TestEnvironment(t *testing.T) {
	top := TopHashedSet[num]()
	e := NewEnvironment[int](top)
	if !e.IsTop() || e.IsBottom() {
		t.Fatal("new environment should be top")
	}
	if !e.Get(3).IsTop() {
		t.Error("unmapped key should read as top")
	}

	e.Set(1, NewHashedSet[num](10))
	e.Set(2, NewHashedSet[num](20))
	e.Set(3, top)
	if diff := cmp.Diff([]int{1, 2}, e.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	f := NewEnvironment[int](top)
	f.Set(1, NewHashedSet[num](11))
	f.Set(4, NewHashedSet[num](40))

	j := e.Join(f)
	if got := j.Get(1); !got.Equals(NewHashedSet[num](10, 11)) {
		t.Errorf("joined v1 = %v", got)
	}
	// 只在一侧绑定的键变为 top
	if !j.Get(2).IsTop() || !j.Get(4).IsTop() {
		t.Errorf("one-sided bindings should become top: %v", j)
	}

	b := NewBottomEnvironment[int](top)
	if got := b.Join(e); !got.Equals(e) {
		t.Errorf("bottom ⊔ e = %v, want %v", got, e)
	}
	if got := e.Join(b); !got.Equals(e) {
		t.Errorf("e ⊔ bottom = %v, want %v", got, e)
	}
	b.Set(1, NewHashedSet[num](1))
	if !b.IsBottom() {
		t.Error("Set on bottom must keep it bottom")
	}

	c := e.Clone()
	c.Set(1, NewHashedSet[num](99))
	if e.Get(1).Contains(99) {
		t.Error("Clone shares bindings with the original")
	}
	if e.Equals(c) {
		t.Error("Equals should notice a changed binding")
	}
}
