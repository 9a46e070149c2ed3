// types_test.go - 类型描述符测试

package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestTypePredicates 测试类型判断
func TestTypePredicates(t *testing.T) {
	tests := []struct {
		typ                            Type
		primitive, wide, array, object bool
	}{
		{TypeInt, true, false, false, false},
		{TypeLong, true, true, false, false},
		{TypeDouble, true, true, false, false},
		{TypeVoid, false, false, false, false},
		{TypeString, false, false, false, true},
		{"[I", false, false, true, true},
		{"[[Ljava/lang/Object;", false, false, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.IsPrimitive(); got != tt.primitive {
				t.Errorf("IsPrimitive() = %v", got)
			}
			if got := tt.typ.IsWide(); got != tt.wide {
				t.Errorf("IsWide() = %v", got)
			}
			if got := tt.typ.IsArray(); got != tt.array {
				t.Errorf("IsArray() = %v", got)
			}
			if got := tt.typ.IsObject(); got != tt.object {
				t.Errorf("IsObject() = %v", got)
			}
		})
	}

	if got := Type("[[I").ComponentType(); got != "[I" {
		t.Errorf("ComponentType() = %q", got)
	}
	if got := TypeInt.ArrayOf(); got != "[I" {
		t.Errorf("ArrayOf() = %q", got)
	}
}

// TestParseType 测试描述符校验
func TestParseType(t *testing.T) {
	for _, ok := range []string{"I", "[J", "LFoo;", "[[La/b/C;"} {
		if _, err := ParseType(ok); err != nil {
			t.Errorf("ParseType(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "X", "[V", "[", "Lfoo", "La;b;"} {
		if _, err := ParseType(bad); err == nil {
			t.Errorf("ParseType(%q) should fail", bad)
		}
	}
}

// TestParseMethodRef 测试方法引用解析
func TestParseMethodRef(t *testing.T) {
	m, err := ParseMethodRef("LFoo;.bar:(IJ[Ljava/lang/String;)V")
	if err != nil {
		t.Fatal(err)
	}
	want := &MethodRef{
		Class:  "LFoo;",
		Name:   "bar",
		Params: []Type{TypeInt, TypeLong, "[Ljava/lang/String;"},
		Return: TypeVoid,
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("ParseMethodRef mismatch (-want +got):\n%s", diff)
	}
	if got := m.ArgWordCount(true); got != 4 {
		t.Errorf("ArgWordCount(static) = %d, want 4", got)
	}
	if got := m.ArgWordCount(false); got != 5 {
		t.Errorf("ArgWordCount(instance) = %d, want 5", got)
	}
	if got := ArrayCopyMethod.ArgWordCount(true); got != 5 {
		t.Errorf("arraycopy takes %d words, want 5", got)
	}
	for _, bad := range []string{"Foo.bar:()V", "LFoo;.:()V", "LFoo;.bar:(I", "LFoo;.bar:(Q)V"} {
		if _, err := ParseMethodRef(bad); err == nil {
			t.Errorf("ParseMethodRef(%q) should fail", bad)
		}
	}
}
