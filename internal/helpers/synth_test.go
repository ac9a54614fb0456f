package helpers

import (
	"math"
	"strings"
	"testing"

	"cnext/internal/types"
)

func TestSet_DedupAndOrder(t *testing.T) {
	s := NewSet()
	// Discovery order scrambled on purpose.
	s.Add(Demand{Op: OpSub, Type: types.PrimU16})
	s.Add(Demand{Op: OpMul, Type: types.PrimU32})
	s.Add(Demand{Op: OpAdd, Type: types.PrimU8})
	s.Add(Demand{Op: OpAdd, Type: types.PrimU8}) // duplicate
	s.Add(Demand{Op: OpAdd, Type: types.PrimU8})

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 after dedup", s.Len())
	}
	got := s.Sorted()
	want := []string{"add_u8", "mul_u32", "sub_u16"}
	for i, d := range got {
		if d.Key() != want[i] {
			t.Errorf("Sorted()[%d] = %s, want %s", i, d.Key(), want[i])
		}
	}
}

func TestSet_RejectsNonInteger(t *testing.T) {
	s := NewSet()
	s.Add(Demand{Op: OpAdd, Type: types.PrimF32})
	s.Add(Demand{Op: OpAdd, Type: types.PrimBool})
	if s.Len() != 0 {
		t.Errorf("non-integer demands recorded: %v", s.Sorted())
	}
}

func TestSet_MergeIsUnion(t *testing.T) {
	a := NewSet()
	a.Add(Demand{Op: OpAdd, Type: types.PrimU8})
	b := NewSet()
	b.Add(Demand{Op: OpAdd, Type: types.PrimU8})
	b.Add(Demand{Op: OpDiv, Type: types.PrimU32})
	a.Merge(b)
	if a.Len() != 2 {
		t.Fatalf("merged Len() = %d, want 2", a.Len())
	}
	if !a.Has(Demand{Op: OpDiv, Type: types.PrimU32}) {
		t.Error("merged set missing safe_div_u32 demand")
	}
}

func TestDemand_Name(t *testing.T) {
	if got := (Demand{Op: OpAdd, Type: types.PrimU8}).Name(); got != "add_u8" {
		t.Errorf("Name() = %q, want add_u8", got)
	}
	if got := (Demand{Op: OpDiv, Type: types.PrimU32}).Name(); got != "safe_div_u32" {
		t.Errorf("Name() = %q, want safe_div_u32", got)
	}
	if got := (Demand{Op: OpMod, Type: types.PrimI16}).Name(); got != "safe_mod_i16" {
		t.Errorf("Name() = %q, want safe_mod_i16", got)
	}
}

func TestEmit_EmptySetYieldsNothing(t *testing.T) {
	s := &Synthesizer{}
	if out := s.Emit(NewSet()); out != "" {
		t.Errorf("Emit(empty) = %q, want empty string", out)
	}
	if out := s.Emit(nil); out != "" {
		t.Errorf("Emit(nil) = %q, want empty string", out)
	}
}

func TestEmit_DeterministicAcrossDiscoveryOrder(t *testing.T) {
	build := func(order []Demand) string {
		s := NewSet()
		for _, d := range order {
			s.Add(d)
		}
		return (&Synthesizer{Mode: ModeClamp}).Emit(s)
	}
	forward := build([]Demand{
		{Op: OpAdd, Type: types.PrimU8},
		{Op: OpMul, Type: types.PrimU32},
		{Op: OpDiv, Type: types.PrimI16},
	})
	backward := build([]Demand{
		{Op: OpDiv, Type: types.PrimI16},
		{Op: OpMul, Type: types.PrimU32},
		{Op: OpAdd, Type: types.PrimU8},
	})
	if forward != backward {
		t.Error("helper unit text depends on discovery order")
	}
	if !strings.HasPrefix(forward, "#ifndef CNX_RUNTIME_H") {
		t.Errorf("missing include guard:\n%s", forward)
	}
	// Lexicographic body order: add_u8 before mul_u32 before safe_div_i16's
	// key div_i16... div < mul < add is false; keys are add_u8, div_i16, mul_u32.
	iAdd := strings.Index(forward, "add_u8(")
	iDiv := strings.Index(forward, "safe_div_i16(")
	iMul := strings.Index(forward, "mul_u32(")
	if !(iAdd < iDiv && iDiv < iMul) {
		t.Errorf("helpers out of key order: add=%d div=%d mul=%d", iAdd, iDiv, iMul)
	}
}

func TestEmit_SafeDivContract(t *testing.T) {
	s := NewSet()
	s.Add(Demand{Op: OpDiv, Type: types.PrimU32})
	out := (&Synthesizer{Mode: ModeClamp}).Emit(s)

	if !strings.Contains(out, "static inline bool safe_div_u32(uint32_t *out, uint32_t num, uint32_t den, uint32_t def)") {
		t.Errorf("safe_div_u32 signature wrong:\n%s", out)
	}
	if !strings.Contains(out, "if (den == 0)") || !strings.Contains(out, "*out = def;") {
		t.Errorf("zero-divisor branch missing:\n%s", out)
	}
	if !strings.Contains(out, "return false;") || !strings.Contains(out, "return true;") {
		t.Errorf("boolean result missing:\n%s", out)
	}
}

func TestEmit_UnsignedClampUsesBuiltins(t *testing.T) {
	s := NewSet()
	s.Add(Demand{Op: OpAdd, Type: types.PrimU8})
	s.Add(Demand{Op: OpSub, Type: types.PrimU8})
	out := (&Synthesizer{Mode: ModeClamp}).Emit(s)

	if !strings.Contains(out, "__builtin_add_overflow(a, b, &result)") {
		t.Errorf("add_u8 should use the checked builtin:\n%s", out)
	}
	if !strings.Contains(out, "return UINT8_MAX;") {
		t.Errorf("add_u8 should saturate at UINT8_MAX:\n%s", out)
	}
	// Unsigned subtraction saturates at zero, not at the max.
	if !strings.Contains(out, "__builtin_sub_overflow(a, b, &result)") {
		t.Errorf("sub_u8 should use the checked builtin:\n%s", out)
	}
	if !strings.Contains(out, "return 0;") {
		t.Errorf("sub_u8 should saturate at 0:\n%s", out)
	}
}

func TestEmit_NarrowSignedWidens(t *testing.T) {
	s := NewSet()
	s.Add(Demand{Op: OpMul, Type: types.PrimI8})
	out := (&Synthesizer{Mode: ModeClamp}).Emit(s)

	if !strings.Contains(out, "int64_t wide = (int64_t)a * (int64_t)b;") {
		t.Errorf("mul_i8 should compute in the wide signed intermediate:\n%s", out)
	}
	if !strings.Contains(out, "return INT8_MAX;") || !strings.Contains(out, "return INT8_MIN;") {
		t.Errorf("mul_i8 should clamp to INT8 bounds:\n%s", out)
	}
}

func TestEmit_WideSignedBoundaryChecks(t *testing.T) {
	s := NewSet()
	s.Add(Demand{Op: OpAdd, Type: types.PrimI64})
	out := (&Synthesizer{Mode: ModeClamp}).Emit(s)

	// No wider intermediate exists: the helper must test against the bounds
	// before adding.
	if !strings.Contains(out, "if (b > 0 && a > INT64_MAX - b)") {
		t.Errorf("add_i64 missing upper boundary check:\n%s", out)
	}
	if !strings.Contains(out, "if (b < 0 && a < INT64_MIN - b)") {
		t.Errorf("add_i64 missing lower boundary check:\n%s", out)
	}
}

func TestEmit_PanicModeAborts(t *testing.T) {
	s := NewSet()
	s.Add(Demand{Op: OpAdd, Type: types.PrimU8})
	out := (&Synthesizer{Mode: ModePanic}).Emit(s)

	if !strings.Contains(out, "#include <stdio.h>") || !strings.Contains(out, "#include <stdlib.h>") {
		t.Errorf("panic mode needs stdio/stdlib:\n%s", out)
	}
	if !strings.Contains(out, "abort();") {
		t.Errorf("panic mode should abort:\n%s", out)
	}
	if strings.Contains(out, "return UINT8_MAX;") {
		t.Errorf("panic mode must not saturate:\n%s", out)
	}
}

func TestClamp64_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		got  int64
		want int64
	}{
		{"add saturates max", ClampAdd64(math.MaxInt64, 1), math.MaxInt64},
		{"add saturates min", ClampAdd64(math.MinInt64, -1), math.MinInt64},
		{"add exact max", ClampAdd64(math.MaxInt64-1, 1), math.MaxInt64},
		{"add plain", ClampAdd64(40, 2), 42},
		{"sub saturates min", ClampSub64(math.MinInt64, 1), math.MinInt64},
		{"sub saturates max", ClampSub64(math.MaxInt64, -1), math.MaxInt64},
		{"sub plain", ClampSub64(44, 2), 42},
		{"mul zero", ClampMul64(0, math.MaxInt64), 0},
		{"mul saturates max", ClampMul64(math.MaxInt64, 2), math.MaxInt64},
		{"mul saturates min", ClampMul64(math.MaxInt64, -2), math.MinInt64},
		{"mul neg neg", ClampMul64(math.MinInt64, -1), math.MaxInt64},
		{"mul plain", ClampMul64(-6, 7), -42},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode(""); !ok || m != ModeClamp {
		t.Error("empty string should default to clamp")
	}
	if m, ok := ParseMode("panic"); !ok || m != ModePanic {
		t.Error("panic should parse")
	}
	if _, ok := ParseMode("wrap"); ok {
		t.Error("unknown mode should not parse")
	}
}

func TestIncludes(t *testing.T) {
	if got := Includes(NewSet()); got != nil {
		t.Errorf("Includes(empty) = %v, want nil", got)
	}
	s := NewSet()
	s.Add(Demand{Op: OpAdd, Type: types.PrimU8})
	got := Includes(s)
	if len(got) != 1 || got[0] != RuntimeHeader {
		t.Errorf("Includes = %v, want [%s]", got, RuntimeHeader)
	}
}
