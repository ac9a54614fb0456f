package helpers

import (
	"fmt"
	"strings"
)

// RuntimeHeader is the file name of the synthesized helper unit; every
// generated implementation that demanded a helper includes it.
const RuntimeHeader = "cnx_runtime.h"

// Synthesizer renders the helper unit for a demand set in one overflow
// mode. Emission is deterministic: guard, includes, then one function per
// distinct demand in lexicographic key order.
type Synthesizer struct {
	Mode Mode
}

// Emit renders the complete helper header. An empty set yields an empty
// string so callers can skip writing the file.
func (s *Synthesizer) Emit(set *Set) string {
	if set == nil || set.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("#ifndef CNX_RUNTIME_H\n#define CNX_RUNTIME_H\n\n")
	sb.WriteString("#include <stdint.h>\n#include <stdbool.h>\n")
	if s.Mode == ModePanic {
		sb.WriteString("#include <stdio.h>\n#include <stdlib.h>\n")
	}
	sb.WriteString("\n")
	for _, d := range set.Sorted() {
		sb.WriteString(s.emitOne(d))
		sb.WriteString("\n")
	}
	sb.WriteString("#endif\n")
	return sb.String()
}

func (s *Synthesizer) emitOne(d Demand) string {
	switch d.Op {
	case OpDiv, OpMod:
		return emitSafeDiv(d)
	default:
		return s.emitOverflow(d)
	}
}

// emitSafeDiv renders a checked division or modulo helper. On a zero
// divisor it stores the default and reports failure; the caller gets an
// inspectable failure channel instead of a hardware trap.
func emitSafeDiv(d Demand) string {
	ty := d.Type.CName()
	op := "/"
	if d.Op == OpMod {
		op = "%"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "static inline bool %s(%s *out, %s num, %s den, %s def) {\n", d.Name(), ty, ty, ty, ty)
	sb.WriteString("    if (den == 0) {\n        *out = def;\n        return false;\n    }\n")
	fmt.Fprintf(&sb, "    *out = num %s den;\n    return true;\n}\n", op)
	return sb.String()
}

// emitOverflow renders one saturating or panicking arithmetic helper.
// Unsigned types detect overflow with the compiler's checked-arithmetic
// builtins. Narrow signed types compute in a wider signed intermediate and
// clamp the wide result. The widest signed type has no wider intermediate:
// add/sub check boundary inequalities before computing, and mul needs a
// sign-quadrant case analysis.
func (s *Synthesizer) emitOverflow(d Demand) string {
	switch {
	case !d.Type.IsSigned():
		return s.emitUnsigned(d)
	default:
		if _, ok := d.Type.Widened(); ok {
			return s.emitNarrowSigned(d)
		}
		return s.emitWideSigned(d)
	}
}

func (s *Synthesizer) emitUnsigned(d Demand) string {
	ty := d.Type.CName()
	builtin := "__builtin_" + d.Op.String() + "_overflow"
	saturate := d.Type.MaxMacro()
	if d.Op == OpSub {
		saturate = "0" // unsigned subtraction saturates at zero
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "static inline %s %s(%s a, %s b) {\n", ty, d.Name(), ty, ty)
	fmt.Fprintf(&sb, "    %s result;\n", ty)
	fmt.Fprintf(&sb, "    if (%s(a, b, &result)) {\n", builtin)
	sb.WriteString(s.overflowReturn(d, saturate, "        "))
	sb.WriteString("    }\n    return result;\n}\n")
	return sb.String()
}

func (s *Synthesizer) emitNarrowSigned(d Demand) string {
	ty := d.Type.CName()
	wide, _ := d.Type.Widened()
	wideTy := wide.CName()
	var op string
	switch d.Op {
	case OpAdd:
		op = "+"
	case OpSub:
		op = "-"
	case OpMul:
		op = "*"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "static inline %s %s(%s a, %s b) {\n", ty, d.Name(), ty, ty)
	fmt.Fprintf(&sb, "    %s wide = (%s)a %s (%s)b;\n", wideTy, wideTy, op, wideTy)
	fmt.Fprintf(&sb, "    if (wide > %s) {\n", d.Type.MaxMacro())
	sb.WriteString(s.overflowReturn(d, d.Type.MaxMacro(), "        "))
	sb.WriteString("    }\n")
	fmt.Fprintf(&sb, "    if (wide < %s) {\n", d.Type.MinMacro())
	sb.WriteString(s.overflowReturn(d, d.Type.MinMacro(), "        "))
	sb.WriteString("    }\n")
	fmt.Fprintf(&sb, "    return (%s)wide;\n}\n", ty)
	return sb.String()
}

func (s *Synthesizer) emitWideSigned(d Demand) string {
	ty := d.Type.CName()
	maxM, minM := d.Type.MaxMacro(), d.Type.MinMacro()
	var sb strings.Builder
	fmt.Fprintf(&sb, "static inline %s %s(%s a, %s b) {\n", ty, d.Name(), ty, ty)
	switch d.Op {
	case OpAdd:
		fmt.Fprintf(&sb, "    if (b > 0 && a > %s - b) {\n", maxM)
		sb.WriteString(s.overflowReturn(d, maxM, "        "))
		sb.WriteString("    }\n")
		fmt.Fprintf(&sb, "    if (b < 0 && a < %s - b) {\n", minM)
		sb.WriteString(s.overflowReturn(d, minM, "        "))
		sb.WriteString("    }\n    return a + b;\n}\n")
	case OpSub:
		fmt.Fprintf(&sb, "    if (b < 0 && a > %s + b) {\n", maxM)
		sb.WriteString(s.overflowReturn(d, maxM, "        "))
		sb.WriteString("    }\n")
		fmt.Fprintf(&sb, "    if (b > 0 && a < %s + b) {\n", minM)
		sb.WriteString(s.overflowReturn(d, minM, "        "))
		sb.WriteString("    }\n    return a - b;\n}\n")
	case OpMul:
		sb.WriteString("    if (a == 0 || b == 0) {\n        return 0;\n    }\n")
		fmt.Fprintf(&sb, "    if (a > 0 && b > 0 && a > %s / b) {\n", maxM)
		sb.WriteString(s.overflowReturn(d, maxM, "        "))
		sb.WriteString("    }\n")
		fmt.Fprintf(&sb, "    if (a > 0 && b < 0 && b < %s / a) {\n", minM)
		sb.WriteString(s.overflowReturn(d, minM, "        "))
		sb.WriteString("    }\n")
		fmt.Fprintf(&sb, "    if (a < 0 && b > 0 && a < %s / b) {\n", minM)
		sb.WriteString(s.overflowReturn(d, minM, "        "))
		sb.WriteString("    }\n")
		fmt.Fprintf(&sb, "    if (a < 0 && b < 0 && b < %s / a) {\n", maxM)
		sb.WriteString(s.overflowReturn(d, maxM, "        "))
		sb.WriteString("    }\n    return a * b;\n}\n")
	}
	return sb.String()
}

// overflowReturn renders the overflow branch body: saturation in clamp
// mode, a diagnostic plus abort in panic mode.
func (s *Synthesizer) overflowReturn(d Demand, bound, indent string) string {
	if s.Mode == ModePanic {
		return fmt.Sprintf("%sfprintf(stderr, \"overflow in %s\\n\");\n%sabort();\n", indent, d.Name(), indent)
	}
	return fmt.Sprintf("%sreturn %s;\n", indent, bound)
}

// ClampAdd64 mirrors the synthesized add_i64 clamp semantics; the code
// generator uses it when folding checked constant expressions and tests use
// it to pin the boundary behavior.
func ClampAdd64(a, b int64) int64 {
	if b > 0 && a > maxI64-b {
		return maxI64
	}
	if b < 0 && a < minI64-b {
		return minI64
	}
	return a + b
}

// ClampSub64 mirrors the synthesized sub_i64 clamp semantics.
func ClampSub64(a, b int64) int64 {
	if b < 0 && a > maxI64+b {
		return maxI64
	}
	if b > 0 && a < minI64+b {
		return minI64
	}
	return a - b
}

// ClampMul64 mirrors the synthesized mul_i64 sign-quadrant semantics.
func ClampMul64(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	switch {
	case a > 0 && b > 0:
		if a > maxI64/b {
			return maxI64
		}
	case a > 0 && b < 0:
		if b < minI64/a {
			return minI64
		}
	case a < 0 && b > 0:
		if a < minI64/b {
			return minI64
		}
	default:
		if b < maxI64/a {
			return maxI64
		}
	}
	return a * b
}

const (
	maxI64 = int64(^uint64(0) >> 1)
	minI64 = -maxI64 - 1
)

// Includes returns the include directive a generated unit adds when it
// demanded at least one helper.
func Includes(set *Set) []string {
	if set == nil || set.Len() == 0 {
		return nil
	}
	return []string{RuntimeHeader}
}
