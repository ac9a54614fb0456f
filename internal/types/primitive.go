package types

// Primitive is the closed set of built-in value types. It is matched
// exhaustively wherever primitive behavior differs, so adding a primitive
// fails to compile until every switch is extended.
type Primitive uint8

const (
	PrimInvalid Primitive = iota
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimF32
	PrimF64
	PrimBool
	PrimVoid
	PrimString // fixed-capacity string, rendered as char[N+1]
)

// ParsePrimitive maps a source-language type name to its primitive tag.
func ParsePrimitive(name string) (Primitive, bool) {
	switch name {
	case "u8":
		return PrimU8, true
	case "u16":
		return PrimU16, true
	case "u32":
		return PrimU32, true
	case "u64":
		return PrimU64, true
	case "i8":
		return PrimI8, true
	case "i16":
		return PrimI16, true
	case "i32":
		return PrimI32, true
	case "i64":
		return PrimI64, true
	case "f32":
		return PrimF32, true
	case "f64":
		return PrimF64, true
	case "bool":
		return PrimBool, true
	case "void":
		return PrimVoid, true
	case "string":
		return PrimString, true
	default:
		return PrimInvalid, false
	}
}

func (p Primitive) String() string {
	switch p {
	case PrimU8:
		return "u8"
	case PrimU16:
		return "u16"
	case PrimU32:
		return "u32"
	case PrimU64:
		return "u64"
	case PrimI8:
		return "i8"
	case PrimI16:
		return "i16"
	case PrimI32:
		return "i32"
	case PrimI64:
		return "i64"
	case PrimF32:
		return "f32"
	case PrimF64:
		return "f64"
	case PrimBool:
		return "bool"
	case PrimVoid:
		return "void"
	case PrimString:
		return "string"
	default:
		return "invalid"
	}
}

// CName renders the C spelling of the primitive. Strings are arrays and
// handled by the declaration renderer, so CName returns their element type.
func (p Primitive) CName() string {
	switch p {
	case PrimU8:
		return "uint8_t"
	case PrimU16:
		return "uint16_t"
	case PrimU32:
		return "uint32_t"
	case PrimU64:
		return "uint64_t"
	case PrimI8:
		return "int8_t"
	case PrimI16:
		return "int16_t"
	case PrimI32:
		return "int32_t"
	case PrimI64:
		return "int64_t"
	case PrimF32:
		return "float"
	case PrimF64:
		return "double"
	case PrimBool:
		return "bool"
	case PrimVoid:
		return "void"
	case PrimString:
		return "char"
	default:
		return "void"
	}
}

// IsInteger reports whether the primitive is a fixed-width integer.
func (p Primitive) IsInteger() bool {
	switch p {
	case PrimU8, PrimU16, PrimU32, PrimU64, PrimI8, PrimI16, PrimI32, PrimI64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether the primitive is a signed integer.
func (p Primitive) IsSigned() bool {
	switch p {
	case PrimI8, PrimI16, PrimI32, PrimI64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the primitive is a floating-point type.
func (p Primitive) IsFloat() bool {
	return p == PrimF32 || p == PrimF64
}

// Bits reports the width of an integer primitive, 0 otherwise.
func (p Primitive) Bits() int {
	switch p {
	case PrimU8, PrimI8:
		return 8
	case PrimU16, PrimI16:
		return 16
	case PrimU32, PrimI32:
		return 32
	case PrimU64, PrimI64:
		return 64
	default:
		return 0
	}
}

// MaxMacro names the <stdint.h> maximum constant for an integer primitive.
func (p Primitive) MaxMacro() string {
	switch p {
	case PrimU8:
		return "UINT8_MAX"
	case PrimU16:
		return "UINT16_MAX"
	case PrimU32:
		return "UINT32_MAX"
	case PrimU64:
		return "UINT64_MAX"
	case PrimI8:
		return "INT8_MAX"
	case PrimI16:
		return "INT16_MAX"
	case PrimI32:
		return "INT32_MAX"
	case PrimI64:
		return "INT64_MAX"
	default:
		return ""
	}
}

// MinMacro names the <stdint.h> minimum constant for a signed primitive.
func (p Primitive) MinMacro() string {
	switch p {
	case PrimI8:
		return "INT8_MIN"
	case PrimI16:
		return "INT16_MIN"
	case PrimI32:
		return "INT32_MIN"
	case PrimI64:
		return "INT64_MIN"
	case PrimU8, PrimU16, PrimU32, PrimU64:
		return "0"
	default:
		return ""
	}
}

// Widened returns the signed intermediate used for overflow checks on narrow
// signed types. The widest signed type has no wider intermediate.
func (p Primitive) Widened() (Primitive, bool) {
	switch p {
	case PrimI8, PrimI16, PrimI32:
		return PrimI64, true
	default:
		return PrimInvalid, false
	}
}
