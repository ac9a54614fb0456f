package diag

import "fmt"

// Code is a stable short identifier for one diagnostic condition. Codes are
// grouped by phase: declaration (1xxx), code generation (2xxx), visibility
// and resolution (3xxx), I/O and input decoding (9xxx). Published codes must
// never be renumbered.
type Code uint16

const (
	UnknownCode Code = 0

	// Declaration errors abort registration of the declaring file only.
	DeclInfo             Code = 1000
	DeclDuplicateSymbol  Code = 1001
	DeclUnknownType      Code = 1002
	DeclInvalidModifier  Code = 1003
	DeclDuplicateScope   Code = 1004
	DeclEnumValueRange   Code = 1005
	DeclBitfieldOverlap  Code = 1006
	DeclRegisterAddress  Code = 1007
	DeclEntryNotFound    Code = 1008
	DeclStringCapacity   Code = 1009
	DeclArrayDimension   Code = 1010

	// Codegen errors abort generation of the current file.
	GenInfo               Code = 2000
	GenPreprocessorForm   Code = 2001
	GenSizeofMisuse       Code = 2002
	GenConditionShape     Code = 2003
	GenCriticalSection    Code = 2004
	GenAmbiguousEnum      Code = 2005
	GenShiftAmount        Code = 2006
	GenUnknownSymbol      Code = 2007
	GenArrayInitializer   Code = 2008
	GenUnsupportedNode    Code = 2009
	GenDivisionForm       Code = 2010
	GenBitRange           Code = 2011
	GenCallArity          Code = 2012
	GenThisOutsideScope   Code = 2013
	GenAssignTarget       Code = 2014

	// Visibility / resolution errors.
	VisInfo          Code = 3000
	VisPrivateMember Code = 3001
	VisUnknownScope  Code = 3002
	VisUnknownMember Code = 3003

	// I/O and input decoding.
	IOInfo          Code = 9000
	IOLoadFileError Code = 9001
	IOWriteError    Code = 9002
	IODecodeError   Code = 9003
	IOConfigError   Code = 9004
)

var codeNames = map[Code]string{
	UnknownCode: "Unknown",

	DeclInfo:            "DeclInfo",
	DeclDuplicateSymbol: "DeclDuplicateSymbol",
	DeclUnknownType:     "DeclUnknownType",
	DeclInvalidModifier: "DeclInvalidModifier",
	DeclDuplicateScope:  "DeclDuplicateScope",
	DeclEnumValueRange:  "DeclEnumValueRange",
	DeclBitfieldOverlap: "DeclBitfieldOverlap",
	DeclRegisterAddress: "DeclRegisterAddress",
	DeclEntryNotFound:   "DeclEntryNotFound",
	DeclStringCapacity:  "DeclStringCapacity",
	DeclArrayDimension:  "DeclArrayDimension",

	GenInfo:             "GenInfo",
	GenPreprocessorForm: "GenPreprocessorForm",
	GenSizeofMisuse:     "GenSizeofMisuse",
	GenConditionShape:   "GenConditionShape",
	GenCriticalSection:  "GenCriticalSection",
	GenAmbiguousEnum:    "GenAmbiguousEnum",
	GenShiftAmount:      "GenShiftAmount",
	GenUnknownSymbol:    "GenUnknownSymbol",
	GenArrayInitializer: "GenArrayInitializer",
	GenUnsupportedNode:  "GenUnsupportedNode",
	GenDivisionForm:     "GenDivisionForm",
	GenBitRange:         "GenBitRange",
	GenCallArity:        "GenCallArity",
	GenThisOutsideScope: "GenThisOutsideScope",
	GenAssignTarget:     "GenAssignTarget",

	VisInfo:          "VisInfo",
	VisPrivateMember: "VisPrivateMember",
	VisUnknownScope:  "VisUnknownScope",
	VisUnknownMember: "VisUnknownMember",

	IOInfo:          "IOInfo",
	IOLoadFileError: "IOLoadFileError",
	IOWriteError:    "IOWriteError",
	IODecodeError:   "IODecodeError",
	IOConfigError:   "IOConfigError",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}

// Category names the phase a code belongs to.
func (c Code) Category() string {
	switch {
	case c >= 1000 && c < 2000:
		return "declaration"
	case c >= 2000 && c < 3000:
		return "codegen"
	case c >= 3000 && c < 4000:
		return "visibility"
	case c >= 9000:
		return "io"
	default:
		return "unknown"
	}
}
