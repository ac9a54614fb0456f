package headers

import (
	"strings"
)

// render assembles one header variant from the collected sections. The two
// variants share every section; only the guard suffix, the extern "C"
// wrapper, and the spelling of type bodies differ.
func (g *Generator) render(unit string, s *sections, v Variant) string {
	var sb strings.Builder
	guard := guardMacro(unit, v)
	sb.WriteString("#ifndef " + guard + "\n")
	sb.WriteString("#define " + guard + "\n\n")

	sb.WriteString("#include <stdint.h>\n")
	if s.needBool && v == VariantC {
		sb.WriteString("#include <stdbool.h>\n")
	}
	for _, inc := range s.includes {
		sb.WriteString("#include \"" + inc + "\"\n")
	}
	sb.WriteString("\n")

	if v == VariantCPP {
		sb.WriteString("extern \"C\" {\n\n")
	}

	for _, name := range s.opaque {
		if v == VariantCPP {
			sb.WriteString("struct " + name + ";\n")
		} else {
			sb.WriteString("typedef struct " + name + " " + name + ";\n")
		}
	}
	if len(s.opaque) > 0 {
		sb.WriteString("\n")
	}

	if s.needISR {
		sb.WriteString("typedef void (*cnx_isr_t)(void);\n\n")
	}
	for _, cb := range s.callbacks {
		sb.WriteString(cb + "\n")
	}
	if len(s.callbacks) > 0 {
		sb.WriteString("\n")
	}

	for _, td := range s.typedefs {
		sb.WriteString(renderTypeDef(td, v))
		sb.WriteString("\n")
	}

	for _, c := range s.consts {
		sb.WriteString(c + "\n")
	}
	if len(s.consts) > 0 {
		sb.WriteString("\n")
	}

	for _, ex := range s.externs {
		sb.WriteString(ex + "\n")
	}
	if len(s.externs) > 0 {
		sb.WriteString("\n")
	}

	for _, p := range s.protos {
		sb.WriteString(p + "\n")
	}
	if len(s.protos) > 0 {
		sb.WriteString("\n")
	}

	if v == VariantCPP {
		sb.WriteString("} // extern \"C\"\n\n")
	}

	sb.WriteString("#endif // " + guard + "\n")
	return sb.String()
}

// renderTypeDef spells one user type. C uses the typedef idiom; C++ names
// the tag directly.
func renderTypeDef(td typeDef, v Variant) string {
	var sb strings.Builder
	switch {
	case td.underC != "": // bitmap
		sb.WriteString("typedef " + td.underC + " " + td.name + ";\n")
		for _, line := range td.lines {
			sb.WriteString(line + "\n")
		}
		return sb.String()
	case len(td.lines) == 0:
		if v == VariantCPP {
			return "struct " + td.name + " {\n};\n"
		}
		return "typedef struct {\n} " + td.name + ";\n"
	}

	kind := "struct"
	if td.isEnum() {
		kind = "enum"
	}
	if v == VariantCPP {
		sb.WriteString(kind + " " + td.name + " {\n")
	} else {
		sb.WriteString("typedef " + kind + " {\n")
	}
	for _, line := range td.lines {
		sb.WriteString("    " + line + "\n")
	}
	if v == VariantCPP {
		sb.WriteString("};\n")
	} else {
		sb.WriteString("} " + td.name + ";\n")
	}
	return sb.String()
}

// guardMacro derives the include-guard macro from the unit name.
func guardMacro(unit string, v Variant) string {
	var sb strings.Builder
	for _, c := range unit {
		switch {
		case c >= 'a' && c <= 'z':
			sb.WriteRune(c - 'a' + 'A')
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			sb.WriteRune(c)
		default:
			sb.WriteRune('_')
		}
	}
	if v == VariantCPP {
		return sb.String() + "_HPP"
	}
	return sb.String() + "_H"
}
