package driver

import (
	"errors"
	"fmt"

	"cnext/internal/ast"
	"cnext/internal/codegen"
	"cnext/internal/diag"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// DeclareFile registers every declaration of one file into the registry.
// Declaration failures abort only this file's registration: the first
// error stops the walk and lands in the file's bag, and other files are
// untouched.
func DeclareFile(reg *symbols.Table, file *ast.File, bag *diag.Bag) {
	if err := declareDecls(reg, file.Decls, ""); err != nil {
		var de *posDeclError
		if errors.As(err, &de) {
			bag.Add(de.diagnostic())
			return
		}
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.DeclDuplicateSymbol,
			Message:  err.Error(),
		})
	}
}

func declareDecls(reg *symbols.Table, decls []*ast.Decl, path string) error {
	scope := reg.GetOrCreateScope(path)
	for _, d := range decls {
		var err error
		switch d.Kind {
		case ast.DeclScope:
			err = declareScope(reg, d, path)
		case ast.DeclFunction:
			err = declareFunction(reg, d, scope)
		case ast.DeclVariable:
			err = declareVariable(reg, d, scope)
		case ast.DeclStruct:
			err = declareStruct(reg, d, scope)
		case ast.DeclEnum:
			err = declareEnum(reg, d, scope)
		case ast.DeclBitmap:
			err = declareBitmap(reg, d, scope)
		case ast.DeclRegister:
			err = declareRegister(reg, d, scope)
		case ast.DeclInclude:
			// Includes carry no symbols.
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func declareScope(reg *symbols.Table, d *ast.Decl, path string) error {
	child := d.Name
	if path != "" {
		child = path + "." + d.Name
	}
	// A scope may merge with an existing scope of the same path, but not
	// with a value symbol of the same name.
	parent := reg.GetOrCreateScope(path)
	if id, ok := reg.Lookup(parent, d.Name); ok {
		if reg.Symbols.Get(id).Kind != symbols.SymbolScope {
			return declErr(diag.DeclDuplicateScope, d,
				"scope '%s' collides with a %s of the same name",
				d.Name, reg.Symbols.Get(id).Kind)
		}
	}
	reg.GetOrCreateScope(child)
	return declareDecls(reg, d.Scope.Decls, child)
}

func declareFunction(reg *symbols.Table, d *ast.Decl, scope symbols.ScopeID) error {
	f := d.Func
	info := &symbols.FunctionInfo{
		Params:     f.Params,
		Ret:        f.Ret,
		Visibility: d.Visibility,
		Body:       f.Body,
		ISR:        f.ISR,
	}
	if f.ISR && (len(f.Params) > 0 || !f.Ret.IsVoid()) {
		return declErr(diag.DeclInvalidModifier, d,
			"interrupt routine '%s' must take no parameters and return nothing", d.Name)
	}
	var flags symbols.SymbolFlags
	if d.Exported {
		flags |= symbols.SymbolFlagExported
	}
	if f.Body == nil {
		flags |= symbols.SymbolFlagImported
	}
	if _, err := reg.RegisterFunction(scope, d.Name, d.Pos, info, flags); err != nil {
		return wrapDup(err, d)
	}
	return nil
}

func declareVariable(reg *symbols.Table, d *ast.Decl, scope symbols.ScopeID) error {
	v := d.Var
	if err := checkType(v.Type, d); err != nil {
		return err
	}
	var flags symbols.SymbolFlags
	if d.Exported {
		flags |= symbols.SymbolFlagExported
	}
	if v.Overflow {
		if v.Type.IsNamed() || !v.Type.Prim.IsInteger() {
			return declErr(diag.DeclInvalidModifier, d,
				"overflow modifier on non-integer variable '%s'", d.Name)
		}
		flags |= symbols.SymbolFlagOverflow
	}
	info := &symbols.VariableInfo{Type: v.Type, Visibility: d.Visibility}
	if _, err := reg.RegisterVariable(scope, d.Name, d.Pos, info, flags); err != nil {
		return wrapDup(err, d)
	}
	return nil
}

// checkType validates the declarable shape of a type descriptor.
func checkType(t types.Desc, d *ast.Decl) error {
	if !t.IsNamed() && t.Prim == types.PrimString && t.StringCap <= 0 {
		return declErr(diag.DeclStringCapacity, d,
			"string variable '%s' needs a positive capacity", d.Name)
	}
	for _, dim := range t.Dims {
		if dim.Name == "" && dim.Size <= 0 {
			return declErr(diag.DeclArrayDimension, d,
				"array dimension of '%s' must be positive, got %d", d.Name, dim.Size)
		}
	}
	return nil
}

func declareStruct(reg *symbols.Table, d *ast.Decl, scope symbols.ScopeID) error {
	info := &symbols.StructInfo{
		Fields:    d.Struct.Fields,
		FieldType: make(map[string]types.Desc, len(d.Struct.Fields)),
	}
	for _, f := range d.Struct.Fields {
		info.FieldType[f.Name] = f.Type
	}
	if _, err := reg.RegisterStruct(scope, d.Name, d.Pos, info, exportFlag(d)); err != nil {
		return wrapDup(err, d)
	}
	return nil
}

func declareEnum(reg *symbols.Table, d *ast.Decl, scope symbols.ScopeID) error {
	e := d.Enum
	info := &symbols.EnumInfo{
		Values: make(map[string]int64, len(e.Members)),
		Order:  make([]string, 0, len(e.Members)),
		Width:  e.Width,
	}
	next := int64(0)
	for _, m := range e.Members {
		value := next
		if m.Explicit {
			value = m.Value
		}
		if e.Width > 0 && e.Width < 64 {
			limit := int64(1) << e.Width
			if value < 0 || value >= limit {
				return declErr(diag.DeclEnumValueRange, d,
					"enum member '%s.%s' value %d exceeds %d bits",
					d.Name, m.Name, value, e.Width)
			}
		}
		if _, dup := info.Values[m.Name]; dup {
			return declErr(diag.DeclDuplicateSymbol, d,
				"duplicate enum member '%s.%s'", d.Name, m.Name)
		}
		info.Values[m.Name] = value
		info.Order = append(info.Order, m.Name)
		next = value + 1
	}
	if _, err := reg.RegisterEnum(scope, d.Name, d.Pos, info, exportFlag(d)); err != nil {
		return wrapDup(err, d)
	}
	return nil
}

func declareBitmap(reg *symbols.Table, d *ast.Decl, scope symbols.ScopeID) error {
	b := d.Bitmap
	var used uint64
	for _, f := range b.Fields {
		if f.Hi < f.Lo || int(f.Hi) >= b.Width {
			return declErr(diag.DeclBitfieldOverlap, d,
				"bitmap field '%s.%s' range [%d:%d] does not fit %d bits",
				d.Name, f.Name, f.Hi, f.Lo, b.Width)
		}
		mask := ((uint64(1) << (f.Hi - f.Lo + 1)) - 1) << f.Lo
		if used&mask != 0 {
			return declErr(diag.DeclBitfieldOverlap, d,
				"bitmap field '%s.%s' overlaps an earlier field", d.Name, f.Name)
		}
		used |= mask
	}
	info := &symbols.BitmapInfo{Width: b.Width, Fields: b.Fields}
	if _, err := reg.RegisterBitmap(scope, d.Name, d.Pos, info, exportFlag(d)); err != nil {
		return wrapDup(err, d)
	}
	return nil
}

func declareRegister(reg *symbols.Table, d *ast.Decl, scope symbols.ScopeID) error {
	r := d.Register
	if r.Addr == "" {
		return declErr(diag.DeclRegisterAddress, d,
			"register '%s' needs an address", d.Name)
	}
	info := &symbols.RegisterInfo{Addr: r.Addr, Type: r.Type, Members: r.Members}
	if _, err := reg.RegisterRegister(scope, d.Name, d.Pos, info, exportFlag(d)); err != nil {
		return wrapDup(err, d)
	}
	return nil
}

func exportFlag(d *ast.Decl) symbols.SymbolFlags {
	if d.Exported {
		return symbols.SymbolFlagExported
	}
	return 0
}

// CheckTypes warns about named types that resolve to nothing in the
// registry and carry no header mapping. Unmapped externals still compile,
// as opaque forward declarations, so this stays a warning.
func CheckTypes(reg *symbols.Table, file *ast.File, headerFor map[string]string, bag *diag.Bag) {
	warn := func(name string, pos ast.Decl) {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.DeclUnknownType,
			Message: fmt.Sprintf("type '%s' is not declared and has no header mapping; emitting an opaque forward declaration",
				name),
			Primary: pos.Pos,
		})
	}
	var check func(t types.Desc, d *ast.Decl)
	check = func(t types.Desc, d *ast.Decl) {
		if !t.IsNamed() || knownType(reg, t.Name) {
			return
		}
		if _, mapped := headerFor[t.Name]; mapped {
			return
		}
		warn(t.Name, *d)
	}
	var walk func(decls []*ast.Decl)
	walk = func(decls []*ast.Decl) {
		for _, d := range decls {
			switch d.Kind {
			case ast.DeclScope:
				walk(d.Scope.Decls)
			case ast.DeclFunction:
				for _, p := range d.Func.Params {
					check(p.Type, d)
				}
				check(d.Func.Ret, d)
			case ast.DeclVariable:
				check(d.Var.Type, d)
			case ast.DeclStruct:
				for _, f := range d.Struct.Fields {
					if f.Callback == nil {
						check(f.Type, d)
					}
				}
			}
		}
	}
	walk(file.Decls)
}

// knownType reports whether a plain name resolves to any user-defined type.
func knownType(reg *symbols.Table, name string) bool {
	for _, kind := range []symbols.SymbolKind{
		symbols.SymbolStruct, symbols.SymbolEnum, symbols.SymbolBitmap,
	} {
		if _, ok := reg.LookupType(name, kind); ok {
			return true
		}
		if _, ok := reg.LookupMangled(name, kind); ok {
			return true
		}
	}
	return false
}

// CheckEntry verifies the configured entry point exists after all files
// declared.
func CheckEntry(reg *symbols.Table, entry string, bag *diag.Bag) bool {
	if entry == "" {
		return true
	}
	if _, err := reg.ResolveFunction(entry, symbols.NoScopeID); err != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.DeclEntryNotFound,
			Message:  fmt.Sprintf("entry point '%s' is not declared in any file", entry),
		})
		return false
	}
	return true
}

// SeedMutations builds the whole-program parameter-mutation table: one
// conservative pass over every function, then fixpoint refinement using
// resolved callee vectors, so a scalar handed through a chain of
// non-mutating callees ends up by-value everywhere.
func SeedMutations(reg *symbols.Table, mut *codegen.MutTable) {
	type fn struct {
		name  string
		scope symbols.ScopeID
		info  *symbols.FunctionInfo
	}
	var fns []fn
	for i := 1; i <= reg.Symbols.Len(); i++ {
		id := symbols.SymbolID(i) //nolint:gosec // arena length fits uint32
		sym := reg.Symbols.Get(id)
		if sym.Kind != symbols.SymbolFunction || sym.Func == nil {
			continue
		}
		f := fn{name: reg.ForFunction(id), scope: sym.Scope, info: sym.Func}
		fns = append(fns, f)
		mut.Set(f.name, codegen.AnalyzeFunction(f.info))
	}

	for pass := 0; pass < len(fns)+1; pass++ {
		changed := false
		for _, f := range fns {
			vec := codegen.AnalyzeFunctionRefined(reg, mut, f.scope, f.info)
			if !equalVec(vec, currentVec(mut, f.name, len(vec))) {
				mut.Set(f.name, vec)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

func currentVec(mut *codegen.MutTable, name string, n int) []bool {
	vec := make([]bool, n)
	for i := range vec {
		vec[i] = mut.Mutates(name, i)
	}
	return vec
}

func equalVec(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// declErr carries a declaration failure with its stable code and position.
type posDeclError struct {
	code diag.Code
	decl *ast.Decl
	msg  string
}

func (e *posDeclError) Error() string { return e.msg }

func (e *posDeclError) diagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     e.code,
		Message:  e.msg,
		Primary:  e.decl.Pos,
	}
}

func declErr(code diag.Code, d *ast.Decl, format string, args ...any) error {
	return &posDeclError{code: code, decl: d, msg: fmt.Sprintf(format, args...)}
}

// wrapDup converts a registry collision into a positioned declaration
// error.
func wrapDup(err error, d *ast.Decl) error {
	var dup *symbols.DuplicateSymbolError
	if errors.As(err, &dup) {
		return declErr(diag.DeclDuplicateSymbol, d, "%s", dup.Error())
	}
	return declErr(diag.DeclDuplicateSymbol, d, "%s", err.Error())
}
