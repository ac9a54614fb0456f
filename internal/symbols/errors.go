package symbols

import (
	"fmt"

	"cnext/internal/source"
)

// DuplicateSymbolError reports a (scope, name) collision at declaration time.
type DuplicateSymbolError struct {
	ScopePath string
	Name      string
	Prev      source.Pos
}

func (e *DuplicateSymbolError) Error() string {
	where := "global scope"
	if e.ScopePath != "" {
		where = fmt.Sprintf("scope '%s'", e.ScopePath)
	}
	return fmt.Sprintf("duplicate symbol '%s' in %s", e.Name, where)
}

// VisibilityError reports access to a private member from outside its scope.
type VisibilityError struct {
	ScopePath string
	Name      string
}

func (e *VisibilityError) Error() string {
	return fmt.Sprintf("'%s' is private to scope '%s'", e.Name, e.ScopePath)
}

// NotFoundError reports an unresolvable name.
type NotFoundError struct {
	ScopePath string
	Name      string
}

func (e *NotFoundError) Error() string {
	if e.ScopePath == "" {
		return fmt.Sprintf("unknown symbol '%s'", e.Name)
	}
	return fmt.Sprintf("unknown member '%s' in scope '%s'", e.Name, e.ScopePath)
}
