// Package symbol maps source identifiers to storage across nested
// lexical scopes.
package symbol

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

// ErrDuplicateInScope is returned by Declare when the name already exists
// in the innermost scope.
var ErrDuplicateInScope = pkgerrors.New("duplicate declaration in scope")

// Storage is where a symbol's value lives at run time.
type Storage int

const (
	StorageGlobal Storage = iota // field of the compiled unit
	StorageLocal                 // numbered local slot of the enclosing routine
	StorageFunction
)

func (s Storage) String() string {
	switch s {
	case StorageGlobal:
		return "global"
	case StorageLocal:
		return "local"
	case StorageFunction:
		return "function"
	}
	return fmt.Sprintf("Storage(%d)", int(s))
}

// Symbol is one declared name.
type Symbol struct {
	Name    string
	Type    parser.Type
	Storage Storage
	Line    int

	// Value is the literal value when InitialValueKnownAtCompileTime.
	Value                          interface{}
	InitialValueKnownAtCompileTime bool

	// Params is set for functions.
	Params []parser.Type

	augmented string
}

// AugmentedName is the scope-qualified identity of the symbol. Two
// declarations of the same name in different scopes never share one.
func (s *Symbol) AugmentedName() string {
	return s.augmented
}

type scope struct {
	id      int
	names   []string
	symbols map[string]*Symbol
}

// Table is a stack of scopes. Depth 0 is the global scope.
type Table struct {
	scopes []*scope
	nextID int
}

func New() *Table {
	t := &Table{}
	t.ResetScopeIndex()
	return t
}

// ResetScopeIndex discards every scope and starts over at the global scope.
func (t *Table) ResetScopeIndex() {
	t.nextID = 0
	t.scopes = []*scope{t.newScope()}
}

func (t *Table) newScope() *scope {
	s := &scope{id: t.nextID, symbols: make(map[string]*Symbol)}
	t.nextID++
	return s
}

// Depth is the depth of the innermost scope; 0 at global level.
func (t *Table) Depth() int {
	return len(t.scopes) - 1
}

func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, t.newScope())
}

// ExitScope pops the innermost scope. Popping the global scope is an
// internal error.
func (t *Table) ExitScope() error {
	if len(t.scopes) <= 1 {
		return errors.Internalf("symbol: exit of global scope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
	return nil
}

// Declare adds sym to the innermost scope. Storage is derived from the
// depth unless sym is a function.
func (t *Table) Declare(sym *Symbol) error {
	cur := t.scopes[len(t.scopes)-1]
	if prev, ok := cur.symbols[sym.Name]; ok {
		return pkgerrors.Wrapf(ErrDuplicateInScope, "%s (previous declaration on line %d)", sym.Name, prev.Line)
	}
	if sym.Storage != StorageFunction {
		if len(t.scopes) == 1 {
			sym.Storage = StorageGlobal
		} else {
			sym.Storage = StorageLocal
		}
	}
	sym.augmented = fmt.Sprintf("%s#%d", sym.Name, cur.id)
	cur.names = append(cur.names, sym.Name)
	cur.symbols[sym.Name] = sym
	return nil
}

// Lookup searches innermost to outermost and returns the nearest match
// with the depth of the scope it was found in.
func (t *Table) Lookup(name string) (*Symbol, int, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].symbols[name]; ok {
			return sym, i, true
		}
	}
	return nil, 0, false
}

// LookupCurrent searches the innermost scope only.
func (t *Table) LookupCurrent(name string) (*Symbol, bool) {
	sym, ok := t.scopes[len(t.scopes)-1].symbols[name]
	return sym, ok
}

// Names returns the names introduced in the innermost scope in
// declaration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.scopes[len(t.scopes)-1].names...)
}

func (t *Table) String() string {
	var sb strings.Builder
	for depth, s := range t.scopes {
		fmt.Fprintf(&sb, "%d:", depth)
		for _, n := range s.names {
			fmt.Fprintf(&sb, " %s:%s", n, s.symbols[n].Type)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
