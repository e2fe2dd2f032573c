package symbol

import (
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

func TestSymbolTable(t *testing.T) {
	t.Run("GlobalStorage", func(t *testing.T) {
		s := New()
		g := &Symbol{Name: "g", Type: parser.TypeInt}
		if err := s.Declare(g); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.Storage != StorageGlobal {
			t.Errorf("g storage: expected global, got %v", g.Storage)
		}
		_, depth, ok := s.Lookup("g")
		if !ok || depth != 0 {
			t.Errorf("g lookup: got depth %d found %v", depth, ok)
		}
	})

	t.Run("LocalScoping", func(t *testing.T) {
		s := New()
		outer := &Symbol{Name: "x", Type: parser.TypeInt}
		s.Declare(outer)

		s.EnterScope()
		inner := &Symbol{Name: "x", Type: parser.TypeString}
		if err := s.Declare(inner); err != nil {
			t.Fatalf("shadowing declaration failed: %v", err)
		}
		got, depth, _ := s.Lookup("x")
		if got != inner || depth != 1 || got.Storage != StorageLocal {
			t.Errorf("inner lookup: got %+v at depth %d", got, depth)
		}

		s.EnterScope()
		got, depth, _ = s.Lookup("x")
		if got != inner || depth != 1 {
			t.Errorf("nested lookup should still see inner x, got depth %d", depth)
		}
		if err := s.ExitScope(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := s.ExitScope(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, depth, _ = s.Lookup("x")
		if got != outer || depth != 0 {
			t.Errorf("after exit: expected outer x at depth 0, got depth %d", depth)
		}
	})

	t.Run("DuplicateInScope", func(t *testing.T) {
		s := New()
		s.EnterScope()
		s.Declare(&Symbol{Name: "a", Type: parser.TypeBool, Line: 1})
		err := s.Declare(&Symbol{Name: "a", Type: parser.TypeBool, Line: 2})
		if pkgerrors.Cause(err) != ErrDuplicateInScope {
			t.Errorf("expected ErrDuplicateInScope, got %v", err)
		}
	})

	t.Run("AugmentedNamesAreDistinct", func(t *testing.T) {
		s := New()
		var names []string
		for i := 0; i < 2; i++ {
			s.EnterScope()
			sym := &Symbol{Name: "i", Type: parser.TypeInt}
			s.Declare(sym)
			names = append(names, sym.AugmentedName())
			s.ExitScope()
		}
		if names[0] == names[1] {
			t.Errorf("sibling scopes share augmented name %q", names[0])
		}
	})

	t.Run("UnmatchedExit", func(t *testing.T) {
		s := New()
		if err := s.ExitScope(); !errors.IsInternal(err) {
			t.Errorf("expected internal error, got %v", err)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		s := New()
		s.EnterScope()
		s.EnterScope()
		s.Declare(&Symbol{Name: "z"})
		s.ResetScopeIndex()
		if s.Depth() != 0 {
			t.Errorf("depth after reset = %d", s.Depth())
		}
		if _, _, ok := s.Lookup("z"); ok {
			t.Errorf("z survived reset")
		}
	})

	t.Run("FunctionsKeepStorage", func(t *testing.T) {
		s := New()
		f := &Symbol{Name: "print", Storage: StorageFunction, Params: []parser.Type{parser.TypeString}}
		s.Declare(f)
		if f.Storage != StorageFunction {
			t.Errorf("function storage rewritten to %v", f.Storage)
		}
	})
}
