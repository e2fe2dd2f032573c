package codegen

import (
	"fmt"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

// Kind enumerates the statement kinds that nested generators may take
// over for the lexical extent of their construct.
type Kind int

const (
	KindBlock Kind = iota
	KindBreak
	KindContinue
	KindDecl                   // let x: T;
	KindDeclAssign             // let x: T = e;
	KindBoolDeclAssign         // let b: bool = e;
	KindInferredDeclAssign     // x := e;
	KindInferredBoolDeclAssign // b := e; with a bool e
	numKinds
)

var kindNames = [numKinds]string{
	"block", "break", "continue", "decl", "decl-assign", "bool-decl-assign",
	"inferred-decl-assign", "inferred-bool-decl-assign",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DeclKind classifies a declaration statement.
func DeclKind(d *parser.DeclStmt) Kind {
	isBool := d.DeclType == parser.TypeBool
	switch {
	case d.Form == parser.DeclNoInit:
		return KindDecl
	case d.Form == parser.DeclInferred && isBool:
		return KindInferredBoolDeclAssign
	case d.Form == parser.DeclInferred:
		return KindInferredDeclAssign
	case isBool:
		return KindBoolDeclAssign
	}
	return KindDeclAssign
}

// StmtGen handles the delegatable statement kinds.
type StmtGen interface {
	GenBlock(b *parser.Block)
	GenBreak(s *parser.BreakStmt)
	GenContinue(s *parser.ContinueStmt)
	GenDecl(d *parser.DeclStmt)
}

// DelegationManager routes each delegatable kind to the generator that
// registered it last, falling back to the function-level generator.
type DelegationManager struct {
	root   StmtGen
	owners [numKinds][]StmtGen
}

func NewDelegationManager(root StmtGen) *DelegationManager {
	return &DelegationManager{root: root}
}

// Register makes g the owner of kinds until the matching Unregister.
func (m *DelegationManager) Register(kinds []Kind, g StmtGen) {
	for _, k := range kinds {
		m.check(k)
		m.owners[k] = append(m.owners[k], g)
	}
}

// Unregister restores the previous owner of kinds. g must be the current
// owner of every kind listed.
func (m *DelegationManager) Unregister(kinds []Kind, g StmtGen) {
	for _, k := range kinds {
		m.check(k)
		stack := m.owners[k]
		if len(stack) == 0 {
			panic(errors.Internalf("codegen: unregister of %s which has no delegate", k))
		}
		if stack[len(stack)-1] != g {
			panic(errors.Internalf("codegen: unregister of %s by a generator that does not own it", k))
		}
	}
	for _, k := range kinds {
		m.owners[k] = m.owners[k][:len(m.owners[k])-1]
	}
}

// Owner returns the generator currently responsible for k.
func (m *DelegationManager) Owner(k Kind) StmtGen {
	m.check(k)
	if stack := m.owners[k]; len(stack) > 0 {
		return stack[len(stack)-1]
	}
	return m.root
}

// Balanced reports whether every registration was undone.
func (m *DelegationManager) Balanced() bool {
	for _, stack := range m.owners {
		if len(stack) > 0 {
			return false
		}
	}
	return true
}

func (m *DelegationManager) check(k Kind) {
	if k < 0 || k >= numKinds {
		panic(errors.Internalf("codegen: %s is not delegatable", k))
	}
}
