package codegen

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/checker"
	"github.com/lgtm-migrator/samosac-jvm/internal/diag"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/vm"
)

func checked(t *testing.T, src string) (*parser.Program, *diag.Reporter) {
	t.Helper()
	prog, err := parser.ParseSource("test.smc", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := diag.New("test.smc", nil)
	if err := checker.New(r).Check(prog); err != nil {
		t.Fatalf("check: %v", err)
	}
	return prog, r
}

func compile(t *testing.T, src string) *FunctionContext {
	t.Helper()
	prog, r := checked(t, src)
	ctx, err := compileUnit(prog, WithReporter(r))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := vm.Verify(ctx.b.Module()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return ctx
}

// run compiles and executes src, returning the machine and what it printed.
func run(t *testing.T, src string, opts ...vm.Option) (*vm.VM, string) {
	t.Helper()
	ctx := compile(t, src)
	var out bytes.Buffer
	machine := vm.NewVM(ctx.b.Module(), append([]vm.Option{vm.WithOutput(&out)}, opts...)...)
	if err := machine.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return machine, out.String()
}

// recorder binds stubs that log their own name when called.
func recorder(calls *[]string, result vm.Value, names ...string) []vm.Option {
	var opts []vm.Option
	for _, name := range names {
		name := name
		opts = append(opts, vm.WithNative(name, func(*vm.VM, []vm.Value) (vm.Value, error) {
			*calls = append(*calls, name)
			return result, nil
		}))
	}
	return opts
}

func global(t *testing.T, machine *vm.VM, name string) vm.Value {
	t.Helper()
	v, ok := machine.Global(name)
	if !ok {
		t.Fatalf("no global %s", name)
	}
	return v
}

func TestWhileLoop(t *testing.T) {
	machine, _ := run(t, `
let x: int = 0;
let n: int = 0;
while x < 3 {
	x = x + 1;
	n = n + 1;
}
`)
	if got := global(t, machine, "x"); got != int64(3) {
		t.Errorf("x = %v, want 3", got)
	}
	if got := global(t, machine, "n"); got != int64(3) {
		t.Errorf("body ran %v times, want 3", got)
	}
}

func TestWhileIterationCounts(t *testing.T) {
	tests := []struct {
		name  string
		start int
		want  int64
	}{
		{"zero iterations", 5, 0},
		{"condition false at the boundary", 3, 0},
		{"one iteration", 2, 1},
		{"many iterations", -4, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine, _ := run(t, fmt.Sprintf(`
let n: int = 0;
{
	x := %d;
	while x < 3 {
		x = x + 1;
		n = n + 1;
	}
}
`, tt.start))
			if got := global(t, machine, "n"); got != tt.want {
				t.Errorf("body ran %v times, want %d", got, tt.want)
			}
		})
	}
}

func TestIfElseChainRunsOneBranch(t *testing.T) {
	var calls []string
	_, _ = run(t, `
fn p() {}
fn q() {}
fn r() {}
let a: int = 1;
let b: bool = true;
if a > 1 { p() } else if b { q() } else { r() }
`, recorder(&calls, nil, "p", "q", "r")...)
	if strings.Join(calls, ",") != "q" {
		t.Errorf("calls = %v, want [q]", calls)
	}
}

func TestIfLabels(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		elseIfs int
	}{
		{"if", `if a == 1 { println("one") }`, 0},
		{"if else", `if a == 1 { println("one") } else { println("other") }`, 0},
		{"else if chain", `if a == 1 { println("one") } else if a == 2 { println("two") } else if a == 3 { println("three") }`, 2},
		{"else if chain with else", `if a == 1 { println("one") } else if a == 2 { println("two") } else { println("other") }`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := compile(t, "let a: int = 3;\n"+tt.src)
			n := 0
			for _, l := range ctx.b.Labels() {
				if strings.HasPrefix(l.Purpose, "if.") {
					n++
				}
			}
			if want := tt.elseIfs + 2; n != want {
				t.Errorf("if labels = %d, want %d", n, want)
			}
		})
	}
}

func TestIfChainOutput(t *testing.T) {
	src := `
let a: int = %d;
if a == 1 { print("one") } else if a == 2 { print("two") } else { print("other") }
if a > 1 { print("!") }
`
	for a, want := range []string{"other", "one", "two!", "other!"} {
		_, out := run(t, fmt.Sprintf(src, a))
		if out != want {
			t.Errorf("a = %d: output = %q, want %q", a, out, want)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		calls int
		want  int64
	}{
		{"and stops at false", `let v: bool = false && side();`, 0, 0},
		{"or stops at true", `let v: bool = true || side();`, 0, 1},
		{"and evaluates right", `let v: bool = true && side();`, 1, 1},
		{"or evaluates right", `let v: bool = false || side();`, 1, 1},
		{"negated and", `let v: bool = !(false && side());`, 0, 1},
		{"nested", `let v: bool = (1 < 2 || side()) && !(side() && false);`, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			src := "fn side() -> bool {}\n" + tt.src
			machine, _ := run(t, src, recorder(&calls, int64(1), "side")...)
			if len(calls) != tt.calls {
				t.Errorf("side() ran %d times, want %d", len(calls), tt.calls)
			}
			if got := global(t, machine, "v"); got != tt.want {
				t.Errorf("v = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestBoolModes(t *testing.T) {
	exprs := []string{
		`1 < 2`,
		`true`,
		`!(3 == 4)`,
		`1 < 2 && !(3 == 4) || "a" == "b"`,
		`"x" + 1 != "x1"`,
	}
	for _, src := range exprs {
		t.Run(src, func(t *testing.T) {
			prog, r := checked(t, "let subject: bool = "+src+";")
			e := prog.Stmts[0].(*parser.DeclStmt).Init

			m := bytecode.NewModule("modes", "modes.smc")
			b := bytecode.NewBuilder(m, m.NewRoutine(EntryName, nil, bytecode.KindVoid))
			ctx := newFunctionContext(EntryName, b, r)

			f := b.NewLabel("subject.false")
			ctx.bools.Generate(e, BranchMode{False: f})
			if d := b.StackDepth(); d != 0 {
				t.Errorf("branch mode left %d values", d)
			}
			b.Bind(f)

			ctx.bools.Generate(e, ValueMode{})
			if d := b.StackDepth(); d != 1 {
				t.Errorf("value mode left %d values, want 1", d)
			}
			b.Emit(bytecode.OpPop, 0)
			b.Emit(bytecode.OpReturn, 0)
			if err := b.Finish(); err != nil {
				t.Fatalf("finish: %v", err)
			}
		})
	}
}

func TestNestedLoopControl(t *testing.T) {
	machine, _ := run(t, `
let out: string = "";
let i: int = 0;
while i < 3 {
	i = i + 1;
	let j: int = 0;
	while true {
		j = j + 1;
		if j == 2 { continue }
		if j > 3 { break }
		out = out + i + ":" + j + " ";
	}
	if i == 2 { break }
}
`)
	if got := global(t, machine, "out"); got != "1:1 1:3 2:1 2:3 " {
		t.Errorf("out = %q", got)
	}
	if got := global(t, machine, "i"); got != int64(2) {
		t.Errorf("i = %v, want 2", got)
	}
}

func TestLoopStartFrame(t *testing.T) {
	ctx := compile(t, `
{
	let k: int = 0;
	while k < 2 {
		let tmp: string = "x";
		k = k + 1;
	}
	let after: string = "done";
}
`)
	var start *bytecode.Label
	for _, l := range ctx.b.Labels() {
		if l.Purpose == "while.start" {
			start = l
		}
	}
	if start == nil || !start.Bound() {
		t.Fatalf("no bound loop start in %v", ctx.b.Labels())
	}
	want := bytecode.Frame{Locals: []bytecode.VType{bytecode.Int}}
	got, ok := ctx.b.Routine().FrameAt(start.PC())
	if !ok || !got.Equal(want) {
		t.Errorf("loop start frame = %s, want %s", got, want)
	}
	if lf, _ := start.Frame(); !lf.Equal(want) {
		t.Errorf("label frame = %s, want %s", lf, want)
	}
}

func TestDeclarations(t *testing.T) {
	t.Run("globals embed known values", func(t *testing.T) {
		ctx := compile(t, `
let g: int = 7;
let s: string;
flag := true;
let sum: int = g + 1;
`)
		m := ctx.b.Module()
		if len(m.Fields) != 4 {
			t.Fatalf("fields = %v", m.Fields)
		}
		if f := m.Fields[0]; f.Init == nil || *f.Init != bytecode.IntValue(7) {
			t.Errorf("g init = %v", f.Init)
		}
		if f := m.Fields[1]; f.Init == nil || *f.Init != bytecode.StringValue("") {
			t.Errorf("s init = %v", f.Init)
		}
		if f := m.Fields[2]; f.Init == nil || *f.Init != bytecode.BoolValue(true) {
			t.Errorf("flag init = %v", f.Init)
		}
		if f := m.Fields[3]; f.Init != nil {
			t.Errorf("sum init = %v, want run-time store", f.Init)
		}
		puts := 0
		for _, in := range ctx.b.Routine().Code {
			if in.Op == bytecode.OpPutField {
				puts++
			}
		}
		if puts != 1 {
			t.Errorf("putfield count = %d, want 1", puts)
		}
	})

	t.Run("locals get a default store", func(t *testing.T) {
		_, out := run(t, `
{
	let f: bool;
	let n: int;
	let s: string;
	println("" + f + n + "[" + s + "]");
}
`)
		if out != "false0[]\n" {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("shadowing", func(t *testing.T) {
		_, out := run(t, `
let x: int = 1;
{
	let x: string = "inner";
	{
		let x: bool = true;
		println("" + x);
	}
	println(x);
}
println("" + x);
`)
		if out != "true\ninner\n1\n" {
			t.Errorf("output = %q", out)
		}
	})
}

func TestStringOperations(t *testing.T) {
	_, out := run(t, `
let a: string = "a";
if a + "b" == "ab" { println("eq") }
if a != "a" { println("ne") } else { println("same") }
println(a + 1 + true);
`)
	if out != "eq\nsame\na1true\n" {
		t.Errorf("output = %q", out)
	}
}

func typedVar(name string, t parser.Type) *parser.Variable {
	v := &parser.Variable{Pos: parser.Pos{Line: 1, Column: 1}, Name: name}
	v.SetType(t)
	return v
}

func TestUnresolvedIdentifierIsSourceError(t *testing.T) {
	one := &parser.Literal{Value: int64(1)}
	one.SetType(parser.TypeInt)
	prog := &parser.Program{File: "unchecked.smc", Stmts: []parser.Stmt{
		&parser.DeclStmt{Pos: parser.Pos{Line: 1}, Name: "a", DeclType: parser.TypeInt, Form: parser.DeclTyped, Init: typedVar("y", parser.TypeInt)},
		&parser.DeclStmt{Pos: parser.Pos{Line: 2}, Name: "b", DeclType: parser.TypeInt, Form: parser.DeclTyped, Init: one},
		&parser.AssignStmt{Pos: parser.Pos{Line: 3}, Name: "b", Value: typedVar("z", parser.TypeInt)},
	}}
	r := diag.New(prog.File, nil)
	_, err := Generate(prog, WithReporter(r))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.IsInternal(err) {
		t.Fatalf("unresolved identifier reported as internal: %v", err)
	}
	diags := r.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want 2", diags)
	}
	for _, d := range diags {
		if d.Type != errors.CodegenError || !strings.Contains(d.Message, "unresolved identifier") {
			t.Errorf("unexpected diagnostic %v", d)
		}
	}
}

func TestAssignmentToUndeclaredNameIsSourceError(t *testing.T) {
	one := &parser.Literal{Value: int64(1)}
	one.SetType(parser.TypeInt)
	prog := &parser.Program{File: "unchecked.smc", Stmts: []parser.Stmt{
		&parser.AssignStmt{Pos: parser.Pos{Line: 1, Column: 1}, Name: "nope", Value: one},
		&parser.AssignStmt{Pos: parser.Pos{Line: 2, Column: 1}, Name: "println", Value: one},
	}}
	r := diag.New(prog.File, nil)
	_, err := Generate(prog, WithReporter(r))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.IsInternal(err) {
		t.Fatalf("undeclared assignment reported as internal: %v", err)
	}
	diags := r.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want 2", diags)
	}
	for i, name := range []string{"nope", "println"} {
		d := diags[i]
		if d.Type != errors.CodegenError || d.Message != "assignment to undeclared name "+name {
			t.Errorf("unexpected diagnostic %v", d)
		}
	}
}

func intLit(n int64) *parser.Literal {
	l := &parser.Literal{Value: n}
	l.SetType(parser.TypeInt)
	return l
}

func TestSourceErrorDiscardsStatement(t *testing.T) {
	m := bytecode.NewModule("abandon", "abandon.smc")
	entry := m.NewRoutine(EntryName, nil, bytecode.KindVoid)
	r := diag.New(m.Source, nil)
	ctx := newFunctionContext(EntryName, bytecode.NewBuilder(m, entry), r)
	root := &FunctionGen{ctx: ctx}
	ctx.dm = NewDelegationManager(root)

	sum := &parser.Binary{Left: intLit(1), Operator: "+", Right: typedVar("y", parser.TypeInt)}
	sum.SetType(parser.TypeInt)
	less := &parser.Binary{Left: typedVar("a", parser.TypeInt), Operator: "<", Right: intLit(3)}
	less.SetType(parser.TypeBool)
	cond := &parser.Binary{Left: less, Operator: "&&", Right: typedVar("flag", parser.TypeBool)}
	cond.SetType(parser.TypeBool)

	root.GenStmt(&parser.Block{Stmts: []parser.Stmt{
		&parser.DeclStmt{Name: "a", DeclType: parser.TypeInt, Form: parser.DeclTyped, Init: sum},
		&parser.DeclStmt{Name: "a", DeclType: parser.TypeInt, Form: parser.DeclTyped, Init: intLit(2)},
		&parser.WhileStmt{Cond: cond, Body: &parser.Block{}},
	}})
	ctx.b.Emit(bytecode.OpReturn, 0)

	if n := len(r.Diagnostics()); n != 2 {
		t.Fatalf("diagnostics = %v, want 2", r.Diagnostics())
	}
	if labels := ctx.b.Labels(); len(labels) != 0 {
		t.Errorf("labels of abandoned statements survived: %v", labels)
	}
	if err := ctx.b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code := entry.Code
	if len(code) != 3 || code[0].Op != bytecode.OpConst || code[1].Op != bytecode.OpIStore || code[2].Op != bytecode.OpReturn {
		t.Fatalf("code = %v, want const, istore, return", code)
	}
	if c := m.Constants[code[0].Operand]; c.String() != "2" {
		t.Errorf("stored constant = %s, want 2", c)
	}
	if len(entry.Debug) != len(code) {
		t.Errorf("line table has %d entries for %d instructions", len(entry.Debug), len(code))
	}
}

func TestInternalErrorAborts(t *testing.T) {
	lit := &parser.Literal{Value: int64(1)}
	prog := &parser.Program{File: "bad.smc", Stmts: []parser.Stmt{
		// never checked, so the declaration has no storage kind
		&parser.DeclStmt{Name: "a", Form: parser.DeclInferred, Init: lit},
	}}
	_, err := Generate(prog)
	if !errors.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestLoopControlOutsideLoopIsNoOp(t *testing.T) {
	prog := &parser.Program{File: "loose.smc", Stmts: []parser.Stmt{
		&parser.BreakStmt{},
		&parser.ContinueStmt{},
	}}
	m, err := Generate(prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code := m.Entry().Code; len(code) != 1 || code[0].Op != bytecode.OpReturn {
		t.Errorf("code = %v", code)
	}
}
