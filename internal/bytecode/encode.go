package bytecode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Version information
const (
	FormatVersion = 1
	MagicNumber   = 0x534D5343 // "SMSC"
)

type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) write(v interface{}) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

func (e *encoder) str(s string) {
	e.write(uint32(len(s)))
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

func (e *encoder) value(v Value) {
	e.write(byte(v.Kind))
	if v.Kind == KindString {
		e.str(v.Str)
	} else {
		e.write(v.Int)
	}
}

func (e *encoder) vtypes(ts []VType) {
	e.write(uint16(len(ts)))
	for _, t := range ts {
		e.write(byte(t))
	}
}

// Encode writes m in the binary module format.
func Encode(w io.Writer, m *Module) error {
	e := &encoder{w: bufio.NewWriter(w)}
	e.write(uint32(MagicNumber))
	e.write(uint16(FormatVersion))
	e.write(m.UnitID)
	e.str(m.Name)
	e.str(m.Source)

	e.write(uint32(len(m.Constants)))
	for _, c := range m.Constants {
		e.value(c)
	}

	e.write(uint32(len(m.Fields)))
	for _, f := range m.Fields {
		e.str(f.Name)
		e.write(byte(f.Kind))
		if f.Init == nil {
			e.write(byte(0))
		} else {
			e.write(byte(1))
			e.value(*f.Init)
		}
	}

	e.write(uint32(len(m.Routines)))
	for _, r := range m.Routines {
		encodeRoutine(e, r)
	}
	if e.err != nil {
		return fmt.Errorf("failed to encode module %s: %w", m.Name, e.err)
	}
	return e.w.Flush()
}

func encodeRoutine(e *encoder, r *Routine) {
	e.str(r.Name)
	e.write(uint16(len(r.Params)))
	for _, p := range r.Params {
		e.write(byte(p))
	}
	e.write(byte(r.Result))
	e.write(r.Stub)
	e.write(uint16(r.MaxLocals))

	e.write(uint32(len(r.Code)))
	for pc, in := range r.Code {
		dbg := r.GetDebugInfo(pc)
		e.write(byte(in.Op))
		e.write(in.Operand)
		e.write(int32(dbg.Line))
		e.write(int32(dbg.Column))
	}

	e.write(uint32(len(r.StackMap)))
	for _, fe := range r.StackMap {
		e.write(uint32(fe.PC))
		e.vtypes(fe.Frame.Locals)
		e.vtypes(fe.Frame.Stack)
	}
}

type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) read(v interface{}) {
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, v)
	}
}

// count reads a length prefix and rejects implausible values.
func (d *decoder) count(limit uint32) int {
	var n uint32
	d.read(&n)
	if d.err == nil && n > limit {
		d.err = fmt.Errorf("length %d exceeds limit %d", n, limit)
	}
	if d.err != nil {
		return 0
	}
	return int(n)
}

func (d *decoder) str() string {
	n := d.count(1 << 24)
	if d.err != nil {
		return ""
	}
	buf := make([]byte, n)
	_, d.err = io.ReadFull(d.r, buf)
	return string(buf)
}

func (d *decoder) value() Value {
	var k byte
	d.read(&k)
	v := Value{Kind: Kind(k)}
	if v.Kind == KindString {
		v.Str = d.str()
	} else {
		d.read(&v.Int)
	}
	return v
}

func (d *decoder) vtypes() []VType {
	var n uint16
	d.read(&n)
	if d.err != nil {
		return nil
	}
	ts := make([]VType, n)
	for i := range ts {
		var t byte
		d.read(&t)
		ts[i] = VType(t)
	}
	return ts
}

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*Module, error) {
	d := &decoder{r: bufio.NewReader(r)}

	var magic uint32
	d.read(&magic)
	if d.err != nil {
		return nil, fmt.Errorf("failed to read magic number: %w", d.err)
	}
	if magic != MagicNumber {
		return nil, fmt.Errorf("invalid module file: bad magic number")
	}
	var version uint16
	d.read(&version)
	if d.err == nil && version > FormatVersion {
		return nil, fmt.Errorf("unsupported module format version: %d", version)
	}

	m := &Module{}
	var id uuid.UUID
	d.read(&id)
	m.UnitID = id
	m.Name = d.str()
	m.Source = d.str()

	for i, n := 0, d.count(1<<20); i < n; i++ {
		m.Constants = append(m.Constants, d.value())
	}
	for i, n := 0, d.count(1<<20); i < n; i++ {
		f := Field{Name: d.str()}
		var k, hasInit byte
		d.read(&k)
		d.read(&hasInit)
		f.Kind = Kind(k)
		if hasInit == 1 {
			v := d.value()
			f.Init = &v
		}
		m.Fields = append(m.Fields, f)
	}
	for i, n := 0, d.count(1<<16); i < n; i++ {
		m.Routines = append(m.Routines, decodeRoutine(d))
	}
	if d.err != nil {
		return nil, fmt.Errorf("failed to decode module: %w", d.err)
	}
	return m, nil
}

func decodeRoutine(d *decoder) *Routine {
	r := &Routine{Name: d.str()}
	var nparams uint16
	d.read(&nparams)
	for i := 0; i < int(nparams) && d.err == nil; i++ {
		var k byte
		d.read(&k)
		r.Params = append(r.Params, Kind(k))
	}
	var result byte
	var maxLocals uint16
	d.read(&result)
	d.read(&r.Stub)
	d.read(&maxLocals)
	r.Result = Kind(result)
	r.MaxLocals = int(maxLocals)

	for i, n := 0, d.count(1<<24); i < n; i++ {
		var op byte
		var operand, line, col int32
		d.read(&op)
		d.read(&operand)
		d.read(&line)
		d.read(&col)
		r.write(Instruction{Op: OpCode(op), Operand: operand}, DebugInfo{Line: int(line), Column: int(col)})
	}
	for i, n := 0, d.count(1<<24); i < n; i++ {
		var pc uint32
		d.read(&pc)
		f := Frame{Locals: d.vtypes(), Stack: d.vtypes()}
		r.StackMap = append(r.StackMap, FrameEntry{PC: int(pc), Frame: f})
	}
	return r
}
