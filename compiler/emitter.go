package compiler

import (
	"github.com/muhtutorials/cvm/opcode"
	"github.com/muhtutorials/cvm/segment"
)

// WordSize is the VM's word width, used to scale pointer arithmetic.
const WordSize = segment.WordSize

// Emitter owns the text and data segments being written during
// compilation and encapsulates the two in-place edits the single-pass
// generator makes to instructions it already emitted: turning a trailing
// rvalue load into a PUSH (ConvertToLvalue) and rewinding a trailing load
// entirely (RewindLoad, for unary `&`). See the DESIGN NOTES'
// emit_lvalue_convert guidance.
type Emitter struct {
	Text *segment.Text
	Data *segment.Data
}

// NewEmitter returns an Emitter over fresh, empty segments.
func NewEmitter() *Emitter {
	return &Emitter{Text: segment.NewText(), Data: segment.NewData()}
}

// Emit appends an opcode with no operand.
func (e *Emitter) Emit(op opcode.Op) int {
	return e.Text.Emit(op)
}

// EmitImm appends an opcode with an immediate operand.
func (e *Emitter) EmitImm(op opcode.Op, imm int64) int {
	return e.Text.EmitImm(op, imm)
}

// Patch backfills the operand of a previously emitted branch once its
// target slot index is known.
func (e *Emitter) Patch(slot int, target int64) {
	e.Text.Patch(slot, target)
}

// Here returns the slot index the next Emit/EmitImm call would use, i.e.
// the address a branch into "the next instruction" should target.
func (e *Emitter) Here() int64 {
	return int64(e.Text.Len())
}

// ConvertToLvalue rewrites the most recently emitted instruction from an
// rvalue load (LC or LI) into a PUSH, so the address it would have loaded
// from survives on the stack for a pending assignment or increment.
// Reports whether the last instruction was in fact a load; the compiler
// treats a false return as "bad lvalue".
func (e *Emitter) ConvertToLvalue() bool {
	n := e.Text.Len()
	if n == 0 {
		return false
	}
	if last := e.Text.At(n - 1); last.Op == opcode.LC || last.Op == opcode.LI {
		e.Text.Set(n-1, segment.Instr{Op: opcode.PUSH})
		return true
	}
	return false
}

// RewindLoad drops the most recently emitted load entirely, used by unary
// `&`: the address it would have dereferenced is already sitting where the
// load would have read from, so the load is simply never emitted... except
// it already was, by the unit_unary phase that compiled the underlying
// identifier/subscript/deref before `&` got a chance to intervene. Reports
// whether a load was actually present to rewind.
func (e *Emitter) RewindLoad() bool {
	n := e.Text.Len()
	if n == 0 {
		return false
	}
	if last := e.Text.At(n - 1); last.Op == opcode.LC || last.Op == opcode.LI {
		e.Text.Truncate(n - 1)
		return true
	}
	return false
}

// LastOp returns the most recently emitted opcode, or -1 if the text
// segment is empty.
func (e *Emitter) LastOp() opcode.Op {
	n := e.Text.Len()
	if n == 0 {
		return -1
	}
	return e.Text.At(n - 1).Op
}
