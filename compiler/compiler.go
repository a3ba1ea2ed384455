// Package compiler implements the single-pass, recursive-descent code
// generator: it drives the lexer token by token and, during descent, emits
// VM bytecode directly into the text and data segments owned by its
// Emitter. There is no intermediate AST; every grammar rule below is a
// method that consumes tokens and appends instructions.
package compiler

import (
	"fmt"

	"github.com/muhtutorials/cvm/internal/diag"
	"github.com/muhtutorials/cvm/lexer"
	"github.com/muhtutorials/cvm/opcode"
	"github.com/muhtutorials/cvm/segment"
	"github.com/muhtutorials/cvm/symtab"
	"github.com/muhtutorials/cvm/token"
)

// Compiler holds the parser's state: the lexer it pulls tokens from, the
// symbol table it reads and mutates, the emitter it writes bytecode
// through, and the handful of values that only make sense mid-parse (the
// current token, the type of the expression just compiled, and the local
// variable numbering scheme for the function body currently open).
type Compiler struct {
	lex  *lexer.Lexer
	syms *symtab.Table
	em   *Emitter

	tok   token.Kind
	val   int64
	line  int
	curID *symtab.Entry

	// exprType is the type of the expression unit most recently compiled,
	// consulted by binary operators for pointer-arithmetic scaling and by
	// assignment/increment for load/store width (LC/LI vs SC/SI).
	exprType symtab.Type

	// indexOfBP and localIndex implement the frame-offset numbering
	// scheme from spec.md §4.2: indexOfBP = params+1 is the LEA offset
	// base; localIndex starts there and is pre-incremented for every
	// local declared, so the first local lands at indexOfBP+1 (= BP-1
	// once LEA's sign is applied), matching the frame layout in §3
	// (saved BP at BP+0, return address at BP+1, locals below BP).
	indexOfBP  int
	localIndex int
}

// New returns a Compiler that will parse src (already wrapped in lex) and
// write into em, resolving identifiers against syms (which the driver has
// pre-seeded with keywords and host intrinsics). lex must have been
// constructed over the same em.Data, since string literals are lexed
// lazily as Compile pulls tokens and need to land in the segment the
// compiler will later read back.
func New(lex *lexer.Lexer, syms *symtab.Table, em *Emitter) *Compiler {
	return &Compiler{lex: lex, syms: syms, em: em}
}

// Text exposes the compiled instruction stream, for the driver and the
// `dump` subcommand.
func (c *Compiler) Text() *segment.Text {
	return c.em.Text
}

// Data exposes the compiled static-data segment.
func (c *Compiler) Data() *segment.Data {
	return c.em.Data
}

// MainAddr returns the text-segment address of the `main` function,
// looked up after a successful Compile.
func (c *Compiler) MainAddr() (int64, error) {
	main := c.syms.Lookup("main")
	if main.Class != symtab.Fun {
		return 0, fmt.Errorf("no main function defined")
	}
	return main.Value, nil
}

// next advances to the following token, mirroring it into the compiler's
// own fields so the rest of the parser doesn't reach through to the lexer.
func (c *Compiler) next() error {
	if err := c.lex.Next(); err != nil {
		return err
	}
	t := c.lex.Token
	c.tok = t.Kind
	c.val = t.Val
	c.line = t.Line
	c.curID = c.lex.CurrentID
	return nil
}

// Compile parses the whole source buffer as a sequence of global
// declarations, emitting bytecode as it goes. The first error encountered
// is fatal; there is no error recovery, per spec.md §7.
func (c *Compiler) Compile() error {
	if err := c.next(); err != nil {
		return err
	}
	for c.tok != 0 {
		if err := c.globalDecl(); err != nil {
			return err
		}
	}
	return nil
}

// baseType recognizes the leading `int` or `char` keyword of a
// declaration, sizeof operand, or cast. It does not consume the token;
// callers advance past it themselves once they know the context-specific
// error message to raise on failure.
func (c *Compiler) baseType() (symtab.Type, bool) {
	switch c.tok {
	case token.Int:
		return symtab.INT, true
	case token.Char:
		return symtab.CHAR, true
	default:
		return 0, false
	}
}

// globalDecl parses one top-level declaration: an enum, or a base type
// followed by one or more comma-separated pointer-qualified declarators,
// each of which becomes a function or a global variable.
func (c *Compiler) globalDecl() error {
	if c.tok == token.Enum {
		return c.enumDecl()
	}

	baseType, ok := c.baseType()
	if !ok {
		return diag.Errorf(c.line, "bad global declaration")
	}
	if err := c.next(); err != nil {
		return err
	}

	for {
		typ := baseType
		for c.tok == token.Mul {
			typ += symtab.PTR
			if err := c.next(); err != nil {
				return err
			}
		}

		if c.tok != token.Id {
			return diag.Errorf(c.line, "bad global declaration")
		}
		id := c.curID
		if id.Class != 0 {
			return diag.Errorf(c.line, "duplicate global declaration: %s", id.Name)
		}
		if err := c.next(); err != nil {
			return err
		}

		if c.tok == '(' {
			return c.funcRest(id, typ)
		}

		id.Class = symtab.Glo
		id.Type = typ
		id.Value = c.em.Data.ReserveWord()

		if c.tok != ',' {
			break
		}
		if err := c.next(); err != nil {
			return err
		}
	}

	if c.tok != ';' {
		return diag.Errorf(c.line, "bad global declaration")
	}
	return c.next()
}

// enumDecl parses `enum [tag] { name [= value], ... } ;`. Enumerators
// default to consecutive integers starting at 0, or continuing from the
// most recent explicit initializer.
func (c *Compiler) enumDecl() error {
	if err := c.next(); err != nil { // 'enum'
		return err
	}
	if c.tok == token.Id {
		if err := c.next(); err != nil { // discard the optional tag name
			return err
		}
	}
	if c.tok != '{' {
		// a bodyless forward-declaration; only its ';' remains
		if c.tok == ';' {
			return c.next()
		}
		return nil
	}
	if err := c.next(); err != nil {
		return err
	}

	var value int64
	for c.tok != '}' {
		if c.tok == 0 {
			return diag.Errorf(c.line, "unexpected EOF")
		}
		if c.tok != token.Id {
			return diag.Errorf(c.line, "bad global declaration")
		}
		id := c.curID
		if id.Class != 0 {
			return diag.Errorf(c.line, "duplicate global declaration: %s", id.Name)
		}
		if err := c.next(); err != nil {
			return err
		}
		if c.tok == token.Assign {
			if err := c.next(); err != nil {
				return err
			}
			if c.tok != token.Num {
				return diag.Errorf(c.line, "bad global declaration")
			}
			value = c.val
			if err := c.next(); err != nil {
				return err
			}
		}
		id.Class = symtab.Num
		id.Type = symtab.INT
		id.Value = value
		value++

		if c.tok == ',' {
			if err := c.next(); err != nil {
				return err
			}
		}
	}
	if err := c.next(); err != nil { // '}'
		return err
	}
	if c.tok == ';' {
		return c.next()
	}
	return nil
}

// funcRest parses the parameter list and body of a function whose name
// and return type have already been consumed, laying out the stack frame
// per §3/§4.2: `ENT k` reserves k local slots, `LEV` tears the frame down.
func (c *Compiler) funcRest(id *symtab.Entry, returnType symtab.Type) error {
	id.Class = symtab.Fun
	id.Type = returnType
	id.Value = c.em.Here()

	if err := c.next(); err != nil { // '('
		return err
	}

	params := 0
	for c.tok != ')' {
		if c.tok == 0 {
			return diag.Errorf(c.line, "unexpected EOF")
		}
		typ, ok := c.baseType()
		if !ok {
			return diag.Errorf(c.line, "bad parameter")
		}
		if err := c.next(); err != nil {
			return err
		}
		for c.tok == token.Mul {
			typ += symtab.PTR
			if err := c.next(); err != nil {
				return err
			}
		}
		if c.tok != token.Id {
			return diag.Errorf(c.line, "bad parameter")
		}
		pid := c.curID
		if pid.IsLocal() {
			return diag.Errorf(c.line, "duplicate parameter: %s", pid.Name)
		}
		pid.EnterLocal(typ, int64(params))
		params++
		if err := c.next(); err != nil {
			return err
		}
		if c.tok == ',' {
			if err := c.next(); err != nil {
				return err
			}
		}
	}
	if err := c.next(); err != nil { // ')'
		return err
	}

	if c.tok != '{' {
		return diag.Errorf(c.line, "bad function body")
	}
	if err := c.next(); err != nil {
		return err
	}

	c.indexOfBP = params + 1
	c.localIndex = c.indexOfBP

	entSlot := c.em.EmitImm(opcode.ENT, 0)

	if err := c.locals(); err != nil {
		return err
	}

	for c.tok != '}' {
		if c.tok == 0 {
			return diag.Errorf(c.line, "unexpected EOF")
		}
		if err := c.statement(); err != nil {
			return err
		}
	}
	if err := c.next(); err != nil { // '}'
		return err
	}

	c.em.Emit(opcode.LEV)
	c.em.Patch(entSlot, int64(c.localIndex-c.indexOfBP))

	for _, e := range c.syms.Entries() {
		if e.IsLocal() {
			e.LeaveLocal()
		}
	}

	return nil
}

// locals parses the run of local variable declarations at the top of a
// function body, numbering each one P+2, P+3, ... below the saved-BP slot
// (see the Compiler.indexOfBP doc comment).
func (c *Compiler) locals() error {
	for {
		baseType, ok := c.baseType()
		if !ok {
			return nil
		}
		if err := c.next(); err != nil {
			return err
		}
		for {
			typ := baseType
			for c.tok == token.Mul {
				typ += symtab.PTR
				if err := c.next(); err != nil {
					return err
				}
			}
			if c.tok != token.Id {
				return diag.Errorf(c.line, "bad local declaration")
			}
			id := c.curID
			if id.IsLocal() {
				return diag.Errorf(c.line, "duplicate local declaration: %s", id.Name)
			}
			c.localIndex++
			id.EnterLocal(typ, int64(c.localIndex))
			if err := c.next(); err != nil {
				return err
			}
			if c.tok != ',' {
				break
			}
			if err := c.next(); err != nil {
				return err
			}
		}
		if c.tok != ';' {
			return diag.Errorf(c.line, "bad local declaration")
		}
		if err := c.next(); err != nil {
			return err
		}
	}
}

// statement parses one of `if`, `while`, `return`, a block, an empty
// statement, or an expression statement.
func (c *Compiler) statement() error {
	switch c.tok {
	case token.If:
		return c.ifStmt()
	case token.While:
		return c.whileStmt()
	case token.Return:
		return c.returnStmt()
	case '{':
		return c.blockStmt()
	case ';':
		return c.next()
	default:
		if err := c.expression(token.Assign); err != nil {
			return err
		}
		if c.tok != ';' {
			return diag.Errorf(c.line, "expected ';'")
		}
		return c.next()
	}
}

func (c *Compiler) ifStmt() error {
	if err := c.next(); err != nil { // 'if'
		return err
	}
	if c.tok != '(' {
		return diag.Errorf(c.line, "expected '(' after if")
	}
	if err := c.next(); err != nil {
		return err
	}
	if err := c.expression(token.Assign); err != nil {
		return err
	}
	if c.tok != ')' {
		return diag.Errorf(c.line, "expected ')'")
	}
	if err := c.next(); err != nil {
		return err
	}

	jzSlot := c.em.EmitImm(opcode.JZ, 0)
	if err := c.statement(); err != nil {
		return err
	}

	if c.tok == token.Else {
		jmpSlot := c.em.EmitImm(opcode.JMP, 0)
		c.em.Patch(jzSlot, c.em.Here())
		if err := c.next(); err != nil {
			return err
		}
		if err := c.statement(); err != nil {
			return err
		}
		c.em.Patch(jmpSlot, c.em.Here())
		return nil
	}

	c.em.Patch(jzSlot, c.em.Here())
	return nil
}

func (c *Compiler) whileStmt() error {
	if err := c.next(); err != nil { // 'while'
		return err
	}
	entry := c.em.Here()
	if c.tok != '(' {
		return diag.Errorf(c.line, "expected '(' after while")
	}
	if err := c.next(); err != nil {
		return err
	}
	if err := c.expression(token.Assign); err != nil {
		return err
	}
	if c.tok != ')' {
		return diag.Errorf(c.line, "expected ')'")
	}
	if err := c.next(); err != nil {
		return err
	}

	jzSlot := c.em.EmitImm(opcode.JZ, 0)
	if err := c.statement(); err != nil {
		return err
	}
	c.em.EmitImm(opcode.JMP, entry)
	c.em.Patch(jzSlot, c.em.Here())
	return nil
}

func (c *Compiler) returnStmt() error {
	if err := c.next(); err != nil { // 'return'
		return err
	}
	if c.tok != ';' {
		if err := c.expression(token.Assign); err != nil {
			return err
		}
	}
	c.em.Emit(opcode.LEV)
	if c.tok != ';' {
		return diag.Errorf(c.line, "expected ';'")
	}
	return c.next()
}

func (c *Compiler) blockStmt() error {
	if err := c.next(); err != nil { // '{'
		return err
	}
	for c.tok != '}' {
		if c.tok == 0 {
			return diag.Errorf(c.line, "unexpected EOF")
		}
		if err := c.statement(); err != nil {
			return err
		}
	}
	return c.next()
}

// expression implements precedence climbing: a single unit_unary followed
// by zero or more binary/postfix operators whose token kind is >= level.
// The numeric ordering of token kinds from Assign upward (preserved
// verbatim from token.go) is what makes `tok >= level` the precedence
// test; see the GLOSSARY entry for PTR and spec.md §6 for why that
// ordering must never be reshuffled.
func (c *Compiler) expression(level token.Kind) error {
	if err := c.unitUnary(); err != nil {
		return err
	}

	for c.tok >= level {
		switch c.tok {
		case token.Assign:
			if !c.em.ConvertToLvalue() {
				return diag.Errorf(c.line, "bad lvalue in assignment")
			}
			typ := c.exprType
			if err := c.next(); err != nil {
				return err
			}
			if err := c.expression(token.Assign); err != nil {
				return err
			}
			c.exprType = typ
			if typ == symtab.CHAR {
				c.em.Emit(opcode.SC)
			} else {
				c.em.Emit(opcode.SI)
			}

		case token.Cond:
			if err := c.next(); err != nil {
				return err
			}
			jzSlot := c.em.EmitImm(opcode.JZ, 0)
			if err := c.expression(token.Assign); err != nil {
				return err
			}
			if c.tok != ':' {
				return diag.Errorf(c.line, "missing ':' in conditional")
			}
			if err := c.next(); err != nil {
				return err
			}
			jmpSlot := c.em.EmitImm(opcode.JMP, 0)
			c.em.Patch(jzSlot, c.em.Here())
			if err := c.expression(token.Cond); err != nil {
				return err
			}
			c.em.Patch(jmpSlot, c.em.Here())

		case token.Inc, token.Dec:
			if err := c.postfixIncDec(); err != nil {
				return err
			}

		case token.Brak:
			if err := c.subscript(); err != nil {
				return err
			}

		default:
			if err := c.binaryOp(); err != nil {
				return err
			}
		}
	}
	return nil
}

// postfixIncDec compiles `lvalue++`/`lvalue--`: store the stepped value,
// then undo the step once more so AX is left holding the pre-increment
// value, per spec.md §4.2.
func (c *Compiler) postfixIncDec() error {
	op := c.tok
	if !c.em.ConvertToLvalue() {
		return diag.Errorf(c.line, "bad lvalue in pre/post-increment")
	}
	typ := c.exprType
	step := int64(1)
	if typ.PointerDepth() > 0 {
		step = WordSize
	}

	if typ == symtab.CHAR {
		c.em.Emit(opcode.LC)
	} else {
		c.em.Emit(opcode.LI)
	}
	c.em.Emit(opcode.PUSH)
	c.em.EmitImm(opcode.IMM, step)
	if op == token.Inc {
		c.em.Emit(opcode.ADD)
	} else {
		c.em.Emit(opcode.SUB)
	}
	if typ == symtab.CHAR {
		c.em.Emit(opcode.SC)
	} else {
		c.em.Emit(opcode.SI)
	}
	// AX now holds the stepped (new) value; undo the step to yield the
	// value the expression is defined to produce.
	c.em.Emit(opcode.PUSH)
	c.em.EmitImm(opcode.IMM, step)
	if op == token.Inc {
		c.em.Emit(opcode.SUB)
	} else {
		c.em.Emit(opcode.ADD)
	}
	c.exprType = typ
	return c.next()
}

// subscript compiles `base[index]` as `*(base + index)`, scaling index by
// the element size unless the element is a CHAR.
func (c *Compiler) subscript() error {
	baseType := c.exprType
	if baseType.PointerDepth() == 0 {
		return diag.Errorf(c.line, "pointer type expected in subscript")
	}
	if err := c.next(); err != nil { // '['
		return err
	}
	c.em.Emit(opcode.PUSH)
	if err := c.expression(token.Assign); err != nil {
		return err
	}
	if c.tok != ']' {
		return diag.Errorf(c.line, "expected ']'")
	}
	if err := c.next(); err != nil {
		return err
	}

	elemType := baseType.Deref()
	if elemType != symtab.CHAR {
		c.em.Emit(opcode.PUSH)
		c.em.EmitImm(opcode.IMM, WordSize)
		c.em.Emit(opcode.MUL)
	}
	c.em.Emit(opcode.ADD)
	c.exprType = elemType
	if c.exprType == symtab.CHAR {
		c.em.Emit(opcode.LC)
	} else {
		c.em.Emit(opcode.LI)
	}
	return nil
}

// binaryOp compiles every non-assignment, non-conditional, non-postfix
// operator at the current token. Lor/Lan short-circuit via JNZ/JZ rather
// than the bitwise OR/AND opcodes, matching the VM's fixed opcode set
// (there is no dedicated logical-or/and instruction).
func (c *Compiler) binaryOp() error {
	op := c.tok

	if op == token.Lor {
		if err := c.next(); err != nil {
			return err
		}
		jnzSlot := c.em.EmitImm(opcode.JNZ, 0)
		if err := c.expression(token.Lan); err != nil {
			return err
		}
		c.em.Patch(jnzSlot, c.em.Here())
		c.exprType = symtab.INT
		return nil
	}
	if op == token.Lan {
		if err := c.next(); err != nil {
			return err
		}
		jzSlot := c.em.EmitImm(opcode.JZ, 0)
		if err := c.expression(token.Or); err != nil {
			return err
		}
		c.em.Patch(jzSlot, c.em.Here())
		c.exprType = symtab.INT
		return nil
	}

	leftType := c.exprType
	c.em.Emit(opcode.PUSH)
	if err := c.next(); err != nil {
		return err
	}
	if err := c.expression(op + 1); err != nil {
		return err
	}
	rightType := c.exprType

	switch op {
	case token.Or:
		c.em.Emit(opcode.OR)
		c.exprType = symtab.INT
	case token.Xor:
		c.em.Emit(opcode.XOR)
		c.exprType = symtab.INT
	case token.And:
		c.em.Emit(opcode.AND)
		c.exprType = symtab.INT
	case token.Eq:
		c.em.Emit(opcode.EQ)
		c.exprType = symtab.INT
	case token.Ne:
		c.em.Emit(opcode.NE)
		c.exprType = symtab.INT
	case token.Lt:
		c.em.Emit(opcode.LT)
		c.exprType = symtab.INT
	case token.Gt:
		c.em.Emit(opcode.GT)
		c.exprType = symtab.INT
	case token.Le:
		c.em.Emit(opcode.LE)
		c.exprType = symtab.INT
	case token.Ge:
		c.em.Emit(opcode.GE)
		c.exprType = symtab.INT
	case token.Shl:
		c.em.Emit(opcode.SHL)
		c.exprType = symtab.INT
	case token.Shr:
		c.em.Emit(opcode.SHR)
		c.exprType = symtab.INT
	case token.Add:
		c.addOp(leftType, rightType)
	case token.Sub:
		c.subOp(leftType, rightType)
	case token.Mul:
		c.em.Emit(opcode.MUL)
		c.exprType = symtab.INT
	case token.Div:
		c.em.Emit(opcode.DIV)
		c.exprType = symtab.INT
	case token.Mod:
		c.em.Emit(opcode.MOD)
		c.exprType = symtab.INT
	default:
		return diag.Errorf(c.line, "internal compiler error, token = %s", op)
	}
	return nil
}

// addOp scales the integer side of a pointer+integer addition by the word
// size before emitting ADD. Only the "pointer on the left" direction is
// scaled; see DESIGN.md for why the commuted form is a known, narrow
// limitation inherited from the single-register, single-pass design.
func (c *Compiler) addOp(leftType, rightType symtab.Type) {
	switch {
	case leftType.PointerDepth() > 0:
		c.em.Emit(opcode.PUSH)
		c.em.EmitImm(opcode.IMM, WordSize)
		c.em.Emit(opcode.MUL)
		c.em.Emit(opcode.ADD)
		c.exprType = leftType
	case rightType.PointerDepth() > 0:
		c.em.Emit(opcode.ADD)
		c.exprType = rightType
	default:
		c.em.Emit(opcode.ADD)
		c.exprType = symtab.INT
	}
}

// subOp handles the three pointer-aware subtraction shapes: ptr-ptr
// (divide the raw difference by the word size, yielding INT), ptr-int
// (scale the integer before subtracting), and int-int (plain SUB).
func (c *Compiler) subOp(leftType, rightType symtab.Type) {
	switch {
	case leftType.PointerDepth() > 0 && rightType.PointerDepth() > 0:
		c.em.Emit(opcode.SUB)
		c.em.Emit(opcode.PUSH)
		c.em.EmitImm(opcode.IMM, WordSize)
		c.em.Emit(opcode.DIV)
		c.exprType = symtab.INT
	case leftType.PointerDepth() > 0:
		c.em.Emit(opcode.PUSH)
		c.em.EmitImm(opcode.IMM, WordSize)
		c.em.Emit(opcode.MUL)
		c.em.Emit(opcode.SUB)
		c.exprType = leftType
	default:
		c.em.Emit(opcode.SUB)
		c.exprType = symtab.INT
	}
}

// unitUnary compiles a single primary expression with its optional
// prefix operators: literals, sizeof, identifier references, parenthesized
// expressions and casts, and the unary *, &, ~, +, -, ++, -- forms.
func (c *Compiler) unitUnary() error {
	switch c.tok {
	case token.Num:
		// Covers both integer/char literals and string literals: the
		// lexer already resolved a string literal to its data-segment
		// address and reports it as a plain Num token (spec.md §3),
		// so no separate string case is needed here.
		c.em.EmitImm(opcode.IMM, c.val)
		c.exprType = symtab.INT
		return c.next()

	case token.Sizeof:
		if err := c.next(); err != nil {
			return err
		}
		if c.tok != '(' {
			return diag.Errorf(c.line, "expected '(' after sizeof")
		}
		if err := c.next(); err != nil {
			return err
		}
		typ, ok := c.baseType()
		if !ok {
			return diag.Errorf(c.line, "bad type in sizeof")
		}
		if err := c.next(); err != nil {
			return err
		}
		for c.tok == token.Mul {
			typ += symtab.PTR
			if err := c.next(); err != nil {
				return err
			}
		}
		if c.tok != ')' {
			return diag.Errorf(c.line, "expected ')'")
		}
		if err := c.next(); err != nil {
			return err
		}
		size := int64(WordSize)
		if typ == symtab.CHAR {
			size = 1
		}
		c.em.EmitImm(opcode.IMM, size)
		c.exprType = symtab.INT
		return nil

	case token.Id:
		id := c.curID
		if err := c.next(); err != nil {
			return err
		}
		return c.identRef(id)

	case '(':
		if err := c.next(); err != nil {
			return err
		}
		if typ, ok := c.baseType(); ok {
			if err := c.next(); err != nil {
				return err
			}
			for c.tok == token.Mul {
				typ += symtab.PTR
				if err := c.next(); err != nil {
					return err
				}
			}
			if c.tok != ')' {
				return diag.Errorf(c.line, "expected ')' after cast")
			}
			if err := c.next(); err != nil {
				return err
			}
			if err := c.unitUnary(); err != nil {
				return err
			}
			c.exprType = typ
			return nil
		}
		if err := c.expression(token.Assign); err != nil {
			return err
		}
		if c.tok != ')' {
			return diag.Errorf(c.line, "expected ')'")
		}
		return c.next()

	case token.Mul:
		if err := c.next(); err != nil {
			return err
		}
		if err := c.unitUnary(); err != nil {
			return err
		}
		if c.exprType.PointerDepth() == 0 {
			return diag.Errorf(c.line, "bad dereference")
		}
		c.exprType = c.exprType.Deref()
		if c.exprType == symtab.CHAR {
			c.em.Emit(opcode.LC)
		} else {
			c.em.Emit(opcode.LI)
		}
		return nil

	case token.And:
		if err := c.next(); err != nil {
			return err
		}
		if err := c.unitUnary(); err != nil {
			return err
		}
		if !c.em.RewindLoad() {
			return diag.Errorf(c.line, "bad address-of")
		}
		c.exprType += symtab.PTR
		return nil

	case '~':
		if err := c.next(); err != nil {
			return err
		}
		if err := c.unitUnary(); err != nil {
			return err
		}
		c.em.Emit(opcode.PUSH)
		c.em.EmitImm(opcode.IMM, -1)
		c.em.Emit(opcode.XOR)
		c.exprType = symtab.INT
		return nil

	case token.Add:
		if err := c.next(); err != nil {
			return err
		}
		return c.unitUnary()

	case token.Sub:
		if err := c.next(); err != nil {
			return err
		}
		if c.tok == token.Num {
			// REDESIGN FLAG: fold the literal directly instead of
			// relying on a runtime negation sequence.
			c.em.EmitImm(opcode.IMM, -c.val)
			c.exprType = symtab.INT
			return c.next()
		}
		c.em.EmitImm(opcode.IMM, -1)
		c.em.Emit(opcode.PUSH)
		if err := c.unitUnary(); err != nil {
			return err
		}
		c.em.Emit(opcode.MUL)
		c.exprType = symtab.INT
		return nil

	case token.Inc, token.Dec:
		op := c.tok
		if err := c.next(); err != nil {
			return err
		}
		if err := c.unitUnary(); err != nil {
			return err
		}
		if !c.em.ConvertToLvalue() {
			return diag.Errorf(c.line, "bad lvalue in pre/post-increment")
		}
		typ := c.exprType
		step := int64(1)
		if typ.PointerDepth() > 0 {
			step = WordSize
		}
		if typ == symtab.CHAR {
			c.em.Emit(opcode.LC)
		} else {
			c.em.Emit(opcode.LI)
		}
		c.em.Emit(opcode.PUSH)
		c.em.EmitImm(opcode.IMM, step)
		if op == token.Inc {
			c.em.Emit(opcode.ADD)
		} else {
			c.em.Emit(opcode.SUB)
		}
		if typ == symtab.CHAR {
			c.em.Emit(opcode.SC)
		} else {
			c.em.Emit(opcode.SI)
		}
		c.exprType = typ
		return nil

	case 0:
		return diag.Errorf(c.line, "unexpected EOF")

	default:
		return diag.Errorf(c.line, "internal compiler error, token = %s", c.tok)
	}
}

// identRef compiles a use of an already-classified identifier: a call
// (Sys/Fun), an enum constant (Num), or a variable load (Loc/Glo).
func (c *Compiler) identRef(id *symtab.Entry) error {
	switch id.Class {
	case symtab.Sys:
		if err := c.callArgs(id, true); err != nil {
			return err
		}
		return nil
	case symtab.Fun:
		if err := c.callArgs(id, false); err != nil {
			return err
		}
		return nil
	case symtab.Num:
		c.em.EmitImm(opcode.IMM, id.Value)
		c.exprType = symtab.INT
	case symtab.Loc:
		c.em.EmitImm(opcode.LEA, int64(c.indexOfBP)-id.Value)
		c.exprType = id.Type
		if c.exprType == symtab.CHAR {
			c.em.Emit(opcode.LC)
		} else {
			c.em.Emit(opcode.LI)
		}
	case symtab.Glo:
		c.em.EmitImm(opcode.IMM, id.Value)
		c.exprType = id.Type
		if c.exprType == symtab.CHAR {
			c.em.Emit(opcode.LC)
		} else {
			c.em.Emit(opcode.LI)
		}
	default:
		return diag.Errorf(c.line, "undeclared identifier: %s", id.Name)
	}

	if c.tok == '(' {
		return diag.Errorf(c.line, "bad function call: %s", id.Name)
	}
	return nil
}

// callArgs parses the parenthesized, comma-separated argument list of a
// call to a Sys intrinsic or a user-defined function, pushing each
// argument left to right and unwinding them with ADJ afterward.
func (c *Compiler) callArgs(id *symtab.Entry, isSys bool) error {
	if c.tok != '(' {
		return diag.Errorf(c.line, "bad function call: %s", id.Name)
	}
	if err := c.next(); err != nil {
		return err
	}

	argc := 0
	for c.tok != ')' {
		if c.tok == 0 {
			return diag.Errorf(c.line, "unexpected EOF")
		}
		if err := c.expression(token.Assign); err != nil {
			return err
		}
		c.em.Emit(opcode.PUSH)
		argc++
		if c.tok == ',' {
			if err := c.next(); err != nil {
				return err
			}
		}
	}
	if err := c.next(); err != nil { // ')'
		return err
	}

	if isSys {
		c.em.Emit(opcode.Op(id.Value))
	} else {
		c.em.EmitImm(opcode.CALL, id.Value)
	}
	if argc > 0 {
		c.em.EmitImm(opcode.ADJ, int64(argc))
	}
	c.exprType = symtab.INT
	return nil
}
