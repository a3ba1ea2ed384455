// Package segment implements the growable arenas the lexer, compiler, and
// VM share: the text segment (compiled instructions) and the data segment
// (string literal bodies and global variable cells). Both are append-mostly
// buffers with a cursor and support in-place patching, per the DESIGN NOTES'
// "segments as typed arenas" guidance.
package segment

import "github.com/muhtutorials/cvm/opcode"

// WordSize is the alignment and size, in bytes, of one VM word (int64).
// The data segment cursor is rounded up to this after a string literal so
// global cells land on a word boundary, and the compiler scales pointer
// arithmetic by this same constant.
const WordSize = 8

const wordSize = WordSize

// Instr is one text-segment slot: an opcode plus at most one immediate
// operand. Most opcodes ignore Imm.
type Instr struct {
	Op  opcode.Op
	Imm int64
}

// Text is the growable instruction array the compiler writes and the VM
// reads. Branch operands stored in Imm are slot indices into this array,
// never raw addresses, per the DESIGN NOTES.
type Text struct {
	instrs []Instr
}

// NewText returns an empty text segment.
func NewText() *Text {
	return &Text{}
}

// Emit appends an opcode with no operand and returns its slot index.
func (t *Text) Emit(op opcode.Op) int {
	t.instrs = append(t.instrs, Instr{Op: op})
	return len(t.instrs) - 1
}

// EmitImm appends an opcode with an immediate operand and returns its slot
// index.
func (t *Text) EmitImm(op opcode.Op, imm int64) int {
	t.instrs = append(t.instrs, Instr{Op: op, Imm: imm})
	return len(t.instrs) - 1
}

// Len returns the next slot index that Emit/EmitImm would use.
func (t *Text) Len() int {
	return len(t.instrs)
}

// At returns the instruction at slot i.
func (t *Text) At(i int) Instr {
	return t.instrs[i]
}

// Set overwrites the instruction at slot i in place. Used by
// compiler.Emitter to rewrite an rvalue load into a PUSH (the LC/LI->PUSH
// lvalue trick); undoing a trailing load for unary `&` uses Truncate.
func (t *Text) Set(i int, instr Instr) {
	t.instrs[i] = instr
}

// Patch overwrites only the immediate operand at slot i, used to back-patch
// forward branch targets once they become known.
func (t *Text) Patch(i int, imm int64) {
	t.instrs[i].Imm = imm
}

// Truncate drops every instruction from index n onward, used to rewind the
// emit cursor (the `&` address-of rewind).
func (t *Text) Truncate(n int) {
	t.instrs = t.instrs[:n]
}

// Instrs returns the full instruction stream, for the VM loader and the
// `dump` subcommand's disassembly.
func (t *Text) Instrs() []Instr {
	return t.instrs
}

// Data is the byte-addressable segment holding string literal bodies and
// global variable cells. Allocations are sequential.
type Data struct {
	bytes []byte
}

// NewData returns an empty data segment.
func NewData() *Data {
	return &Data{}
}

// Len returns the current cursor, i.e. the address the next allocation
// would start at.
func (d *Data) Len() int64 {
	return int64(len(d.bytes))
}

// AppendByte appends a single byte and returns its address.
func (d *Data) AppendByte(b byte) int64 {
	addr := d.Len()
	d.bytes = append(d.bytes, b)
	return addr
}

// AppendString copies s into the segment, NUL-terminated so host
// intrinsics like `printf`'s %s and `open`'s path argument can find the
// end of the string without a separate length. Returns the address of the
// first byte. After the terminator, Align rounds the cursor up so the next
// global cell lands on a word boundary.
func (d *Data) AppendString(s string) int64 {
	start := d.Len()
	for i := 0; i < len(s); i++ {
		d.AppendByte(s[i])
	}
	d.AppendByte(0)
	d.Align()
	return start
}

// Align rounds the cursor up to the next word boundary.
func (d *Data) Align() {
	for d.Len()%wordSize != 0 {
		d.AppendByte(0)
	}
}

// ReserveWord allocates one word-sized, zero-initialized global cell and
// returns its address. The cursor is aligned first so every global cell
// starts on a word boundary.
func (d *Data) ReserveWord() int64 {
	d.Align()
	addr := d.Len()
	for i := 0; i < wordSize; i++ {
		d.AppendByte(0)
	}
	return addr
}

// AppendWord appends a little-endian word and returns its address. The
// caller is responsible for calling Align first if word alignment matters
// (ReserveWord does both at once for a single cell; AppendWord is for
// writing a contiguous array of words, like argv, where only the first
// element needs the alignment call).
func (d *Data) AppendWord(v int64) int64 {
	addr := d.Len()
	for i := 0; i < wordSize; i++ {
		d.AppendByte(byte(v))
		v >>= 8
	}
	return addr
}

// ReadByte reads a single byte at addr.
func (d *Data) ReadByte(addr int64) byte {
	return d.bytes[addr]
}

// WriteByte stores a single byte at addr, growing the segment if addr lies
// past the current end.
func (d *Data) WriteByte(addr int64, b byte) {
	d.growTo(addr + 1)
	d.bytes[addr] = b
}

// ReadWord reads a little-endian word at addr.
func (d *Data) ReadWord(addr int64) int64 {
	d.growTo(addr + wordSize)
	var v int64
	for i := wordSize - 1; i >= 0; i-- {
		v = v<<8 | int64(d.bytes[addr+int64(i)])
	}
	return v
}

// WriteWord stores a little-endian word at addr.
func (d *Data) WriteWord(addr int64, v int64) {
	d.growTo(addr + wordSize)
	for i := 0; i < wordSize; i++ {
		d.bytes[addr+int64(i)] = byte(v)
		v >>= 8
	}
}

func (d *Data) growTo(n int64) {
	if int64(len(d.bytes)) < n {
		d.bytes = append(d.bytes, make([]byte, n-int64(len(d.bytes)))...)
	}
}

// Bytes exposes the raw backing array, for writing the data segment into a
// compiled .cvm file.
func (d *Data) Bytes() []byte {
	return d.bytes
}
