// Package symtab implements the flat symbol table shared by the lexer and
// the compiler: one entry per distinct identifier span, with shadow triples
// used to hide a global while a local of the same name is in scope.
package symtab

import "github.com/muhtutorials/cvm/token"

// Type is a value's type tag. Pointer depth is encoded by adding PTR once
// per level of indirection, matching the GLOSSARY's PTR definition.
type Type int

const (
	CHAR Type = 0
	INT  Type = 1
	PTR  Type = 2
)

// PointerDepth returns how many levels of indirection t carries.
func (t Type) PointerDepth() int {
	return int((t - (t % PTR)) / PTR)
}

// Deref returns the type one pointer level down. Callers must not call this
// on a non-pointer type (guarded by the compiler's dereference check).
func (t Type) Deref() Type {
	return t - PTR
}

// Class identifies what kind of thing a symbol-table entry names. The
// values deliberately equal the matching token.Kind constants (Num, Fun,
// Sys, Glo, Loc are the first five enumerated token kinds) so that an
// identifier's Class can be compared directly against the token kinds the
// lexer would otherwise emit for it — the same trick the C dialect this
// toolchain targets relies on.
type Class = token.Kind

const (
	Num = token.Num // enum constant
	Fun = token.Fun // user-defined function
	Sys = token.Sys // host intrinsic
	Glo = token.Glo // global variable
	Loc = token.Loc // local variable
)

// shadow stashes a global's meaning while a local of the same name is in
// scope, per the GLOSSARY's "shadow triple".
type shadow struct {
	class Class
	typ   Type
	value int64
}

// Entry is one symbol-table record.
type Entry struct {
	Name  string // the identifier's bytes, copied out of the source buffer
	Hash  uint64 // rolling hash of Name, multiplier 147
	Token token.Kind
	Class Class
	Type  Type
	Value int64

	shadowed *shadow
}

// Table is the flat, append-only array of symbol-table entries, linearly
// probed by (hash, name) on lookup.
type Table struct {
	entries []*Entry
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Hash computes the rolling hash of name: multiplier 147, byte addition.
func Hash(name string) uint64 {
	var h uint64
	for i := 0; i < len(name); i++ {
		h = h*147 + uint64(name[i])
	}
	return h
}

// Lookup finds an existing entry for name, or creates and appends a fresh
// one (Token = token.Id, Class = 0) if none exists. The returned entry is
// shared by every future reference to the same name.
func (t *Table) Lookup(name string) *Entry {
	return t.LookupHash(name, Hash(name))
}

// LookupHash is Lookup for a caller (the lexer) that already computed
// name's rolling hash while scanning it, avoiding a second pass over the
// bytes.
func (t *Table) LookupHash(name string, h uint64) *Entry {
	for _, e := range t.entries {
		if e.Hash == h && e.Name == name {
			return e
		}
	}
	e := &Entry{Name: name, Hash: h, Token: token.Id}
	t.entries = append(t.entries, e)
	return e
}

// Seed installs a keyword or intrinsic entry directly, used by the driver
// to pre-populate reserved words and host functions before compilation.
func (t *Table) Seed(name string, kind token.Kind, class Class, typ Type, value int64) *Entry {
	e := t.Lookup(name)
	e.Token = kind
	e.Class = class
	e.Type = typ
	e.Value = value
	return e
}

// Entries returns every entry in insertion order, used by the compiler to
// restore every local when a function body closes.
func (t *Table) Entries() []*Entry {
	return t.entries
}

// EnterLocal shadows e's current (Class, Type, Value) with a Loc entry,
// saving the prior meaning so LeaveLocal can restore it. Called once per
// declaration of a parameter or local variable.
func (e *Entry) EnterLocal(typ Type, value int64) {
	e.shadowed = &shadow{class: e.Class, typ: e.Type, value: e.Value}
	e.Class = Loc
	e.Type = typ
	e.Value = value
}

// LeaveLocal restores the entry's pre-shadow meaning, uncovering any global
// of the same name (or clearing back to "undeclared" if there was none).
func (e *Entry) LeaveLocal() {
	if e.shadowed == nil {
		return
	}
	e.Class = e.shadowed.class
	e.Type = e.shadowed.typ
	e.Value = e.shadowed.value
	e.shadowed = nil
}

// IsLocal reports whether e currently denotes a local/parameter.
func (e *Entry) IsLocal() bool {
	return e.Class == Loc
}
