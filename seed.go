package main

import (
	"github.com/muhtutorials/cvm/opcode"
	"github.com/muhtutorials/cvm/symtab"
	"github.com/muhtutorials/cvm/token"
)

// newSymbolTable returns a symbol table pre-seeded with the language's
// reserved words and the host intrinsics every program may call without a
// declaration, per spec.md §3's "the driver seeds Sys/keyword entries
// before the first token is lexed" note.
func newSymbolTable() *symtab.Table {
	syms := symtab.New()

	for name, kind := range token.Keywords {
		syms.Seed(name, kind, 0, 0, 0)
	}

	intrinsics := []struct {
		name string
		op   opcode.Op
	}{
		{"open", opcode.OPEN},
		{"read", opcode.READ},
		{"close", opcode.CLOS},
		{"printf", opcode.PRTF},
		{"malloc", opcode.MALC},
		{"memset", opcode.MSET},
		{"memcmp", opcode.MCMP},
		{"exit", opcode.EXIT},
	}
	for _, it := range intrinsics {
		// Token stays Id: Sys/Fun/Glo/Loc are distinguished by Class,
		// which unitUnary's identifier dispatch reads directly, not by
		// the token kind the lexer reports for the name.
		syms.Seed(it.name, token.Id, symtab.Sys, symtab.INT, int64(it.op))
	}

	return syms
}
