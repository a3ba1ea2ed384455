package main

import (
	"github.com/muhtutorials/cvm/compiler"
	"github.com/muhtutorials/cvm/lexer"
)

// compileSource runs the full lexer+compiler pipeline over src, seeding a
// fresh symbol table and emitter for each call so successive files (or
// tests) never see leftover declarations or bytecode from one another.
func compileSource(src []byte) (*compiler.Compiler, error) {
	syms := newSymbolTable()
	em := compiler.NewEmitter()
	l := lexer.New(src, syms, em.Data)
	c := compiler.New(l, syms, em)

	if err := c.Compile(); err != nil {
		return nil, err
	}
	return c, nil
}
