package lexer

import (
	"testing"

	"github.com/muhtutorials/cvm/segment"
	"github.com/muhtutorials/cvm/symtab"
	"github.com/muhtutorials/cvm/token"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	syms := symtab.New()
	data := segment.NewData()
	l := New([]byte(src), syms, data)

	var toks []Token
	for {
		if err := l.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
		toks = append(toks, l.Token)
		if l.Token.Kind == 0 {
			return toks
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := map[string]int64{
		"0":    0,
		"42":   42,
		"0x2a": 42,
		"052":  42, // octal
	}
	for src, want := range cases {
		toks := lexAll(t, src)
		if toks[0].Kind != token.Num || toks[0].Val != want {
			t.Errorf("lex(%q) = %+v, want Num(%d)", src, toks[0], want)
		}
	}
}

func TestStringLiteralEscapesAndTerminates(t *testing.T) {
	syms := symtab.New()
	data := segment.NewData()
	l := New([]byte(`"ab\nc"`), syms, data)
	if err := l.Next(); err != nil {
		t.Fatal(err)
	}
	if l.Token.Kind != token.Num {
		t.Fatalf("string literal should lex as Num, got %v", l.Token.Kind)
	}
	addr := l.Token.Val
	want := []byte("ab\nc\x00")
	for i, b := range want {
		if data.ReadByte(addr+int64(i)) != b {
			t.Fatalf("data[%d] = %d, want %d", i, data.ReadByte(addr+int64(i)), b)
		}
	}
}

func TestUnterminatedStringIsAnError(t *testing.T) {
	syms := symtab.New()
	data := segment.NewData()
	l := New([]byte(`"unterminated`), syms, data)
	if err := l.Next(); err == nil {
		t.Fatal("expected an error for an unterminated string literal")
	}
}

func TestBareBangIsAnError(t *testing.T) {
	syms := symtab.New()
	data := segment.NewData()
	l := New([]byte(`!x`), syms, data)
	if err := l.Next(); err == nil {
		t.Fatal("expected an error for a bare '!' not followed by '='")
	}
}

func TestBangEqualIsNe(t *testing.T) {
	toks := lexAll(t, "!=")
	if toks[0].Kind != token.Ne {
		t.Fatalf("lex(\"!=\") = %v, want Ne", toks[0].Kind)
	}
}

func TestKeywordsAndIdentifiersShareTheSymbolTable(t *testing.T) {
	syms := symtab.New()
	for name, kind := range token.Keywords {
		syms.Seed(name, kind, 0, 0, 0)
	}
	data := segment.NewData()
	l := New([]byte("int x while"), syms, data)

	if err := l.Next(); err != nil {
		t.Fatal(err)
	}
	if l.Token.Kind != token.Int {
		t.Fatalf("lex(\"int\") = %v, want Int", l.Token.Kind)
	}

	if err := l.Next(); err != nil {
		t.Fatal(err)
	}
	if l.Token.Kind != token.Id || l.CurrentID.Name != "x" {
		t.Fatalf("lex(\"x\") = %v (%+v), want a fresh Id", l.Token.Kind, l.CurrentID)
	}

	if err := l.Next(); err != nil {
		t.Fatal(err)
	}
	if l.Token.Kind != token.While {
		t.Fatalf("lex(\"while\") = %v, want While", l.Token.Kind)
	}
}

func TestCommentsAndDirectivesAreSkipped(t *testing.T) {
	toks := lexAll(t, "// comment\n# directive\n42")
	if toks[0].Kind != token.Num || toks[0].Val != 42 {
		t.Fatalf("expected comments/directives to be skipped, got %+v", toks[0])
	}
}

func TestMultiCharOperators(t *testing.T) {
	cases := map[string]token.Kind{
		"<=": token.Le,
		">=": token.Ge,
		"<<": token.Shl,
		">>": token.Shr,
		"&&": token.Lan,
		"||": token.Lor,
		"++": token.Inc,
		"--": token.Dec,
		"==": token.Eq,
	}
	for src, want := range cases {
		toks := lexAll(t, src)
		if toks[0].Kind != want {
			t.Errorf("lex(%q) = %v, want %v", src, toks[0].Kind, want)
		}
	}
}
