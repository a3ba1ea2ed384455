// Package token contains the list of token-kinds accepted/recognized by the
// lexer, and the keyword table used to seed the symbol table at startup.
package token

// Kind is the kind of a single lexer token.
//
// Values below 128 are the byte value of a structural punctuation character
// returned verbatim by the lexer (e.g. '{' is Kind('{')). Values at or above
// 128 are the enumerated kinds below. The relative ordering of Assign..Brak
// must never change: precedence climbing in the compiler compares token
// kinds directly against that ordering (`for tok >= level`).
type Kind int

const (
	Num Kind = 128 + iota
	Fun
	Sys
	Glo
	Loc
	Id

	Char
	Else
	Enum
	If
	Int
	Return
	Sizeof
	While

	Assign
	Cond
	Lor
	Lan
	Or
	Xor
	And
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	Shl
	Shr
	Add
	Sub
	Mul
	Div
	Mod
	Inc
	Dec
	Brak
)

var names = map[Kind]string{
	Num: "Num", Fun: "Fun", Sys: "Sys", Glo: "Glo", Loc: "Loc", Id: "Id",
	Char: "Char", Else: "Else", Enum: "Enum", If: "If", Int: "Int",
	Return: "Return", Sizeof: "Sizeof", While: "While",
	Assign: "Assign", Cond: "Cond", Lor: "Lor", Lan: "Lan",
	Or: "Or", Xor: "Xor", And: "And",
	Eq: "Eq", Ne: "Ne", Lt: "Lt", Gt: "Gt", Le: "Le", Ge: "Ge",
	Shl: "Shl", Shr: "Shr", Add: "Add", Sub: "Sub",
	Mul: "Mul", Div: "Div", Mod: "Mod", Inc: "Inc", Dec: "Dec", Brak: "Brak",
}

// String renders a token kind for diagnostics and the `dump` subcommand.
// Structural punctuation below 128 renders as its literal character.
func (k Kind) String() string {
	if k < 128 {
		if k == 0 {
			return "EOF"
		}
		return string(rune(k))
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "?"
}

// Keywords seeds the symbol table with reserved words at startup. Each
// keyword's symbol-table entry has this token kind and class 0 (not a
// usable value until the driver also sets Sys/Fun entries for intrinsics).
var Keywords = map[string]Kind{
	"char":   Char,
	"else":   Else,
	"enum":   Enum,
	"if":     If,
	"int":    Int,
	"return": Return,
	"sizeof": Sizeof,
	"while":  While,
}

// Token is a single lexical unit produced by the lexer.
//
// Val holds the numeric value for Num tokens (either a literal integer, a
// character-literal's resolved byte value, or a string literal's data
// segment address). Line is the 1-based source line the token started on,
// used to tag compile-time diagnostics.
type Token struct {
	Kind Kind
	Val  int64
	Line int
}
