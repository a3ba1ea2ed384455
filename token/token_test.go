package token

import "testing"

func TestKindStringPunctuation(t *testing.T) {
	cases := map[Kind]string{
		Kind(0):   "EOF",
		Kind('{'): "{",
		Kind('+'): "+",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestKindStringEnumerated(t *testing.T) {
	cases := map[Kind]string{
		Int:    "Int",
		While:  "While",
		Assign: "Assign",
		Brak:   "Brak",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

func TestKeywordsCoverReservedWords(t *testing.T) {
	want := []string{"char", "else", "enum", "if", "int", "return", "sizeof", "while"}
	for _, w := range want {
		if _, ok := Keywords[w]; !ok {
			t.Errorf("Keywords missing %q", w)
		}
	}
	if _, ok := Keywords["printf"]; ok {
		t.Error("Keywords should not contain host intrinsics, only reserved words")
	}
}

// The compiler's precedence-climbing expression() relies on this exact
// relative ordering never changing.
func TestPrecedenceOrdering(t *testing.T) {
	ordered := []Kind{
		Assign, Cond, Lor, Lan, Or, Xor, And, Eq, Ne,
		Lt, Gt, Le, Ge, Shl, Shr, Add, Sub, Mul, Div, Mod, Inc, Dec, Brak,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i] <= ordered[i-1] {
			t.Fatalf("%v (%d) is not strictly greater than %v (%d)",
				ordered[i], ordered[i], ordered[i-1], ordered[i-1])
		}
	}
}
