package symtab

import (
	"testing"

	"github.com/muhtutorials/cvm/token"
)

func TestLookupIsStable(t *testing.T) {
	tab := New()
	a := tab.Lookup("foo")
	b := tab.Lookup("foo")
	if a != b {
		t.Fatal("Lookup returned two different entries for the same name")
	}
	c := tab.Lookup("bar")
	if a == c {
		t.Fatal("Lookup returned the same entry for two different names")
	}
}

func TestHashCollisionDoesNotAliasDifferentNames(t *testing.T) {
	tab := New()
	// Different names can share a rolling hash by construction; Lookup
	// must still tell them apart by name.
	a := tab.LookupHash("xx", 1)
	b := tab.LookupHash("yy", 1)
	if a == b {
		t.Fatal("entries with a colliding hash but different names were aliased")
	}
}

func TestSeedSetsAllFields(t *testing.T) {
	tab := New()
	e := tab.Seed("printf", token.Id, Sys, INT, 33)
	if e.Class != Sys || e.Type != INT || e.Value != 33 || e.Token != token.Id {
		t.Fatalf("Seed did not set all fields: %+v", e)
	}
}

func TestEnterLeaveLocalShadowsAndRestores(t *testing.T) {
	tab := New()
	g := tab.Seed("x", token.Id, Glo, INT, 100)

	g.EnterLocal(CHAR, 2)
	if g.Class != Loc || g.Type != CHAR || g.Value != 2 {
		t.Fatalf("EnterLocal did not shadow: %+v", g)
	}
	if !g.IsLocal() {
		t.Error("IsLocal should report true while shadowed as a local")
	}

	g.LeaveLocal()
	if g.Class != Glo || g.Type != INT || g.Value != 100 {
		t.Fatalf("LeaveLocal did not restore the global: %+v", g)
	}
	if g.IsLocal() {
		t.Error("IsLocal should report false after LeaveLocal")
	}
}

func TestLeaveLocalWithoutPriorDeclarationIsNoop(t *testing.T) {
	tab := New()
	e := tab.Lookup("y")
	e.LeaveLocal() // never shadowed; must not panic or corrupt state
	if e.Class != 0 {
		t.Fatalf("expected undeclared entry to stay Class 0, got %v", e.Class)
	}
}

func TestPointerDepthAndDeref(t *testing.T) {
	cases := []struct {
		typ   Type
		depth int
	}{
		{CHAR, 0},
		{INT, 0},
		{PTR, 1},
		{INT + PTR, 1},
		{CHAR + 2*PTR, 2},
	}
	for _, c := range cases {
		if got := c.typ.PointerDepth(); got != c.depth {
			t.Errorf("Type(%d).PointerDepth() = %d, want %d", c.typ, got, c.depth)
		}
	}

	if got := (INT + PTR).Deref(); got != INT {
		t.Errorf("(INT+PTR).Deref() = %d, want INT", got)
	}
}
