package cpu

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muhtutorials/cvm/opcode"
	"github.com/muhtutorials/cvm/segment"
)

func run(t *testing.T, instrs []segment.Instr) (int64, error) {
	t.Helper()
	data := segment.NewData()
	m := New(instrs, data, NewDefaultHost(&bytes.Buffer{}))
	return m.Run(0, nil)
}

func in(op opcode.Op) segment.Instr             { return segment.Instr{Op: op} }
func inImm(op opcode.Op, imm int64) segment.Instr { return segment.Instr{Op: op, Imm: imm} }

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name string
		op   opcode.Op
		a, b int64
		want int64
	}{
		{"add", opcode.ADD, 2, 3, 5},
		{"sub", opcode.SUB, 10, 4, 6},
		{"mul", opcode.MUL, 6, 7, 42},
		{"div", opcode.DIV, 20, 4, 5},
		{"mod", opcode.MOD, 20, 6, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			instrs := []segment.Instr{
				inImm(opcode.ENT, 0),
				inImm(opcode.IMM, c.a),
				in(opcode.PUSH),
				inImm(opcode.IMM, c.b),
				in(c.op),
				in(opcode.LEV),
			}
			got, err := run(t, instrs)
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestDivisionByZeroIsAnError(t *testing.T) {
	instrs := []segment.Instr{
		inImm(opcode.ENT, 0),
		inImm(opcode.IMM, 1),
		in(opcode.PUSH),
		inImm(opcode.IMM, 0),
		in(opcode.DIV),
		in(opcode.LEV),
	}
	_, err := run(t, instrs)
	require.Error(t, err)
}

func TestComparisons(t *testing.T) {
	// 3 < 5 should yield 1.
	instrs := []segment.Instr{
		inImm(opcode.ENT, 0),
		inImm(opcode.IMM, 3),
		in(opcode.PUSH),
		inImm(opcode.IMM, 5),
		in(opcode.LT),
		in(opcode.LEV),
	}
	got, err := run(t, instrs)
	require.NoError(t, err)
	require.Equal(t, int64(1), got)
}

func TestLocalStoreAndLoad(t *testing.T) {
	instrs := []segment.Instr{
		inImm(opcode.ENT, 1),
		inImm(opcode.LEA, -1),
		in(opcode.PUSH),
		inImm(opcode.IMM, 99),
		in(opcode.SI),
		inImm(opcode.LEA, -1),
		in(opcode.LI),
		in(opcode.LEV),
	}
	got, err := run(t, instrs)
	require.NoError(t, err)
	require.Equal(t, int64(99), got)
}

func TestConditionalBranch(t *testing.T) {
	// ax = 0 ? 20 : 10, with ax forced to 0 so JZ must be taken to the
	// else value.
	instrs := []segment.Instr{
		inImm(opcode.ENT, 0),
		inImm(opcode.IMM, 0),
		inImm(opcode.JZ, 0), // patched below
		inImm(opcode.IMM, 20),
		inImm(opcode.JMP, 0), // patched below
		inImm(opcode.IMM, 10),
		in(opcode.LEV),
	}
	instrs[2].Imm = 5 // JZ target: the "IMM 10" branch
	instrs[4].Imm = 6 // JMP target: LEV
	got, err := run(t, instrs)
	require.NoError(t, err)
	require.Equal(t, int64(10), got)
}

func TestCallReturnsCalleeValue(t *testing.T) {
	// main(): push 5; call ident; adj 1; lev.
	// ident(n): lea 2; li; lev  -- loads its single argument and returns it.
	main := []segment.Instr{
		inImm(opcode.ENT, 0), // 0
		inImm(opcode.IMM, 5), // 1
		in(opcode.PUSH),      // 2
		inImm(opcode.CALL, 6), // 3: callee starts right after main's 6 instructions
		inImm(opcode.ADJ, 1), // 4
		in(opcode.LEV),       // 5
	}
	callee := []segment.Instr{
		inImm(opcode.ENT, 0), // 6
		inImm(opcode.LEA, 2), // 7
		in(opcode.LI),        // 8
		in(opcode.LEV),       // 9
	}
	instrs := append(main, callee...)

	got, err := run(t, instrs)
	require.NoError(t, err)
	require.Equal(t, int64(5), got)
}

func TestMemsetThenLoadByte(t *testing.T) {
	instrs := []segment.Instr{
		inImm(opcode.ENT, 0),
		inImm(opcode.IMM, 4),
		in(opcode.PUSH),
		in(opcode.MALC),
		inImm(opcode.ADJ, 1),
		in(opcode.PUSH),      // arg1: addr
		inImm(opcode.IMM, 65),
		in(opcode.PUSH),      // arg2: val
		inImm(opcode.IMM, 4),
		in(opcode.PUSH),      // arg3: n
		in(opcode.MSET),
		inImm(opcode.ADJ, 3),
		in(opcode.LC),
		in(opcode.LEV),
	}
	got, err := run(t, instrs)
	require.NoError(t, err)
	require.Equal(t, int64(65), got)
}

func TestMemcmpOnIdenticalBuffers(t *testing.T) {
	instrs := []segment.Instr{
		inImm(opcode.ENT, 0),
		inImm(opcode.IMM, 4),
		in(opcode.PUSH),
		in(opcode.MALC),
		inImm(opcode.ADJ, 1),
		in(opcode.PUSH), // arg1 addr1
		inImm(opcode.IMM, 65),
		in(opcode.PUSH),
		inImm(opcode.IMM, 4),
		in(opcode.PUSH),
		in(opcode.MSET),
		inImm(opcode.ADJ, 3), // ax = addr1
		in(opcode.PUSH),      // stash addr1
		inImm(opcode.IMM, 4),
		in(opcode.PUSH),
		in(opcode.MALC),
		inImm(opcode.ADJ, 1),
		in(opcode.PUSH), // arg1 addr2
		inImm(opcode.IMM, 65),
		in(opcode.PUSH),
		inImm(opcode.IMM, 4),
		in(opcode.PUSH),
		in(opcode.MSET),
		inImm(opcode.ADJ, 3), // ax = addr2
		in(opcode.PUSH),      // arg2 for mcmp: addr2
		inImm(opcode.IMM, 4),
		in(opcode.PUSH), // arg3 for mcmp: n
		in(opcode.MCMP),
		inImm(opcode.ADJ, 3),
		in(opcode.LEV),
	}
	got, err := run(t, instrs)
	require.NoError(t, err)
	require.Equal(t, int64(0), got)
}

func TestPCOutOfRangeIsAnError(t *testing.T) {
	data := segment.NewData()
	m := New(nil, data, NewDefaultHost(&bytes.Buffer{}))
	_, err := m.Run(42, nil)
	require.Error(t, err)
}

func TestCancelledContextStopsAnInfiniteLoop(t *testing.T) {
	instrs := []segment.Instr{inImm(opcode.JMP, 0)}
	data := segment.NewData()
	m := New(instrs, data, NewDefaultHost(&bytes.Buffer{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	m.WithContext(ctx)

	_, err := m.Run(0, nil)
	require.Error(t, err)
}
