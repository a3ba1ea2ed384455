// Package cpu implements the stack+register virtual machine: opcode
// dispatch over an instruction array, the four architectural registers
// (PC, SP, BP, AX), and the trampolines into the Host interface for file
// I/O and formatted print.
package cpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/muhtutorials/cvm/opcode"
	"github.com/muhtutorials/cvm/segment"
)

// stackAddrBase tags an address as referring to a Stack slot rather than
// the Data segment: LEA is the only opcode that produces such an address,
// and LI/LC/SI/SC dispatch on whether an address is at or above this
// sentinel. Chosen far above any realistic Data segment size so the two
// address spaces never collide.
const stackAddrBase = int64(1) << 48

// Machine is the VM's mutable state: the four registers, the stack, and
// read access to the text and data segments the compiler produced.
type Machine struct {
	text []segment.Instr
	data *segment.Data
	stk  *Stack
	host Host

	pc, sp, bp int
	ax         int64

	ctx context.Context
}

// New returns a Machine ready to run text against data, trampolining host
// intrinsics through host.
func New(text []segment.Instr, data *segment.Data, host Host) *Machine {
	return &Machine{
		text: text,
		data: data,
		stk:  newStack(stackCapacity),
		host: host,
		ctx:  context.Background(),
	}
}

// WithContext installs ctx, checked once per dispatch iteration, so a
// caller can bound a run with a deadline (see cmd_run.go's --timeout,
// wired through golang.org/x/sync/errgroup).
func (m *Machine) WithContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *Machine) push(v int64) {
	m.sp--
	m.stk.Set(m.sp, v)
}

func (m *Machine) pop() int64 {
	v := m.stk.At(m.sp)
	m.sp++
	return v
}

func (m *Machine) stackAddr(offset int) int64 {
	return stackAddrBase + int64(offset)
}

func (m *Machine) readWord(addr int64) int64 {
	if addr >= stackAddrBase {
		return m.stk.At(int(addr - stackAddrBase))
	}
	return m.data.ReadWord(addr)
}

func (m *Machine) writeWord(addr int64, v int64) {
	if addr >= stackAddrBase {
		m.stk.Set(int(addr-stackAddrBase), v)
		return
	}
	m.data.WriteWord(addr, v)
}

func (m *Machine) readByteAt(addr int64) int64 {
	if addr >= stackAddrBase {
		return m.stk.At(int(addr-stackAddrBase)) & 0xff
	}
	return int64(m.data.ReadByte(addr))
}

func (m *Machine) writeByteAt(addr int64, v int64) {
	if addr >= stackAddrBase {
		m.stk.Set(int(addr-stackAddrBase), v&0xff)
		return
	}
	m.data.WriteByte(addr, byte(v))
}

func (m *Machine) readCString(addr int64) string {
	var b strings.Builder
	for {
		c := m.readByteAt(addr)
		if c == 0 {
			break
		}
		b.WriteByte(byte(c))
		addr++
	}
	return b.String()
}

// Run arranges the startup frame spec.md §4.3 describes — two synthetic
// instructions (PUSH then EXIT) appended after the compiled program so
// that when main's LEV returns, control lands on them and main's return
// value becomes the process exit code — then dispatches until EXIT, an
// error, or ctx cancellation.
func (m *Machine) Run(mainAddr int64, args []string) (int64, error) {
	pushSlot := len(m.text)
	m.text = append(m.text, segment.Instr{Op: opcode.PUSH})
	m.text = append(m.text, segment.Instr{Op: opcode.EXIT})

	argc := int64(len(args))
	argAddrs := make([]int64, len(args))
	for i, a := range args {
		argAddrs[i] = m.data.AppendString(a)
	}
	m.data.Align()
	argv := m.data.Len()
	for _, a := range argAddrs {
		m.data.AppendWord(a)
	}

	m.sp = m.stk.Cap()
	m.bp = m.sp
	m.push(argc)
	m.push(argv)
	m.push(int64(pushSlot))
	m.pc = int(mainAddr)

	for {
		select {
		case <-m.ctx.Done():
			return 0, fmt.Errorf("timeout during execution")
		default:
		}

		if m.pc < 0 || m.pc >= len(m.text) {
			return 0, fmt.Errorf("pc out of range: %d", m.pc)
		}
		instr := m.text[m.pc]
		debugPrintf("%04d %-5s %d\n", m.pc, instr.Op, instr.Imm)

		switch instr.Op {
		case opcode.LEA:
			m.ax = m.stackAddr(m.bp + int(instr.Imm))
			m.pc++
		case opcode.IMM:
			m.ax = instr.Imm
			m.pc++
		case opcode.JMP:
			m.pc = int(instr.Imm)
		case opcode.CALL:
			m.push(int64(m.pc + 1))
			m.pc = int(instr.Imm)
		case opcode.JZ:
			if m.ax == 0 {
				m.pc = int(instr.Imm)
			} else {
				m.pc++
			}
		case opcode.JNZ:
			if m.ax != 0 {
				m.pc = int(instr.Imm)
			} else {
				m.pc++
			}
		case opcode.ENT:
			m.push(int64(m.bp))
			m.bp = m.sp
			m.sp -= int(instr.Imm)
			if m.sp < 0 {
				return 0, fmt.Errorf("stack overflow")
			}
			m.pc++
		case opcode.ADJ:
			m.sp += int(instr.Imm)
			m.pc++
		case opcode.LEV:
			m.sp = m.bp
			m.bp = int(m.pop())
			m.pc = int(m.pop())
		case opcode.LI:
			m.ax = m.readWord(m.ax)
			m.pc++
		case opcode.LC:
			m.ax = m.readByteAt(m.ax)
			m.pc++
		case opcode.SI:
			addr := m.pop()
			m.writeWord(addr, m.ax)
			m.pc++
		case opcode.SC:
			addr := m.pop()
			m.writeByteAt(addr, m.ax)
			m.pc++
		case opcode.PUSH:
			m.push(m.ax)
			m.pc++

		case opcode.OR:
			m.ax = m.pop() | m.ax
			m.pc++
		case opcode.XOR:
			m.ax = m.pop() ^ m.ax
			m.pc++
		case opcode.AND:
			m.ax = m.pop() & m.ax
			m.pc++
		case opcode.EQ:
			m.ax = b2i(m.pop() == m.ax)
			m.pc++
		case opcode.NE:
			m.ax = b2i(m.pop() != m.ax)
			m.pc++
		case opcode.LT:
			m.ax = b2i(m.pop() < m.ax)
			m.pc++
		case opcode.GT:
			m.ax = b2i(m.pop() > m.ax)
			m.pc++
		case opcode.LE:
			m.ax = b2i(m.pop() <= m.ax)
			m.pc++
		case opcode.GE:
			m.ax = b2i(m.pop() >= m.ax)
			m.pc++
		case opcode.SHL:
			m.ax = m.pop() << uint(m.ax)
			m.pc++
		case opcode.SHR:
			m.ax = m.pop() >> uint(m.ax)
			m.pc++
		case opcode.ADD:
			m.ax = m.pop() + m.ax
			m.pc++
		case opcode.SUB:
			m.ax = m.pop() - m.ax
			m.pc++
		case opcode.MUL:
			m.ax = m.pop() * m.ax
			m.pc++
		case opcode.DIV:
			v := m.pop()
			if m.ax == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			m.ax = v / m.ax
			m.pc++
		case opcode.MOD:
			v := m.pop()
			if m.ax == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			m.ax = v % m.ax
			m.pc++

		case opcode.OPEN:
			// open() takes an optional third `mode` argument, per
			// original_source/'s call sites; the operand of the ADJ that
			// follows OPEN (the total argument count for this call) tells
			// us whether it was supplied.
			argc := 2
			if m.pc+1 < len(m.text) && m.text[m.pc+1].Op == opcode.ADJ {
				argc = int(m.text[m.pc+1].Imm)
			}
			var path string
			var flags, mode int64
			if argc >= 3 {
				mode = m.stk.At(m.sp)
				flags = m.stk.At(m.sp + 1)
				path = m.readCString(m.stk.At(m.sp + 2))
			} else {
				mode = 0o644
				flags = m.stk.At(m.sp)
				path = m.readCString(m.stk.At(m.sp + 1))
			}
			fd, err := m.host.Open(path, flags, mode)
			if err != nil {
				m.ax = -1
			} else {
				m.ax = fd
			}
			m.pc++
		case opcode.CLOS:
			fd := m.stk.At(m.sp)
			ret, err := m.host.Close(fd)
			if err != nil {
				m.ax = -1
			} else {
				m.ax = ret
			}
			m.pc++
		case opcode.READ:
			n := m.stk.At(m.sp)
			bufAddr := m.stk.At(m.sp + 1)
			fd := m.stk.At(m.sp + 2)
			buf := make([]byte, n)
			nr, err := m.host.Read(fd, buf)
			if err != nil {
				m.ax = -1
			} else {
				for i := int64(0); i < nr; i++ {
					m.writeByteAt(bufAddr+i, int64(buf[i]))
				}
				m.ax = nr
			}
			m.pc++
		case opcode.PRTF:
			written, err := m.doPrintf()
			if err != nil {
				return 0, err
			}
			m.ax = written
			m.pc++
		case opcode.MALC:
			size := m.stk.At(m.sp)
			addr := m.data.Len()
			for i := int64(0); i < size; i++ {
				m.data.AppendByte(0)
			}
			m.ax = addr
			m.pc++
		case opcode.MSET:
			n := m.stk.At(m.sp)
			val := m.stk.At(m.sp + 1)
			addr := m.stk.At(m.sp + 2)
			for i := int64(0); i < n; i++ {
				m.writeByteAt(addr+i, val)
			}
			m.ax = addr
			m.pc++
		case opcode.MCMP:
			n := m.stk.At(m.sp)
			addr2 := m.stk.At(m.sp + 1)
			addr1 := m.stk.At(m.sp + 2)
			var diff int64
			for i := int64(0); i < n; i++ {
				b1 := m.readByteAt(addr1 + i)
				b2 := m.readByteAt(addr2 + i)
				if b1 != b2 {
					diff = b1 - b2
					break
				}
			}
			m.ax = diff
			m.pc++
		case opcode.EXIT:
			return m.stk.At(m.sp), nil

		default:
			return 0, fmt.Errorf("unknown opcode: %d", int(instr.Op))
		}
	}
}

// doPrintf implements the PRTF opcode. The preceding code generator
// pattern is: push the format and up to five variadic args, emit PRTF,
// then emit ADJ with the total argument count — PRTF reads that count off
// the not-yet-executed ADJ to find its arguments, per spec.md §4.3.
func (m *Machine) doPrintf() (int64, error) {
	if m.pc+1 >= len(m.text) || m.text[m.pc+1].Op != opcode.ADJ {
		return 0, fmt.Errorf("PRTF must be immediately followed by ADJ")
	}
	n := int(m.text[m.pc+1].Imm)
	base := m.sp + n
	if n < 1 {
		return 0, fmt.Errorf("printf called with no format argument")
	}
	format := m.readCString(m.stk.At(base - 1))

	var args []int64
	for i := 2; i <= 6 && i <= n; i++ {
		args = append(args, m.stk.At(base-i))
	}

	out := m.formatPrintf(format, args)
	n64, err := m.host.Stdout().Write([]byte(out))
	return int64(n64), err
}

// formatPrintf supports the printf conversions this dialect's test
// programs use: %d, %ld (decimal), %c (character), %s (a NUL-terminated
// string at a Data-segment or malloc'd address), %x (hex), and %%.
func (m *Machine) formatPrintf(format string, args []int64) string {
	var b strings.Builder
	ai := 0
	next := func() int64 {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return 0
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			b.WriteByte('%')
			break
		}
		// skip a "l" length modifier (%ld), this dialect has no long type
		// distinct from int but programs copied from the original source
		// still write %ld.
		if format[i] == 'l' && i+1 < len(format) {
			i++
		}
		switch format[i] {
		case 'd':
			b.WriteString(strconv.FormatInt(next(), 10))
		case 'x':
			b.WriteString(strconv.FormatInt(next(), 16))
		case 'c':
			b.WriteByte(byte(next()))
		case 's':
			b.WriteString(m.readCString(next()))
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(format[i])
		}
	}
	return b.String()
}
