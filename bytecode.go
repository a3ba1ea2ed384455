package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/muhtutorials/cvm/compiler"
	"github.com/muhtutorials/cvm/opcode"
	"github.com/muhtutorials/cvm/segment"
)

// bytecodeMagic tags a compiled .cvm file so `execute` can refuse to load
// something that isn't one before misinterpreting arbitrary bytes as an
// instruction stream.
const bytecodeMagic = "CVM1"

// writeBytecode serializes comp's text and data segments plus its `main`
// address to w: magic, main address, instruction count, one (op, imm)
// pair per instruction, then the data segment length and raw bytes.
func writeBytecode(w io.Writer, comp *compiler.Compiler) error {
	mainAddr, err := comp.MainAddr()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bytecodeMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, mainAddr); err != nil {
		return err
	}

	instrs := comp.Text().Instrs()
	if err := binary.Write(bw, binary.LittleEndian, int64(len(instrs))); err != nil {
		return err
	}
	for _, instr := range instrs {
		if err := binary.Write(bw, binary.LittleEndian, int64(instr.Op)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, instr.Imm); err != nil {
			return err
		}
	}

	data := comp.Data().Bytes()
	if err := binary.Write(bw, binary.LittleEndian, int64(len(data))); err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	return bw.Flush()
}

// readBytecode is writeBytecode's inverse, used by `execute`.
func readBytecode(r io.Reader) (instrs []segment.Instr, data *segment.Data, mainAddr int64, err error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(bytecodeMagic))
	if _, err = io.ReadFull(br, magic); err != nil {
		return nil, nil, 0, err
	}
	if string(magic) != bytecodeMagic {
		return nil, nil, 0, fmt.Errorf("not a cvm bytecode file")
	}

	if err = binary.Read(br, binary.LittleEndian, &mainAddr); err != nil {
		return nil, nil, 0, err
	}

	var n int64
	if err = binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, nil, 0, err
	}
	instrs = make([]segment.Instr, n)
	for i := range instrs {
		var op, imm int64
		if err = binary.Read(br, binary.LittleEndian, &op); err != nil {
			return nil, nil, 0, err
		}
		if err = binary.Read(br, binary.LittleEndian, &imm); err != nil {
			return nil, nil, 0, err
		}
		instrs[i] = segment.Instr{Op: opcode.Op(op), Imm: imm}
	}

	var dataLen int64
	if err = binary.Read(br, binary.LittleEndian, &dataLen); err != nil {
		return nil, nil, 0, err
	}
	raw := make([]byte, dataLen)
	if _, err = io.ReadFull(br, raw); err != nil {
		return nil, nil, 0, err
	}
	data = segment.NewData()
	for _, b := range raw {
		data.AppendByte(b)
	}

	return instrs, data, mainAddr, nil
}
