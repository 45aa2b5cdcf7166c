package avr

import "testing"

func TestDecodeFixedOpcodes(t *testing.T) {
	cases := []struct {
		word uint16
		op   Op
	}{
		{0x0000, OpNOP},
		{0x9508, OpRET},
		{0x9518, OpRETI},
		{0x9409, OpIJMP},
		{0x9509, OpICALL},
		{0x9588, OpSLEEP},
		{0x9598, OpBREAK},
	}
	for _, c := range cases {
		d := Decode(c.word)
		assertEqual(t, d.Op, c.op, "decode 0x0000..")
		assertEqual(t, d.Len, 1, "single-word opcode length")
		_ = c.word
	}
}

func TestDecodeRegisterALU(t *testing.T) {
	// ADD R5, R20: 0000 11rd dddd rrrr, d=5, r=20
	// d field bits4-8 = 00101 (5), r field = bit3-0 | bit9<<4
	rBits := uint16(20)
	word := uint16(0x0C00) | (rBits&0x10)<<5 | (5 << 4) | (rBits & 0xF)
	d := Decode(word)
	assertEqual(t, d.Op, OpADD, "ADD decode")
	assertEqual(t, d.Rd, 5, "ADD Rd")
	assertEqual(t, d.Rr, 20, "ADD Rr")
}

func TestDecodeLDI(t *testing.T) {
	// LDI R20, 0xAB: 1110 KKKK ddddKKKK, d = Rd-16
	word := uint16(0xE000) | (0xAB&0xF0)<<4 | (4 << 4) | (0xAB & 0xF)
	d := Decode(word)
	assertEqual(t, d.Op, OpLDI, "LDI decode")
	assertEqual(t, d.Rd, 20, "LDI Rd")
	assertEqual(t, d.K, byte(0xAB), "LDI immediate")
}

func TestDecodeRJMPSignExtend(t *testing.T) {
	// RJMP -2 (jumps back one word, to PC+1-2): k = 0xFFE (12-bit two's complement -2)
	word := uint16(0xC000) | 0x0FFE
	d := Decode(word)
	assertEqual(t, d.Op, OpRJMP, "RJMP decode")
	assertEqual(t, d.Rel, int32(-2), "RJMP negative displacement")
}

func TestDecodeBRBS(t *testing.T) {
	// BREQ +4 (BRBS s=1/Z, k=4): 1111 00kkkkkkksss
	word := uint16(0xF000) | (4 << 3) | 1
	d := Decode(word)
	assertEqual(t, d.Op, OpBRBS, "BREQ decodes as BRBS")
	assertEqual(t, d.S, uint8(1), "BREQ tests Z (s=1)")
	assertEqual(t, d.Rel, int32(4), "BREQ displacement")
}

func TestDecodeTwoWordLDS(t *testing.T) {
	word := uint16(0x9000) | (7 << 4) // LDS R7, k16
	d := Decode(word)
	assertEqual(t, d.Op, OpLDS, "LDS decode")
	assertEqual(t, d.Len, 2, "LDS is two words")
	assertEqual(t, d.Word2, true, "LDS consumes a second word")
	assertEqual(t, d.Rd, 7, "LDS Rd")
}

func TestDecodeJMPCALL(t *testing.T) {
	jmp := Decode(0x940C)
	assertEqual(t, jmp.Op, OpJMP, "JMP decode")
	assertEqual(t, jmp.Len, 2, "JMP is two words")

	call := Decode(0x940E)
	assertEqual(t, call.Op, OpCALL, "CALL decode")
	assertEqual(t, call.Len, 2, "CALL is two words")
}

func TestDecodeLDDDisplacement(t *testing.T) {
	// LDD R3, Y+5: 10q0qq0d dddd1qqq, q=5=0b000101
	q := uint16(5)
	word := uint16(0x8008) | (q&0x20)<<8 | (q&0x18)<<7 | (3 << 4) | (q & 0x7)
	d := Decode(word)
	assertEqual(t, d.Op, OpLDDY, "LDD Y decode")
	assertEqual(t, d.Rd, 3, "LDD Rd")
	assertEqual(t, d.Q, uint8(5), "LDD displacement")
}

func TestDecodePlainLDZIsZeroDisplacementLDD(t *testing.T) {
	d := Decode(0x8000 | (9 << 4))
	assertEqual(t, d.Op, OpLDDZ, "plain LD Rd,Z decodes as LDD with q=0")
	assertEqual(t, d.Q, uint8(0), "zero displacement")
	assertEqual(t, d.Rd, 9, "LD Rd")
}

func TestDecodeUnknown(t *testing.T) {
	// 0xFFFF does not match any table entry (reserved).
	d := Decode(0xFFFF)
	assertEqual(t, d.Op, OpUnknown, "reserved opcode decodes as unknown")
}
