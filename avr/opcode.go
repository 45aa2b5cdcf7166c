package avr

// Op identifies a decoded AVR instruction. The decoder classifies a 16-bit
// opcode (plus, for a handful of instructions, a second program-memory word)
// into one of these.
type Op int

const (
	OpUnknown Op = iota
	OpNOP
	OpMOVW
	OpMULS
	OpMULSU
	OpFMUL
	OpFMULS
	OpFMULSU
	OpCPC
	OpSBC
	OpADD
	OpCPSE
	OpCP
	OpSUB
	OpADC
	OpAND
	OpEOR
	OpOR
	OpMOV
	OpCPI
	OpSBCI
	OpSUBI
	OpORI
	OpANDI
	OpLDI
	OpRJMP
	OpRCALL
	OpBRBS
	OpBRBC
	OpBLD
	OpBST
	OpSBRC
	OpSBRS
	OpCOM
	OpNEG
	OpSWAP
	OpINC
	OpASR
	OpLSR
	OpROR
	OpDEC
	OpBSET
	OpBCLR
	OpADIW
	OpSBIW
	OpIN
	OpOUT
	OpCBI
	OpSBI
	OpSBIC
	OpSBIS
	OpMUL
	OpJMP
	OpCALL
	OpLDS
	OpSTS
	OpLDX
	OpLDXi
	OpLDXd
	OpLDYi
	OpLDYd
	OpLDZi
	OpLDZd
	OpLDDY
	OpLDDZ
	OpSTX
	OpSTXi
	OpSTXd
	OpSTYi
	OpSTYd
	OpSTZi
	OpSTZd
	OpSTDY
	OpSTDZ
	OpLPM
	OpLPMZ
	OpLPMZi
	OpPOP
	OpPUSH
	OpRET
	OpRETI
	OpIJMP
	OpICALL
	OpEIJMP
	OpEICALL
	OpSLEEP
	OpWDR
	OpBREAK
)

var opNames = map[Op]string{
	OpUnknown: "???", OpNOP: "NOP", OpMOVW: "MOVW", OpMULS: "MULS",
	OpMULSU: "MULSU", OpFMUL: "FMUL", OpFMULS: "FMULS", OpFMULSU: "FMULSU",
	OpCPC: "CPC", OpSBC: "SBC", OpADD: "ADD", OpCPSE: "CPSE", OpCP: "CP",
	OpSUB: "SUB", OpADC: "ADC", OpAND: "AND", OpEOR: "EOR", OpOR: "OR",
	OpMOV: "MOV", OpCPI: "CPI", OpSBCI: "SBCI", OpSUBI: "SUBI", OpORI: "ORI",
	OpANDI: "ANDI", OpLDI: "LDI", OpRJMP: "RJMP", OpRCALL: "RCALL",
	OpBRBS: "BRBS", OpBRBC: "BRBC", OpBLD: "BLD", OpBST: "BST",
	OpSBRC: "SBRC", OpSBRS: "SBRS", OpCOM: "COM", OpNEG: "NEG",
	OpSWAP: "SWAP", OpINC: "INC", OpASR: "ASR", OpLSR: "LSR", OpROR: "ROR",
	OpDEC: "DEC", OpBSET: "BSET", OpBCLR: "BCLR", OpADIW: "ADIW",
	OpSBIW: "SBIW", OpIN: "IN", OpOUT: "OUT", OpCBI: "CBI", OpSBI: "SBI",
	OpSBIC: "SBIC", OpSBIS: "SBIS", OpMUL: "MUL", OpJMP: "JMP",
	OpCALL: "CALL", OpLDS: "LDS", OpSTS: "STS",
	OpLDX: "LD", OpLDXi: "LD", OpLDXd: "LD", OpLDYi: "LD", OpLDYd: "LD",
	OpLDZi: "LD", OpLDZd: "LD", OpLDDY: "LDD", OpLDDZ: "LDD",
	OpSTX: "ST", OpSTXi: "ST", OpSTXd: "ST", OpSTYi: "ST", OpSTYd: "ST",
	OpSTZi: "ST", OpSTZd: "ST", OpSTDY: "STD", OpSTDZ: "STD",
	OpLPM: "LPM", OpLPMZ: "LPM", OpLPMZi: "LPM",
	OpPOP: "POP", OpPUSH: "PUSH", OpRET: "RET", OpRETI: "RETI",
	OpIJMP: "IJMP", OpICALL: "ICALL", OpEIJMP: "EIJMP", OpEICALL: "EICALL",
	OpSLEEP: "SLEEP", OpWDR: "WDR", OpBREAK: "BREAK",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "???"
}

// Decoded is the instruction identity plus its decoded operand fields
// (spec.md §4.3). Fields irrelevant to a given Op are left zero.
type Decoded struct {
	Op  Op
	Len int // 1 or 2 program words

	Rd, Rr int   // register indices 0..31
	K      byte  // 8-bit immediate
	K6     byte  // 6-bit immediate (ADIW/SBIW)
	Bit    uint8 // bit index 0..7
	S      uint8 // SREG flag index 0..7 (BRBS/BRBC/BSET/BCLR)
	IOAddr uint8 // I/O register address 0..63 (IN/OUT/CBI/SBI/SBIC/SBIS)
	Q      uint8 // displacement 0..63 (LDD/STD)
	Rel    int32 // signed word displacement (RJMP/RCALL/BRBS/BRBC)
	Word2  bool  // true if this opcode consumes a second program word

	// Imm16 holds the absolute word/byte address fetched from the second
	// program word, filled in by the caller once Word2 has been observed.
	Imm16 uint16
}

type decodeEntry struct {
	mask, value uint16
	op          Op
	twoWord     bool
}

// decodeTable starts with the fully fixed opcodes and then lists the
// register/immediate families of the canonical AVR opcode map; the later
// entries are grouped by family, not sorted by how many bits their masks
// fix (the fully fixed LPM entry comes last). Ties cannot occur when the table
// is correct; Decode walks it in order and returns the first match.
var decodeTable = []decodeEntry{
	// Fully fixed single-word opcodes.
	{0xFFFF, 0x0000, OpNOP, false},
	{0xFFFF, 0x9508, OpRET, false},
	{0xFFFF, 0x9518, OpRETI, false},
	{0xFFFF, 0x9588, OpSLEEP, false},
	{0xFFFF, 0x95A8, OpWDR, false},
	{0xFFFF, 0x9598, OpBREAK, false},
	{0xFFFF, 0x9409, OpIJMP, false},
	{0xFFFF, 0x9419, OpEIJMP, false},
	{0xFFFF, 0x9509, OpICALL, false},
	{0xFFFF, 0x9519, OpEICALL, false},

	// Register-pair / narrow families.
	{0xFF00, 0x0100, OpMOVW, false},
	{0xFF00, 0x0200, OpMULS, false},
	{0xFF88, 0x0300, OpMULSU, false},
	{0xFF88, 0x0308, OpFMUL, false},
	{0xFF88, 0x0380, OpFMULS, false},
	{0xFF88, 0x0388, OpFMULSU, false},

	// Two-operand register ALU family (mask on the top 6 bits).
	{0xFC00, 0x0400, OpCPC, false},
	{0xFC00, 0x0800, OpSBC, false},
	{0xFC00, 0x0C00, OpADD, false},
	{0xFC00, 0x1000, OpCPSE, false},
	{0xFC00, 0x1400, OpCP, false},
	{0xFC00, 0x1800, OpSUB, false},
	{0xFC00, 0x1C00, OpADC, false},
	{0xFC00, 0x2000, OpAND, false},
	{0xFC00, 0x2400, OpEOR, false},
	{0xFC00, 0x2800, OpOR, false},
	{0xFC00, 0x2C00, OpMOV, false},
	{0xFC00, 0x9C00, OpMUL, false},

	// Register/immediate family (mask on the top 4 bits).
	{0xF000, 0x3000, OpCPI, false},
	{0xF000, 0x4000, OpSBCI, false},
	{0xF000, 0x5000, OpSUBI, false},
	{0xF000, 0x6000, OpORI, false},
	{0xF000, 0x7000, OpANDI, false},
	{0xF000, 0xE000, OpLDI, false},

	// Relative jump/call (12-bit signed, mask top 4 bits).
	{0xF000, 0xC000, OpRJMP, false},
	{0xF000, 0xD000, OpRCALL, false},

	// Branch family (7-bit signed displacement, mask top 6 bits).
	{0xFC00, 0xF000, OpBRBS, false},
	{0xFC00, 0xF400, OpBRBC, false},

	// Bit-test/skip family (mask top 7 bits + bit 3).
	{0xFE08, 0xF800, OpBLD, false},
	{0xFE08, 0xFA00, OpBST, false},
	{0xFE08, 0xFC00, OpSBRC, false},
	{0xFE08, 0xFE00, OpSBRS, false},

	// Single-register ops (mask top 7 bits + low nibble).
	{0xFE0F, 0x9400, OpCOM, false},
	{0xFE0F, 0x9401, OpNEG, false},
	{0xFE0F, 0x9402, OpSWAP, false},
	{0xFE0F, 0x9403, OpINC, false},
	{0xFE0F, 0x9405, OpASR, false},
	{0xFE0F, 0x9406, OpLSR, false},
	{0xFE0F, 0x9407, OpROR, false},
	{0xFE0F, 0x940A, OpDEC, false},

	// Flag set/clear (mask top 9 bits + low nibble, 3 free bits for s).
	{0xFF8F, 0x9408, OpBSET, false},
	{0xFF8F, 0x9488, OpBCLR, false},

	// 16-bit immediate add/sub (mask top 8 bits).
	{0xFF00, 0x9600, OpADIW, false},
	{0xFF00, 0x9700, OpSBIW, false},

	// I/O bit instructions (mask top 8 bits).
	{0xFF00, 0x9800, OpCBI, false},
	{0xFF00, 0x9900, OpSBIC, false},
	{0xFF00, 0x9A00, OpSBI, false},
	{0xFF00, 0x9B00, OpSBIS, false},

	// IN/OUT (mask top 5 bits).
	{0xF800, 0xB000, OpIN, false},
	{0xF800, 0xB800, OpOUT, false},

	// Absolute jump/call, 2-word (mask top 7 bits + bits 3..1).
	{0xFE0E, 0x940C, OpJMP, true},
	{0xFE0E, 0x940E, OpCALL, true},

	// LDS/STS, 2-word.
	{0xFE0F, 0x9000, OpLDS, true},
	{0xFE0F, 0x9200, OpSTS, true},

	// LD/ST via X/Y/Z with post-inc/pre-dec, LPM, PUSH/POP (mask top 7 +
	// low nibble).
	{0xFE0F, 0x900C, OpLDX, false},
	{0xFE0F, 0x900D, OpLDXi, false},
	{0xFE0F, 0x900E, OpLDXd, false},
	{0xFE0F, 0x9009, OpLDYi, false},
	{0xFE0F, 0x900A, OpLDYd, false},
	{0xFE0F, 0x9001, OpLDZi, false},
	{0xFE0F, 0x9002, OpLDZd, false},
	{0xFE0F, 0x9004, OpLPMZ, false},
	{0xFE0F, 0x9005, OpLPMZi, false},
	{0xFE0F, 0x900F, OpPOP, false},
	{0xFE0F, 0x920C, OpSTX, false},
	{0xFE0F, 0x920D, OpSTXi, false},
	{0xFE0F, 0x920E, OpSTXd, false},
	{0xFE0F, 0x9209, OpSTYi, false},
	{0xFE0F, 0x920A, OpSTYd, false},
	{0xFE0F, 0x9201, OpSTZi, false},
	{0xFE0F, 0x9202, OpSTZd, false},
	{0xFE0F, 0x920F, OpPUSH, false},

	// LDD/STD with displacement over Y or Z (q=0 degenerates to plain
	// LD/ST Y or Z, which is why there is no separate entry for those).
	{0xD208, 0x8000, OpLDDZ, false},
	{0xD208, 0x8008, OpLDDY, false},
	{0xD208, 0x8200, OpSTDZ, false},
	{0xD208, 0x8208, OpSTDY, false},

	{0xFFFF, 0x95C8, OpLPM, false},
}

// Decode classifies one 16-bit opcode. For the 2-word instructions
// (LDS/STS/JMP/CALL) Len is already 2 and Imm16 is left zero: the caller
// (the machine loop) fetches PC+1 and fills Imm16 in before calling Execute.
func Decode(word uint16) Decoded {
	for _, e := range decodeTable {
		if word&e.mask == e.value {
			d := Decoded{Op: e.op, Len: 1}
			if e.twoWord {
				d.Len = 2
				d.Word2 = true
			}
			fillOperands(&d, word)
			return d
		}
	}
	return Decoded{Op: OpUnknown, Len: 1}
}

func signExtend(v uint32, bits uint) int32 {
	half := uint32(1) << (bits - 1)
	full := uint32(1) << bits
	if v >= half {
		return int32(v) - int32(full)
	}
	return int32(v)
}

func fillOperands(d *Decoded, w uint16) {
	switch d.Op {
	case OpMOVW:
		d.Rd = int((w>>4)&0xF) * 2
		d.Rr = int(w&0xF) * 2
	case OpMULS:
		d.Rd = 16 + int((w>>4)&0xF)
		d.Rr = 16 + int(w&0xF)
	case OpMULSU, OpFMUL, OpFMULS, OpFMULSU:
		d.Rd = 16 + int((w>>4)&0x7)
		d.Rr = 16 + int(w&0x7)

	case OpCPC, OpSBC, OpADD, OpCPSE, OpCP, OpSUB, OpADC,
		OpAND, OpEOR, OpOR, OpMOV, OpMUL:
		d.Rd = int((w >> 4) & 0x1F)
		d.Rr = int((w&0xF) | ((w >> 5) & 0x10))

	case OpCPI, OpSBCI, OpSUBI, OpORI, OpANDI, OpLDI:
		d.Rd = 16 + int((w>>4)&0xF)
		d.K = byte(((w >> 4) & 0xF0) | (w & 0xF))

	case OpRJMP, OpRCALL:
		d.Rel = signExtend(uint32(w&0x0FFF), 12)

	case OpBRBS, OpBRBC:
		d.S = uint8(w & 0x7)
		d.Rel = signExtend(uint32((w>>3)&0x7F), 7)

	case OpBLD, OpBST, OpSBRC, OpSBRS:
		d.Rd = int((w >> 4) & 0x1F)
		d.Bit = uint8(w & 0x7)

	case OpCOM, OpNEG, OpSWAP, OpINC, OpASR, OpLSR, OpROR, OpDEC,
		OpLDX, OpLDXi, OpLDXd, OpLDYi, OpLDYd, OpLDZi, OpLDZd,
		OpLPMZ, OpLPMZi, OpPOP,
		OpSTX, OpSTXi, OpSTXd, OpSTYi, OpSTYd, OpSTZi, OpSTZd, OpPUSH,
		OpLDS, OpSTS:
		d.Rd = int((w >> 4) & 0x1F)
		d.Rr = d.Rd

	case OpBSET, OpBCLR:
		d.S = uint8((w >> 4) & 0x7)

	case OpADIW, OpSBIW:
		sel := int((w >> 4) & 0x3)
		d.Rd = 24 + 2*sel
		d.K6 = byte(((w>>2)&0x30) | (w & 0xF))

	case OpIN:
		d.Rd = int((w >> 4) & 0x1F)
		d.IOAddr = uint8(((w>>9)&0x3)<<4 | (w & 0xF))
	case OpOUT:
		d.Rd = int((w >> 4) & 0x1F)
		d.IOAddr = uint8(((w>>9)&0x3)<<4 | (w & 0xF))

	case OpCBI, OpSBI, OpSBIC, OpSBIS:
		d.IOAddr = uint8((w >> 3) & 0x1F)
		d.Bit = uint8(w & 0x7)

	case OpJMP, OpCALL:
		// The 22-bit absolute word address splits across this opcode word's
		// 5+1 fixed bits (stashed in Rd/Bit) and the second program word
		// (Imm16, filled in once the caller fetches it); jmpTarget in
		// exec.go reassembles them.
		d.Rd = int((w >> 4) & 0x1F)
		d.Bit = uint8(w & 0x1)

	case OpLDDY, OpLDDZ, OpSTDY, OpSTDZ:
		d.Rd = int((w >> 4) & 0x1F)
		d.Rr = d.Rd
		q5 := (w >> 13) & 0x1
		q4q3 := (w >> 10) & 0x3
		q2q1q0 := w & 0x7
		d.Q = uint8(q5<<5 | q4q3<<3 | q2q1q0)
	}
}
