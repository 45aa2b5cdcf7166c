package avr

// Execute applies one decoded instruction to m, advancing PC and mutating
// registers, data memory, and flags as appropriate (spec.md §4.4). The
// caller (Step, in run.go) is responsible for the skip-instruction and
// unknown-opcode policies; Execute assumes d is a real, armed instruction.
func Execute(m *Machine, d Decoded) {
	next := m.PC + uint16(d.Len)

	switch d.Op {
	case OpNOP, OpUnknown:
		// Unknown opcodes are treated as NOP (spec.md §7).

	case OpMOVW:
		if m.Variant.HasMOVW {
			m.R[d.Rd] = m.R[d.Rr]
			m.R[d.Rd+1] = m.R[d.Rr+1]
		}

	case OpMULS, OpMULSU, OpFMUL, OpFMULS, OpFMULSU, OpMUL:
		if m.Variant.HasMULFamily {
			execMul(m, d)
		}

	case OpCPC:
		r := m.R[d.Rd] - m.R[d.Rr] - b2u8(m.SREG.C)
		m.SREG.subFlags(m.R[d.Rd], m.R[d.Rr], r, true)

	case OpSBC:
		rd, rr := m.R[d.Rd], m.R[d.Rr]
		r := rd - rr - b2u8(m.SREG.C)
		m.SREG.subFlags(rd, rr, r, true)
		m.R[d.Rd] = r

	case OpADD:
		rd, rr := m.R[d.Rd], m.R[d.Rr]
		r := rd + rr
		m.SREG.addFlags(rd, rr, r)
		m.R[d.Rd] = r

	case OpADC:
		rd, rr := m.R[d.Rd], m.R[d.Rr]
		r := rd + rr + b2u8(m.SREG.C)
		m.SREG.addFlags(rd, rr, r)
		m.R[d.Rd] = r

	case OpCPSE:
		if m.R[d.Rd] == m.R[d.Rr] {
			m.Skip = true
		}

	case OpCP:
		r := m.R[d.Rd] - m.R[d.Rr]
		m.SREG.subFlags(m.R[d.Rd], m.R[d.Rr], r, false)

	case OpSUB:
		rd, rr := m.R[d.Rd], m.R[d.Rr]
		r := rd - rr
		m.SREG.subFlags(rd, rr, r, false)
		m.R[d.Rd] = r

	case OpAND:
		r := m.R[d.Rd] & m.R[d.Rr]
		m.SREG.logicFlags(r)
		m.R[d.Rd] = r

	case OpEOR:
		r := m.R[d.Rd] ^ m.R[d.Rr]
		m.SREG.logicFlags(r)
		m.R[d.Rd] = r

	case OpOR:
		r := m.R[d.Rd] | m.R[d.Rr]
		m.SREG.logicFlags(r)
		m.R[d.Rd] = r

	case OpMOV:
		m.R[d.Rd] = m.R[d.Rr]

	case OpCPI:
		r := m.R[d.Rd] - d.K
		m.SREG.subFlags(m.R[d.Rd], d.K, r, false)

	case OpSBCI:
		rd := m.R[d.Rd]
		r := rd - d.K - b2u8(m.SREG.C)
		m.SREG.subFlags(rd, d.K, r, true)
		m.R[d.Rd] = r

	case OpSUBI:
		rd := m.R[d.Rd]
		r := rd - d.K
		m.SREG.subFlags(rd, d.K, r, false)
		m.R[d.Rd] = r

	case OpORI:
		r := m.R[d.Rd] | d.K
		m.SREG.logicFlags(r)
		m.R[d.Rd] = r

	case OpANDI:
		r := m.R[d.Rd] & d.K
		m.SREG.logicFlags(r)
		m.R[d.Rd] = r

	case OpLDI:
		m.R[d.Rd] = d.K

	case OpRJMP:
		next = uint16(int32(m.PC) + d.Rel + 1)

	case OpRCALL:
		m.push16(next)
		next = uint16(int32(m.PC) + d.Rel + 1)

	case OpBRBS:
		if m.SREG.Get(d.S) {
			next = uint16(int32(m.PC) + d.Rel + 1)
		}

	case OpBRBC:
		if !m.SREG.Get(d.S) {
			next = uint16(int32(m.PC) + d.Rel + 1)
		}

	case OpBLD:
		if m.SREG.T {
			m.R[d.Rd] |= 1 << d.Bit
		} else {
			m.R[d.Rd] &^= 1 << d.Bit
		}

	case OpBST:
		m.SREG.T = (m.R[d.Rd]>>d.Bit)&1 != 0

	case OpSBRC:
		if (m.R[d.Rd]>>d.Bit)&1 == 0 {
			m.Skip = true
		}

	case OpSBRS:
		if (m.R[d.Rd]>>d.Bit)&1 != 0 {
			m.Skip = true
		}

	case OpCOM:
		r := ^m.R[d.Rd]
		m.SREG.logicFlags(r)
		m.SREG.C = true
		m.R[d.Rd] = r

	case OpNEG:
		rd := m.R[d.Rd]
		r := byte(0) - rd
		m.SREG.subFlags(0, rd, r, false)
		m.SREG.C = r != 0
		m.R[d.Rd] = r

	case OpSWAP:
		v := m.R[d.Rd]
		m.R[d.Rd] = v<<4 | v>>4

	case OpINC:
		rd := m.R[d.Rd]
		r := rd + 1
		m.SREG.V = rd == 0x7F
		m.SREG.N = r&0x80 != 0
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.Z = r == 0
		m.R[d.Rd] = r

	case OpASR:
		rd := m.R[d.Rd]
		r := rd>>1 | rd&0x80
		m.SREG.C = rd&1 != 0
		m.SREG.N = r&0x80 != 0
		m.SREG.V = m.SREG.N != m.SREG.C
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.Z = r == 0
		m.R[d.Rd] = r

	case OpLSR:
		rd := m.R[d.Rd]
		r := rd >> 1
		m.SREG.C = rd&1 != 0
		m.SREG.N = false
		m.SREG.V = m.SREG.N != m.SREG.C
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.Z = r == 0
		m.R[d.Rd] = r

	case OpROR:
		rd := m.R[d.Rd]
		r := rd >> 1
		if m.SREG.C {
			r |= 0x80
		}
		m.SREG.C = rd&1 != 0
		m.SREG.N = r&0x80 != 0
		m.SREG.V = m.SREG.N != m.SREG.C
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.Z = r == 0
		m.R[d.Rd] = r

	case OpDEC:
		rd := m.R[d.Rd]
		r := rd - 1
		m.SREG.V = rd == 0x80
		m.SREG.N = r&0x80 != 0
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.Z = r == 0
		m.R[d.Rd] = r

	case OpBSET:
		m.SREG.Set(d.S, true)

	case OpBCLR:
		m.SREG.Set(d.S, false)

	case OpADIW:
		old := m.read16(d.Rd+1, d.Rd)
		v := old + uint16(d.K6)
		m.write16(d.Rd+1, d.Rd, v)
		m.SREG.Z = v == 0
		m.SREG.N = v&0x8000 != 0
		m.SREG.V = v&0x8000 != 0 && old&0x8000 == 0
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.C = v < uint16(d.K6)

	case OpSBIW:
		old := m.read16(d.Rd+1, d.Rd)
		v := old - uint16(d.K6)
		m.write16(d.Rd+1, d.Rd, v)
		m.SREG.Z = v == 0
		m.SREG.N = v&0x8000 != 0
		m.SREG.V = old&0x8000 != 0 && v&0x8000 == 0
		m.SREG.S = m.SREG.N != m.SREG.V
		m.SREG.C = old < uint16(d.K6)

	case OpIN:
		m.R[d.Rd] = m.ReadData(uint16(gpRegisters) + uint16(d.IOAddr))

	case OpOUT:
		m.WriteData(uint16(gpRegisters)+uint16(d.IOAddr), m.R[d.Rd])

	case OpCBI:
		addr := uint16(gpRegisters) + uint16(d.IOAddr)
		m.WriteData(addr, m.ReadData(addr)&^(1<<d.Bit))

	case OpSBI:
		addr := uint16(gpRegisters) + uint16(d.IOAddr)
		m.WriteData(addr, m.ReadData(addr)|(1<<d.Bit))

	case OpSBIC:
		addr := uint16(gpRegisters) + uint16(d.IOAddr)
		if (m.ReadData(addr)>>d.Bit)&1 == 0 {
			m.Skip = true
		}

	case OpSBIS:
		addr := uint16(gpRegisters) + uint16(d.IOAddr)
		if (m.ReadData(addr)>>d.Bit)&1 != 0 {
			m.Skip = true
		}

	case OpJMP:
		if m.Variant.HasJMPCALL {
			next = jmpTarget(d)
		}

	case OpCALL:
		if m.Variant.HasJMPCALL {
			m.push16(next)
			next = jmpTarget(d)
		}

	case OpLDS:
		m.R[d.Rd] = m.ReadData(d.Imm16)

	case OpSTS:
		m.WriteData(d.Imm16, m.R[d.Rr])

	case OpLDX:
		m.R[d.Rd] = m.ReadData(m.X())
	case OpLDXi:
		x := m.X()
		m.R[d.Rd] = m.ReadData(x)
		m.SetX(x + 1)
	case OpLDXd:
		x := m.X() - 1
		m.SetX(x)
		m.R[d.Rd] = m.ReadData(x)

	case OpLDYi:
		y := m.Y()
		m.R[d.Rd] = m.ReadData(y)
		m.SetY(y + 1)
	case OpLDYd:
		y := m.Y() - 1
		m.SetY(y)
		m.R[d.Rd] = m.ReadData(y)
	case OpLDDY:
		m.R[d.Rd] = m.ReadData(m.Y() + uint16(d.Q))

	case OpLDZi:
		z := m.Z()
		m.R[d.Rd] = m.ReadData(z)
		m.SetZ(z + 1)
	case OpLDZd:
		z := m.Z() - 1
		m.SetZ(z)
		m.R[d.Rd] = m.ReadData(z)
	case OpLDDZ:
		m.R[d.Rd] = m.ReadData(m.Z() + uint16(d.Q))

	case OpSTX:
		m.WriteData(m.X(), m.R[d.Rr])
	case OpSTXi:
		x := m.X()
		m.WriteData(x, m.R[d.Rr])
		m.SetX(x + 1)
	case OpSTXd:
		x := m.X() - 1
		m.SetX(x)
		m.WriteData(x, m.R[d.Rr])

	case OpSTYi:
		y := m.Y()
		m.WriteData(y, m.R[d.Rr])
		m.SetY(y + 1)
	case OpSTYd:
		y := m.Y() - 1
		m.SetY(y)
		m.WriteData(y, m.R[d.Rr])
	case OpSTDY:
		m.WriteData(m.Y()+uint16(d.Q), m.R[d.Rr])

	case OpSTZi:
		z := m.Z()
		m.WriteData(z, m.R[d.Rr])
		m.SetZ(z + 1)
	case OpSTZd:
		z := m.Z() - 1
		m.SetZ(z)
		m.WriteData(z, m.R[d.Rr])
	case OpSTDZ:
		m.WriteData(m.Z()+uint16(d.Q), m.R[d.Rr])

	case OpLPM:
		m.R[0] = m.ReadProgByte(m.Z())
	case OpLPMZ:
		m.R[d.Rd] = m.ReadProgByte(m.Z())
	case OpLPMZi:
		z := m.Z()
		m.R[d.Rd] = m.ReadProgByte(z)
		m.SetZ(z + 1)

	case OpPOP:
		m.R[d.Rd] = m.pop8()
	case OpPUSH:
		m.push8(m.R[d.Rr])

	case OpRET:
		next = m.pop16()
	case OpRETI:
		next = m.pop16()
		m.SREG.I = true

	case OpIJMP:
		next = m.Z()
	case OpICALL:
		m.push16(next)
		next = m.Z()
	case OpEIJMP:
		if m.Variant.HasEIJMPCALL {
			next = m.Z()
		}
	case OpEICALL:
		if m.Variant.HasEIJMPCALL {
			m.push16(next)
			next = m.Z()
		}

	case OpSLEEP, OpWDR:
		// Modelled as no-ops: no power management or watchdog in this
		// simulator.

	case OpBREAK:
		if m.Variant.HasBreak && m.Debugger != nil {
			m.Debugger.Break(m)
		}
	}

	m.SetPC(next)
}

// jmpTarget reassembles the 22-bit absolute word address JMP/CALL encode
// across their two fixed bits in the opcode word (hi5 in d.Rd, the low bit
// in d.Bit) and the full second program word (d.Imm16).
func jmpTarget(d Decoded) uint16 {
	return uint16(uint32(d.Rd&0x1F)<<17 | uint32(d.Bit)<<16 | uint32(d.Imm16))
}

func b2u8(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func execMul(m *Machine, d Decoded) {
	switch d.Op {
	case OpMUL:
		r := uint16(m.R[d.Rd]) * uint16(m.R[d.Rr])
		m.R[0] = byte(r)
		m.R[1] = byte(r >> 8)
		m.SREG.C = r&0x8000 != 0
		m.SREG.Z = r == 0
	case OpMULS:
		r := int16(int8(m.R[d.Rd])) * int16(int8(m.R[d.Rr]))
		m.R[0] = byte(r)
		m.R[1] = byte(r >> 8)
		m.SREG.C = r&-0x8000 != 0 && r < 0
		m.SREG.Z = r == 0
	case OpMULSU:
		r := int16(int8(m.R[d.Rd])) * int16(m.R[d.Rr])
		m.R[0] = byte(r)
		m.R[1] = byte(r >> 8)
		m.SREG.C = r < 0
		m.SREG.Z = r == 0
	case OpFMUL:
		r := uint16(m.R[d.Rd]) * uint16(m.R[d.Rr])
		r <<= 1
		m.R[0] = byte(r)
		m.R[1] = byte(r >> 8)
		m.SREG.C = (uint16(m.R[d.Rd])*uint16(m.R[d.Rr]))&0x8000 != 0
		m.SREG.Z = r == 0
	case OpFMULS:
		r := int16(int8(m.R[d.Rd])) * int16(int8(m.R[d.Rr]))
		m.SREG.C = (r & -0x8000) != 0
		r <<= 1
		m.R[0] = byte(r)
		m.R[1] = byte(r >> 8)
		m.SREG.Z = r == 0
	case OpFMULSU:
		r := int16(int8(m.R[d.Rd])) * int16(m.R[d.Rr])
		m.SREG.C = (r & -0x8000) != 0
		r <<= 1
		m.R[0] = byte(r)
		m.R[1] = byte(r >> 8)
		m.SREG.Z = r == 0
	}
}
