package avr

// Step advances the machine by exactly one instruction, implementing the
// loop body spec.md §4.5 describes: either discard the next instruction (if
// a SKIP is armed) or fetch/decode/execute it, then run every registered
// peripheral's post-tick hook. It returns the program counter before the
// step, which the caller compares against the post-step PC to detect the
// fixed-point halt condition.
func (m *Machine) Step() uint16 {
	before := m.PC

	word := m.ReadProgWord(m.PC)
	d := Decode(word)

	switch {
	case m.Skip:
		m.Skip = false
		m.SetPC(m.PC + uint16(d.Len))
	case d.Op == OpUnknown:
		if !m.unknownOpcodeWarned {
			m.unknownOpcodeWarned = true
			writeWarning(m.warnSink, "unknown opcode 0x%04x at PC=0x%04x, treated as NOP", word, m.PC)
		}
		m.SetPC(m.PC + 1)
	default:
		if d.Word2 {
			d.Imm16 = m.ReadProgWord(m.PC + 1)
		}
		Execute(m, d)
	}

	for _, p := range m.Peripherals {
		p.PostTick(m)
	}

	return before
}

// Run steps the machine until the program counter reaches a fixed point
// (a single step leaves PC unchanged), which spec.md §4.5 defines as
// the only halt condition, then returns the total instruction count
// executed. maxSteps bounds runaway programs; Run returns early with
// ErrStepLimitExceeded if it is reached without a halt.
func (m *Machine) Run(maxSteps int) (int, error) {
	for i := 0; i < maxSteps; i++ {
		before := m.Step()
		if m.PC == before {
			return i + 1, nil
		}
	}
	return maxSteps, ErrStepLimitExceeded
}
