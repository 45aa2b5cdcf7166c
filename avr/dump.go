package avr

import (
	"fmt"
	"io"
)

// DumpRegisters writes the program counter, stack pointer, and all 32
// general-purpose registers (with the X/Y/Z aliases called out) to w, in the
// format spec.md §6 specifies, grounded in original_source/src/machine.c's
// dump_registers.
func (m *Machine) DumpRegisters(w io.Writer) {
	fmt.Fprintf(w, "PC: 0x%04x\n", m.PC)
	fmt.Fprintf(w, "SP: 0x%04x\n", m.SP())
	fmt.Fprintf(w, "SREG: 0x%02x\n", m.SREG.Pack())
	for i := 0; i < gpRegisters; i++ {
		fmt.Fprintf(w, "R%02d: 0x%02x\n", i, m.R[i])
	}
	fmt.Fprintf(w, "X: 0x%04x\n", m.X())
	fmt.Fprintf(w, "Y: 0x%04x\n", m.Y())
	fmt.Fprintf(w, "Z: 0x%04x\n", m.Z())
}

// DumpStack writes the live portion of the stack — every byte from SP+1 up
// to the top of data memory — to w (spec.md §6, original_source/src/
// machine.c's dump_stack).
func (m *Machine) DumpStack(w io.Writer) {
	top := uint16(m.DataMemSize() - 1)
	for addr := m.SP() + 1; addr <= top; addr++ {
		fmt.Fprintf(w, "0x%04x: 0x%02x\n", addr, m.ReadData(addr))
		if addr == top {
			break
		}
	}
}

// DumpMemory writes the entire unified data-memory view and the full
// program memory to w. This is not part of spec.md's external interface; it
// supplements the CLI's dump subcommand with the original simulator's
// whole-state memory dump (original_source/src/machine.c's dump_memory),
// useful for debugging beyond the register/stack summary.
func (m *Machine) DumpMemory(w io.Writer) {
	fmt.Fprintln(w, "--- data memory ---")
	for addr := 0; addr < m.DataMemSize(); addr++ {
		fmt.Fprintf(w, "0x%04x: 0x%02x\n", addr, m.ReadData(uint16(addr)))
	}
	fmt.Fprintln(w, "--- program memory ---")
	for addr, word := range m.Flash {
		fmt.Fprintf(w, "0x%04x: 0x%04x\n", addr, word)
	}
}
