package main

import (
	"fmt"
	"os"

	"github.com/jmalego/atsimgo/avr"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "atsim",
		Short: "AVR-family 8-bit microcontroller instruction-set simulator",
	}

	var variantName string
	var maxSteps int
	var showRegs bool
	var showStack bool

	runCmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Load a raw program image and run it to a halt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := resolveVariant(variantName)
			if err != nil {
				return err
			}

			m := avr.NewMachine(variant,
				avr.WithOutput(os.Stdout),
				avr.WithWarnings(os.Stderr),
			)
			if err := m.LoadImageFile(args[0]); err != nil {
				return err
			}

			steps, err := m.Run(maxSteps)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "halted after %d instructions at PC=0x%04x\n", steps, m.PC)

			if showRegs {
				m.DumpRegisters(os.Stdout)
			}
			if showStack {
				m.DumpStack(os.Stdout)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&variantName, "variant", "attiny85", "MCU variant: attiny85 or avr")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 10_000_000, "Instruction budget before giving up")
	runCmd.Flags().BoolVar(&showRegs, "regs", false, "Print register state after halting")
	runCmd.Flags().BoolVar(&showStack, "stack", false, "Print live stack contents after halting")

	var dumpFull bool
	dumpCmd := &cobra.Command{
		Use:   "dump [image]",
		Short: "Load an image and dump initial machine state without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := resolveVariant(variantName)
			if err != nil {
				return err
			}

			m := avr.NewMachine(variant, avr.WithWarnings(os.Stderr))
			if err := m.LoadImageFile(args[0]); err != nil {
				return err
			}

			if dumpFull {
				m.DumpMemory(os.Stdout)
				return nil
			}
			m.DumpRegisters(os.Stdout)
			m.DumpStack(os.Stdout)
			return nil
		},
	}
	dumpCmd.Flags().StringVar(&variantName, "variant", "attiny85", "MCU variant: attiny85 or avr")
	dumpCmd.Flags().BoolVar(&dumpFull, "full", false, "Dump the entire data and program memory instead of the summary")

	rootCmd.AddCommand(runCmd, dumpCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveVariant(name string) (avr.Variant, error) {
	switch name {
	case "attiny85":
		return avr.ATtiny85, nil
	case "avr":
		return avr.AVR, nil
	default:
		return avr.Variant{}, fmt.Errorf("unknown variant %q: use attiny85 or avr", name)
	}
}
