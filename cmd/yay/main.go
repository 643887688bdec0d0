// Command yay assembles one of the programs registered under
// github.com/narpfel/yay-go/cmd/yay/programs against an MCS-51 CPU
// catalog, writing the result as raw binary or Intel HEX (spec.md §6/§7).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/ihex"
	"github.com/narpfel/yay-go/pkg/program"

	_ "github.com/narpfel/yay-go/cmd/yay/programs"
)

func main() {
	var (
		cpuName   string
		mainClass string
		offset    int
		outPath   string
		raw       bool
		format    string
	)

	rootCmd := &cobra.Command{
		Use:   "yay",
		Short: "MCS-51 assembler",
	}

	assembleCmd := &cobra.Command{
		Use:   "assemble <program-name>",
		Short: "Assemble a registered program and write its byte image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(args[0], cpuName, mainClass, offset, outPath, raw, format)
		},
	}
	assembleCmd.Flags().StringVar(&cpuName, "cpu", "", "CPU catalog name (defaults to the program's registered CPU)")
	assembleCmd.Flags().StringVar(&mainClass, "main-class", "", "override <program-name> (interface parity with spec.md's --main_class)")
	assembleCmd.Flags().IntVar(&offset, "offset", 0, "relocation offset (leading zero bytes)")
	assembleCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file path")
	assembleCmd.Flags().BoolVarP(&raw, "raw", "r", false, "write raw bytes to standard output")
	assembleCmd.Flags().StringVarP(&format, "format", "f", "ihex", "output format for -o: ihex or binary")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range program.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(assembleCmd, listCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAssemble(name, cpuOverride, mainClass string, offset int, outPath string, raw bool, format string) error {
	if mainClass != "" {
		name = mainClass
	}

	cpuName, main, ok := program.Lookup(name)
	if !ok {
		return fmt.Errorf("no program registered as %q (see `yay list`)", name)
	}
	if cpuOverride != "" {
		cpuName = cpuOverride
	}

	cpu, err := cpuspec.Load(cpuName)
	if err != nil {
		return fmt.Errorf("loading CPU %q: %w", cpuName, err)
	}

	prog := program.New(cpu, main)
	if offset != 0 {
		if err := prog.Relocate(offset); err != nil {
			return err
		}
	}

	// `-o OUT` writes to a file; `-r` writes raw bytes to standard output;
	// neither writes a textual listing to standard output (spec.md §6).
	switch {
	case outPath != "":
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeAssembled(f, prog, format)
	case raw:
		data, err := prog.ToBinary()
		if err != nil {
			return fmt.Errorf("assembling %q: %w", name, err)
		}
		return ihex.WriteBinary(os.Stdout, data)
	default:
		lines, err := prog.Listing()
		if err != nil {
			return fmt.Errorf("assembling %q: %w", name, err)
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	}
}

func writeAssembled(out *os.File, prog *program.Program, format string) error {
	switch format {
	case "ihex":
		data, err := prog.InstructionBytes()
		if err != nil {
			return err
		}
		return ihex.WriteIntelHex(out, prog.Offset(), data)
	case "binary":
		data, err := prog.ToBinary()
		if err != nil {
			return err
		}
		return ihex.WriteBinary(out, data)
	default:
		return fmt.Errorf("unknown output format %q: want ihex or binary", format)
	}
}
