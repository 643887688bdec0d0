// Package emit implements the opcode emitter (C4): expanding a matched
// signature's byte-format templates into a fixed byte sequence by
// splicing operand values into literal or bit-field slots.
package emit

import (
	"regexp"
	"strconv"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/dispatch"
	"github.com/narpfel/yay-go/pkg/operand"
)

var shortBitFormat = regexp.MustCompile(`^([A-Za-z])(\d+)$`)

// Bytes expands m's opcode template to its final byte sequence. Converters
// run lazily here, against ctx, since they may depend on the instruction's
// final position (spec.md §4.4).
func Bytes(cpu *cpuspec.CpuSpec, m *dispatch.Match, ctx cpuspec.ConverterContext) ([]byte, error) {
	out := make([]byte, 0, len(m.Signature.Opcode))
	for _, template := range m.Signature.Opcode {
		var (
			value int
			err   error
		)
		if len(template) == 1 {
			value, err = processSlot(cpu, m, ctx, template[0])
		} else {
			value, err = processBitField(cpu, m, ctx, template)
		}
		if err != nil {
			return nil, err
		}
		b, err := twosComplement(ctx, value)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// processSlot resolves a whole-byte template cell: an integer literal, or a
// slot name possibly requiring an alternative-type conversion.
func processSlot(cpu *cpuspec.CpuSpec, m *dispatch.Match, ctx cpuspec.ConverterContext, cell string) (int, error) {
	if n, err := strconv.Atoi(cell); err == nil {
		return n, nil
	}
	return resolveClass(cpu, m, ctx, cell)
}

// resolveClass returns the integer value bound to class name, running its
// `<class>_from_<matchedClass>` converter if an alternative substitution
// was taken for this slot.
func resolveClass(cpu *cpuspec.CpuSpec, m *dispatch.Match, ctx cpuspec.ConverterContext, class string) (int, error) {
	if fromClass, ok := m.AlternativesTaken[class]; ok {
		value, ok := m.Bound[fromClass]
		if !ok {
			return 0, asmerr.ConfigError{Reason: "no operand bound for " + fromClass}
		}
		return cpu.Convert(class, fromClass, ctx, value)
	}

	value, ok := m.Bound[class]
	if !ok {
		return 0, asmerr.ConfigError{Reason: "no operand bound for " + class}
	}
	iv, ok := value.(operand.IntValue)
	if !ok {
		return 0, asmerr.TypeError{Reason: class + " has no integer projection: " + value.String()}
	}
	return iv.Int(), nil
}

// processBitField expands an 8-cell bit-format template (spec.md §4.4): for
// positions 7..0, a literal "0"/"1" contributes that bit directly; a
// short-code+digit cell (e.g. "r2") looks the short code up via
// short_to_class, resolves that class's integer value (applying a
// converter if it was substituted), and extracts the requested bit.
func processBitField(cpu *cpuspec.CpuSpec, m *dispatch.Match, ctx cpuspec.ConverterContext, cells []string) (int, error) {
	result := 0
	for digit := 0; digit < 8; digit++ {
		cell := cells[7-digit]
		bit, err := resolveBit(cpu, m, ctx, cell)
		if err != nil {
			return 0, err
		}
		result |= bit << digit
	}
	return result, nil
}

func resolveBit(cpu *cpuspec.CpuSpec, m *dispatch.Match, ctx cpuspec.ConverterContext, cell string) (int, error) {
	if n, err := strconv.Atoi(cell); err == nil {
		return n & 1, nil
	}

	groups := shortBitFormat.FindStringSubmatch(cell)
	if groups == nil {
		return 0, asmerr.ConfigError{Reason: "invalid bit-format cell " + cell}
	}
	short, digitStr := groups[1], groups[2]
	class, ok := cpu.ShortToClass[short]
	if !ok {
		return 0, asmerr.ConfigError{Reason: "unknown short code " + short}
	}
	digit, _ := strconv.Atoi(digitStr)

	value, err := resolveClass(cpu, m, ctx, class)
	if err != nil {
		return 0, err
	}
	return (value >> digit) & 1, nil
}

// twosComplement normalizes a byte value (spec.md §4.4/§9): unsigned
// 0..=255 values pass through unchanged, signed -128..=-1 values become
// value+256; anything outside -128..=255 is a range error.
func twosComplement(ctx cpuspec.ConverterContext, n int) (int, error) {
	if n < -128 || n > 255 {
		return 0, asmerr.RangeError{
			Mnemonic: ctx.MnemonicName(),
			Position: ctx.Position(),
			Reason:   "value out of range for an 8-bit field: " + strconv.Itoa(n),
		}
	}
	return n & 0xFF, nil
}
