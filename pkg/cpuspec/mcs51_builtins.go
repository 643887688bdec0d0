package cpuspec

import (
	"fmt"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/operand"
)

// init registers every built-in matcher, converter, and operand factory the
// embedded MCS_51/AT89S8253 catalogs reference by name (spec.md §4.1/§4.2).
// Catalogs never embed code; they name one of these symbols instead.
func init() {
	for _, class := range []string{
		"register", "indirect", "indirect_dptr", "direct", "direct_dest",
		"sfr", "bit", "not_bit", "immediate", "immediate16", "label",
		"relative", "addr11", "addr16", "accu", "dptr", "pc",
		"dptr_offset", "pc_offset", "carry",
	} {
		class := class
		RegisterImport("is_"+class, MatcherFunc(func(v operand.Operand, fromAlternative bool) bool {
			return operand.Classify(class, v, fromAlternative)
		}))
	}

	RegisterImport("dptr_singleton", operand.DPTR{})
	RegisterImport("pc_singleton", operand.PC{})
	RegisterImport("accumulator_singleton", operand.Accumulator{})
	RegisterImport("carry_singleton", operand.Carry{})

	RegisterImport("make_register", ImportFunc(makeRegister))
	RegisterImport("make_sfr", ImportFunc(makeSFR))
	RegisterImport("make_named_bit", ImportFunc(makeNamedBit))

	RegisterImport("addr16_from_label", ConverterFunc(addr16FromLabel))
	RegisterImport("relative_from_addr16", ConverterFunc(relativeFromAddr16))
	RegisterImport("relative_from_label", ConverterFunc(relativeFromLabel))
	RegisterImport("addr11_from_addr16", ConverterFunc(addr11FromAddr16))
	RegisterImport("addr11_from_label", ConverterFunc(addr11FromLabel))
	RegisterImport("direct_from_accu", ConverterFunc(directFromAccu))
	RegisterImport("direct_from_register", ConverterFunc(directFromRegister))
}

// makeRegister builds one of R0..R7 from a `call_many` entry shaped
// `Rn: [number, canIndirect]` (only R0 and R1 set canIndirect true on
// MCS-51: spec.md §3, "everything but R0/R1 cannot be indirected").
func makeRegister(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("make_register: want [number, canIndirect], got %v", args)
	}
	number, ok := args[0].(int)
	if !ok {
		return nil, fmt.Errorf("make_register: number must be an int, got %T", args[0])
	}
	canIndirect, ok := args[1].(bool)
	if !ok {
		return nil, fmt.Errorf("make_register: canIndirect must be a bool, got %T", args[1])
	}
	return operand.Register{Number: number, CanIndirect: canIndirect}, nil
}

// makeSFR builds a named special function register from a `call_many`
// entry shaped `NAME: [address]` with with_key: true, so args arrive as
// [name, address].
func makeSFR(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("make_sfr: want [name, address], got %v", args)
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("make_sfr: name must be a string, got %T", args[0])
	}
	addr, ok := args[1].(int)
	if !ok {
		return nil, fmt.Errorf("make_sfr: address must be an int, got %T", args[1])
	}
	sfr, err := operand.NewSFR(name, addr)
	if err != nil {
		return nil, asmerr.ConfigError{Reason: err.Error()}
	}
	return sfr, nil
}

// makeNamedBit builds a named, independently bit-addressable operand from
// a `call_many` entry shaped `NAME: [bitAddress]` with with_key: true. The
// catalog lists the already-computed bit address (e.g. PSW.7/CY is 0xD7)
// rather than an SFR-name-plus-offset pair, since named_bits resolves
// before the loader would otherwise have a sfr-name lookup available.
func makeNamedBit(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("make_named_bit: want [name, bitAddress], got %v", args)
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("make_named_bit: name must be a string, got %T", args[0])
	}
	addr, ok := args[1].(int)
	if !ok {
		return nil, fmt.Errorf("make_named_bit: bitAddress must be an int, got %T", args[1])
	}
	return operand.NamedBit{Bit: operand.Bit{Addr: addr}, Name: name}, nil
}

// addr16FromLabel resolves a label reference to its absolute byte address
// (spec.md §4.4/§4.6): used by LCALL/LJMP/MOV DPTR,#addr16 given a label.
func addr16FromLabel(ctx ConverterContext, value operand.Operand) (int, error) {
	label, ok := value.(operand.Label)
	if !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("addr16_from_label: not a label: %v", value)}
	}
	addr, ok := ctx.LookupLabel(string(label))
	if !ok {
		return 0, asmerr.LabelError{Reason: fmt.Sprintf("undefined label %q", label)}
	}
	return addr, nil
}

func asAbsoluteAddress(value operand.Operand) (int, bool) {
	iv, ok := value.(operand.IntValue)
	if !ok {
		return 0, false
	}
	return iv.Int(), true
}

// relativeFromAddr16 converts an absolute target address to the signed
// 8-bit displacement SJMP/conditional jumps encode, counted from the first
// byte following the instruction (spec.md §3: relative addressing).
func relativeFromAddr16(ctx ConverterContext, value operand.Operand) (int, error) {
	target, ok := asAbsoluteAddress(value)
	if !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("relative_from_addr16: not an address: %v", value)}
	}
	return relativeOffset(ctx, target)
}

// relativeFromLabel is relativeFromAddr16 for a not-yet-resolved label.
func relativeFromLabel(ctx ConverterContext, value operand.Operand) (int, error) {
	label, ok := value.(operand.Label)
	if !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("relative_from_label: not a label: %v", value)}
	}
	addr, ok := ctx.LookupLabel(string(label))
	if !ok {
		return 0, asmerr.LabelError{Reason: fmt.Sprintf("undefined label %q", label)}
	}
	return relativeOffset(ctx, addr)
}

func relativeOffset(ctx ConverterContext, target int) (int, error) {
	next := ctx.Position() + ctx.Size()
	offset := target - next
	if offset < -128 || offset > 127 {
		return 0, asmerr.RangeError{
			Mnemonic: ctx.MnemonicName(),
			Position: ctx.Position(),
			Reason:   fmt.Sprintf("relative jump target %d is out of range (offset %d)", target, offset),
		}
	}
	return offset, nil
}

// addr11FromAddr16 converts an absolute target address to the 11-bit
// page-relative form ACALL/AJMP encode, erroring when the target falls
// outside the 2K page containing the instruction following this one
// (spec.md §3: addr11 addressing).
func addr11FromAddr16(ctx ConverterContext, value operand.Operand) (int, error) {
	target, ok := asAbsoluteAddress(value)
	if !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("addr11_from_addr16: not an address: %v", value)}
	}
	return addr11Offset(ctx, target)
}

// addr11FromLabel is addr11FromAddr16 for a not-yet-resolved label.
func addr11FromLabel(ctx ConverterContext, value operand.Operand) (int, error) {
	label, ok := value.(operand.Label)
	if !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("addr11_from_label: not a label: %v", value)}
	}
	addr, ok := ctx.LookupLabel(string(label))
	if !ok {
		return 0, asmerr.LabelError{Reason: fmt.Sprintf("undefined label %q", label)}
	}
	return addr11Offset(ctx, addr)
}

func addr11Offset(ctx ConverterContext, target int) (int, error) {
	next := ctx.Position() + ctx.Size()
	if target>>11 != next>>11 {
		return 0, asmerr.RangeError{
			Mnemonic: ctx.MnemonicName(),
			Position: ctx.Position(),
			Reason:   fmt.Sprintf("target %d is not in the same 2K page as %d", target, next),
		}
	}
	return target & 0x7FF, nil
}

// directFromAccu lets PUSH/POP accept the accumulator by its `direct`
// (internal RAM address) alternative, since PUSH/POP operate on direct
// addresses only; A's direct address is the ACC SFR (spec.md §3).
func directFromAccu(_ ConverterContext, value operand.Operand) (int, error) {
	if _, ok := value.(operand.Accumulator); !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("direct_from_accu: not the accumulator: %v", value)}
	}
	return 0xE0, nil
}

// directFromRegister lets PUSH/POP accept a working register by its
// `direct` alternative: R0..R7 of bank 0 live at direct addresses 0..7, so
// a register operand's number doubles as its direct address.
func directFromRegister(_ ConverterContext, value operand.Operand) (int, error) {
	reg, ok := value.(operand.Register)
	if !ok {
		return 0, asmerr.TypeError{Reason: fmt.Sprintf("direct_from_register: not a register: %v", value)}
	}
	return reg.Number, nil
}
