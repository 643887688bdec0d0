package program

import (
	"fmt"

	"github.com/narpfel/yay-go/pkg/operand"
)

// This file is the Go rendering of the MCS-51 macro bundle every program
// targeting the MCS_51/AT89S8253 catalogs mixes in (spec.md's
// `macros_from`, spec.md §4.7). Plain macros emit through the Context they
// are given; block macros return a BlockMacro for Context.With.

// Loop emits `mov(register, n)` (when n is non-nil) followed by a label,
// and on exit a `djnz(register, label)` back to it -- the default
// `loop(register, n) { ... }` block macro.
func Loop(register operand.Operand, n *operand.Immediate) BlockMacro {
	return func(ctx *Context) func() {
		if n != nil {
			ctx.Op("mov", register, *n)
		}
		label := ctx.NewLabel(fmt.Sprintf("loop_head_%s", register.String()))
		return func() {
			ctx.Op("djnz", register, operand.Label(label))
		}
	}
}

// WaitOn spins on bit: `label: jnb bit, label` re-executes itself until
// the bit is set.
func WaitOn(ctx *Context, bit operand.Operand) {
	label := ctx.NewLabel(fmt.Sprintf("wait_on_%s", bit.String()))
	ctx.Op("jnb", bit, operand.Label(label))
}

// Infinitely wraps body in an unconditional loop back to its start,
// preferring the 2-byte `sjmp` form and falling back to `ljmp` once the
// body has grown out of relative-jump range.
func Infinitely() BlockMacro {
	return func(ctx *Context) func() {
		label := ctx.NewLabel("infinite_loop")
		return func() {
			offset, ok := ctx.Offsetof(label)
			if ok && offset <= 126 {
				ctx.Op("sjmp", operand.Label(label))
			} else {
				ctx.Op("ljmp", operand.Label(label))
			}
		}
	}
}

// ClearPort and SetPort implement the common "mask a port's bits" idiom
// via ANL/ORL with an immediate mask: ClearPort clears the bits set in
// bitMask (ANL with its complement), SetPort sets them (ORL).
func ClearPort(ctx *Context, port operand.Operand, bitMask operand.Immediate) {
	ctx.Op("andl", port, ^bitMask&0xFF)
}

func SetPort(ctx *Context, port operand.Operand, bitMask operand.Immediate) {
	ctx.Op("orl", port, bitMask)
}

// Lsl and Lsr implement a logical shift of the accumulator through the
// carry flag: clear carry, then rotate.
func Lsl(ctx *Context) {
	ctx.Op("clr", ctx.Reg("C"))
	ctx.Op("rlc")
}

func Lsr(ctx *Context) {
	ctx.Op("clr", ctx.Reg("C"))
	ctx.Op("rrc")
}

// ToggleIfSet sets the carry flag to left's bit and then flips it
// whenever right's bit is set -- `cpl(C)` gated by `jnb`. This is this
// transformation's corrected rendering of the source project's `xor`
// macro, whose body called an undefined `ldb` helper (see DESIGN.md).
func ToggleIfSet(ctx *Context, left, right operand.Operand) {
	ctx.Op("mov", ctx.Reg("C"), left)
	label := ctx.Program().NewLabelName("skip_toggle")
	ctx.Op("jnb", right, operand.Label(label))
	ctx.Op("cpl", ctx.Reg("C"))
	ctx.Label(label)
}
