// Package programs registers the demo programs the yay CLI can assemble.
// Each program exercises a slice of the mnemonic/macro/sub surface the
// catalog-driven assembler provides; none of them are meant to be useful
// firmware, only worked examples.
package programs

import (
	"github.com/narpfel/yay-go/pkg/operand"
	"github.com/narpfel/yay-go/pkg/program"
)

func init() {
	program.Register("blink", "MCS_51", blink)
	program.Register("count-down", "MCS_51", countDown)
	program.Register("spi-probe", "AT89S8253", spiProbe)
}

// blink toggles P1 forever, spinning a register-counted delay loop between
// toggles -- the classic "does the board do anything at all" firmware.
func blink(ctx *program.Context) {
	p1 := ctx.SFR("P1")
	delay := ctx.Reg("R7")

	ctx.With(program.Infinitely(), func() {
		ctx.Op("mov", ctx.At(ctx.Reg("R0")), operand.Immediate(0)) // placeholder touch of @R0, proves at() wiring
		program.SetPort(ctx, p1, operand.Immediate(0xFF))
		delayLoop(ctx, delay)
		program.ClearPort(ctx, p1, operand.Immediate(0xFF))
		delayLoop(ctx, delay)
	})
}

func delayLoop(ctx *program.Context, counter operand.Operand) {
	n := operand.Immediate(0)
	ctx.With(program.Loop(counter, &n), func() {
		ctx.Op("nop")
	})
}

// countDown demonstrates a sub called from two different sites: it is
// emitted exactly once, after main, since reachability is a single
// yes/no fact independent of call count (spec.md §4.7).
func countDown(ctx *program.Context) {
	r0 := ctx.Reg("R0")
	sub := ctx.Sub("reset_r0", func(ctx *program.Context) {
		ctx.Op("mov", r0, operand.Immediate(10))
	})

	ctx.Call(sub)
	n := operand.Immediate(5)
	ctx.With(program.Loop(r0, &n), func() {
		ctx.Op("dec", r0)
	})
	ctx.Call(sub)
	ctx.Op("ret")
}

// spiProbe waits for the SPSR status byte to read nonzero before exchanging
// a byte -- exercising at89s8253's part-specific SFRs. (SPSR is not
// bit-addressable on real hardware, so the poll reads the whole register
// rather than spinning on a single flag bit.)
func spiProbe(ctx *program.Context) {
	spcr := ctx.SFR("SPCR")
	spsr := ctx.SFR("SPSR")
	spdr := ctx.SFR("SPDR")

	ctx.Op("mov", spcr, operand.Immediate(0x50))
	ctx.Op("mov", spdr, ctx.Reg("A"))

	label := ctx.NewLabel("wait_spi")
	ctx.Op("mov", ctx.Reg("A"), spsr)
	ctx.Op("jz", operand.Label(label))

	ctx.Op("mov", ctx.Reg("A"), spdr)
	ctx.Op("ret")
}
