package program

import (
	"fmt"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/dispatch"
	"github.com/narpfel/yay-go/pkg/operand"
)

// Context is the program-context value spec.md §9 asks for in place of
// dynamic namespace injection: within main, macros and sub bodies, it is
// the single parameter mnemonics, registers, SFRs and named bits are
// looked up through, all bound to the one owning Program.
type Context struct {
	prog *Program
}

// Program returns the owning program, e.g. for a macro that needs to
// register a sub lazily.
func (c *Context) Program() *Program { return c.prog }

// Reg looks up a register by name (e.g. "R0".."R7") or one of the CPU
// singletons (DPTR, PC, A, C) injected alongside registers.
func (c *Context) Reg(name string) operand.Operand {
	op, ok := c.prog.cpu.Registers[name]
	if !ok {
		fail(asmerr.ConfigError{Reason: "no such register: " + name})
	}
	return op
}

// SFR looks up a special function register by name.
func (c *Context) SFR(name string) operand.Operand {
	op, ok := c.prog.cpu.SFRs[name]
	if !ok {
		fail(asmerr.ConfigError{Reason: "no such SFR: " + name})
	}
	return op
}

// NamedBit looks up a catalog-defined named bit (e.g. a PSW flag).
func (c *Context) NamedBit(name string) operand.Operand {
	op, ok := c.prog.cpu.NamedBits[name]
	if !ok {
		fail(asmerr.ConfigError{Reason: "no such named bit: " + name})
	}
	return op
}

// At implements `at(x)` (spec.md §4.2): converts a register or an
// accumulator-offset sum to its indirect addressing form.
func (c *Context) At(x operand.Operand) operand.Operand {
	v, err := operand.At(x)
	if err != nil {
		fail(toAsmErr(err))
	}
	return v
}

// Plus implements `A + DPTR` / `A + PC`.
func (c *Context) Plus(a operand.Accumulator, other operand.Operand) operand.Operand {
	v, err := operand.Plus(a, other)
	if err != nil {
		fail(toAsmErr(err))
	}
	return v
}

func toAsmErr(err error) error {
	switch err.(type) {
	case operand.ErrCannotIndirect:
		return asmerr.RegisterError{Reason: err.Error()}
	case operand.ErrNotARegister, operand.ErrNotAddable:
		return asmerr.TypeError{Reason: err.Error()}
	case operand.ErrNotBitAddressable:
		return asmerr.TypeError{Reason: err.Error()}
	default:
		return asmerr.TypeError{Reason: err.Error()}
	}
}

// Op dispatches and appends one mnemonic invocation with positional
// operands (spec.md §4.3/§4.5). Dispatch or append failures unwind via
// panic/recover up to Program.Assemble, mirroring the source project's
// exception-based control flow.
func (c *Context) Op(mnemonic string, args ...operand.Operand) *Instruction {
	match, err := dispatch.Dispatch(c.prog.cpu, mnemonic, args, nil)
	if err != nil {
		fail(err)
	}
	instr := &Instruction{match: match}
	c.prog.append(instr)
	return instr
}

// OpKw dispatches and appends one mnemonic invocation with keyword
// operands.
func (c *Context) OpKw(mnemonic string, kwargs map[string]operand.Operand) *Instruction {
	match, err := dispatch.Dispatch(c.prog.cpu, mnemonic, nil, kwargs)
	if err != nil {
		fail(err)
	}
	instr := &Instruction{match: match}
	c.prog.append(instr)
	return instr
}

// Lit emits a single literal byte, bypassing mnemonic dispatch entirely
// (the `Lit` pseudo-mnemonic of the source project).
func (c *Context) Lit(b int) *Instruction {
	if b < 0 || b > 0xFF {
		fail(asmerr.SignatureError{Mnemonic: "lit", Args: []any{b}})
	}
	instr := &Instruction{
		match: &dispatch.Match{
			Mnemonic:  "lit",
			Signature: litSignature(b),
			Bound:     map[string]operand.Operand{},
		},
	}
	c.prog.append(instr)
	return instr
}

// Label declares a label at the current position.
func (c *Context) Label(name string) {
	if err := c.prog.AddLabel(name); err != nil {
		fail(err)
	}
}

// NewLabel declares and returns a prefix-unique synthetic label, bound at
// the current position -- the common `new_label(prefix)` macro idiom.
func (c *Context) NewLabel(prefix string) string {
	name := c.prog.NewLabelName(prefix)
	c.Label(name)
	return name
}

// Offsetof returns position - labels[name], used by macros picking
// between short and long jump forms. ok is false if name is undeclared.
func (c *Context) Offsetof(name string) (int, bool) {
	return c.prog.Offsetof(name)
}

// Sub registers a subroutine body. The returned SubRef is what macros and
// main pass to Call.
func (c *Context) Sub(name string, body func(*Context)) *SubRef {
	return c.prog.AddSub(name, body)
}

// Call emits a call to ref's subroutine and marks it reachable, so its
// body is emitted once at the program tail (spec.md §4.7).
func (c *Context) Call(ref *SubRef) {
	ref.sub.called = true
	c.Op("lcall", operand.Label(ref.sub.label))
}

// BlockMacro is the Go stand-in for the source project's
// setup/yield/teardown block macros (spec.md §4.7/§9): enter runs on
// scope entry and returns the exit half to run after the user's block.
type BlockMacro func(ctx *Context) func()

// With runs a block macro around body, the scoped-acquisition pattern
// spec.md §9 describes for block macros in a language without generators:
// `ctx.With(Loop(r, n), func() { ... })`.
func (c *Context) With(m BlockMacro, body func()) {
	exit := m(c)
	body()
	exit()
}

func litSignature(byteValue int) cpuspec.Signature {
	return cpuspec.Signature{Operands: nil, Opcode: []cpuspec.OpcodeByte{{fmt.Sprint(byteValue)}}}
}
