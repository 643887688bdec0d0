// Package program implements the program builder (C5), the label/address
// resolver (C6), and the macro/subroutine engine (C7): the mutable
// assembly state that mnemonic calls, labels, macros and subs all act on.
package program

import (
	"fmt"

	"github.com/narpfel/yay-go/pkg/asmerr"
	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/dispatch"
	"github.com/narpfel/yay-go/pkg/emit"
)

// MainFunc is a program's entry point: the Go stand-in for the DSL's
// `main` method, run with the operand vocabulary and mnemonic dispatch
// bound to ctx (spec.md §9: "dynamic namespace injection... re-architected"
// as a program-context value passed explicitly).
type MainFunc func(ctx *Context)

// Instruction is one matched-and-bound mnemonic invocation. Paired with its
// Program as a boundInstruction, it implements cpuspec.ConverterContext so
// converters can resolve labels and compute relative/addr11 offsets against
// its final position.
type Instruction struct {
	match    *dispatch.Match
	position int
	encoded  []byte
}

func (i *Instruction) Position() int        { return i.position }
func (i *Instruction) Size() int            { return len(i.match.Signature.Opcode) }
func (i *Instruction) MnemonicName() string { return i.match.Mnemonic }

// boundInstruction pairs an Instruction with the Program it belongs to, so
// LookupLabel can reach the label table (Instruction itself holds no
// reference to its Program).
type boundInstruction struct {
	*Instruction
	prog *Program
}

func (b *boundInstruction) LookupLabel(name string) (int, bool) {
	addr, ok := b.prog.labels[name]
	return addr, ok
}

// String renders a diagnostic form similar to the source project's
// `repr(instruction)`, e.g. "add(direct=Byte(42))".
func (i *Instruction) String() string {
	if len(i.match.Bound) == 0 {
		return i.match.Mnemonic + "()"
	}
	s := i.match.Mnemonic + "("
	first := true
	for _, class := range i.match.Signature.Operands {
		matched := class
		if alt, ok := i.match.AlternativesTaken[class]; ok {
			matched = alt
		}
		value, ok := i.match.Bound[matched]
		if !ok {
			continue
		}
		if !first {
			s += ", "
		}
		first = false
		s += fmt.Sprintf("%s=%s", matched, value.String())
	}
	return s + ")"
}

// sub is one registered subroutine (spec.md §4.7): emitted once, at the
// program tail, iff reachable from main.
type sub struct {
	name    string
	label   string
	body    func(*Context)
	called  bool
	emitted bool
}

// Program is the mutable assembly state shared by C3/C4/C6/C7 (spec.md §3).
type Program struct {
	cpu *cpuspec.CpuSpec
	main MainFunc

	opcodes  []*Instruction
	labels   map[string]int
	position int
	offset   int
	started  bool // true once relocate() may no longer run
	assembled bool
	assembledBytes []byte

	subs        []*sub
	subsByName  map[string]*sub
	usedLabels  map[string]bool
	labelCounters map[string]int
}

// New creates a program bound to cpu with the given entry point. main is
// run lazily, the first time Assemble, ToBinary, InstructionBytes or
// Listing is called; subs may be registered (AddSub, or Context.Sub from
// inside main or a sub body) at any point before assembly finishes.
func New(cpu *cpuspec.CpuSpec, main MainFunc) *Program {
	return &Program{
		cpu:           cpu,
		main:          main,
		labels:        map[string]int{},
		subsByName:    map[string]*sub{},
		usedLabels:    map[string]bool{},
		labelCounters: map[string]int{},
	}
}

// CPU returns the catalog this program is bound to.
func (p *Program) CPU() *cpuspec.CpuSpec { return p.cpu }

// Relocate sets the leading zero-pad base (spec.md §4.5). Must be called
// before any emission.
func (p *Program) Relocate(offset int) error {
	if p.started {
		return asmerr.LabelError{Reason: "relocate() called after emission has started"}
	}
	p.offset = offset
	p.position = offset
	return nil
}

func (p *Program) append(instr *Instruction) {
	p.started = true
	instr.position = p.position
	p.position += instr.Size()
	p.opcodes = append(p.opcodes, instr)
}

// GetPosition returns the byte position of an already-appended instruction
// via a linear scan, matching the C5 contract of spec.md §4.5.
func (p *Program) GetPosition(instr *Instruction) (int, bool) {
	for _, i := range p.opcodes {
		if i == instr {
			return i.position, true
		}
	}
	return 0, false
}

// AddLabel binds name to the current position (spec.md §4.5). Declaring the
// same name twice is a LabelError (this implementation's resolution of the
// spec's open question on duplicate user labels).
func (p *Program) AddLabel(name string) error {
	p.started = true
	if _, exists := p.labels[name]; exists {
		return asmerr.LabelError{Reason: fmt.Sprintf("duplicate label %q", name)}
	}
	p.labels[name] = p.position
	return nil
}

// NewLabelName returns a prefix-unique synthetic label name
// (prefix_0, prefix_1, ...), skipping any already in use (spec.md §4.7).
func (p *Program) NewLabelName(prefix string) string {
	for {
		n := p.labelCounters[prefix]
		p.labelCounters[prefix] = n + 1
		name := fmt.Sprintf("%s_%d", prefix, n)
		if _, declared := p.labels[name]; !declared && !p.usedLabels[name] {
			p.usedLabels[name] = true
			return name
		}
	}
}

// Offsetof returns position - labels[name] (spec.md §4.5), used by macros
// choosing between short and long jump forms.
func (p *Program) Offsetof(name string) (int, bool) {
	addr, ok := p.labels[name]
	if !ok {
		return 0, false
	}
	return p.position - addr, true
}

// AddSub registers a subroutine body. Calling it from main (via
// Context.Call) marks it reachable; unreachable subs never emit their
// body (spec.md §4.7).
func (p *Program) AddSub(name string, body func(*Context)) *SubRef {
	if existing, ok := p.subsByName[name]; ok {
		return &SubRef{prog: p, sub: existing}
	}
	label := p.NewLabelName("sub_" + name)
	s := &sub{name: name, label: label, body: body}
	p.subs = append(p.subs, s)
	p.subsByName[name] = s
	return &SubRef{prog: p, sub: s}
}

// SubRef is the caller-facing handle returned by AddSub.
type SubRef struct {
	prog *Program
	sub  *sub
}

// Assemble runs main exactly once, then emits every reachable sub's body
// (spec.md §4.7: a real reachability-closure walk realized as a worklist,
// since marking a sub `called` is a side effect of actually calling it),
// then computes every instruction's final bytes (pass 2). Re-invoking
// Assemble is a no-op: assembly is idempotent per program instance
// (spec.md §9's resolution of the re-assembly open question).
func (p *Program) Assemble() (err error) {
	if p.assembled {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(programPanic); ok {
				err = pe.err
				return
			}
			panic(r)
		}
	}()

	ctx := &Context{prog: p}
	p.main(ctx)

	for {
		pending := p.firstPendingSub()
		if pending == nil {
			break
		}
		pending.emitted = true
		if err := p.AddLabel(pending.label); err != nil {
			return err
		}
		pending.body(ctx)
		ctx.Op("ret")
	}

	for _, instr := range p.opcodes {
		bound := &boundInstruction{Instruction: instr, prog: p}
		bytes, err := emit.Bytes(p.cpu, instr.match, bound)
		if err != nil {
			return err
		}
		instr.encoded = bytes
	}

	p.assembled = true
	p.assembledBytes = p.renderBytes()
	return nil
}

func (p *Program) firstPendingSub() *sub {
	for _, s := range p.subs {
		if s.called && !s.emitted {
			return s
		}
	}
	return nil
}

func (p *Program) renderBytes() []byte {
	out := make([]byte, p.offset, p.position)
	for _, instr := range p.opcodes {
		out = append(out, instr.encoded...)
	}
	return out
}

// ToBinary assembles (if not already assembled) and returns the final byte
// image, including the relocation offset's leading zero bytes.
func (p *Program) ToBinary() ([]byte, error) {
	if err := p.Assemble(); err != nil {
		return nil, err
	}
	return p.assembledBytes, nil
}

// InstructionBytes assembles (if not already assembled) and returns the
// concatenated opcode bytes with no leading zero-pad, for writers such as
// Intel HEX that place the relocation offset in a record address instead
// of in the byte stream itself (spec.md §4.8).
func (p *Program) InstructionBytes() ([]byte, error) {
	if err := p.Assemble(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, p.position-p.offset)
	for _, instr := range p.opcodes {
		out = append(out, instr.encoded...)
	}
	return out, nil
}

// Offset reports the relocation base (spec.md §4.8 output formatting).
func (p *Program) Offset() int { return p.offset }

// Listing assembles (if not already assembled) and returns one line per
// instruction, in source order: its final address, encoded bytes, and
// mnemonic form -- the "textual representation" the CLI falls back to
// when given neither `-o` nor `-r` (spec.md §6).
func (p *Program) Listing() ([]string, error) {
	if err := p.Assemble(); err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(p.opcodes))
	for _, instr := range p.opcodes {
		lines = append(lines, fmt.Sprintf("%04X  % X  %s", instr.position, instr.encoded, instr.String()))
	}
	return lines, nil
}

// programPanic is how mnemonic/macro failures unwind out of main back to
// Assemble, mirroring the source project's exception-based control flow
// within the constraints of Go's free-function mnemonic calls.
type programPanic struct{ err error }

func fail(err error) {
	panic(programPanic{err: err})
}
