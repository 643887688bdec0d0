package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/operand"
)

func loadMCS51(t *testing.T) *cpuspec.CpuSpec {
	t.Helper()
	cpu, err := cpuspec.Load("MCS_51")
	require.NoError(t, err)
	return cpu
}

func toBinary(t *testing.T, cpu *cpuspec.CpuSpec, main MainFunc) []byte {
	t.Helper()
	p := New(cpu, main)
	b, err := p.ToBinary()
	require.NoError(t, err)
	return b
}

func TestLoopMacro(t *testing.T) {
	cpu := loadMCS51(t)

	b := toBinary(t, cpu, func(ctx *Context) {
		r7 := ctx.Reg("R7")
		n := operand.Immediate(5)
		ctx.With(Loop(r7, &n), func() {
			ctx.Op("add", r7)
		})
	})

	// mov R7,#5; <loop_head>: add R7; djnz R7,loop_head
	assert.Equal(t, []byte{0x7F, 0x05, 0x2F, 0xDF, 0xFD}, b)
}

func TestSequentialDirectOperations(t *testing.T) {
	cpu := loadMCS51(t)

	base := toBinary(t, cpu, func(ctx *Context) {
		ctx.Op("add", operand.Byte{Addr: 42})
	})
	derived := toBinary(t, cpu, func(ctx *Context) {
		ctx.Op("add", operand.Byte{Addr: 42})
		ctx.Op("add", operand.Byte{Addr: 43})
	})

	assert.Equal(t, []byte{0x25, 42}, base)
	assert.Equal(t, []byte{0x25, 42, 0x25, 43}, derived)
}

func TestSubEmitsOnceWhenCalled(t *testing.T) {
	cpu := loadMCS51(t)

	var foo *SubRef
	b := toBinary(t, cpu, func(ctx *Context) {
		foo = ctx.Sub("foo", func(ctx *Context) {
			ctx.Op("inc")
		})
		ctx.Op("nop")
		ctx.Call(foo)
		ctx.Op("nop")
	})

	// nop; lcall foo; nop; <foo>: inc; ret (ret is appended by the engine)
	assert.Equal(t, []byte{0x00, 0x12, 0x00, 0x05, 0x00, 0x04, 0x22}, b)
}

func TestUnusedSubDoesNotEmitBody(t *testing.T) {
	cpu := loadMCS51(t)

	b := toBinary(t, cpu, func(ctx *Context) {
		ctx.Sub("unused", func(ctx *Context) {
			ctx.Op("inc")
		})
	})

	assert.Empty(t, b)
}

func TestLabelUsedBeforeDeclared(t *testing.T) {
	cpu := loadMCS51(t)

	b := toBinary(t, cpu, func(ctx *Context) {
		ctx.Op("sjmp", operand.Label("there"))
		ctx.Label("there")
	})

	assert.Equal(t, []byte{0x80, 0x00}, b)
}

func TestDuplicateLabelIsAnError(t *testing.T) {
	cpu := loadMCS51(t)
	p := New(cpu, func(ctx *Context) {
		ctx.Label("again")
		ctx.Label("again")
	})

	err := p.Assemble()
	assert.Error(t, err)
}

func TestUndefinedLabelIsAnError(t *testing.T) {
	cpu := loadMCS51(t)
	p := New(cpu, func(ctx *Context) {
		ctx.Op("sjmp", operand.Label("nowhere"))
	})

	err := p.Assemble()
	assert.Error(t, err)
}

func TestProgramRelocation(t *testing.T) {
	cpu := loadMCS51(t)
	main := func(ctx *Context) {
		ctx.Op("inc")
	}

	relocated := New(cpu, main)
	require.NoError(t, relocated.Relocate(0x8000))
	got, err := relocated.ToBinary()
	require.NoError(t, err)

	plain, err := New(cpu, main).ToBinary()
	require.NoError(t, err)

	want := append(make([]byte, 0x8000), plain...)
	assert.Equal(t, want, got)
}

func TestRelocateAfterEmissionFails(t *testing.T) {
	cpu := loadMCS51(t)
	p := New(cpu, func(ctx *Context) { ctx.Op("nop") })
	require.NoError(t, p.Assemble())
	assert.Error(t, p.Relocate(0x100))
}

func TestAssembleIsIdempotent(t *testing.T) {
	cpu := loadMCS51(t)
	calls := 0
	p := New(cpu, func(ctx *Context) {
		calls++
		ctx.Op("nop")
	})

	require.NoError(t, p.Assemble())
	require.NoError(t, p.Assemble())
	assert.Equal(t, 1, calls)
}
