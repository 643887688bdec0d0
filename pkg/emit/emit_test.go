package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narpfel/yay-go/pkg/cpuspec"
	"github.com/narpfel/yay-go/pkg/dispatch"
	"github.com/narpfel/yay-go/pkg/operand"
)

type fakeCtx struct {
	position int
	size     int
	labels   map[string]int
	mnemonic string
}

func (c fakeCtx) Position() int     { return c.position }
func (c fakeCtx) Size() int         { return c.size }
func (c fakeCtx) MnemonicName() string { return c.mnemonic }
func (c fakeCtx) LookupLabel(name string) (int, bool) {
	addr, ok := c.labels[name]
	return addr, ok
}

func loadMCS51(t *testing.T) *cpuspec.CpuSpec {
	t.Helper()
	cpu, err := cpuspec.Load("MCS_51")
	require.NoError(t, err)
	return cpu
}

func TestBytesRegisterForm(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := dispatch.Dispatch(cpu, "add", []operand.Operand{operand.Register{Number: 3}}, nil)
	require.NoError(t, err)

	bytes, err := Bytes(cpu, m, fakeCtx{mnemonic: "add", size: 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2B}, bytes)
}

func TestBytesDirectForm(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := dispatch.Dispatch(cpu, "add", []operand.Operand{operand.Byte{Addr: 42}}, nil)
	require.NoError(t, err)

	bytes, err := Bytes(cpu, m, fakeCtx{mnemonic: "add", size: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x25, 42}, bytes)
}

func TestBytesImmediateTwosComplement(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := dispatch.Dispatch(cpu, "addc", []operand.Operand{operand.Immediate(-127)}, nil)
	require.NoError(t, err)

	bytes, err := Bytes(cpu, m, fakeCtx{mnemonic: "addc", size: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 129}, bytes)
}

func TestBytesAlternativeConversionDirectFromAccu(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := dispatch.Dispatch(cpu, "pop", []operand.Operand{operand.Accumulator{}}, nil)
	require.NoError(t, err)

	bytes, err := Bytes(cpu, m, fakeCtx{mnemonic: "pop", size: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD0, 0xE0}, bytes)
}

func TestBytesRelativeFromLabel(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := dispatch.Dispatch(cpu, "sjmp", []operand.Operand{operand.Label("loop")}, nil)
	require.NoError(t, err)

	bytes, err := Bytes(cpu, m, fakeCtx{mnemonic: "sjmp", position: 0, size: 2, labels: map[string]int{"loop": 0}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0xFE}, bytes)
}

func TestBytesAcall(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := dispatch.Dispatch(cpu, "acall", []operand.Operand{operand.Immediate16(0x123)}, nil)
	require.NoError(t, err)

	bytes, err := Bytes(cpu, m, fakeCtx{mnemonic: "acall", position: 0, size: 2})
	require.NoError(t, err)
	// a10 a9 a8 = 0b001, low byte = 0x23
	assert.Equal(t, []byte{0x31, 0x23}, bytes)
}
