package dispatch

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

func TestDispatchRegisterForm(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := Dispatch(cpu, "add", []operand.Operand{operand.Register{Number: 3}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "add", m.Mnemonic)
	assert.Equal(t, []string{"register"}, m.Signature.Operands)
	assert.Empty(t, m.AlternativesTaken)
}

func TestDispatchDirectForm(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := Dispatch(cpu, "add", []operand.Operand{operand.Byte{Addr: 42}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"direct"}, m.Signature.Operands)
}

func TestDispatchAlternativeSubstitution(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := Dispatch(cpu, "pop", []operand.Operand{operand.Accumulator{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "accu", m.AlternativesTaken["direct"])
}

func TestDispatchNoMatchingSignature(t *testing.T) {
	cpu := loadMCS51(t)
	_, err := Dispatch(cpu, "add", []operand.Operand{operand.Carry{}}, nil)
	assert.Error(t, err)
}

func TestDispatchUnknownMnemonic(t *testing.T) {
	cpu := loadMCS51(t)
	_, err := Dispatch(cpu, "frobnicate", []operand.Operand{}, nil)
	assert.Error(t, err)
}

func TestDispatchRejectsMixedArgsAndKwargs(t *testing.T) {
	cpu := loadMCS51(t)
	_, err := Dispatch(
		cpu, "add",
		[]operand.Operand{operand.Register{Number: 1}},
		map[string]operand.Operand{"register": operand.Register{Number: 1}},
	)
	assert.Error(t, err)
}

func TestDispatchKwargs(t *testing.T) {
	cpu := loadMCS51(t)
	m, err := Dispatch(cpu, "andl", nil, map[string]operand.Operand{
		"direct": operand.Byte{Addr: 123},
		"accu":   operand.Accumulator{},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"direct", "accu"}, m.Signature.Operands)
}
