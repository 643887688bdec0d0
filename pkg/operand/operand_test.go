package operand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtRegister(t *testing.T) {
	r0 := Register{Number: 0, CanIndirect: true}
	v, err := At(r0)
	assert.NoError(t, err)
	assert.Equal(t, IndirectRegister{Number: 0}, v)
}

func TestAtRegisterCannotIndirect(t *testing.T) {
	r2 := Register{Number: 2, CanIndirect: false}
	_, err := At(r2)
	assert.Error(t, err)
	var cannot ErrCannotIndirect
	assert.ErrorAs(t, err, &cannot)
}

func TestAtDptr(t *testing.T) {
	v, err := At(DPTR{})
	assert.NoError(t, err)
	assert.Equal(t, IndirectDptr{}, v)
}

func TestAtRejectsNonRegister(t *testing.T) {
	_, err := At(Immediate(5))
	assert.Error(t, err)
	var notReg ErrNotARegister
	assert.ErrorAs(t, err, &notReg)
}

func TestPlusDptrAndPc(t *testing.T) {
	v, err := Plus(Accumulator{}, DPTR{})
	assert.NoError(t, err)
	assert.Equal(t, DptrOffset{}, v)

	v, err = Plus(Accumulator{}, PC{})
	assert.NoError(t, err)
	assert.Equal(t, PcOffset{}, v)
}

func TestPlusRejectsOther(t *testing.T) {
	_, err := Plus(Accumulator{}, Immediate(1))
	assert.Error(t, err)
}

func TestSFRBitAddressability(t *testing.T) {
	psw, err := NewSFR("PSW", 0xD0)
	assert.NoError(t, err)
	assert.True(t, psw.BitAddressable)

	cy, err := psw.Bit(7)
	assert.NoError(t, err)
	assert.Equal(t, Bit{Addr: 0xD7}, cy)

	sbuf, err := NewSFR("SBUF", 0x99)
	assert.NoError(t, err)
	assert.False(t, sbuf.BitAddressable)
	_, err = sbuf.Bit(0)
	assert.Error(t, err)
}

func TestNewSFRRejectsOutOfRangeAddress(t *testing.T) {
	_, err := NewSFR("BOGUS", 0x10)
	assert.Error(t, err)
}

func TestClassifyRelativeMatchesOffByOnePythonRange(t *testing.T) {
	assert.True(t, Classify("relative", Immediate(-128), true))
	assert.True(t, Classify("relative", Immediate(126), true))
	assert.False(t, Classify("relative", Immediate(127), true))
	assert.False(t, Classify("relative", Immediate(-128), false))
}

func TestClassifyDirectAcceptsSFR(t *testing.T) {
	sfr, err := NewSFR("ACC", 0xE0)
	assert.NoError(t, err)
	assert.True(t, Classify("direct", sfr, false))
	assert.True(t, Classify("direct", Byte{Addr: 42}, false))
}

func TestClassifyBitAcceptsNamedBit(t *testing.T) {
	nb := NamedBit{Bit: Bit{Addr: 0xD7}, Name: "CY"}
	assert.True(t, Classify("bit", nb, false))
	assert.True(t, Classify("bit", Bit{Addr: 10}, false))
}

func TestClassifyAddr11RequiresAlternative(t *testing.T) {
	assert.False(t, Classify("addr11", Immediate16(100), false))
	assert.True(t, Classify("addr11", Immediate16(100), true))
}
