package ihex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBinaryIsPassthrough(t *testing.T) {
	var buf bytes.Buffer
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	require.NoError(t, WriteBinary(&buf, data))
	assert.Equal(t, data, buf.Bytes())
}

func TestWriteIntelHexSingleRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIntelHex(&buf, 0, []byte{0x00, 0x01, 0x02, 0x03}))
	assert.Equal(t, ":0400000000010203F6\n:00000001FF\n", buf.String())
}

func TestWriteIntelHexSplitsIntoSixteenByteRecords(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteIntelHex(&buf, 0, data))

	want := ":10000000000102030405060708090A0B0C0D0E0F78\n" +
		":020010001011CD\n" +
		":00000001FF\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteIntelHexEmptyDataIsJustEOF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIntelHex(&buf, 0, nil))
	assert.Equal(t, ":00000001FF\n", buf.String())
}

func TestWriteIntelHexHonorsNonZeroBaseAddress(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIntelHex(&buf, 0x8000, []byte{0x04}))
	assert.Equal(t, ":01800000047B\n:00000001FF\n", buf.String())
}
