// Package ihex implements the output formatter (C8): rendering an
// assembled byte image as either raw binary or Intel HEX text (spec.md
// §4.8). Intel HEX is the common interchange format 8051 programmers and
// flash tools expect, so it sits alongside the raw-binary path rather than
// replacing it.
package ihex

import (
	"bufio"
	"fmt"
	"io"
)

const (
	recordData = 0x00
	recordEOF  = 0x01
	maxRecordLen = 16
)

// WriteBinary writes data to w unmodified -- the `--format binary` path.
func WriteBinary(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// WriteIntelHex renders data as Intel HEX data records based at address,
// followed by the end-of-file record (spec.md §4.8: "one data record at
// address `offset`..." -- ":LLAAAATT[DD...]CC"). Records are split into
// maxRecordLen-byte chunks, matching the convention every common 8051
// toolchain (SDCC included) emits; address is the relocation base, not a
// byte offset into data, so a relocated program's record addresses start
// at its true load address instead of at 0.
func WriteIntelHex(w io.Writer, address int, data []byte) error {
	bw := bufio.NewWriter(w)

	for offset := 0; offset < len(data); offset += maxRecordLen {
		end := offset + maxRecordLen
		if end > len(data) {
			end = len(data)
		}
		if err := writeRecord(bw, uint16(address+offset), recordData, data[offset:end]); err != nil {
			return err
		}
	}

	if err := writeRecord(bw, 0, recordEOF, nil); err != nil {
		return err
	}

	return bw.Flush()
}

func writeRecord(w *bufio.Writer, address uint16, recordType byte, payload []byte) error {
	checksum := byte(len(payload)) + byte(address>>8) + byte(address) + recordType
	for _, b := range payload {
		checksum += b
	}
	checksum = byte(-int8(checksum))

	if _, err := fmt.Fprintf(w, ":%02X%04X%02X", len(payload), address, recordType); err != nil {
		return err
	}
	for _, b := range payload {
		if _, err := fmt.Fprintf(w, "%02X", b); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%02X\n", checksum)
	return err
}
