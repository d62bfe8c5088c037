// SPDX-License-Identifier: GPL-3.0-or-later

package fs

import (
	"fmt"
	"io"
	"time"
)

// uploadTimeout bounds how long Upload waits for the next byte from the
// sender before giving up (§4.9's 10-second inter-byte gap). A var, not a
// const, so tests can shrink it rather than actually waiting 10 seconds.
var uploadTimeout = 10 * time.Second

// UploadConn is the byte-oriented transport Upload speaks over — a serial
// line in the real system, or an in-memory pipe in tests. Kept local to
// this package
// (rather than importing the root package's seams) the same way
// machine_bus.go's Bus32 stays narrow and close to its point of use.
type UploadConn interface {
	io.ByteReader
	io.ByteWriter
}

type byteResult struct {
	b   byte
	err error
}

func readByteTimeout(r io.ByteReader, timeout time.Duration) (byte, error) {
	ch := make(chan byteResult, 1)
	go func() {
		b, err := r.ReadByte()
		ch <- byteResult{b, err}
	}()
	select {
	case res := <-ch:
		return res.b, res.err
	case <-time.After(timeout):
		return 0, ErrTimeout
	}
}

func writeString(w io.ByteWriter, s string) error {
	for i := 0; i < len(s); i++ {
		if err := w.WriteByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Upload streams size bytes from conn into a new file named name, sector
// by sector, acknowledging each received sector with '#' and ending with
// an "OK 0x<crc>" line carrying the CRC-16/CCITT of the received payload.
// The device computes and reports that CRC; it does not receive or check
// one from the sender. The file table
// entry is pre-allocated (Create) before the first byte is read so the
// reservation survives a partial receipt, but a 10-second inter-byte gap
// still deletes the entry outright and reports "ERR timeout" on the wire
// — the spec's documented behavior, not a recoverable short write.
func (f *FS) Upload(name string, size uint32, conn UploadConn) error {
	if err := f.requireMounted(); err != nil {
		return err
	}
	if err := f.Create(name, size); err != nil {
		return err
	}

	if err := writeString(conn, "READY\n"); err != nil {
		return err
	}

	ss := f.dev.SectorSize()
	i, _ := f.findEntry(name)
	entry := f.entries[i]

	crc := uint16(crc16Init)
	received := uint32(0)
	sector := entry.StartSector

	for received < size {
		chunkLen := ss
		if remaining := size - received; remaining < chunkLen {
			chunkLen = remaining
		}
		chunk := make([]byte, ss)
		for j := uint32(0); j < chunkLen; j++ {
			b, err := readByteTimeout(conn, uploadTimeout)
			if err != nil {
				_ = f.Delete(name)
				_ = writeString(conn, "ERR timeout\n")
				return fmt.Errorf("fs: upload of %q stalled after %d/%d bytes: %w", name, received+j, size, err)
			}
			chunk[j] = b
		}
		for j := chunkLen; j < ss; j++ {
			chunk[j] = 0xFF
		}
		crc = crc16Update(crc, chunk[:chunkLen])

		if err := f.dev.WriteAt(sector, chunk); err != nil {
			return err
		}
		sector++
		received += chunkLen

		if err := conn.WriteByte('#'); err != nil {
			return err
		}
	}

	entry.LengthBytes = size
	f.entries[i] = entry
	if err := f.syncMeta(); err != nil {
		return err
	}

	return writeString(conn, fmt.Sprintf("\nOK 0x%04x\n", crc))
}
