// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/voltarc/ferrokernel/fs"
)

// fileFlash is a file-backed fs.FlashDevice: the same sector-addressed
// read/write/erase shape as fs.MemFlash, but persisted to disk so a
// simulator run can be resumed against the same volume later. Grounded on
// MemFlash's own layout (a flat byte extent sliced into fixed-size
// sectors); the only difference is the backing store.
type fileFlash struct {
	f          *os.File
	sectorSize uint32
	sectors    uint32
}

func newFileFlash(path string, sectorSize, sectorCount uint32) (fs.FlashDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ferrosim: open flash image %q: %w", path, err)
	}
	size := int64(sectorSize) * int64(sectorCount)
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			return nil, err
		}
		erased := make([]byte, sectorSize)
		for i := range erased {
			erased[i] = 0xFF
		}
		for s := uint32(0); s < sectorCount; s++ {
			if _, err := f.WriteAt(erased, int64(s)*int64(sectorSize)); err != nil {
				return nil, err
			}
		}
	}
	return &fileFlash{f: f, sectorSize: sectorSize, sectors: sectorCount}, nil
}

func (d *fileFlash) bounds(sector uint32, n int) (int64, error) {
	if uint32(n) != d.sectorSize {
		return 0, fmt.Errorf("ferrosim: buffer length %d does not match sector size %d", n, d.sectorSize)
	}
	if sector >= d.sectors {
		return 0, fmt.Errorf("ferrosim: sector %d out of range", sector)
	}
	return int64(sector) * int64(d.sectorSize), nil
}

func (d *fileFlash) ReadAt(sector uint32, buf []byte) error {
	off, err := d.bounds(sector, len(buf))
	if err != nil {
		return err
	}
	_, err = d.f.ReadAt(buf, off)
	return err
}

func (d *fileFlash) WriteAt(sector uint32, buf []byte) error {
	off, err := d.bounds(sector, len(buf))
	if err != nil {
		return err
	}
	_, err = d.f.WriteAt(buf, off)
	return err
}

func (d *fileFlash) EraseSector(sector uint32) error {
	erased := make([]byte, d.sectorSize)
	for i := range erased {
		erased[i] = 0xFF
	}
	return d.WriteAt(sector, erased)
}

func (d *fileFlash) SectorSize() uint32  { return d.sectorSize }
func (d *fileFlash) SectorCount() uint32 { return d.sectors }
