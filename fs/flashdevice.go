// SPDX-License-Identifier: GPL-3.0-or-later

package fs

import "fmt"

// MemFlash is an in-memory FlashDevice: a flat byte slice sliced into
// fixed-size sectors, standing in for the simulated flash chip the way
// machine_bus.go's regions stand in for real memory-mapped hardware.
// EraseSector fills a sector with 0xFF, matching NOR flash's erased state.
type MemFlash struct {
	data       []byte
	sectorSize uint32
}

// NewMemFlash allocates a device of sectorCount sectors of sectorSize
// bytes each, erased (all 0xFF).
func NewMemFlash(sectorSize, sectorCount uint32) *MemFlash {
	d := &MemFlash{
		data:       make([]byte, sectorSize*sectorCount),
		sectorSize: sectorSize,
	}
	for i := range d.data {
		d.data[i] = 0xFF
	}
	return d
}

func (d *MemFlash) bounds(sector uint32, n int) (int, int, error) {
	if uint32(n) != d.sectorSize {
		return 0, 0, fmt.Errorf("fs: buffer length %d does not match sector size %d", n, d.sectorSize)
	}
	start := int(sector * d.sectorSize)
	end := start + n
	if end > len(d.data) {
		return 0, 0, fmt.Errorf("fs: sector %d out of range", sector)
	}
	return start, end, nil
}

// ReadAt copies one sector into buf, which must be exactly SectorSize long.
func (d *MemFlash) ReadAt(sector uint32, buf []byte) error {
	start, end, err := d.bounds(sector, len(buf))
	if err != nil {
		return err
	}
	copy(buf, d.data[start:end])
	return nil
}

// WriteAt overwrites one full sector with buf. Ferrokernel's filesystem
// layer always rewrites whole sectors rather than programming bits in
// place, so MemFlash models that as a plain overwrite rather than the
// erase-then-AND semantics real NOR flash enforces.
func (d *MemFlash) WriteAt(sector uint32, buf []byte) error {
	start, end, err := d.bounds(sector, len(buf))
	if err != nil {
		return err
	}
	copy(d.data[start:end], buf)
	return nil
}

// EraseSector resets one sector to the erased (all-ones) state.
func (d *MemFlash) EraseSector(sector uint32) error {
	start := int(sector * d.sectorSize)
	end := start + int(d.sectorSize)
	if end > len(d.data) {
		return fmt.Errorf("fs: sector %d out of range", sector)
	}
	for i := start; i < end; i++ {
		d.data[i] = 0xFF
	}
	return nil
}

// SectorSize returns the device's fixed sector size in bytes.
func (d *MemFlash) SectorSize() uint32 { return d.sectorSize }

// SectorCount returns the total number of sectors on the device.
func (d *MemFlash) SectorCount() uint32 { return uint32(len(d.data)) / d.sectorSize }
