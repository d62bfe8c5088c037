// SPDX-License-Identifier: GPL-3.0-or-later

package fs

import (
	"errors"
	"fmt"
)

// Sentinel errors forming this package's boundary, matching the kernel
// package's own errors.go convention (sentinel vars, errors.Is, %w
// wrapping) rather than a bespoke error-code type.
var (
	ErrNotMounted  = errors.New("fs: not mounted")
	ErrNoSpace     = errors.New("fs: no space available")
	ErrExists      = errors.New("fs: name already exists")
	ErrNotFound    = errors.New("fs: file not found")
	ErrNameTooLong = errors.New("fs: name too long")
	ErrBadMagic    = errors.New("fs: bad superblock magic")
	ErrTimeout     = errors.New("fs: upload timed out")
)

// DefaultSectorSize is the sector size new volumes are formatted with.
const DefaultSectorSize = 512

// FlashDevice is the simulated-flash seam (§4.9/§4.10): sector-addressed,
// word-aligned reads and writes plus a separate erase step, the same
// three-operation shape real NOR/NAND flash exposes and the teacher's
// MachineBus exposes for its own addressable regions (machine_bus.go).
type FlashDevice interface {
	ReadAt(sector uint32, buf []byte) error
	WriteAt(sector uint32, buf []byte) error
	EraseSector(sector uint32) error
	SectorSize() uint32
	SectorCount() uint32
}

// FS is the flat filesystem: superblock + 128-entry file table +
// contiguous data sectors, all living on a caller-supplied FlashDevice.
// The free-space bitmap is never written to the device — it is rebuilt in
// memory from the file table's entries on every Format and Mount.
type FS struct {
	dev     FlashDevice
	mounted bool

	sb      Superblock
	entries [MaxFiles]FileEntry
	bitmap  *sectorBitmap

	fileTableSectors uint32
}

// New wraps dev, unmounted. Call Format (first use) or Mount (existing
// volume) before any other operation.
func New(dev FlashDevice) *FS {
	return &FS{dev: dev}
}

// Format writes a fresh superblock and empty file table to dev, builds an
// empty in-memory free-space bitmap, then mounts it. Destroys any existing
// content.
func (f *FS) Format() error {
	ss := f.dev.SectorSize()
	total := f.dev.SectorCount()

	tableBytes := uint32(MaxFiles * fileEntrySize)
	fileTableSectors := (tableBytes + ss - 1) / ss
	if fileTableSectors < 1 {
		fileTableSectors = 1
	}

	dataStart := 1 + fileTableSectors
	if dataStart >= total {
		return fmt.Errorf("fs: volume too small to format: %w", ErrNoSpace)
	}

	f.sb = Superblock{
		Magic:           Magic,
		Version:         Version,
		SectorSize:      uint16(ss),
		TotalSectors:    total,
		FileTableSector: 1,
		DataStartSector: dataStart,
		FileCount:       0,
	}
	f.fileTableSectors = fileTableSectors
	f.entries = [MaxFiles]FileEntry{}
	f.bitmap = newSectorBitmap(total - dataStart)

	if err := f.writeSuperblock(); err != nil {
		return err
	}
	if err := f.writeFileTable(); err != nil {
		return err
	}
	f.mounted = true
	return nil
}

// Mount reads an existing volume's superblock and file table, then rebuilds
// the free-space bitmap from the table's entries (§4.9 builds the bitmap on
// the fly rather than persisting one). Fails with ErrBadMagic if dev was
// never formatted by this package.
func (f *FS) Mount() error {
	ss := f.dev.SectorSize()
	buf := make([]byte, ss)
	if err := f.dev.ReadAt(0, buf); err != nil {
		return err
	}
	sb := unmarshalSuperblock(buf)
	if sb.Magic != Magic {
		return ErrBadMagic
	}
	f.sb = sb
	f.fileTableSectors = sb.DataStartSector - sb.FileTableSector

	if err := f.readFileTable(); err != nil {
		return err
	}
	f.rebuildBitmap()
	f.mounted = true
	return nil
}

// rebuildBitmap reconstructs the in-memory free-space bitmap from the
// current file table, marking each used entry's reserved run as occupied.
func (f *FS) rebuildBitmap() {
	dataSectors := f.sb.TotalSectors - f.sb.DataStartSector
	f.bitmap = newSectorBitmap(dataSectors)
	for _, e := range f.entries {
		if e.used {
			f.bitmap.markRun(e.StartSector-f.sb.DataStartSector, e.Sectors, true)
		}
	}
}

func (f *FS) writeSuperblock() error {
	buf := make([]byte, f.dev.SectorSize())
	copy(buf, f.sb.marshal())
	return f.dev.WriteAt(0, buf)
}

func (f *FS) writeFileTable() error {
	ss := f.dev.SectorSize()
	buf := make([]byte, f.fileTableSectors*ss)
	for i, e := range f.entries {
		copy(buf[i*fileEntrySize:], e.marshal())
	}
	return f.writeSectors(f.sb.FileTableSector, buf)
}

func (f *FS) readFileTable() error {
	ss := f.dev.SectorSize()
	buf := make([]byte, f.fileTableSectors*ss)
	if err := f.readSectors(f.sb.FileTableSector, buf); err != nil {
		return err
	}
	for i := range f.entries {
		f.entries[i] = unmarshalFileEntry(buf[i*fileEntrySize:])
	}
	return nil
}

func (f *FS) readSectors(start uint32, buf []byte) error {
	ss := f.dev.SectorSize()
	n := uint32(len(buf)) / ss
	for i := uint32(0); i < n; i++ {
		if err := f.dev.ReadAt(start+i, buf[i*ss:(i+1)*ss]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FS) writeSectors(start uint32, buf []byte) error {
	ss := f.dev.SectorSize()
	n := uint32(len(buf)) / ss
	for i := uint32(0); i < n; i++ {
		if err := f.dev.WriteAt(start+i, buf[i*ss:(i+1)*ss]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FS) requireMounted() error {
	if !f.mounted {
		return ErrNotMounted
	}
	return nil
}

func (f *FS) findEntry(name string) (int, bool) {
	for i, e := range f.entries {
		if e.used && e.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (f *FS) freeSlot() (int, bool) {
	for i, e := range f.entries {
		if !e.used {
			return i, true
		}
	}
	return -1, false
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// Stat reports the entry for name.
func (f *FS) Stat(name string) (FileEntry, error) {
	if err := f.requireMounted(); err != nil {
		return FileEntry{}, err
	}
	i, ok := f.findEntry(name)
	if !ok {
		return FileEntry{}, ErrNotFound
	}
	return f.entries[i], nil
}

// List returns the names of every non-free file table entry, in
// table-slot order. Used by the optional interpreter collaborator's
// fk.list() binding.
func (f *FS) List() []string {
	if !f.mounted {
		return nil
	}
	var names []string
	for _, e := range f.entries {
		if e.used {
			names = append(names, e.Name)
		}
	}
	return names
}

// Create allocates a new, empty file named name, sized to hold at least
// capacityBytes without reallocation.
func (f *FS) Create(name string, capacityBytes uint32) error {
	if err := f.requireMounted(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if _, ok := f.findEntry(name); ok {
		return ErrExists
	}
	slot, ok := f.freeSlot()
	if !ok {
		return fmt.Errorf("fs: file table full: %w", ErrNoSpace)
	}

	ss := f.dev.SectorSize()
	need := (capacityBytes + ss - 1) / ss
	if need == 0 {
		need = 1
	}
	start, ok := f.bitmap.findFirstFit(need)
	if !ok {
		return ErrNoSpace
	}
	f.bitmap.markRun(start, need, true)

	f.entries[slot] = FileEntry{Name: name, StartSector: f.sb.DataStartSector + start, LengthBytes: 0, Sectors: need, used: true}
	f.sb.FileCount++
	return f.syncMeta()
}

// Write overwrites name's entire contents with data, reallocating its
// data run if the existing one is too small.
func (f *FS) Write(name string, data []byte) error {
	if err := f.requireMounted(); err != nil {
		return err
	}
	i, ok := f.findEntry(name)
	if !ok {
		return ErrNotFound
	}
	e := f.entries[i]
	ss := f.dev.SectorSize()
	have := e.Sectors
	need := (uint32(len(data)) + ss - 1) / ss
	if need == 0 {
		need = 1
	}

	if need > have {
		oldStart := e.StartSector - f.sb.DataStartSector
		f.bitmap.markRun(oldStart, have, false)
		start, ok := f.bitmap.findFirstFit(need)
		if !ok {
			f.bitmap.markRun(oldStart, have, true)
			return ErrNoSpace
		}
		f.bitmap.markRun(start, need, true)
		e.StartSector = f.sb.DataStartSector + start
		e.Sectors = need
	}
	e.LengthBytes = uint32(len(data))
	f.entries[i] = e

	buf := make([]byte, need*ss)
	copy(buf, data)
	if err := f.writeSectors(e.StartSector, buf); err != nil {
		return err
	}
	return f.syncMeta()
}

// Append adds data to the end of name's existing contents, growing its
// data run in place when the current one has room, or relocating
// otherwise.
func (f *FS) Append(name string, data []byte) error {
	if err := f.requireMounted(); err != nil {
		return err
	}
	if _, ok := f.findEntry(name); !ok {
		return ErrNotFound
	}
	existing, err := f.Read(name)
	if err != nil {
		return err
	}
	return f.Write(name, append(existing, data...))
}

// Read returns a copy of name's current contents.
func (f *FS) Read(name string) ([]byte, error) {
	if err := f.requireMounted(); err != nil {
		return nil, err
	}
	i, ok := f.findEntry(name)
	if !ok {
		return nil, ErrNotFound
	}
	e := f.entries[i]
	ss := f.dev.SectorSize()
	buf := make([]byte, e.Sectors*ss)
	if err := f.readSectors(e.StartSector, buf); err != nil {
		return nil, err
	}
	return buf[:e.LengthBytes], nil
}

// Delete removes name and returns its data sectors to the free pool.
func (f *FS) Delete(name string) error {
	if err := f.requireMounted(); err != nil {
		return err
	}
	i, ok := f.findEntry(name)
	if !ok {
		return ErrNotFound
	}
	e := f.entries[i]
	f.bitmap.markRun(e.StartSector-f.sb.DataStartSector, e.Sectors, false)
	f.entries[i] = FileEntry{}
	f.sb.FileCount--
	return f.syncMeta()
}

// Rename changes an existing file's name in place, failing with ErrExists
// if newName is already taken.
func (f *FS) Rename(oldName, newName string) error {
	if err := f.requireMounted(); err != nil {
		return err
	}
	if err := validateName(newName); err != nil {
		return err
	}
	i, ok := f.findEntry(oldName)
	if !ok {
		return ErrNotFound
	}
	if _, exists := f.findEntry(newName); exists {
		return ErrExists
	}
	f.entries[i].Name = newName
	return f.syncMeta()
}

// syncMeta persists the superblock and file table after a metadata
// mutation. Data sectors are written by their own caller beforehand; the
// free-space bitmap is never persisted (it's derived from the file table).
func (f *FS) syncMeta() error {
	if err := f.writeFileTable(); err != nil {
		return err
	}
	return f.writeSuperblock()
}

// FreeBytes reports the filesystem's free space in bytes.
func (f *FS) FreeBytes() uint32 {
	if !f.mounted {
		return 0
	}
	return f.bitmap.freeCount() * f.dev.SectorSize()
}
