// SPDX-License-Identifier: GPL-3.0-or-later

// Package fs implements the flat filesystem over simulated flash: one
// superblock, a fixed 128-entry flat file table, and a contiguous data
// region tracked by a sector bitmap. The on-disk struct layout is packed
// with encoding/binary the way other_examples' go-ext4 superblock.go reads
// its own fixed-layout superblock — generalized here to this spec's much
// smaller, flat (no directories, no inodes-with-extents) layout.
package fs

import "encoding/binary"

const (
	// Magic identifies a formatted volume.
	Magic = 0x464B4653 // "FKFS"
	// Version is the on-disk format revision.
	Version = 1

	// MaxFiles is the fixed capacity of the flat file table.
	MaxFiles = 128

	// fileEntrySize is the packed size of one FileEntry record, in bytes:
	// Name(18) + StartSector(4) + LengthBytes(4) + Sectors(4) + Flags(1) +
	// pad(1).
	fileEntrySize = 32

	// superblockSize is the packed size of the Superblock record.
	superblockSize = 32

	entryFlagUsed = 1 << 0

	maxNameLen = 18
)

// Superblock is sector 0 of a formatted volume: superblock, file table,
// data — no on-disk bitmap sector. The free-space bitmap lives only in
// memory: Mount rebuilds it from the file table's entries, and Create,
// Write and Delete then update it as they reserve and release runs. It is
// not rebuilt from the table on each allocation.
type Superblock struct {
	Magic           uint32
	Version         uint16
	SectorSize      uint16
	TotalSectors    uint32
	FileTableSector uint32
	DataStartSector uint32
	FileCount       uint32
}

func (sb *Superblock) marshal() []byte {
	buf := make([]byte, superblockSize)
	binary.LittleEndian.PutUint32(buf[0:], sb.Magic)
	binary.LittleEndian.PutUint16(buf[4:], sb.Version)
	binary.LittleEndian.PutUint16(buf[6:], sb.SectorSize)
	binary.LittleEndian.PutUint32(buf[8:], sb.TotalSectors)
	binary.LittleEndian.PutUint32(buf[12:], sb.FileTableSector)
	binary.LittleEndian.PutUint32(buf[16:], sb.DataStartSector)
	binary.LittleEndian.PutUint32(buf[20:], sb.FileCount)
	return buf
}

func unmarshalSuperblock(buf []byte) Superblock {
	var sb Superblock
	sb.Magic = binary.LittleEndian.Uint32(buf[0:])
	sb.Version = binary.LittleEndian.Uint16(buf[4:])
	sb.SectorSize = binary.LittleEndian.Uint16(buf[6:])
	sb.TotalSectors = binary.LittleEndian.Uint32(buf[8:])
	sb.FileTableSector = binary.LittleEndian.Uint32(buf[12:])
	sb.DataStartSector = binary.LittleEndian.Uint32(buf[16:])
	sb.FileCount = binary.LittleEndian.Uint32(buf[20:])
	return sb
}

// FileEntry is one 32-byte slot of the flat file table. Sectors is the
// size of the data run currently reserved for the file — tracked
// explicitly rather than derived from LengthBytes, since Create may
// reserve more sectors than the file's initial (empty) length would
// imply.
type FileEntry struct {
	Name        string
	StartSector uint32
	LengthBytes uint32
	Sectors     uint32
	used        bool
}

func (e *FileEntry) marshal() []byte {
	buf := make([]byte, fileEntrySize)
	copy(buf[0:maxNameLen], e.Name)
	binary.LittleEndian.PutUint32(buf[18:], e.StartSector)
	binary.LittleEndian.PutUint32(buf[22:], e.LengthBytes)
	binary.LittleEndian.PutUint32(buf[26:], e.Sectors)
	if e.used {
		buf[30] = entryFlagUsed
	}
	return buf
}

func unmarshalFileEntry(buf []byte) FileEntry {
	var e FileEntry
	end := 0
	for end < maxNameLen && buf[end] != 0 {
		end++
	}
	e.Name = string(buf[0:end])
	e.StartSector = binary.LittleEndian.Uint32(buf[18:])
	e.LengthBytes = binary.LittleEndian.Uint32(buf[22:])
	e.Sectors = binary.LittleEndian.Uint32(buf[26:])
	e.used = buf[30]&entryFlagUsed != 0
	return e
}
