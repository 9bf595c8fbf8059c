// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pagetree

import (
	"bytes"
	"encoding/binary"
)

// HashingMap is an open-addressed cache overlaid on the data region of a
// page whose sixteen buckets are all populated. It absorbs writes of
// cache-eligible keys that would otherwise recurse into a child page.
//
// The region is divided into fixed-size cells probed linearly. Each cell is
//
//	[hash u32][keyLen u16][dataLen u16][encoded key][value]
//
// with a hash of zero marking an empty cell; a computed hash of zero is
// nudged to one so the marker stays unambiguous. Keys are encoded as the
// type byte, the packed path and the additional key.
type HashingMap struct {
	data []byte
}

const (
	hashCellSize   = 128
	hashCellHeader = 8

	// maxCachedItemSize bounds keyLen + dataLen within one cell.
	maxCachedItemSize = hashCellSize - hashCellHeader
)

// NewHashingMap interprets the given byte region as a cache. A zeroed
// region is a valid empty cache.
func NewHashingMap(data []byte) HashingMap {
	return HashingMap{data: data}
}

func (h HashingMap) numCells() int {
	return len(h.data) / hashCellSize
}

func (h HashingMap) cell(i int) []byte {
	return h.data[i*hashCellSize : (i+1)*hashCellSize]
}

func normalizeHash(hash uint32) uint32 {
	if hash == 0 {
		return 1
	}
	return hash
}

func encodeCacheKey(key TreeKey, dst []byte) []byte {
	dst = append(dst, byte(key.Type))
	dst = key.Path.Pack(dst)
	dst = append(dst, key.AdditionalKey...)
	return dst
}

// TrySet stores the value under the key. Returns false when no free or
// matching cell is left, or when the encoded key and the value together do
// not fit into one cell.
func (h HashingMap) TrySet(hash uint32, key TreeKey, value []byte) bool {
	hash = normalizeHash(hash)
	var buf [80]byte
	encodedKey := encodeCacheKey(key, buf[:0])
	if len(encodedKey)+len(value) > maxCachedItemSize {
		return false
	}

	cells := h.numCells()
	start := int(hash) % cells
	for probe := 0; probe < cells; probe++ {
		cell := h.cell((start + probe) % cells)
		stored := binary.LittleEndian.Uint32(cell[0:4])
		if stored == 0 {
			h.writeCell(cell, hash, encodedKey, value)
			return true
		}
		if stored == hash && h.cellKeyEquals(cell, encodedKey) {
			h.writeCell(cell, hash, encodedKey, value)
			return true
		}
	}
	return false
}

// TryGet returns the value stored under the key, or false when absent. The
// returned slice points into the page.
func (h HashingMap) TryGet(hash uint32, key TreeKey) ([]byte, bool) {
	hash = normalizeHash(hash)
	var buf [80]byte
	encodedKey := encodeCacheKey(key, buf[:0])

	cells := h.numCells()
	start := int(hash) % cells
	for probe := 0; probe < cells; probe++ {
		cell := h.cell((start + probe) % cells)
		stored := binary.LittleEndian.Uint32(cell[0:4])
		if stored == 0 {
			return nil, false
		}
		if stored == hash && h.cellKeyEquals(cell, encodedKey) {
			keyLen := int(binary.LittleEndian.Uint16(cell[4:6]))
			dataLen := int(binary.LittleEndian.Uint16(cell[6:8]))
			return cell[hashCellHeader+keyLen : hashCellHeader+keyLen+dataLen], true
		}
	}
	return nil, false
}

func (h HashingMap) writeCell(cell []byte, hash uint32, encodedKey, value []byte) {
	binary.LittleEndian.PutUint32(cell[0:4], hash)
	binary.LittleEndian.PutUint16(cell[4:6], uint16(len(encodedKey)))
	binary.LittleEndian.PutUint16(cell[6:8], uint16(len(value)))
	copy(cell[hashCellHeader:], encodedKey)
	copy(cell[hashCellHeader+len(encodedKey):], value)
}

func (h HashingMap) cellKeyEquals(cell []byte, encodedKey []byte) bool {
	keyLen := int(binary.LittleEndian.Uint16(cell[4:6]))
	return keyLen == len(encodedKey) && bytes.Equal(cell[hashCellHeader:hashCellHeader+keyLen], encodedKey)
}

// Count returns the number of stored entries.
func (h HashingMap) Count() int {
	count := 0
	cells := h.numCells()
	for i := 0; i < cells; i++ {
		if binary.LittleEndian.Uint32(h.cell(i)[0:4]) != 0 {
			count++
		}
	}
	return count
}

// Clear removes all entries.
func (h HashingMap) Clear() {
	for i := range h.data {
		h.data[i] = 0
	}
}

// CacheEntry is one entry yielded by a CacheIterator. Key and RawData point
// into the backing page, callers must copy them before clearing the cache.
type CacheEntry struct {
	Hash    uint32
	Key     TreeKey
	RawData []byte
}

// Enumerate returns an iterator yielding every stored entry exactly once.
func (h HashingMap) Enumerate() *CacheIterator {
	return &CacheIterator{h: h, next: 0}
}

// CacheIterator yields the entries of a HashingMap in cell order.
type CacheIterator struct {
	h    HashingMap
	next int
}

// HasNext returns true if there is still at least one more entry.
func (it *CacheIterator) HasNext() bool {
	cells := it.h.numCells()
	for ; it.next < cells; it.next++ {
		if binary.LittleEndian.Uint32(it.h.cell(it.next)[0:4]) != 0 {
			return true
		}
	}
	return false
}

// Next returns the next entry. HasNext must have returned true.
func (it *CacheIterator) Next() CacheEntry {
	if !it.HasNext() {
		panic("iterator exhausted")
	}
	cell := it.h.cell(it.next)
	it.next++

	hash := binary.LittleEndian.Uint32(cell[0:4])
	keyLen := int(binary.LittleEndian.Uint16(cell[4:6]))
	dataLen := int(binary.LittleEndian.Uint16(cell[6:8]))

	encoded := cell[hashCellHeader : hashCellHeader+keyLen]
	dataType := DataType(encoded[0])
	path, rest := UnpackNibblePath(encoded[1:])

	key := TreeKey{Path: path, Type: dataType}
	if dataType.hasAdditionalKey() {
		key.AdditionalKey = rest[:32]
	}
	return CacheEntry{
		Hash:    hash,
		Key:     key,
		RawData: cell[hashCellHeader+keyLen : hashCellHeader+keyLen+dataLen],
	}
}
