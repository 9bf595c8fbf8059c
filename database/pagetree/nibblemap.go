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
	"fmt"
)

// NibbleBasedMap is an in-page key-value map over a fixed byte region. An
// append-only directory of 4-byte slots grows from the low end of the region
// while a heap of variable-length items grows downward from the high end.
// Each item is the packed residual key path, followed by the 32-byte
// additional key for storage-cell typed entries, followed by the value.
// Item boundaries are inferred from adjacent slot addresses, the first
// slot's upper bound being the region length.
//
// An 8-byte header precedes the slots:
//
//	Low     - number of slot bytes written
//	High    - number of heap bytes consumed
//	Deleted - number of tombstoned slots
//
// Deletes tombstone slots in place; tombstones at the tail of the directory
// are collected eagerly, mid-directory tombstones are reclaimed by
// Defragment when an insert runs out of space.
type NibbleBasedMap struct {
	data []byte
}

const (
	mapHeaderSize = 8

	// minDataRegionSize guarantees room for the header, at least one slot
	// and some heap.
	minDataRegionSize = 3 * 8

	// AllNibbles makes EnumerateNibble yield every live slot regardless of
	// its first path nibble.
	AllNibbles Nibble = 0xFF
)

// NewNibbleBasedMap interprets the given byte region as a map. A zeroed
// region is a valid empty map.
func NewNibbleBasedMap(data []byte) NibbleBasedMap {
	if len(data) < minDataRegionSize {
		panic(fmt.Sprintf("data region too small for a map: %d < %d", len(data), minDataRegionSize))
	}
	return NibbleBasedMap{data: data}
}

// Low returns the number of slot bytes written.
func (m NibbleBasedMap) Low() int {
	return int(binary.LittleEndian.Uint16(m.data[0:2]))
}

// High returns the number of heap bytes consumed.
func (m NibbleBasedMap) High() int {
	return int(binary.LittleEndian.Uint16(m.data[2:4]))
}

// Deleted returns the number of tombstoned slots.
func (m NibbleBasedMap) Deleted() int {
	return int(binary.LittleEndian.Uint16(m.data[4:6]))
}

// Count returns the number of directory slots in use, including tombstones
// that have not been collected yet.
func (m NibbleBasedMap) Count() int {
	return m.numSlots()
}

// NumLive returns the number of live entries.
func (m NibbleBasedMap) NumLive() int {
	return m.numSlots() - m.Deleted()
}

func (m NibbleBasedMap) setLow(v int) {
	binary.LittleEndian.PutUint16(m.data[0:2], uint16(v))
}

func (m NibbleBasedMap) setHigh(v int) {
	binary.LittleEndian.PutUint16(m.data[2:4], uint16(v))
}

func (m NibbleBasedMap) setDeleted(v int) {
	binary.LittleEndian.PutUint16(m.data[4:6], uint16(v))
}

func (m NibbleBasedMap) numSlots() int {
	return m.Low() / slotSize
}

func (m NibbleBasedMap) slotRaw(i int) uint16 {
	offset := mapHeaderSize + i*slotSize
	return binary.LittleEndian.Uint16(m.data[offset : offset+2])
}

func (m NibbleBasedMap) slotPrefix(i int) uint16 {
	offset := mapHeaderSize + i*slotSize + 2
	return binary.LittleEndian.Uint16(m.data[offset : offset+2])
}

func (m NibbleBasedMap) setSlotRaw(i int, raw uint16) {
	offset := mapHeaderSize + i*slotSize
	binary.LittleEndian.PutUint16(m.data[offset:offset+2], raw)
}

func (m NibbleBasedMap) setSlotPrefix(i int, prefix uint16) {
	offset := mapHeaderSize + i*slotSize + 2
	binary.LittleEndian.PutUint16(m.data[offset:offset+2], prefix)
}

// itemBounds returns the heap range of the item of slot i. The upper bound
// is the previous slot's item address, or the region length for slot 0.
func (m NibbleBasedMap) itemBounds(i int) (start, end int) {
	start = int(slotItemAddress(m.slotRaw(i)))
	if i == 0 {
		end = len(m.data)
	} else {
		end = int(slotItemAddress(m.slotRaw(i - 1)))
	}
	return
}

// item returns the payload bytes of slot i.
func (m NibbleBasedMap) item(i int) []byte {
	start, end := m.itemBounds(i)
	return m.data[start:end]
}

// fits reports whether an item of the given total size plus one slot still
// fits next to the current content.
func (m NibbleBasedMap) fits(total int) bool {
	return mapHeaderSize+m.Low()+slotSize+m.High()+total <= len(m.data)
}

// TrySet stores the value under the key. An existing entry is overwritten in
// place when the value length matches, otherwise it is tombstoned and the
// new value appended. Returns false when the region cannot fit the entry
// even after defragmentation.
func (m NibbleBasedMap) TrySet(key TreeKey, value []byte) bool {
	if index, existing, found := m.tryGetImpl(key); found {
		if len(existing) == len(value) {
			copy(existing, value)
			return true
		}
		m.tombstone(index)
	}

	prefix, residual := ExtractPrefix(key.Path)
	total := residual.PackedSize() + len(key.AdditionalKey) + len(value)
	if !m.fits(total) {
		if m.Deleted() == 0 {
			return false
		}
		m.Defragment()
		if !m.fits(total) {
			return false
		}
	}

	index := m.numSlots()
	address := len(m.data) - m.High() - total
	m.setSlotRaw(index, makeSlotRaw(uint16(address), key.Type))
	m.setSlotPrefix(index, prefix)

	payload := m.data[address:address]
	payload = residual.Pack(payload)
	payload = append(payload, key.AdditionalKey...)
	payload = append(payload, value...)

	m.setLow(m.Low() + slotSize)
	m.setHigh(m.High() + total)
	return true
}

// TryGet returns the value stored under the key. The returned slice points
// into the page and stays valid only until the next mutation of the map.
func (m NibbleBasedMap) TryGet(key TreeKey) ([]byte, bool) {
	_, value, found := m.tryGetImpl(key)
	return value, found
}

// tryGetImpl scans the slot directory for the key. The directory is scanned
// slot by slot, comparing each slot's prefix word with the target prefix;
// the scan is a plain loop, not a vectorized search over the 16-bit words.
// Candidates are then verified against the stored type, residual path and
// additional key.
func (m NibbleBasedMap) tryGetImpl(key TreeKey) (index int, value []byte, found bool) {
	targetPrefix, residual := ExtractPrefix(key.Path)
	var buf [33]byte
	packed := residual.Pack(buf[:0])

	count := m.numSlots()
	for i := 0; i < count; i++ {
		if m.slotPrefix(i) != targetPrefix {
			continue
		}
		raw := m.slotRaw(i)
		if slotDataType(raw) != key.Type {
			continue
		}
		payload := m.item(i)
		if len(payload) < len(packed) || !bytes.Equal(payload[:len(packed)], packed) {
			continue
		}
		rest := payload[len(packed):]
		if key.Type.hasAdditionalKey() {
			if len(rest) < len(key.AdditionalKey) || !bytes.Equal(rest[:len(key.AdditionalKey)], key.AdditionalKey) {
				continue
			}
			rest = rest[len(key.AdditionalKey):]
		}
		return i, rest, true
	}
	return 0, nil, false
}

// Delete tombstones the entry of the key and eagerly collects tombstones at
// the directory tail. Returns whether an entry was removed.
func (m NibbleBasedMap) Delete(key TreeKey) bool {
	index, _, found := m.tryGetImpl(key)
	if !found {
		return false
	}
	m.tombstone(index)
	m.collectTombstones()
	return true
}

// tombstone marks the slot deleted, keeping its item address so that heap
// bounds of neighboring slots stay computable.
func (m NibbleBasedMap) tombstone(index int) {
	m.setSlotRaw(index, setSlotDataType(m.slotRaw(index), DataTypeDeleted))
	m.setDeleted(m.Deleted() + 1)
}

// collectTombstones walks the directory from the tail backwards, releasing
// slots and their heap bytes while the tail slot is a tombstone. This keeps
// the hot tail compact without paying for mid-directory deletes.
func (m NibbleBasedMap) collectTombstones() {
	for {
		count := m.numSlots()
		if count == 0 {
			return
		}
		last := count - 1
		if slotDataType(m.slotRaw(last)) != DataTypeDeleted {
			return
		}
		start, end := m.itemBounds(last)
		m.setHigh(m.High() - (end - start))
		m.setLow(m.Low() - slotSize)
		m.setSlotRaw(last, 0)
		m.setSlotPrefix(last, 0)
		m.setDeleted(m.Deleted() - 1)
	}
}

// Defragment rebuilds the map in a scratch buffer, dropping tombstones and
// packing the surviving items contiguously in their current order.
func (m NibbleBasedMap) Defragment() {
	scratch := make([]byte, len(m.data))
	fresh := NibbleBasedMap{data: scratch}

	count := m.numSlots()
	for i := 0; i < count; i++ {
		raw := m.slotRaw(i)
		if slotDataType(raw) == DataTypeDeleted {
			continue
		}
		fresh.appendRaw(m.slotPrefix(i), slotDataType(raw), m.item(i))
	}

	copy(m.data, scratch)
	if m.Deleted() != 0 {
		panic("defragmentation left tombstones behind")
	}
}

// appendRaw appends a pre-encoded payload under the given prefix and type.
// The caller guarantees the payload fits.
func (m NibbleBasedMap) appendRaw(prefix uint16, dataType DataType, payload []byte) {
	if !m.fits(len(payload)) {
		panic("map overflow while appending a pre-encoded item")
	}
	index := m.numSlots()
	address := len(m.data) - m.High() - len(payload)
	m.setSlotRaw(index, makeSlotRaw(uint16(address), dataType))
	m.setSlotPrefix(index, prefix)
	copy(m.data[address:], payload)
	m.setLow(m.Low() + slotSize)
	m.setHigh(m.High() + len(payload))
}

// MapEntry is one live entry yielded by a MapIterator. Key and RawData point
// into the backing page, callers must copy them before mutating the map or
// advancing past the page's lifetime.
type MapEntry struct {
	Index   int
	Key     TreeKey
	RawData []byte
}

// EnumerateNibble returns an iterator over the live entries whose key path
// starts with the given nibble, or over all live entries for AllNibbles.
func (m NibbleBasedMap) EnumerateNibble(n Nibble) *MapIterator {
	return &MapIterator{m: m, nibble: n, next: 0}
}

// MapIterator yields live map entries for one nibble. The key path is
// reconstructed by re-prepending the up-to-three prefix nibbles to the path
// stored in the heap.
type MapIterator struct {
	m       NibbleBasedMap
	nibble  Nibble
	next    int
	scratch [maxPrefixNibbles]Nibble
}

// HasNext returns true if there is still at least one more matching entry.
func (it *MapIterator) HasNext() bool {
	count := it.m.numSlots()
	for ; it.next < count; it.next++ {
		if it.matches(it.next) {
			return true
		}
	}
	return false
}

// Next returns the next matching entry. HasNext must have returned true.
func (it *MapIterator) Next() MapEntry {
	if !it.HasNext() {
		panic("iterator exhausted")
	}
	entry := it.entryAt(it.next)
	it.next++
	return entry
}

func (it *MapIterator) matches(i int) bool {
	raw := it.m.slotRaw(i)
	if slotDataType(raw) == DataTypeDeleted {
		return false
	}
	if it.nibble == AllNibbles {
		return true
	}
	prefix := it.m.slotPrefix(i)
	return prefixNibbleCount(prefix) > 0 && FirstNibbleOfPrefix(prefix) == it.nibble
}

func (it *MapIterator) entryAt(i int) MapEntry {
	raw := it.m.slotRaw(i)
	dataType := slotDataType(raw)

	prefixNibbles := DecodeNibblesFromPrefix(it.m.slotPrefix(i), it.scratch[:0])
	stored, rest := UnpackNibblePath(it.m.item(i))
	path := pathWithPrefix(prefixNibbles, stored)

	key := TreeKey{Path: path, Type: dataType}
	if dataType.hasAdditionalKey() {
		key.AdditionalKey = rest[:32]
		rest = rest[32:]
	}
	return MapEntry{Index: i, Key: key, RawData: rest}
}

// pathWithPrefix rebuilds a full path from decoded prefix nibbles and the
// stored tail.
func pathWithPrefix(prefix []Nibble, tail NibblePath) NibblePath {
	res := NibblePath{length: uint8(len(prefix) + tail.Length())}
	for i, n := range prefix {
		res.set(i, n)
	}
	for i := 0; i < tail.Length(); i++ {
		res.set(len(prefix)+i, tail.Get(i))
	}
	return res
}

// NibbleStats summarizes the result of GetBiggestNibbleStats.
type NibbleStats struct {
	// Nibble is the first path nibble with the most live entries, the
	// smallest such nibble on ties.
	Nibble Nibble
	// StorageCellRatio is the share of all live entries that are storage
	// cells under that nibble.
	StorageCellRatio float64
}

// GetBiggestNibbleStats counts live entries per first path nibble and
// returns the most populated nibble together with its storage-cell ratio.
// Entries whose residual path is empty belong to no nibble and only count
// towards the ratio's denominator.
func (m NibbleBasedMap) GetBiggestNibbleStats() NibbleStats {
	var counts, cellCounts [NumNibbles]int
	totalLive := 0

	numSlots := m.numSlots()
	for i := 0; i < numSlots; i++ {
		raw := m.slotRaw(i)
		dataType := slotDataType(raw)
		if dataType == DataTypeDeleted {
			continue
		}
		totalLive++
		prefix := m.slotPrefix(i)
		if prefixNibbleCount(prefix) == 0 {
			continue
		}
		n := FirstNibbleOfPrefix(prefix)
		counts[n]++
		if dataType == DataTypeStorageCell {
			cellCounts[n]++
		}
	}

	best := Nibble(0)
	for n := 1; n < NumNibbles; n++ {
		if counts[n] > counts[best] {
			best = Nibble(n)
		}
	}

	ratio := 0.0
	if totalLive > 0 {
		ratio = float64(cellCounts[best]) / float64(totalLive)
	}
	return NibbleStats{Nibble: best, StorageCellRatio: ratio}
}
