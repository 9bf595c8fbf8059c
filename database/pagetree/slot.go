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

// A slot is the 4-byte descriptor of one item of a NibbleBasedMap. It packs
// two 16-bit fields, serialized in little-endian order:
//
//	Raw    - the data-region-relative item address in the low 12 bits and
//	         the DataType tag in the high 4 bits,
//	Prefix - up to three leading nibbles of the item's key path plus the
//	         number of stored nibbles in the high 4 bits.
//
// The item address and the type tag occupy disjoint bit ranges, the type
// mask is 0xF000 so the tag never aliases the address.
const (
	slotSize = 4

	itemAddressMask uint16 = 0x0FFF
	dataTypeMask    uint16 = 0xF000
	dataTypeShift          = 12

	prefixNibbleCountShift = 12
	maxPrefixNibbles       = 3
)

// makeSlotRaw packs an item address and a type tag into the raw slot field.
func makeSlotRaw(itemAddress uint16, dataType DataType) uint16 {
	return (itemAddress & itemAddressMask) | (uint16(dataType) << dataTypeShift)
}

// slotItemAddress extracts the data-region-relative item address.
func slotItemAddress(raw uint16) uint16 {
	return raw & itemAddressMask
}

// slotDataType extracts the type tag.
func slotDataType(raw uint16) DataType {
	return DataType((raw & dataTypeMask) >> dataTypeShift)
}

// setSlotDataType replaces the type tag of the raw slot field, keeping the
// item address untouched. Used to tombstone a slot in place.
func setSlotDataType(raw uint16, dataType DataType) uint16 {
	return (raw & itemAddressMask) | (uint16(dataType) << dataTypeShift)
}

// ExtractPrefix consumes up to three nibbles from the head of the given path
// and returns the packed prefix together with the residual path.
func ExtractPrefix(path NibblePath) (prefix uint16, residual NibblePath) {
	count := path.Length()
	if count > maxPrefixNibbles {
		count = maxPrefixNibbles
	}
	for i := 0; i < count; i++ {
		prefix |= uint16(path.Get(i)) << (4 * i)
	}
	prefix |= uint16(count) << prefixNibbleCountShift
	return prefix, path.SliceFrom(count)
}

// DecodeNibblesFromPrefix is the inverse of ExtractPrefix, it appends the
// nibbles stored in the prefix to the given slice and returns it.
func DecodeNibblesFromPrefix(prefix uint16, dst []Nibble) []Nibble {
	count := prefixNibbleCount(prefix)
	for i := 0; i < count; i++ {
		dst = append(dst, Nibble((prefix>>(4*i))&0xF))
	}
	return dst
}

// prefixNibbleCount returns the number of nibbles stored in the prefix, 0-3.
func prefixNibbleCount(prefix uint16) int {
	return int(prefix >> prefixNibbleCountShift)
}

// FirstNibbleOfPrefix returns the first nibble stored in the prefix. Only
// valid when the prefix stores at least one nibble.
func FirstNibbleOfPrefix(prefix uint16) Nibble {
	return Nibble(prefix & 0xF)
}
