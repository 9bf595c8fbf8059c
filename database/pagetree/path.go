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
	"fmt"
	"strings"
)

// NibblePath is an immutable sequence of nibbles describing a navigation path
// in the page tree. Pairs of 4-bit nibbles are encoded in 8-bit values for a
// dense data representation. Paths are limited to a maximum length of 64
// nibbles, matching a 256-bit key. Slicing a path copies the fixed 32-byte
// array and advances the offset, no nibbles are shifted or re-packed.
type NibblePath struct {
	// The zero-padded navigation path to be covered. The maximum length
	// is 256 bits, which are 32 bytes and 64 nibbles. Nibbles are encoded
	// in bytes with the first nibble in the high 4 bits.
	path [32]byte
	// The position of the first relevant nibble.
	offset uint8
	// The number of relevant nibbles starting at offset. Limited to <= 64.
	length uint8
}

// NewNibblePath creates a path covering all nibbles of the given bytes.
func NewNibblePath(data []byte) NibblePath {
	if len(data) > 32 {
		data = data[:32]
	}
	res := NibblePath{length: uint8(2 * len(data))}
	copy(res.path[:], data)
	return res
}

// NibblePathFromNibbles converts a Nibble-slice into a path.
func NibblePathFromNibbles(nibbles []Nibble) NibblePath {
	res := NibblePath{}
	for _, cur := range nibbles {
		res = res.appended(cur)
	}
	return res
}

// Length returns the number of nibbles on the path.
func (p *NibblePath) Length() int {
	return int(p.length)
}

// IsEmpty returns true for a path of zero length.
func (p *NibblePath) IsEmpty() bool {
	return p.length == 0
}

// Get returns the Nibble value at the given path position, where pos == 0
// is the first position and Length()-1 the last. For positions outside this
// range the value 0 is returned.
func (p *NibblePath) Get(pos int) Nibble {
	if pos < 0 || pos >= int(p.length) {
		return 0
	}
	pos += int(p.offset)
	twin := p.path[pos/2]
	if pos%2 == 0 {
		return Nibble(twin >> 4)
	}
	return Nibble(twin & 0xF)
}

// FirstNibble returns the nibble at the head of the path. The path must not
// be empty.
func (p *NibblePath) FirstNibble() Nibble {
	return p.Get(0)
}

// SliceFrom returns a view of this path with the first pos nibbles removed.
// The result holds its own copy of the 32-byte array with an advanced
// offset, no nibbles are shifted.
func (p *NibblePath) SliceFrom(pos int) NibblePath {
	if pos >= int(p.length) {
		return NibblePath{}
	}
	if pos < 0 {
		pos = 0
	}
	return NibblePath{
		path:   p.path,
		offset: p.offset + uint8(pos),
		length: p.length - uint8(pos),
	}
}

// IsEqualTo determines whether two paths cover the same nibble sequence.
func (p *NibblePath) IsEqualTo(other NibblePath) bool {
	if p.length != other.length {
		return false
	}
	for i := 0; i < int(p.length); i++ {
		if p.Get(i) != other.Get(i) {
			return false
		}
	}
	return true
}

// appended produces a copy of this path extended by one nibble. Since paths
// are immutable views, the result is re-based to offset zero.
func (p *NibblePath) appended(n Nibble) NibblePath {
	res := NibblePath{length: p.length + 1}
	for i := 0; i < int(p.length); i++ {
		res.set(i, p.Get(i))
	}
	res.set(int(p.length), n)
	return res
}

func (p *NibblePath) set(pos int, val Nibble) {
	if pos%2 == 0 {
		p.path[pos/2] = (p.path[pos/2] & 0x0F) | byte(val)<<4
	} else {
		p.path[pos/2] = (p.path[pos/2] & 0xF0) | byte(val&0xF)
	}
}

// PackedSize returns the number of bytes consumed by Pack.
func (p *NibblePath) PackedSize() int {
	return packedPathSize(int(p.length))
}

func packedPathSize(nibbles int) int {
	return 1 + (nibbles+1)/2
}

// Pack appends the length-prefixed packed encoding of this path to the given
// slice and returns the extended slice. The encoding is one length byte
// followed by ceil(length/2) bytes of nibbles, the first nibble occupying
// the high bits of the first byte. This is the on-page item format.
func (p *NibblePath) Pack(dst []byte) []byte {
	dst = append(dst, p.length)
	if p.length == 0 {
		return dst
	}
	if p.offset%2 == 0 {
		// aligned, full bytes can be taken from the backing array
		from := int(p.offset) / 2
		to := (int(p.offset) + int(p.length) + 1) / 2
		dst = append(dst, p.path[from:to]...)
		if p.length%2 == 1 {
			// zero the unused low nibble of the last byte
			dst[len(dst)-1] &= 0xF0
		}
		return dst
	}
	// unaligned, nibbles need to be re-packed one by one
	for i := 0; i < int(p.length); i += 2 {
		b := byte(p.Get(i)) << 4
		if i+1 < int(p.length) {
			b |= byte(p.Get(i + 1))
		}
		dst = append(dst, b)
	}
	return dst
}

// UnpackNibblePath decodes a path produced by Pack from the head of the given
// slice and returns it together with the remaining bytes.
func UnpackNibblePath(src []byte) (NibblePath, []byte) {
	length := int(src[0])
	size := packedPathSize(length)
	res := NibblePath{length: uint8(length)}
	copy(res.path[:], src[1:size])
	return res, src[size:]
}

func (p *NibblePath) String() string {
	if p.length == 0 {
		return "-empty-"
	}
	builder := strings.Builder{}
	for i := 0; i < p.Length(); i++ {
		builder.WriteRune(p.Get(i).Rune())
	}
	builder.WriteString(fmt.Sprintf(" : %d", p.length))
	return builder.String()
}
