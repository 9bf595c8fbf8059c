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

import "encoding/binary"

const (
	// PageSize is the fixed byte size of every page.
	PageSize = 4096

	// pageHeaderSize is the fixed, aligned size of the page header. It
	// carries the batch id (8 bytes), the page type and the tree level,
	// the rest is padding.
	pageHeaderSize = 16

	// bucketsSize is the byte size of the bucket table of a data page,
	// 16 consecutive 4-byte page addresses.
	bucketsSize = NumNibbles * DbAddressSize

	// dataRegionOffset is the in-page position of the data region of a
	// data page. The region starts long-aligned right after the bucket
	// table.
	dataRegionOffset = pageHeaderSize + bucketsSize

	// DataRegionSize is the byte size of the data region of a data page.
	DataRegionSize = PageSize - dataRegionOffset
)

// PageType distinguishes the role of a page within the tree.
type PageType byte

const (
	// PageTypeStandard marks a page of the main state tree.
	PageTypeStandard PageType = 0
	// PageTypeMassiveStorageTree marks a page of a dedicated storage
	// subtree extracted for a single account dominating its parent page.
	PageTypeMassiveStorageTree PageType = 1
)

// Page is a fixed-size byte region holding a header followed by a payload.
// The header carries the batch epoch the page was last written in, the type
// of the page and its level within the tree. All multi-byte header fields
// are serialized in little-endian order, the in-memory representation is
// bit-exact with the persistent one.
type Page struct {
	data [PageSize]byte
}

// BatchId returns the epoch of the batch that stamped this page last.
func (p *Page) BatchId() uint64 {
	return binary.LittleEndian.Uint64(p.data[0:8])
}

// SetBatchId stamps the page with the given batch epoch.
func (p *Page) SetBatchId(id uint64) {
	binary.LittleEndian.PutUint64(p.data[0:8], id)
}

// Type returns the page type.
func (p *Page) Type() PageType {
	return PageType(p.data[8])
}

// SetType sets the page type.
func (p *Page) SetType(t PageType) {
	p.data[8] = byte(t)
}

// TreeLevel returns the level of the page within its tree, the root being
// level zero.
func (p *Page) TreeLevel() uint8 {
	return p.data[9]
}

// SetTreeLevel sets the tree level of the page.
func (p *Page) SetTreeLevel(level uint8) {
	p.data[9] = level
}

// Bucket returns the child page address stored for the given nibble.
func (p *Page) Bucket(n Nibble) DbAddress {
	offset := pageHeaderSize + int(n)*DbAddressSize
	return ReadDbAddress(p.data[offset:])
}

// SetBucket stores the child page address for the given nibble.
func (p *Page) SetBucket(n Nibble, addr DbAddress) {
	offset := pageHeaderSize + int(n)*DbAddressSize
	addr.WriteTo(p.data[offset:])
}

// AllBucketsFull returns true when every nibble has a child page assigned.
func (p *Page) AllBucketsFull() bool {
	for n := 0; n < NumNibbles; n++ {
		if p.Bucket(Nibble(n)).IsNull() {
			return false
		}
	}
	return true
}

// NumUsedBuckets counts the nibbles with a child page assigned.
func (p *Page) NumUsedBuckets() int {
	count := 0
	for n := 0; n < NumNibbles; n++ {
		if !p.Bucket(Nibble(n)).IsNull() {
			count++
		}
	}
	return count
}

// DataSpan returns the mutable data region of the page, interpreted as
// either a NibbleBasedMap or a HashingMap depending on the page state.
func (p *Page) DataSpan() []byte {
	return p.data[dataRegionOffset:]
}

// ClearDataSpan zeroes the data region, switching an all-buckets-full page
// into cache mode.
func (p *Page) ClearDataSpan() {
	span := p.DataSpan()
	for i := range span {
		span[i] = 0
	}
}

// Bytes exposes the raw page image for storage I/O.
func (p *Page) Bytes() []byte {
	return p.data[:]
}

// FromBytes overwrites the page image with the given data.
func (p *Page) FromBytes(data []byte) {
	copy(p.data[:], data)
}

// Clear zeroes the whole page.
func (p *Page) Clear() {
	p.data = [PageSize]byte{}
}
