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
	"encoding/binary"
	"fmt"
)

// DbAddress is a 4-byte index of a page within the page store. Addresses
// are serialized in little-endian order. The value 0 is the null sentinel,
// it never addresses a user page.
type DbAddress uint32

// NullAddress marks the absence of a page reference.
const NullAddress DbAddress = 0

// DbAddressSize is the serialized size of a DbAddress in bytes.
const DbAddressSize = 4

// IsNull returns true for the null sentinel.
func (a DbAddress) IsNull() bool {
	return a == NullAddress
}

// WriteTo serializes this address into the first four bytes of the target.
func (a DbAddress) WriteTo(trg []byte) {
	binary.LittleEndian.PutUint32(trg, uint32(a))
}

// Bytes returns the serialized form of this address.
func (a DbAddress) Bytes() []byte {
	var b [DbAddressSize]byte
	a.WriteTo(b[:])
	return b[:]
}

// ReadDbAddress deserializes an address from the first four bytes of the source.
func ReadDbAddress(src []byte) DbAddress {
	return DbAddress(binary.LittleEndian.Uint32(src))
}

func (a DbAddress) String() string {
	if a.IsNull() {
		return "null"
	}
	return fmt.Sprintf("page-%d", uint32(a))
}
