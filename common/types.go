// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import "encoding/hex"

const (
	AddressSize = 20
	KeySize     = 32
	ValueSize   = 32
	HashSize    = 32
	NonceSize   = 8
)

// Address is a 20-byte account address.
type Address [AddressSize]byte

// Key is a 32-byte index of a storage slot within an account.
type Key [KeySize]byte

// Value is a 32-byte storage slot value.
type Value [ValueSize]byte

// Hash is a 32-byte hash value.
type Hash [HashSize]byte

// Nonce is an 8-byte big-endian account nonce.
type Nonce [NonceSize]byte

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (k Key) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// AddressFromBytes creates an Address from the given bytes, zero-padded
// at the end when fewer than 20 bytes are provided.
func AddressFromBytes(bytes []byte) (address Address) {
	copy(address[:], bytes)
	return
}

// KeyFromBytes creates a Key from the given bytes, zero-padded at the end
// when fewer than 32 bytes are provided.
func KeyFromBytes(bytes []byte) (key Key) {
	copy(key[:], bytes)
	return
}

// HashFromBytes creates a Hash from the given bytes, zero-padded at the end
// when fewer than 32 bytes are provided.
func HashFromBytes(bytes []byte) (hash Hash) {
	copy(hash[:], bytes)
	return
}
