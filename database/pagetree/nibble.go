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

import "github.com/Fantom-foundation/Figaro/common"

// Nibble is a 4-bit integer in the range 0-F. It is a single letter
// used to navigate in the page tree structure.
type Nibble byte

// NumNibbles is the branching factor of the tree, one child per nibble.
const NumNibbles = 16

// Rune converts a Nibble in a hexa-decimal rune (0-9a-f).
func (n Nibble) Rune() rune {
	if n < 10 {
		return rune('0' + n)
	} else if n < 16 {
		return rune('a' + n - 10)
	} else {
		return '?'
	}
}

// String converts a Nibble in a hexa-decimal string (0-9a-f).
func (n Nibble) String() string {
	return string(n.Rune())
}

// AddressToNibblePath converts the given account address into the navigation
// path of its state record. The address is hashed before being converted so
// that paths are uniformly distributed over the tree.
func AddressToNibblePath(address common.Address) NibblePath {
	hash := common.Keccak256ForAddress(address)
	return NewNibblePath(hash[:])
}

// KeyToNibblePath converts the given storage key into a navigation path.
// The key is hashed before being converted so that paths are uniformly
// distributed over the tree.
func KeyToNibblePath(key common.Key) NibblePath {
	hash := common.Keccak256ForKey(key)
	return NewNibblePath(hash[:])
}
