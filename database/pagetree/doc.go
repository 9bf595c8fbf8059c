// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package pagetree implements a page-oriented radix tree for Ethereum-style
// state. Accounts are addressed by 256-bit paths, per-account storage cells
// by a second 256-bit key. The tree's branching factor matches the nibble
// alphabet: every level consumes one nibble of the key and fans out over
// sixteen child pages.
//
// Pages are fixed-size byte regions referenced by 32-bit addresses and
// copied on write per batch epoch. A page's data region holds a
// NibbleBasedMap of inline entries; once all sixteen children of a page are
// populated, the region is reinterpreted as a HashingMap absorbing hot
// writes that would otherwise recurse. Storage cells of an account that
// dominates a page are extracted into a dedicated storage subtree addressed
// through a single indirection entry.
//
// The package operates against the Batch interface supplying page images,
// writable copies and fresh pages; a production implementation is provided
// by the backend/pagepool package.
package pagetree
