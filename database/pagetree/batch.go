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

//go:generate mockgen -source batch.go -destination batch_mocks.go -package pagetree

// Batch is the mutable view of the page graph owned by one write epoch. It
// resolves addresses to page images, produces writable copies of pages
// stamped by older epochs and allocates fresh pages. A single write batch
// exists at a time; pages it stamps are exclusively owned by it.
type Batch interface {
	// BatchId returns the current write epoch.
	BatchId() uint64

	// GetAt resolves a page address to its page image.
	GetAt(addr DbAddress) (*Page, error)

	// GetWritableCopy returns a page stamped with the current epoch that
	// may be mutated. A page already stamped by this batch is returned
	// as-is, an older page is cloned to a fresh address.
	GetWritableCopy(page *Page) (*Page, error)

	// GetNewPage allocates a zeroed page stamped with the current epoch
	// and returns it together with its address.
	GetNewPage() (*Page, DbAddress, error)

	// GetAddress returns the address of a page obtained from this batch.
	GetAddress(page *Page) DbAddress
}
