// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pagepool

import (
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/Figaro/common"
	"github.com/Fantom-foundation/Figaro/database/pagetree"
	"golang.org/x/exp/slices"
)

// BatchManager owns the mutable view of the page graph for one write epoch
// at a time. It implements the pagetree.Batch interface: pages stamped by
// older epochs are cloned to fresh addresses before mutation, so a reader
// pinned to an older epoch keeps observing the exact tree that epoch
// committed. Commit persists all pages the batch touched and then the root
// record, Abort discards them.
//
// The manager is not safe for concurrent use, a single write batch exists
// at a time.
type BatchManager struct {
	storage PageStorage
	pool    *PagePool

	batchId uint64
	root    pagetree.DbAddress

	pages     map[pagetree.DbAddress]*pagetree.Page // pages touched by the current batch
	addresses map[*pagetree.Page]pagetree.DbAddress // inverse mapping incl. read-only images
}

// NewBatchManager opens a manager over the given storage, resuming from the
// storage's last committed state. The first batch of a fresh storage
// materializes an empty root page.
func NewBatchManager(storage PageStorage, poolCapacity uint32) (*BatchManager, error) {
	pool, err := NewPagePool(poolCapacity, storage)
	if err != nil {
		return nil, err
	}

	metadata, err := storage.LoadMetadata()
	if err != nil {
		return nil, err
	}

	manager := &BatchManager{
		storage:   storage,
		pool:      pool,
		batchId:   metadata.BatchId + 1,
		root:      metadata.RootAddress,
		pages:     make(map[pagetree.DbAddress]*pagetree.Page),
		addresses: make(map[*pagetree.Page]pagetree.DbAddress),
	}

	if manager.root.IsNull() {
		_, addr, err := manager.GetNewPage()
		if err != nil {
			return nil, err
		}
		manager.root = addr
	}
	return manager, nil
}

// BatchId returns the current write epoch.
func (m *BatchManager) BatchId() uint64 {
	return m.batchId
}

// Root returns the data page at the root of the tree.
func (m *BatchManager) Root() (pagetree.DataPage, error) {
	page, err := m.GetAt(m.root)
	if err != nil {
		return pagetree.DataPage{}, err
	}
	return pagetree.NewDataPage(page), nil
}

// UpdateRoot records the page returned by a root-level Set as the new root.
func (m *BatchManager) UpdateRoot(page *pagetree.Page) {
	m.root = m.GetAddress(page)
}

// GetAt resolves a page address to its page image. Pages touched by the
// current batch are served from the batch, committed pages from the pool.
func (m *BatchManager) GetAt(addr pagetree.DbAddress) (*pagetree.Page, error) {
	if addr.IsNull() {
		return nil, fmt.Errorf("cannot resolve the null page address")
	}
	if page, exists := m.pages[addr]; exists {
		return page, nil
	}
	page, err := m.pool.Get(addr)
	if err != nil {
		return nil, err
	}
	m.addresses[page] = addr
	return page, nil
}

// GetWritableCopy returns a page stamped with the current epoch. A page
// already stamped by this batch is returned as-is, an older page is cloned
// to a fresh address; the original image stays untouched.
func (m *BatchManager) GetWritableCopy(page *pagetree.Page) (*pagetree.Page, error) {
	if page.BatchId() == m.batchId {
		return page, nil
	}
	addr := m.storage.GenerateNextAddress()
	if addr.IsNull() {
		return nil, ErrAddressSpaceExhausted
	}
	clone := &pagetree.Page{}
	clone.FromBytes(page.Bytes())
	clone.SetBatchId(m.batchId)
	m.pages[addr] = clone
	m.addresses[clone] = addr
	return clone, nil
}

// GetNewPage allocates a zeroed page stamped with the current epoch.
func (m *BatchManager) GetNewPage() (*pagetree.Page, pagetree.DbAddress, error) {
	addr := m.storage.GenerateNextAddress()
	if addr.IsNull() {
		return nil, pagetree.NullAddress, ErrAddressSpaceExhausted
	}
	page := &pagetree.Page{}
	page.SetBatchId(m.batchId)
	m.pages[addr] = page
	m.addresses[page] = addr
	return page, addr, nil
}

// GetAddress returns the address of a page obtained from this batch.
func (m *BatchManager) GetAddress(page *pagetree.Page) pagetree.DbAddress {
	addr, exists := m.addresses[page]
	if !exists {
		panic("address requested for a page not obtained from this batch")
	}
	return addr
}

// Commit persists every page the batch touched, then the root record, and
// opens the next epoch. The write order makes the root record the commit
// point: a crash before it leaves the previous epoch intact.
func (m *BatchManager) Commit() error {
	dirty := make([]pagetree.DbAddress, 0, len(m.pages))
	for addr := range m.pages {
		dirty = append(dirty, addr)
	}
	slices.Sort(dirty)

	for _, addr := range dirty {
		page := m.pages[addr]
		if err := m.storage.Store(addr, page); err != nil {
			return err
		}
		m.pool.Put(addr, page)
	}

	metadata := Metadata{
		BatchId:     m.batchId,
		RootAddress: m.root,
	}
	if err := m.storage.StoreMetadata(metadata); err != nil {
		return err
	}
	if err := m.storage.Flush(); err != nil {
		return err
	}

	m.batchId++
	m.pages = make(map[pagetree.DbAddress]*pagetree.Page)
	m.addresses = make(map[*pagetree.Page]pagetree.DbAddress)
	return nil
}

// Abort discards all pages the batch touched. The previously committed
// state remains authoritative.
func (m *BatchManager) Abort() error {
	metadata, err := m.storage.LoadMetadata()
	if err != nil {
		return err
	}
	m.root = metadata.RootAddress
	m.pages = make(map[pagetree.DbAddress]*pagetree.Page)
	m.addresses = make(map[*pagetree.Page]pagetree.DbAddress)
	if m.root.IsNull() {
		_, addr, err := m.GetNewPage()
		if err != nil {
			return err
		}
		m.root = addr
	}
	return nil
}

// Close flushes and releases the underlying storage.
func (m *BatchManager) Close() error {
	return m.storage.Close()
}

// GetMemoryFootprint provides the size of the manager in memory in bytes.
func (m *BatchManager) GetMemoryFootprint() *common.MemoryFootprint {
	selfSize := unsafe.Sizeof(*m)
	pageSize := unsafe.Sizeof(pagetree.Page{})
	footprint := common.NewMemoryFootprint(selfSize + uintptr(len(m.pages))*pageSize)
	footprint.AddChild("pool", m.pool.GetMemoryFootprint())
	return footprint
}
