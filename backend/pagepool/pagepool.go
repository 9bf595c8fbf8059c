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
	"unsafe"

	"github.com/Fantom-foundation/Figaro/common"
	"github.com/Fantom-foundation/Figaro/database/pagetree"
	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"
)

// PagePool is a read cache of committed page images kept between a batch
// manager and its storage. It holds a bounded number of recently used
// pages; the least recently used image is dropped when the capacity is
// exceeded and re-read from the storage on the next request. Only committed
// pages enter the pool, dirty in-batch pages are owned by the batch.
type PagePool struct {
	cache   *freelru.LRU[pagetree.DbAddress, *pagetree.Page]
	storage PageStorage
}

func hashDbAddress(addr pagetree.DbAddress) uint32 {
	return uint32(xxhash.Sum64(addr.Bytes()))
}

// NewPagePool creates a pool with the given capacity over the storage.
func NewPagePool(capacity uint32, storage PageStorage) (*PagePool, error) {
	cache, err := freelru.New[pagetree.DbAddress, *pagetree.Page](capacity, hashDbAddress)
	if err != nil {
		return nil, err
	}
	return &PagePool{cache: cache, storage: storage}, nil
}

// Get returns the page image of the given address, reading it from the
// storage when it is not pooled. The returned image is shared, callers must
// not mutate it.
func (p *PagePool) Get(addr pagetree.DbAddress) (*pagetree.Page, error) {
	if page, exists := p.cache.Get(addr); exists {
		return page, nil
	}
	page := &pagetree.Page{}
	if err := p.storage.Load(addr, page); err != nil {
		return nil, err
	}
	p.cache.Add(addr, page)
	return page, nil
}

// Put inserts a freshly committed page image into the pool.
func (p *PagePool) Put(addr pagetree.DbAddress, page *pagetree.Page) {
	p.cache.Add(addr, page)
}

// Remove drops the image of the given address from the pool.
func (p *PagePool) Remove(addr pagetree.DbAddress) {
	p.cache.Remove(addr)
}

// Purge drops all pooled images.
func (p *PagePool) Purge() {
	p.cache.Purge()
}

// GetMemoryFootprint provides the size of the pool in memory in bytes.
func (p *PagePool) GetMemoryFootprint() *common.MemoryFootprint {
	selfSize := unsafe.Sizeof(*p)
	pageSize := unsafe.Sizeof(pagetree.Page{})
	footprint := common.NewMemoryFootprint(selfSize + uintptr(p.cache.Len())*pageSize)
	footprint.AddChild("storage", p.storage.GetMemoryFootprint())
	return footprint
}
