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
	"encoding/binary"
	"unsafe"

	"github.com/Fantom-foundation/Figaro/common"
	"github.com/Fantom-foundation/Figaro/database/pagetree"
)

// ErrReservedNullAddress is reported when a page is stored at the reserved
// null address 0.
const ErrReservedNullAddress = common.ConstError("cannot store a page at the reserved null address")

// ErrAddressSpaceExhausted is reported when the 32-bit page address space
// overflows.
const ErrAddressSpaceExhausted = common.ConstError("page address space exhausted")

// Metadata is the persistent root record of a page storage. It survives
// restarts and pins the last committed batch, the address of the tree root
// and the highest address handed out so far.
type Metadata struct {
	BatchId     uint64
	RootAddress pagetree.DbAddress
	LastAddress pagetree.DbAddress
}

const metadataSize = 16

func (m *Metadata) toBytes(trg []byte) {
	binary.LittleEndian.PutUint64(trg[0:8], m.BatchId)
	m.RootAddress.WriteTo(trg[8:12])
	m.LastAddress.WriteTo(trg[12:16])
}

func (m *Metadata) fromBytes(src []byte) {
	m.BatchId = binary.LittleEndian.Uint64(src[0:8])
	m.RootAddress = pagetree.ReadDbAddress(src[8:12])
	m.LastAddress = pagetree.ReadDbAddress(src[12:16])
}

// PageStorage persists fixed-size pages addressed by DbAddress. The null
// address 0 is reserved by every implementation, it is never handed out by
// GenerateNextAddress and never addresses a user page.
type PageStorage interface {
	common.MemoryFootprintProvider

	// Load reads the page stored under the given address into the target.
	// An address that was never stored yields a zeroed page.
	Load(addr pagetree.DbAddress, page *pagetree.Page) error

	// Store persists the page under the given address.
	Store(addr pagetree.DbAddress, page *pagetree.Page) error

	// GenerateNextAddress hands out the next unused page address.
	GenerateNextAddress() pagetree.DbAddress

	// LoadMetadata reads the storage's root record. A fresh storage
	// yields the zero value.
	LoadMetadata() (Metadata, error)

	// StoreMetadata persists the storage's root record.
	StoreMetadata(metadata Metadata) error

	// Flush makes all stored pages and metadata durable.
	Flush() error

	// Close flushes and releases the storage.
	Close() error
}

// InMemoryPageStorage keeps all pages on the heap. It is used for tests and
// as the building block of short-lived batches.
type InMemoryPageStorage struct {
	pages    map[pagetree.DbAddress]*pagetree.Page
	metadata Metadata
	last     pagetree.DbAddress
}

// NewInMemoryPageStorage creates an empty in-memory storage.
func NewInMemoryPageStorage() *InMemoryPageStorage {
	return &InMemoryPageStorage{
		pages: make(map[pagetree.DbAddress]*pagetree.Page),
	}
}

// Load reads the page stored under the given address into the target.
func (s *InMemoryPageStorage) Load(addr pagetree.DbAddress, page *pagetree.Page) error {
	stored, exists := s.pages[addr]
	if !exists {
		page.Clear()
		return nil
	}
	page.FromBytes(stored.Bytes())
	return nil
}

// Store persists a copy of the page under the given address.
func (s *InMemoryPageStorage) Store(addr pagetree.DbAddress, page *pagetree.Page) error {
	stored, exists := s.pages[addr]
	if !exists {
		stored = &pagetree.Page{}
		s.pages[addr] = stored
	}
	stored.FromBytes(page.Bytes())
	return nil
}

// GenerateNextAddress hands out the next unused page address, starting at 1.
func (s *InMemoryPageStorage) GenerateNextAddress() pagetree.DbAddress {
	s.last++
	return s.last
}

// LoadMetadata reads the storage's root record.
func (s *InMemoryPageStorage) LoadMetadata() (Metadata, error) {
	return s.metadata, nil
}

// StoreMetadata persists the storage's root record.
func (s *InMemoryPageStorage) StoreMetadata(metadata Metadata) error {
	s.metadata = metadata
	if metadata.LastAddress > s.last {
		s.last = metadata.LastAddress
	}
	return nil
}

// Flush is a no-op for the in-memory storage.
func (s *InMemoryPageStorage) Flush() error {
	return nil
}

// Close is a no-op for the in-memory storage.
func (s *InMemoryPageStorage) Close() error {
	return nil
}

// GetMemoryFootprint provides the size of the storage in memory in bytes.
func (s *InMemoryPageStorage) GetMemoryFootprint() *common.MemoryFootprint {
	selfSize := unsafe.Sizeof(*s)
	pageSize := unsafe.Sizeof(pagetree.Page{})
	return common.NewMemoryFootprint(selfSize + uintptr(len(s.pages))*pageSize)
}
