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
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// Table-space prefixes dividing the LevelDB key space.
const (
	pageTableSpace     = 'P'
	metadataTableSpace = 'M'
)

// LdbPageStorage persists pages in a LevelDB instance. Page keys are the
// table-space prefix followed by the 4-byte little-endian page address.
type LdbPageStorage struct {
	db *leveldb.DB

	metadata Metadata
	last     pagetree.DbAddress
}

// NewLdbPageStorage opens or creates a LevelDB backed page storage in the
// given directory.
func NewLdbPageStorage(directory string) (*LdbPageStorage, error) {
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open page database: %w", err)
	}

	storage := &LdbPageStorage{db: db}
	if err := storage.readMetadata(); err != nil {
		db.Close()
		return nil, err
	}
	storage.last = storage.metadata.LastAddress
	return storage, nil
}

func pageKey(addr pagetree.DbAddress) []byte {
	key := make([]byte, 1+pagetree.DbAddressSize)
	key[0] = pageTableSpace
	addr.WriteTo(key[1:])
	return key
}

// Load reads a page of the input address from the database.
func (s *LdbPageStorage) Load(addr pagetree.DbAddress, page *pagetree.Page) error {
	data, err := s.db.Get(pageKey(addr), nil)
	if err == errors.ErrNotFound {
		page.Clear()
		return nil
	}
	if err != nil {
		return err
	}
	page.FromBytes(data)
	return nil
}

// Store persists the input page under the input address.
func (s *LdbPageStorage) Store(addr pagetree.DbAddress, page *pagetree.Page) error {
	if addr.IsNull() {
		return ErrReservedNullAddress
	}
	if err := s.db.Put(pageKey(addr), page.Bytes(), nil); err != nil {
		return err
	}
	if addr > s.last {
		s.last = addr
	}
	return nil
}

// GenerateNextAddress hands out the next unused page address, starting at 1.
func (s *LdbPageStorage) GenerateNextAddress() pagetree.DbAddress {
	s.last++
	return s.last
}

// LoadMetadata reads the storage's root record.
func (s *LdbPageStorage) LoadMetadata() (Metadata, error) {
	return s.metadata, nil
}

// StoreMetadata persists the storage's root record.
func (s *LdbPageStorage) StoreMetadata(metadata Metadata) error {
	if metadata.LastAddress < s.last {
		metadata.LastAddress = s.last
	}
	s.metadata = metadata

	var buffer [metadataSize]byte
	metadata.toBytes(buffer[:])
	return s.db.Put([]byte{metadataTableSpace}, buffer[:], nil)
}

func (s *LdbPageStorage) readMetadata() error {
	data, err := s.db.Get([]byte{metadataTableSpace}, nil)
	if err == errors.ErrNotFound {
		s.metadata = Metadata{}
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) != metadataSize {
		return fmt.Errorf("unexpected metadata record size: %d", len(data))
	}
	s.metadata.fromBytes(data)
	return nil
}

// Flush makes all stored pages and metadata durable.
func (s *LdbPageStorage) Flush() error {
	return s.StoreMetadata(s.metadata)
}

// Close the storage.
func (s *LdbPageStorage) Close() error {
	flushErr := s.Flush()
	dbErr := s.db.Close()
	if flushErr != nil || dbErr != nil {
		return fmt.Errorf("close error: Flush: %s, db: %s", flushErr, dbErr)
	}
	return nil
}

// GetMemoryFootprint provides the size of the storage in memory in bytes.
func (s *LdbPageStorage) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*s))
}
