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
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/Fantom-foundation/Figaro/common"
	"github.com/Fantom-foundation/Figaro/database/pagetree"
)

// filePageStorageMagic identifies the metadata block at the head of a page
// file. The metadata occupies the otherwise reserved page 0, so the null
// address can never collide with a user page.
const filePageStorageMagic = uint64(0x4649_4741_5253_5447) // "FIGARSTG"

// FilePageStorage receives requests to Load or Store pages identified by an
// address. Pages are stored in a single file at offsets corresponding to
// their addresses. The storage maintains a fixed byte buffer used for
// reading and storing pages not to allocate new memory every time, and the
// last used address not to touch the file beyond its size.
type FilePageStorage struct {
	file *os.File

	metadata Metadata
	last     pagetree.DbAddress

	buffer []byte // a page binary data shared between Load and Store operations not to allocate memory every time.
}

// NewFilePageStorage opens or creates a page file at the given path.
func NewFilePageStorage(filePath string) (*FilePageStorage, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}

	storage := &FilePageStorage{
		file:   file,
		buffer: make([]byte, pagetree.PageSize),
	}
	if err := storage.readMetadata(); err != nil {
		file.Close()
		return nil, err
	}
	storage.last = storage.metadata.LastAddress
	return storage, nil
}

// Load reads a page of the input address from the persistent storage.
func (s *FilePageStorage) Load(addr pagetree.DbAddress, page *pagetree.Page) error {
	if addr.IsNull() || addr > s.last {
		page.Clear()
		return nil
	}
	offset := int64(addr) * pagetree.PageSize
	if _, err := s.file.ReadAt(s.buffer, offset); err != nil {
		if err == io.EOF {
			// page does not yet exist
			page.Clear()
			return nil
		}
		return err
	}
	page.FromBytes(s.buffer)
	return nil
}

// Store persists the input page under the input address.
func (s *FilePageStorage) Store(addr pagetree.DbAddress, page *pagetree.Page) error {
	if addr.IsNull() {
		return ErrReservedNullAddress
	}
	offset := int64(addr) * pagetree.PageSize
	if _, err := s.file.WriteAt(page.Bytes(), offset); err != nil {
		return err
	}
	if addr > s.last {
		s.last = addr
	}
	return nil
}

// GenerateNextAddress hands out the next unused page address, starting at 1.
func (s *FilePageStorage) GenerateNextAddress() pagetree.DbAddress {
	s.last++
	return s.last
}

// LoadMetadata reads the storage's root record.
func (s *FilePageStorage) LoadMetadata() (Metadata, error) {
	return s.metadata, nil
}

// StoreMetadata persists the storage's root record into page 0.
func (s *FilePageStorage) StoreMetadata(metadata Metadata) error {
	if metadata.LastAddress < s.last {
		metadata.LastAddress = s.last
	}
	s.metadata = metadata

	for i := range s.buffer {
		s.buffer[i] = 0
	}
	binary.LittleEndian.PutUint64(s.buffer[0:8], filePageStorageMagic)
	metadata.toBytes(s.buffer[8 : 8+metadataSize])
	_, err := s.file.WriteAt(s.buffer, 0)
	return err
}

// readMetadata loads the metadata block from page 0 of the file. An empty
// or absent block yields fresh metadata.
func (s *FilePageStorage) readMetadata() error {
	if _, err := s.file.ReadAt(s.buffer, 0); err != nil {
		if err == io.EOF {
			s.metadata = Metadata{}
			return nil
		}
		return err
	}
	if magic := binary.LittleEndian.Uint64(s.buffer[0:8]); magic != filePageStorageMagic {
		return fmt.Errorf("unexpected page file format: magic %x", magic)
	}
	s.metadata.fromBytes(s.buffer[8 : 8+metadataSize])
	return nil
}

// Flush all changes to the disk.
func (s *FilePageStorage) Flush() error {
	if err := s.StoreMetadata(s.metadata); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close the storage.
func (s *FilePageStorage) Close() error {
	flushErr := s.Flush()
	fileErr := s.file.Close()
	if flushErr != nil || fileErr != nil {
		return fmt.Errorf("close error: Flush: %s, file: %s", flushErr, fileErr)
	}
	return nil
}

// GetMemoryFootprint provides the size of the storage in memory in bytes.
func (s *FilePageStorage) GetMemoryFootprint() *common.MemoryFootprint {
	selfSize := unsafe.Sizeof(*s)
	return common.NewMemoryFootprint(selfSize + uintptr(len(s.buffer)))
}
