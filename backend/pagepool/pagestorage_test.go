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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Figaro/database/pagetree"
)

// corruptFileHead flips the magic bytes at the head of a page file.
func corruptFileHead(path string) error {
	file, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteAt([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0xDE, 0xAD, 0xBE, 0xEF}, 0)
	return err
}

func fillPage(seed byte) *pagetree.Page {
	page := &pagetree.Page{}
	page.SetBatchId(uint64(seed))
	span := page.DataSpan()
	for i := range span {
		span[i] = seed
	}
	return page
}

func testStorageStoreAndLoad(t *testing.T, storage PageStorage) {
	t.Helper()
	addr := storage.GenerateNextAddress()
	if addr.IsNull() {
		t.Fatalf("the null address must never be handed out")
	}

	stored := fillPage(0x42)
	if err := storage.Store(addr, stored); err != nil {
		t.Fatalf("failed to store a page: %v", err)
	}

	loaded := &pagetree.Page{}
	if err := storage.Load(addr, loaded); err != nil {
		t.Fatalf("failed to load a page: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), stored.Bytes()) {
		t.Errorf("loaded page differs from the stored one")
	}

	// a never-stored address yields a zeroed page
	empty := &pagetree.Page{}
	unknown := fillPage(0xFF)
	if err := storage.Load(addr+100, unknown); err != nil {
		t.Fatalf("failed to load an unknown page: %v", err)
	}
	if !bytes.Equal(unknown.Bytes(), empty.Bytes()) {
		t.Errorf("an unknown address must yield a zeroed page")
	}
}

func testStorageMetadataRoundTrip(t *testing.T, storage PageStorage) {
	t.Helper()
	metadata := Metadata{BatchId: 7, RootAddress: 3, LastAddress: 12}
	if err := storage.StoreMetadata(metadata); err != nil {
		t.Fatalf("failed to store metadata: %v", err)
	}
	restored, err := storage.LoadMetadata()
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}
	if restored != metadata {
		t.Errorf("metadata not preserved, got %+v, want %+v", restored, metadata)
	}
}

func TestInMemoryPageStorage(t *testing.T) {
	storage := NewInMemoryPageStorage()
	testStorageStoreAndLoad(t, storage)
	testStorageMetadataRoundTrip(t, storage)
	if err := storage.Close(); err != nil {
		t.Fatalf("failed to close the storage: %v", err)
	}
}

func TestFilePageStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.dat")
	storage, err := NewFilePageStorage(path)
	if err != nil {
		t.Fatalf("failed to create the storage: %v", err)
	}
	testStorageStoreAndLoad(t, storage)
	testStorageMetadataRoundTrip(t, storage)
	if err := storage.Close(); err != nil {
		t.Fatalf("failed to close the storage: %v", err)
	}
}

func TestFilePageStorage_SurvivesReopening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.dat")
	storage, err := NewFilePageStorage(path)
	if err != nil {
		t.Fatalf("failed to create the storage: %v", err)
	}

	addr := storage.GenerateNextAddress()
	stored := fillPage(0x17)
	if err := storage.Store(addr, stored); err != nil {
		t.Fatalf("failed to store a page: %v", err)
	}
	metadata := Metadata{BatchId: 3, RootAddress: addr}
	if err := storage.StoreMetadata(metadata); err != nil {
		t.Fatalf("failed to store metadata: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("failed to close the storage: %v", err)
	}

	reopened, err := NewFilePageStorage(path)
	if err != nil {
		t.Fatalf("failed to reopen the storage: %v", err)
	}
	defer reopened.Close()

	restored, err := reopened.LoadMetadata()
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}
	if restored.BatchId != 3 || restored.RootAddress != addr {
		t.Errorf("metadata lost across reopening: %+v", restored)
	}
	if restored.LastAddress < addr {
		t.Errorf("last address not tracked across reopening: %+v", restored)
	}

	loaded := &pagetree.Page{}
	if err := reopened.Load(addr, loaded); err != nil {
		t.Fatalf("failed to load a page: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), stored.Bytes()) {
		t.Errorf("page content lost across reopening")
	}

	// fresh addresses do not collide with persisted pages
	if next := reopened.GenerateNextAddress(); next <= addr {
		t.Errorf("address %v handed out twice", next)
	}
}

func TestFilePageStorage_RejectsForeignFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.dat")
	storage, err := NewFilePageStorage(path)
	if err != nil {
		t.Fatalf("failed to create the storage: %v", err)
	}
	// write a valid metadata block at the head of the file
	if err := storage.StoreMetadata(Metadata{}); err != nil {
		t.Fatalf("failed to initialize the file: %v", err)
	}
	storage.Close()

	if err := corruptFileHead(path); err != nil {
		t.Fatalf("failed to corrupt the file: %v", err)
	}
	if _, err := NewFilePageStorage(path); err == nil {
		t.Errorf("a foreign file must be rejected")
	}
}
