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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Figaro/database/pagetree"
)

// readOnlyBatch is a batch view pinned to a committed epoch. It resolves
// pages straight from the storage and refuses any mutation.
type readOnlyBatch struct {
	storage PageStorage
	pages   map[pagetree.DbAddress]*pagetree.Page
}

func newReadOnlyBatch(storage PageStorage) *readOnlyBatch {
	return &readOnlyBatch{
		storage: storage,
		pages:   make(map[pagetree.DbAddress]*pagetree.Page),
	}
}

func (b *readOnlyBatch) BatchId() uint64 {
	return 0
}

func (b *readOnlyBatch) GetAt(addr pagetree.DbAddress) (*pagetree.Page, error) {
	if page, exists := b.pages[addr]; exists {
		return page, nil
	}
	page := &pagetree.Page{}
	if err := b.storage.Load(addr, page); err != nil {
		return nil, err
	}
	b.pages[addr] = page
	return page, nil
}

func (b *readOnlyBatch) GetWritableCopy(page *pagetree.Page) (*pagetree.Page, error) {
	return nil, fmt.Errorf("read-only batch")
}

func (b *readOnlyBatch) GetNewPage() (*pagetree.Page, pagetree.DbAddress, error) {
	return nil, pagetree.NullAddress, fmt.Errorf("read-only batch")
}

func (b *readOnlyBatch) GetAddress(page *pagetree.Page) pagetree.DbAddress {
	panic("read-only batch")
}

func testKey(i int) pagetree.TreeKey {
	return pagetree.AccountKey(pagetree.NewNibblePath([]byte{byte(i * 7), byte(i), 0x21, byte(i * 3)}))
}

func writeKeys(t *testing.T, manager *BatchManager, count int, tag byte) {
	t.Helper()
	root, err := manager.Root()
	if err != nil {
		t.Fatalf("failed to get the root: %v", err)
	}
	for i := 0; i < count; i++ {
		key := testKey(i)
		ctx := pagetree.NewSetContext(key, []byte{byte(i), tag}, manager)
		root, err = root.Set(ctx)
		if err != nil {
			t.Fatalf("failed to set key %d: %v", i, err)
		}
	}
	manager.UpdateRoot(root.Page())
}

func checkKeys(t *testing.T, root pagetree.DataPage, batch pagetree.Batch, count int, tag byte) {
	t.Helper()
	for i := 0; i < count; i++ {
		key := testKey(i)
		got, found, err := root.TryGet(pagetree.KeyHash(key), key, batch)
		if err != nil {
			t.Fatalf("failed to get key %d: %v", i, err)
		}
		if !found || !bytes.Equal(got, []byte{byte(i), tag}) {
			t.Fatalf("key %d has unexpected value, got %x, found %v", i, got, found)
		}
	}
}

func TestBatchManager_WriteCommitRead(t *testing.T) {
	storage := NewInMemoryPageStorage()
	manager, err := NewBatchManager(storage, 16)
	if err != nil {
		t.Fatalf("failed to create the manager: %v", err)
	}

	if got := manager.BatchId(); got != 1 {
		t.Errorf("a fresh database must start at epoch 1, got %d", got)
	}

	writeKeys(t, manager, 50, 0xA1)
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if got := manager.BatchId(); got != 2 {
		t.Errorf("commit must advance the epoch, got %d", got)
	}

	root, err := manager.Root()
	if err != nil {
		t.Fatalf("failed to get the root: %v", err)
	}
	checkKeys(t, root, manager, 50, 0xA1)
}

func TestBatchManager_OldEpochStaysReadable(t *testing.T) {
	storage := NewInMemoryPageStorage()
	manager, err := NewBatchManager(storage, 16)
	if err != nil {
		t.Fatalf("failed to create the manager: %v", err)
	}

	writeKeys(t, manager, 50, 0xB1)
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	firstEpoch, err := storage.LoadMetadata()
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}

	writeKeys(t, manager, 50, 0xB2)
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// a reader pinned to the first epoch observes exactly its tree
	reader := newReadOnlyBatch(storage)
	oldRootPage, err := reader.GetAt(firstEpoch.RootAddress)
	if err != nil {
		t.Fatalf("failed to load the old root: %v", err)
	}
	checkKeys(t, pagetree.NewDataPage(oldRootPage), reader, 50, 0xB1)

	root, err := manager.Root()
	if err != nil {
		t.Fatalf("failed to get the root: %v", err)
	}
	checkKeys(t, root, manager, 50, 0xB2)
}

func TestBatchManager_AbortDiscardsTheBatch(t *testing.T) {
	storage := NewInMemoryPageStorage()
	manager, err := NewBatchManager(storage, 16)
	if err != nil {
		t.Fatalf("failed to create the manager: %v", err)
	}

	writeKeys(t, manager, 20, 0xC1)
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	writeKeys(t, manager, 20, 0xC2)
	if err := manager.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}

	root, err := manager.Root()
	if err != nil {
		t.Fatalf("failed to get the root: %v", err)
	}
	checkKeys(t, root, manager, 20, 0xC1)
}

func TestBatchManager_SurvivesReopening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.dat")
	storage, err := NewFilePageStorage(path)
	if err != nil {
		t.Fatalf("failed to create the storage: %v", err)
	}
	manager, err := NewBatchManager(storage, 16)
	if err != nil {
		t.Fatalf("failed to create the manager: %v", err)
	}

	writeKeys(t, manager, 80, 0xD1)
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	committedEpoch := manager.BatchId() - 1
	if err := manager.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopenedStorage, err := NewFilePageStorage(path)
	if err != nil {
		t.Fatalf("failed to reopen the storage: %v", err)
	}
	reopened, err := NewBatchManager(reopenedStorage, 16)
	if err != nil {
		t.Fatalf("failed to reopen the manager: %v", err)
	}
	defer reopened.Close()

	if got := reopened.BatchId(); got != committedEpoch+1 {
		t.Errorf("unexpected epoch after reopening, got %d, want %d", got, committedEpoch+1)
	}
	root, err := reopened.Root()
	if err != nil {
		t.Fatalf("failed to get the root: %v", err)
	}
	checkKeys(t, root, reopened, 80, 0xD1)
}

func TestBatchManager_GetAddressOfForeignPagePanics(t *testing.T) {
	storage := NewInMemoryPageStorage()
	manager, err := NewBatchManager(storage, 16)
	if err != nil {
		t.Fatalf("failed to create the manager: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("a foreign page must be rejected")
		}
	}()
	manager.GetAddress(&pagetree.Page{})
}

func TestBatchManager_ReportsMemoryFootprint(t *testing.T) {
	storage := NewInMemoryPageStorage()
	manager, err := NewBatchManager(storage, 16)
	if err != nil {
		t.Fatalf("failed to create the manager: %v", err)
	}
	if footprint := manager.GetMemoryFootprint(); footprint == nil || footprint.Total() == 0 {
		t.Errorf("missing memory footprint")
	}
}
