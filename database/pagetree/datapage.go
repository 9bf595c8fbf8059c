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

// DataPage interprets a page as one level of the nibble-addressed radix
// tree. Every level consumes one nibble of the key path: keys whose first
// remaining nibble has a child page assigned live in or below that child,
// all other keys live in the page's own data region.
//
// Writes copy pages stamped by older batches before mutating them, so every
// Set returns the page that logically handled the write; parents re-assign
// the child's bucket address from the returned handle.
type DataPage struct {
	page *Page
}

// NewDataPage wraps a page image.
func NewDataPage(page *Page) DataPage {
	return DataPage{page: page}
}

// Page returns the underlying page image.
func (d DataPage) Page() *Page {
	return d.page
}

// massiveStorageTreeRatio is the share of live entries that must be storage
// cells of a single account under one nibble before the cells are extracted
// into a dedicated storage subtree instead of a regular child page.
const massiveStorageTreeRatio = 0.9

// SetContext carries one write through the recursive descent.
type SetContext struct {
	Hash  uint32
	Key   TreeKey
	Data  []byte
	Batch Batch
}

// NewSetContext assembles a write context, computing the key hash.
func NewSetContext(key TreeKey, data []byte, batch Batch) SetContext {
	return SetContext{Hash: KeyHash(key), Key: key, Data: data, Batch: batch}
}

// sliceFrom drops the first pos nibbles of the key path and re-hashes the
// shortened key.
func (c SetContext) sliceFrom(pos int) SetContext {
	c.Key = c.Key.SliceFrom(pos)
	c.Hash = KeyHash(c.Key)
	return c
}

// Set writes the value of the context's key into this subtree and returns
// the page that logically handled the write, which differs from the
// receiver when the page had to be copied for the current batch.
func (d DataPage) Set(ctx SetContext) (DataPage, error) {
	if d.page.BatchId() != ctx.Batch.BatchId() {
		writable, err := ctx.Batch.GetWritableCopy(d.page)
		if err != nil {
			return DataPage{}, err
		}
		return NewDataPage(writable).Set(ctx)
	}

	if ctx.Key.Path.Length() > 0 {
		n := ctx.Key.Path.FirstNibble()
		if !d.page.Bucket(n).IsNull() {
			if cache, ok := d.hashingMap(ctx.Key); ok {
				if cache.TrySet(ctx.Hash, ctx.Key, ctx.Data) {
					return d, nil
				}
				// the cache is full, spill it into the children
				if err := d.flushCache(cache, ctx.Batch); err != nil {
					return DataPage{}, err
				}
			}
			child, err := ctx.Batch.GetAt(d.page.Bucket(n))
			if err != nil {
				return DataPage{}, err
			}
			updated, err := NewDataPage(child).Set(ctx.sliceFrom(1))
			if err != nil {
				return DataPage{}, err
			}
			d.page.SetBucket(n, ctx.Batch.GetAddress(updated.page))
			return d, nil
		}
	}

	m := NewNibbleBasedMap(d.page.DataSpan())

	if ctx.Key.Type == DataTypeStorageCell {
		rootKey := StorageTreeRootPageAddressKey(ctx.Key.Path)
		if raw, found := m.TryGet(rootKey); found {
			return d.setInStorageTree(ctx, m, rootKey, ReadDbAddress(raw))
		}
	}

	if m.TrySet(ctx.Key, ctx.Data) {
		return d, nil
	}

	return d.split(ctx, m)
}

// setInStorageTree routes a storage-cell write into the dedicated storage
// subtree of its account, updating the locally stored root address when the
// subtree's root page moved.
func (d DataPage) setInStorageTree(ctx SetContext, m NibbleBasedMap, rootKey TreeKey, root DbAddress) (DataPage, error) {
	treePage, err := ctx.Batch.GetAt(root)
	if err != nil {
		return DataPage{}, err
	}
	subKey := StorageTreeStorageCellKey(ctx.Key)
	updated, err := NewDataPage(treePage).Set(SetContext{
		Hash:  KeyHash(subKey),
		Key:   subKey,
		Data:  ctx.Data,
		Batch: ctx.Batch,
	})
	if err != nil {
		return DataPage{}, err
	}
	newRoot := ctx.Batch.GetAddress(updated.page)
	if newRoot != root {
		// same value length, the entry is overwritten in place
		if !m.TrySet(rootKey, newRoot.Bytes()) {
			panic("storage tree root rewrite failed, the map must already hold the slot")
		}
	}
	return d, nil
}

// split makes room for the write by moving the most populated nibble out of
// the local map, either into a dedicated storage subtree or into a fresh
// child page, and retries the write.
func (d DataPage) split(ctx SetContext, m NibbleBasedMap) (DataPage, error) {
	stats := m.GetBiggestNibbleStats()

	if stats.StorageCellRatio > massiveStorageTreeRatio {
		if accountPath, ok := singleAccountStorageCells(m, stats.Nibble); ok {
			if err := d.extractStorageTree(ctx.Batch, m, stats.Nibble, accountPath); err != nil {
				return DataPage{}, err
			}
			return d.Set(ctx)
		}
	}

	child, childAddr, err := ctx.Batch.GetNewPage()
	if err != nil {
		return DataPage{}, err
	}
	child.SetTreeLevel(d.page.TreeLevel() + 1)
	child.SetType(d.page.Type())
	d.page.SetBucket(stats.Nibble, childAddr)

	for {
		it := m.EnumerateNibble(stats.Nibble)
		if !it.HasNext() {
			break
		}
		entry := it.Next()
		key := copyKey(entry.Key)
		data := append([]byte{}, entry.RawData...)

		shorter := key.SliceFrom(1)
		updated, err := NewDataPage(child).Set(SetContext{
			Hash:  KeyHash(shorter),
			Key:   shorter,
			Data:  data,
			Batch: ctx.Batch,
		})
		if err != nil {
			return DataPage{}, err
		}
		child = updated.page
		m.Delete(key)
	}
	d.page.SetBucket(stats.Nibble, ctx.Batch.GetAddress(child))

	if CanBeCached(ctx.Key) && d.page.AllBucketsFull() {
		d.page.ClearDataSpan()
	}
	return d.Set(ctx)
}

// extractStorageTree moves all storage cells of the given nibble, all owned
// by the account at the given path, into a fresh dedicated subtree and
// leaves a single root-address entry behind.
func (d DataPage) extractStorageTree(batch Batch, m NibbleBasedMap, n Nibble, accountPath NibblePath) error {
	tree, _, err := batch.GetNewPage()
	if err != nil {
		return err
	}
	tree.SetType(PageTypeMassiveStorageTree)
	tree.SetTreeLevel(0)

	for {
		entry, found := nextStorageCell(m, n)
		if !found {
			break
		}
		key := copyKey(entry.Key)
		data := append([]byte{}, entry.RawData...)

		subKey := StorageTreeStorageCellKey(key)
		updated, err := NewDataPage(tree).Set(SetContext{
			Hash:  KeyHash(subKey),
			Key:   subKey,
			Data:  data,
			Batch: batch,
		})
		if err != nil {
			return err
		}
		tree = updated.page
		m.Delete(key)
	}

	rootKey := StorageTreeRootPageAddressKey(accountPath)
	if !m.TrySet(rootKey, batch.GetAddress(tree).Bytes()) {
		panic("no room for the storage tree root entry after extracting its cells")
	}
	return nil
}

// nextStorageCell finds the first live storage cell under the given nibble.
func nextStorageCell(m NibbleBasedMap, n Nibble) (MapEntry, bool) {
	it := m.EnumerateNibble(n)
	for it.HasNext() {
		entry := it.Next()
		if entry.Key.Type == DataTypeStorageCell {
			return entry, true
		}
	}
	return MapEntry{}, false
}

// singleAccountStorageCells checks whether every storage cell stored under
// the given nibble belongs to the same account and returns that account's
// residual path.
func singleAccountStorageCells(m NibbleBasedMap, n Nibble) (NibblePath, bool) {
	var accountPath NibblePath
	found := false

	it := m.EnumerateNibble(n)
	for it.HasNext() {
		entry := it.Next()
		if entry.Key.Type != DataTypeStorageCell {
			continue
		}
		if !found {
			accountPath = entry.Key.Path
			found = true
			continue
		}
		if !accountPath.IsEqualTo(entry.Key.Path) {
			return NibblePath{}, false
		}
	}
	return accountPath, found
}

// hashingMap returns the cache view of the data region. The region may only
// be interpreted as a cache when every bucket is populated and the key is
// cache-eligible.
func (d DataPage) hashingMap(key TreeKey) (HashingMap, bool) {
	if !CanBeCached(key) || !d.page.AllBucketsFull() {
		return HashingMap{}, false
	}
	return NewHashingMap(d.page.DataSpan()), true
}

// flushCache routes every cached entry into its first-nibble child page and
// empties the cache.
func (d DataPage) flushCache(cache HashingMap, batch Batch) error {
	entries := make([]CacheEntry, 0, cache.Count())
	it := cache.Enumerate()
	for it.HasNext() {
		entry := it.Next()
		entry.Key = copyKey(entry.Key)
		entry.RawData = append([]byte{}, entry.RawData...)
		entries = append(entries, entry)
	}
	cache.Clear()

	for _, entry := range entries {
		n := entry.Key.Path.FirstNibble()
		child, err := batch.GetAt(d.page.Bucket(n))
		if err != nil {
			return err
		}
		shorter := entry.Key.SliceFrom(1)
		updated, err := NewDataPage(child).Set(SetContext{
			Hash:  KeyHash(shorter),
			Key:   shorter,
			Data:  entry.RawData,
			Batch: batch,
		})
		if err != nil {
			return err
		}
		d.page.SetBucket(n, batch.GetAddress(updated.page))
	}
	return nil
}

// TryGet looks the key up in this subtree. The returned slice points into a
// page image and stays valid only until the next mutation.
func (d DataPage) TryGet(hash uint32, key TreeKey, batch Batch) ([]byte, bool, error) {
	if key.Path.Length() > 0 {
		if cache, ok := d.hashingMap(key); ok {
			if value, found := cache.TryGet(hash, key); found {
				return value, true, nil
			}
		}
		addr := d.page.Bucket(key.Path.FirstNibble())
		if !addr.IsNull() {
			child, err := batch.GetAt(addr)
			if err != nil {
				return nil, false, err
			}
			shorter := key.SliceFrom(1)
			return NewDataPage(child).TryGet(KeyHash(shorter), shorter, batch)
		}
	}

	m := NewNibbleBasedMap(d.page.DataSpan())

	if key.Type == DataTypeStorageCell {
		if raw, found := m.TryGet(StorageTreeRootPageAddressKey(key.Path)); found {
			tree, err := batch.GetAt(ReadDbAddress(raw))
			if err != nil {
				return nil, false, err
			}
			subKey := StorageTreeStorageCellKey(key)
			return NewDataPage(tree).TryGet(KeyHash(subKey), subKey, batch)
		}
	}

	value, found := m.TryGet(key)
	return value, found, nil
}

// copyKey detaches a key yielded by an iterator from the backing page.
func copyKey(k TreeKey) TreeKey {
	if k.AdditionalKey != nil {
		k.AdditionalKey = append([]byte{}, k.AdditionalKey...)
	}
	return k
}
