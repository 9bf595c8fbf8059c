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

import (
	"github.com/Fantom-foundation/Figaro/common"
	"github.com/cespare/xxhash/v2"
)

// DataType tags the kind of record a key addresses. The numeric values are
// part of the persistent slot format, the tag occupies the high 4 bits of
// the slot's raw field.
type DataType byte

const (
	// DataTypeAccount marks a balance and nonce record stored at a path.
	DataTypeAccount DataType = 0
	// DataTypeCodeHash marks a 32-byte contract code hash.
	DataTypeCodeHash DataType = 1
	// DataTypeStorageRootHash marks a 32-byte storage root hash.
	DataTypeStorageRootHash DataType = 2
	// DataTypeStorageCell marks a storage value keyed by path and a
	// 32-byte cell index.
	DataTypeStorageCell DataType = 3
	// DataTypeStorageTreeRootPageAddress marks the 4-byte address of a
	// dedicated storage subtree rooted at a path.
	DataTypeStorageTreeRootPageAddress DataType = 4
	// DataTypeStorageTreeStorageCell marks a storage value inside a
	// dedicated storage subtree, keyed by the 32-byte cell index alone.
	DataTypeStorageTreeStorageCell DataType = 5
	// DataTypeMerkle is reserved for Merkle nodes.
	DataTypeMerkle DataType = 6
	// DataTypeDeleted marks a tombstone slot.
	DataTypeDeleted DataType = 7
)

// hasAdditionalKey reports whether items of this type carry a 32-byte
// additional key between the encoded path and the value.
func (t DataType) hasAdditionalKey() bool {
	return t == DataTypeStorageCell || t == DataTypeStorageTreeStorageCell
}

// TreeKey addresses a single record within the page tree. AdditionalKey is
// only populated for storage-cell typed keys, where it carries the 32-byte
// cell index.
type TreeKey struct {
	Path          NibblePath
	Type          DataType
	AdditionalKey []byte
}

// AccountKey addresses the balance and nonce record at the given path.
func AccountKey(path NibblePath) TreeKey {
	return TreeKey{Path: path, Type: DataTypeAccount}
}

// CodeHashKey addresses the contract code hash at the given path.
func CodeHashKey(path NibblePath) TreeKey {
	return TreeKey{Path: path, Type: DataTypeCodeHash}
}

// StorageRootHashKey addresses the storage root hash at the given path.
func StorageRootHashKey(path NibblePath) TreeKey {
	return TreeKey{Path: path, Type: DataTypeStorageRootHash}
}

// StorageCellKey addresses the storage value of the given cell index under
// the account at the given path.
func StorageCellKey(path NibblePath, cell common.Key) TreeKey {
	return TreeKey{Path: path, Type: DataTypeStorageCell, AdditionalKey: cell[:]}
}

// StorageTreeRootPageAddressKey addresses the root page address of the
// dedicated storage subtree of the account at the given path. Its stored
// value is always a 4-byte little-endian DbAddress.
func StorageTreeRootPageAddressKey(path NibblePath) TreeKey {
	return TreeKey{Path: path, Type: DataTypeStorageTreeRootPageAddress}
}

// StorageTreeStorageCellKey rewrites a storage-cell key for use inside a
// dedicated storage subtree. The account path is implicit in the subtree's
// root; the navigation path is derived from the 32-byte cell index so the
// subtree fans out the same way the main tree does.
func StorageTreeStorageCellKey(original TreeKey) TreeKey {
	return TreeKey{
		Path:          NewNibblePath(original.AdditionalKey),
		Type:          DataTypeStorageTreeStorageCell,
		AdditionalKey: original.AdditionalKey,
	}
}

// SliceFrom returns this key with the first pos nibbles of its path removed.
func (k TreeKey) SliceFrom(pos int) TreeKey {
	k.Path = k.Path.SliceFrom(pos)
	return k
}

// IsEqualTo determines whether two keys address the same record.
func (k *TreeKey) IsEqualTo(other *TreeKey) bool {
	if k.Type != other.Type || !k.Path.IsEqualTo(other.Path) {
		return false
	}
	if len(k.AdditionalKey) != len(other.AdditionalKey) {
		return false
	}
	for i := range k.AdditionalKey {
		if k.AdditionalKey[i] != other.AdditionalKey[i] {
			return false
		}
	}
	return true
}

// CanBeCached reports whether writes of this key may be absorbed by the
// in-page hashing cache. The predicate must be consistent across reads and
// writes, it covers the hot key types whose descent is the deepest.
func CanBeCached(key TreeKey) bool {
	return key.Type == DataTypeAccount || key.Type == DataTypeStorageCell
}

// KeyHash computes a stable 32-bit hash over the path, the type and the
// additional key. The same key hashes identically in every batch.
func KeyHash(key TreeKey) uint32 {
	digest := xxhash.New()
	var buf [33]byte
	digest.Write(key.Path.Pack(buf[:0]))
	digest.Write([]byte{byte(key.Type)})
	digest.Write(key.AdditionalKey)
	return uint32(digest.Sum64())
}
