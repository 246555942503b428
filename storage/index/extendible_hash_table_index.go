package index

import (
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/container/hash"
	"github.com/maguroid/MaguroDB/storage/access"
	"github.com/maguroid/MaguroDB/storage/buffer"
	"github.com/maguroid/MaguroDB/storage/page"
	"github.com/maguroid/MaguroDB/types"
)

// ExtendibleHashTableIndex is a unique-key index on the disk-backed
// extendible hash table.
type ExtendibleHashTableIndex struct {
	container *hash.DiskExtendibleHashTable
	indexName string
}

func NewExtendibleHashTableIndex(bpm *buffer.BufferPoolManager, indexName string) *ExtendibleHashTableIndex {
	container := hash.NewDiskExtendibleHashTable(indexName, bpm, hash.IntComparator, hash.MurMurHashFunc,
		common.HashHeaderMaxDepth, common.HashDirectoryMaxDepth, common.BucketSizeOfHashIndex)
	return &ExtendibleHashTableIndex{container, indexName}
}

func (idx *ExtendibleHashTableIndex) GetName() string {
	return idx.indexName
}

func (idx *ExtendibleHashTableIndex) InsertEntry(key *types.Value, rid page.RID, txn *access.Transaction) bool {
	return idx.container.Insert(PackKey(key), rid, txn)
}

func (idx *ExtendibleHashTableIndex) DeleteEntry(key *types.Value, txn *access.Transaction) bool {
	return idx.container.Remove(PackKey(key), txn)
}

func (idx *ExtendibleHashTableIndex) ScanKey(key *types.Value, txn *access.Transaction) []page.RID {
	return idx.container.GetValue(PackKey(key), txn)
}

// PackKey folds a typed key into the table's 8-byte key space. Integers keep
// their value, everything else hashes its serialization twice and combines.
func PackKey(key *types.Value) uint64 {
	switch key.ValueType() {
	case types.Integer:
		return uint64(uint32(key.ToInteger()))
	default:
		serialized := key.Serialize()
		murmur := hash.GenHashMurMur(serialized)
		xx := hash.GenHashXX(serialized)
		return uint64(hash.CombineHashes(murmur, xx))<<32 | uint64(murmur)
	}
}
