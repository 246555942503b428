package page

import (
	"github.com/maguroid/MaguroDB/common"
)

// KeyComparator compares two packed 8-byte keys; 0 means equal.
type KeyComparator func(lhs uint64, rhs uint64) int

// HashTablePair is one bucket entry
type HashTablePair struct {
	Key   uint64
	Value RID
}

const sizeOfHashTablePair = 16

// BucketArraySize is the entry capacity of one bucket page
const BucketArraySize = (common.PageSize - 8) / sizeOfHashTablePair

/**
 * Bucket page format (entries kept in insertion order, no duplicate keys):
 *  ----------------------------------------------------------------
 * | Size (4) | MaxSize (4) | KEY(1)+VALUE(1) | ... | KEY(n)+VALUE(n)
 *  ----------------------------------------------------------------
 */
type ExtendibleHTableBucketPage struct {
	size    uint32
	maxSize uint32
	array   [BucketArraySize]HashTablePair
}

func (page *ExtendibleHTableBucketPage) Init(maxSize uint32) {
	common.MG_Assert(maxSize <= BucketArraySize, "bucket max size exceeds page capacity")
	page.maxSize = maxSize
	page.size = 0
}

// Lookup scans for key and returns its value
func (page *ExtendibleHTableBucketPage) Lookup(key uint64, cmp KeyComparator) (value RID, ok bool) {
	for i := uint32(0); i < page.size; i++ {
		if cmp(page.array[i].Key, key) == 0 {
			return page.array[i].Value, true
		}
	}
	return RID{}, false
}

// Insert appends the pair. A present key or a full bucket refuses the insert.
func (page *ExtendibleHTableBucketPage) Insert(key uint64, value RID, cmp KeyComparator) bool {
	if page.IsFull() {
		return false
	}
	for i := uint32(0); i < page.size; i++ {
		if cmp(page.array[i].Key, key) == 0 {
			return false
		}
	}
	page.array[page.size] = HashTablePair{key, value}
	page.size++
	return true
}

// Remove deletes the entry with the key, shifting later entries down
func (page *ExtendibleHTableBucketPage) Remove(key uint64, cmp KeyComparator) bool {
	for i := uint32(0); i < page.size; i++ {
		if cmp(page.array[i].Key, key) == 0 {
			page.RemoveAt(i)
			return true
		}
	}
	return false
}

// RemoveAt deletes the entry at bucketIdx, shifting later entries down
func (page *ExtendibleHTableBucketPage) RemoveAt(bucketIdx uint32) {
	common.MG_Assert(bucketIdx < page.size, "bucket entry index out of range")
	for i := bucketIdx; i+1 < page.size; i++ {
		page.array[i] = page.array[i+1]
	}
	page.size--
}

func (page *ExtendibleHTableBucketPage) KeyAt(bucketIdx uint32) uint64 {
	return page.EntryAt(bucketIdx).Key
}

func (page *ExtendibleHTableBucketPage) ValueAt(bucketIdx uint32) RID {
	return page.EntryAt(bucketIdx).Value
}

func (page *ExtendibleHTableBucketPage) EntryAt(bucketIdx uint32) HashTablePair {
	common.MG_Assert(bucketIdx < page.size, "bucket entry index out of range")
	return page.array[bucketIdx]
}

func (page *ExtendibleHTableBucketPage) Size() uint32 {
	return page.size
}

func (page *ExtendibleHTableBucketPage) MaxSize() uint32 {
	return page.maxSize
}

func (page *ExtendibleHTableBucketPage) IsFull() bool {
	return page.size == page.maxSize
}

func (page *ExtendibleHTableBucketPage) IsEmpty() bool {
	return page.size == 0
}
