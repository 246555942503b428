package hash

import (
	"unsafe"

	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/storage/access"
	"github.com/maguroid/MaguroDB/storage/buffer"
	"github.com/maguroid/MaguroDB/storage/page"
	"github.com/maguroid/MaguroDB/types"
)

/**
 * Implementation of extendible hashing that is backed by a buffer pool
 * manager. Keys are unique. Supports insert, remove and point lookup. The
 * directory grows and shrinks dynamically as buckets split and merge.
 *
 * Three page levels: a header page maps the high bits of a key hash to a
 * directory page, a directory page maps the low bits to a bucket page, and
 * bucket pages hold the entries.
 */
type DiskExtendibleHashTable struct {
	indexName         string
	bpm               *buffer.BufferPoolManager
	cmp               page.KeyComparator
	hashFn            HashFunc
	headerMaxDepth    uint32
	directoryMaxDepth uint32
	bucketMaxSize     uint32
	headerPageId      types.PageID
	// serializes structure-modifying operations against each other and
	// against readers. page-level latches still apply underneath
	tableLatch common.ReaderWriterLatch
}

// NewDiskExtendibleHashTable sets up the header page, one directory page and
// one bucket page before returning.
func NewDiskExtendibleHashTable(name string, bpm *buffer.BufferPoolManager, cmp page.KeyComparator,
	hashFn HashFunc, headerMaxDepth uint32, directoryMaxDepth uint32, bucketMaxSize uint32) *DiskExtendibleHashTable {
	ht := &DiskExtendibleHashTable{
		indexName:         name,
		bpm:               bpm,
		cmp:               cmp,
		hashFn:            hashFn,
		headerMaxDepth:    headerMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
		headerPageId:      types.InvalidPageID,
		tableLatch:        common.NewRWLatch(),
	}

	headerGuard := bpm.NewPageGuarded()
	directoryGuard := bpm.NewPageGuarded()
	bucketGuard := bpm.NewPageGuarded()
	common.MG_Assert(headerGuard != nil && directoryGuard != nil && bucketGuard != nil,
		"buffer pool too small to set up a hash table")

	headerPage := (*page.ExtendibleHTableHeaderPage)(unsafe.Pointer(headerGuard.GetDataMut()))
	headerPage.Init(headerMaxDepth)
	ht.headerPageId = headerGuard.PageId()

	directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetDataMut()))
	directoryPage.Init(directoryMaxDepth)

	bucketPage := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetDataMut()))
	bucketPage.Init(bucketMaxSize)

	headerPage.SetDirectoryPageId(0, directoryGuard.PageId())
	directoryPage.SetBucketPageId(0, bucketGuard.PageId())
	directoryPage.SetLocalDepth(0, 0)

	bucketGuard.Drop()
	directoryGuard.Drop()
	headerGuard.Drop()

	return ht
}

func (ht *DiskExtendibleHashTable) GetHeaderPageId() types.PageID {
	return ht.headerPageId
}

// GetValue returns the value stored under key, as a slice holding zero or one
// entry. The transaction handle is carried for the executor contract only.
func (ht *DiskExtendibleHashTable) GetValue(key uint64, txn *access.Transaction) []page.RID {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	hash := ht.hashFn(key)

	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	if headerGuard == nil {
		return []page.RID{}
	}
	headerPage := (*page.ExtendibleHTableHeaderPage)(unsafe.Pointer(headerGuard.GetData()))
	directoryPageId := headerPage.GetDirectoryPageId(headerPage.HashToDirectoryIndex(hash))
	headerGuard.Drop()
	if !directoryPageId.IsValid() {
		return []page.RID{}
	}

	directoryGuard := ht.bpm.FetchPageRead(directoryPageId)
	if directoryGuard == nil {
		return []page.RID{}
	}
	directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetData()))
	bucketPageId := directoryPage.GetBucketPageId(directoryPage.HashToBucketIndex(hash))
	directoryGuard.Drop()
	if !bucketPageId.IsValid() {
		return []page.RID{}
	}

	bucketGuard := ht.bpm.FetchPageRead(bucketPageId)
	if bucketGuard == nil {
		return []page.RID{}
	}
	bucketPage := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetData()))
	value, ok := bucketPage.Lookup(key, ht.cmp)
	bucketGuard.Drop()

	if !ok {
		return []page.RID{}
	}
	return []page.RID{value}
}

// Insert places the pair into the table. A present key refuses the insert.
// Returns false when the table cannot grow any further for the key's hash
// class or the buffer pool is exhausted. A refusal for the hash class is
// decided before any split and leaves the table unchanged; when the buffer
// pool runs out after this call already split one or more buckets, those
// splits stay in place.
func (ht *DiskExtendibleHashTable) Insert(key uint64, value page.RID, txn *access.Transaction) bool {
	ht.tableLatch.WLock()
	defer ht.tableLatch.WUnlock()

	hash := ht.hashFn(key)

	// a split changes the structure under the key, so re-traverse from the
	// header until the insert lands or the table refuses to grow
	for {
		headerGuard := ht.bpm.FetchPageWrite(ht.headerPageId)
		if headerGuard == nil {
			return false
		}
		headerPage := (*page.ExtendibleHTableHeaderPage)(unsafe.Pointer(headerGuard.GetData()))
		directoryIdx := headerPage.HashToDirectoryIndex(hash)
		directoryPageId := headerPage.GetDirectoryPageId(directoryIdx)

		if !directoryPageId.IsValid() {
			// first insert under this header slot
			inserted := ht.insertToNewDirectory(headerGuard, headerPage, directoryIdx, key, value)
			headerGuard.Drop()
			return inserted
		}
		headerGuard.Drop()

		directoryGuard := ht.bpm.FetchPageWrite(directoryPageId)
		if directoryGuard == nil {
			return false
		}
		directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetData()))
		bucketIdx := directoryPage.HashToBucketIndex(hash)
		bucketPageId := directoryPage.GetBucketPageId(bucketIdx)
		common.MG_Assert(bucketPageId.IsValid(), "directory slot without a bucket")

		bucketGuard := ht.bpm.FetchPageWrite(bucketPageId)
		if bucketGuard == nil {
			directoryGuard.Drop()
			return false
		}
		bucketPage := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetData()))

		if _, found := bucketPage.Lookup(key, ht.cmp); found {
			bucketGuard.Drop()
			directoryGuard.Drop()
			return false
		}

		if !bucketPage.IsFull() {
			inserted := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetDataMut())).Insert(key, value, ht.cmp)
			bucketGuard.Drop()
			directoryGuard.Drop()
			return inserted
		}

		// the bucket is full. refuse up front when no depth available to this
		// directory can thin the key's hash class below the bucket capacity:
		// a refused insert must leave no partial splits behind
		maxMask := uint32(1)<<directoryPage.GetMaxDepth() - 1
		conflicting := uint32(0)
		for i := uint32(0); i < bucketPage.Size(); i++ {
			if ht.hashFn(bucketPage.KeyAt(i))&maxMask == hash&maxMask {
				conflicting++
			}
		}
		if conflicting == bucketPage.MaxSize() {
			bucketGuard.Drop()
			directoryGuard.Drop()
			return false
		}

		// grow the directory when the bucket already uses every directory bit,
		// then split
		if directoryPage.GetLocalDepth(bucketIdx) == directoryPage.GetGlobalDepth() &&
			directoryPage.GetGlobalDepth() == directoryPage.GetMaxDepth() {
			bucketGuard.Drop()
			directoryGuard.Drop()
			return false
		}

		newBucketGuard := ht.bpm.NewPageGuarded()
		if newBucketGuard == nil {
			bucketGuard.Drop()
			directoryGuard.Drop()
			return false
		}

		directoryGuard.GetDataMut()
		if directoryPage.GetLocalDepth(bucketIdx) == directoryPage.GetGlobalDepth() {
			directoryPage.IncrGlobalDepth()
			bucketIdx = directoryPage.HashToBucketIndex(hash)
		}

		newBucketPage := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(newBucketGuard.GetDataMut()))
		newBucketPage.Init(ht.bucketMaxSize)

		oldLocalDepth := directoryPage.GetLocalDepth(bucketIdx)
		newLocalDepth := oldLocalDepth + 1
		localDepthMask := uint32(1) << oldLocalDepth

		// every slot of the old bucket's class with the new depth bit set now
		// points at the split image
		ht.updateDirectoryMapping(directoryPage, bucketPageId, newBucketGuard.PageId(), newLocalDepth, localDepthMask)

		// migrate the entries whose hash carries the new depth bit
		bucketGuard.GetDataMut()
		for i := uint32(0); i < bucketPage.Size(); {
			entryKey := bucketPage.KeyAt(i)
			if ht.hashFn(entryKey)&localDepthMask != 0 {
				entryValue := bucketPage.ValueAt(i)
				bucketPage.RemoveAt(i)
				newBucketPage.Insert(entryKey, entryValue, ht.cmp)
			} else {
				i++
			}
		}

		newBucketGuard.Drop()
		bucketGuard.Drop()
		directoryGuard.Drop()
	}
}

// insertToNewDirectory wires a fresh directory and bucket under the header
// slot, then places the pair in the bucket.
func (ht *DiskExtendibleHashTable) insertToNewDirectory(headerGuard *buffer.WritePageGuard,
	headerPage *page.ExtendibleHTableHeaderPage, directoryIdx uint32, key uint64, value page.RID) bool {
	directoryGuard := ht.bpm.NewPageGuarded()
	if directoryGuard == nil {
		return false
	}
	bucketGuard := ht.bpm.NewPageGuarded()
	if bucketGuard == nil {
		directoryGuard.Drop()
		return false
	}

	directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetDataMut()))
	directoryPage.Init(ht.directoryMaxDepth)

	bucketPage := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetDataMut()))
	bucketPage.Init(ht.bucketMaxSize)

	directoryPage.SetBucketPageId(0, bucketGuard.PageId())
	directoryPage.SetLocalDepth(0, 0)
	headerGuard.GetDataMut()
	headerPage.SetDirectoryPageId(directoryIdx, directoryGuard.PageId())

	inserted := bucketPage.Insert(key, value, ht.cmp)

	bucketGuard.Drop()
	directoryGuard.Drop()
	return inserted
}

// updateDirectoryMapping rewires every directory slot of the split bucket's
// class: the new local depth everywhere, the split image's page id where the
// new depth bit is set.
func (ht *DiskExtendibleHashTable) updateDirectoryMapping(directoryPage *page.ExtendibleHTableDirectoryPage,
	origBucketPageId types.PageID, newBucketPageId types.PageID, newLocalDepth uint32, localDepthMask uint32) {
	for i := uint32(0); i < directoryPage.Size(); i++ {
		if directoryPage.GetBucketPageId(i) == origBucketPageId {
			if i&localDepthMask != 0 {
				directoryPage.SetBucketPageId(i, newBucketPageId)
			}
			directoryPage.SetLocalDepth(i, uint8(newLocalDepth))
		}
	}
}

// Remove deletes the key from the table. An emptied bucket merges with its
// split image when their local depths match (the bucket page is freed exactly
// once), and the directory halves when every local depth sits strictly below
// the global depth.
func (ht *DiskExtendibleHashTable) Remove(key uint64, txn *access.Transaction) bool {
	ht.tableLatch.WLock()
	defer ht.tableLatch.WUnlock()

	hash := ht.hashFn(key)

	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	if headerGuard == nil {
		return false
	}
	headerPage := (*page.ExtendibleHTableHeaderPage)(unsafe.Pointer(headerGuard.GetData()))
	directoryPageId := headerPage.GetDirectoryPageId(headerPage.HashToDirectoryIndex(hash))
	headerGuard.Drop()
	if !directoryPageId.IsValid() {
		return false
	}

	directoryGuard := ht.bpm.FetchPageWrite(directoryPageId)
	if directoryGuard == nil {
		return false
	}
	directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetData()))
	bucketIdx := directoryPage.HashToBucketIndex(hash)
	bucketPageId := directoryPage.GetBucketPageId(bucketIdx)
	if !bucketPageId.IsValid() {
		directoryGuard.Drop()
		return false
	}

	bucketGuard := ht.bpm.FetchPageWrite(bucketPageId)
	if bucketGuard == nil {
		directoryGuard.Drop()
		return false
	}
	bucketPage := (*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetData()))

	if !(*page.ExtendibleHTableBucketPage)(unsafe.Pointer(bucketGuard.GetDataMut())).Remove(key, ht.cmp) {
		bucketGuard.Drop()
		directoryGuard.Drop()
		return false
	}

	bucketDropped := false
	if bucketPage.IsEmpty() && directoryPage.GetLocalDepth(bucketIdx) > 0 {
		localDepth := directoryPage.GetLocalDepth(bucketIdx)
		splitIdx := directoryPage.GetSplitImageIndex(bucketIdx)
		if directoryPage.GetLocalDepth(splitIdx) == localDepth {
			// merge into the split image
			imagePageId := directoryPage.GetBucketPageId(splitIdx)
			directoryGuard.GetDataMut()
			for i := uint32(0); i < directoryPage.Size(); i++ {
				if directoryPage.GetBucketPageId(i) == bucketPageId {
					directoryPage.SetBucketPageId(i, imagePageId)
				}
			}
			for i := uint32(0); i < directoryPage.Size(); i++ {
				if directoryPage.GetBucketPageId(i) == imagePageId {
					directoryPage.SetLocalDepth(i, uint8(localDepth-1))
				}
			}
			bucketGuard.Drop()
			bucketDropped = true
			ht.bpm.DeletePage(bucketPageId)
		}
	}

	if directoryPage.CanShrink() {
		directoryGuard.GetDataMut()
		oldSize := directoryPage.Size()
		directoryPage.DecrGlobalDepth()
		for i := directoryPage.Size(); i < oldSize; i++ {
			directoryPage.SetBucketPageId(i, types.InvalidPageID)
			directoryPage.SetLocalDepth(i, 0)
		}
	}

	if !bucketDropped {
		bucketGuard.Drop()
	}
	directoryGuard.Drop()
	return true
}

// VerifyIntegrity walks every live directory and checks the depth invariants.
// Test helper.
func (ht *DiskExtendibleHashTable) VerifyIntegrity() {
	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	common.MG_Assert(headerGuard != nil, "header page must be fetchable")
	headerPage := (*page.ExtendibleHTableHeaderPage)(unsafe.Pointer(headerGuard.GetData()))

	directoryIds := make([]types.PageID, 0)
	for i := uint32(0); i < headerPage.MaxSize(); i++ {
		if id := headerPage.GetDirectoryPageId(i); id.IsValid() {
			directoryIds = append(directoryIds, id)
		}
	}
	headerGuard.Drop()

	for _, id := range directoryIds {
		directoryGuard := ht.bpm.FetchPageRead(id)
		common.MG_Assert(directoryGuard != nil, "directory page must be fetchable")
		directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetData()))
		directoryPage.VerifyIntegrity()
		directoryGuard.Drop()
	}
}
