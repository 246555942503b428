package hash

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/storage/buffer"
	"github.com/maguroid/MaguroDB/storage/disk"
	"github.com/maguroid/MaguroDB/storage/page"
	testingpkg "github.com/maguroid/MaguroDB/testing/testing_assert"
	"github.com/maguroid/MaguroDB/types"
	"golang.org/x/sync/errgroup"
)

// identityHashFunc exposes the key bits directly so tests can steer keys into
// chosen buckets
func identityHashFunc(key uint64) uint32 {
	return uint32(key)
}

func newTestTable(hashFn HashFunc, headerMaxDepth uint32, directoryMaxDepth uint32,
	bucketMaxSize uint32) (*DiskExtendibleHashTable, disk.DiskManager) {
	dm := disk.NewDiskManagerTest()
	bpm := buffer.NewBufferPoolManager(common.BufferPoolMaxFrameNumForTest, common.ReplacerKForTest, dm)
	ht := NewDiskExtendibleHashTable("test_hash_table", bpm, IntComparator, hashFn,
		headerMaxDepth, directoryMaxDepth, bucketMaxSize)
	return ht, dm
}

// globalDepth reads the global depth of the table's first directory
func (ht *DiskExtendibleHashTable) globalDepth() uint32 {
	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	headerPage := (*page.ExtendibleHTableHeaderPage)(unsafe.Pointer(headerGuard.GetData()))
	directoryPageId := headerPage.GetDirectoryPageId(0)
	headerGuard.Drop()

	directoryGuard := ht.bpm.FetchPageRead(directoryPageId)
	directoryPage := (*page.ExtendibleHTableDirectoryPage)(unsafe.Pointer(directoryGuard.GetData()))
	depth := directoryPage.GetGlobalDepth()
	directoryGuard.Drop()
	return depth
}

func TestHashTableBasic(t *testing.T) {
	ht, dm := newTestTable(MurMurHashFunc, 9, 9, common.BucketSizeOfHashIndex)
	defer dm.ShutDown()

	for i := uint64(0); i < 5; i++ {
		testingpkg.SimpleAssert(t, ht.Insert(i, page.RID{PageId: types.PageID(i), SlotNum: uint32(i)}, nil))
		result := ht.GetValue(i, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, page.RID{PageId: types.PageID(i), SlotNum: uint32(i)}, result[0])
	}

	for i := uint64(0); i < 5; i++ {
		result := ht.GetValue(i, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, page.RID{PageId: types.PageID(i), SlotNum: uint32(i)}, result[0])
	}

	// duplicated keys are not allowed
	for i := uint64(0); i < 5; i++ {
		testingpkg.SimpleAssert(t, !ht.Insert(i, page.RID{PageId: types.PageID(99), SlotNum: 99}, nil))
	}

	// look for a key that does not exist
	testingpkg.Equals(t, 0, len(ht.GetValue(100, nil)))

	// delete some values
	for i := uint64(0); i < 5; i++ {
		testingpkg.SimpleAssert(t, ht.Remove(i, nil))
		testingpkg.Equals(t, 0, len(ht.GetValue(i, nil)))
	}

	// delete a not-present key
	testingpkg.SimpleAssert(t, !ht.Remove(100, nil))

	ht.VerifyIntegrity()
}

func TestHashTableGrow(t *testing.T) {
	// bucket_max_size 2 and keys sharing their low bits force directory growth
	ht, dm := newTestTable(identityHashFunc, 2, 3, 2)
	defer dm.ShutDown()

	// Scenario: the first two keys fit into the initial bucket.
	testingpkg.SimpleAssert(t, ht.Insert(0, page.RID{SlotNum: 0}, nil))
	testingpkg.SimpleAssert(t, ht.Insert(4, page.RID{SlotNum: 4}, nil))
	testingpkg.Equals(t, uint32(0), ht.globalDepth())

	// Scenario: the third key collides on the low bits and splits the bucket
	// until key 4 separates at bit 2; the global depth climbs to 3.
	testingpkg.SimpleAssert(t, ht.Insert(8, page.RID{SlotNum: 8}, nil))
	testingpkg.Equals(t, uint32(3), ht.globalDepth())
	ht.VerifyIntegrity()

	// Scenario: the fourth key lands in the split image without further growth.
	testingpkg.SimpleAssert(t, ht.Insert(12, page.RID{SlotNum: 12}, nil))
	testingpkg.Equals(t, uint32(3), ht.globalDepth())
	ht.VerifyIntegrity()

	for _, key := range []uint64{0, 4, 8, 12} {
		result := ht.GetValue(key, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, uint32(key), result[0].SlotNum)
	}
}

func TestHashTableShrink(t *testing.T) {
	ht, dm := newTestTable(identityHashFunc, 2, 3, 2)
	defer dm.ShutDown()

	for _, key := range []uint64{0, 4, 8, 12} {
		testingpkg.SimpleAssert(t, ht.Insert(key, page.RID{SlotNum: uint32(key)}, nil))
	}
	testingpkg.Equals(t, uint32(3), ht.globalDepth())

	// Scenario: empty the deepest bucket; it merges with its split image and
	// the directory halves once every local depth sits below the global depth.
	testingpkg.SimpleAssert(t, ht.Remove(8, nil))
	testingpkg.SimpleAssert(t, ht.Remove(0, nil))
	testingpkg.Equals(t, uint32(2), ht.globalDepth())
	ht.VerifyIntegrity()

	// Scenario: the surviving keys stay reachable after the merge.
	for _, key := range []uint64{4, 12} {
		result := ht.GetValue(key, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, uint32(key), result[0].SlotNum)
	}
	testingpkg.Equals(t, 0, len(ht.GetValue(0, nil)))
	testingpkg.Equals(t, 0, len(ht.GetValue(8, nil)))
}

func TestHashTableCapacityRefusal(t *testing.T) {
	// the directory tops out at depth 2; keys agreeing on their low two bits
	// exhaust one hash class
	ht, dm := newTestTable(identityHashFunc, 2, 2, 2)
	defer dm.ShutDown()

	testingpkg.SimpleAssert(t, ht.Insert(0, page.RID{SlotNum: 0}, nil))
	testingpkg.SimpleAssert(t, ht.Insert(4, page.RID{SlotNum: 4}, nil))

	// Scenario: no split can separate 0, 4 and 8 below depth 3, so the insert
	// is refused and the table is left exactly as it was.
	testingpkg.SimpleAssert(t, !ht.Insert(8, page.RID{SlotNum: 8}, nil))
	testingpkg.Equals(t, uint32(0), ht.globalDepth())
	ht.VerifyIntegrity()

	result := ht.GetValue(0, nil)
	testingpkg.Equals(t, 1, len(result))
	result = ht.GetValue(4, nil)
	testingpkg.Equals(t, 1, len(result))
	testingpkg.Equals(t, 0, len(ht.GetValue(8, nil)))

	// Scenario: a key of another hash class still splits its way in.
	testingpkg.SimpleAssert(t, ht.Insert(3, page.RID{SlotNum: 3}, nil))
	testingpkg.Equals(t, 1, len(ht.GetValue(3, nil)))
	ht.VerifyIntegrity()
}

func TestHashTableManyKeysChurn(t *testing.T) {
	ht, dm := newTestTable(MurMurHashFunc, 9, 9, 4)
	defer dm.ShutDown()

	numKeys := uint64(400)
	for i := uint64(0); i < numKeys; i++ {
		testingpkg.SimpleAssert(t, ht.Insert(i, page.RID{PageId: types.PageID(i / 16), SlotNum: uint32(i % 16)}, nil))
	}
	ht.VerifyIntegrity()

	for i := uint64(0); i < numKeys; i++ {
		result := ht.GetValue(i, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, page.RID{PageId: types.PageID(i / 16), SlotNum: uint32(i % 16)}, result[0])
	}

	for i := uint64(0); i < numKeys; i += 2 {
		testingpkg.SimpleAssert(t, ht.Remove(i, nil))
	}
	ht.VerifyIntegrity()

	for i := uint64(0); i < numKeys; i++ {
		result := ht.GetValue(i, nil)
		if i%2 == 0 {
			testingpkg.Equals(t, 0, len(result))
		} else {
			testingpkg.Equals(t, 1, len(result))
		}
	}

	for i := uint64(1); i < numKeys; i += 2 {
		testingpkg.SimpleAssert(t, ht.Remove(i, nil))
	}
	ht.VerifyIntegrity()
}

func TestHashTableXXHashVariant(t *testing.T) {
	ht, dm := newTestTable(XXHashFunc, 9, 9, 4)
	defer dm.ShutDown()

	for i := uint64(0); i < 100; i++ {
		testingpkg.SimpleAssert(t, ht.Insert(i, page.RID{SlotNum: uint32(i)}, nil))
	}
	ht.VerifyIntegrity()
	for i := uint64(0); i < 100; i++ {
		result := ht.GetValue(i, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, uint32(i), result[0].SlotNum)
	}
}

func TestHashTableConcurrentAccess(t *testing.T) {
	ht, dm := newTestTable(MurMurHashFunc, 9, 9, common.BucketSizeOfHashIndex)
	defer dm.ShutDown()

	// Scenario: several threads insert disjoint key ranges, then read
	// everything back concurrently.
	numThreads := uint64(4)
	keysPerThread := uint64(50)

	var eg errgroup.Group
	for th := uint64(0); th < numThreads; th++ {
		th := th
		eg.Go(func() error {
			for i := uint64(0); i < keysPerThread; i++ {
				key := th*keysPerThread + i
				if !ht.Insert(key, page.RID{SlotNum: uint32(key)}, nil) {
					return errors.New("insert refused")
				}
			}
			return nil
		})
	}
	testingpkg.Ok(t, eg.Wait())
	ht.VerifyIntegrity()

	var rg errgroup.Group
	for th := uint64(0); th < numThreads; th++ {
		th := th
		rg.Go(func() error {
			for i := uint64(0); i < keysPerThread; i++ {
				key := th*keysPerThread + i
				result := ht.GetValue(key, nil)
				if len(result) != 1 || result[0].SlotNum != uint32(key) {
					return errors.New("lookup mismatch")
				}
			}
			return nil
		})
	}
	testingpkg.Ok(t, rg.Wait())
}
