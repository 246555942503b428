package index

import (
	"testing"

	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/storage/access"
	"github.com/maguroid/MaguroDB/storage/buffer"
	"github.com/maguroid/MaguroDB/storage/disk"
	"github.com/maguroid/MaguroDB/storage/page"
	testingpkg "github.com/maguroid/MaguroDB/testing/testing_assert"
	"github.com/maguroid/MaguroDB/types"
)

func TestHashTableIndex(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := buffer.NewBufferPoolManager(common.BufferPoolMaxFrameNumForTest, common.ReplacerKForTest, dm)

	idx := NewExtendibleHashTableIndex(bpm, "account_id_index")
	txn := access.NewTransaction()

	for i := int32(0); i < 100; i++ {
		key := types.NewInteger(i)
		rid := page.RID{PageId: types.PageID(i / 10), SlotNum: uint32(i % 10)}
		testingpkg.SimpleAssert(t, idx.InsertEntry(&key, rid, txn))
	}

	for i := int32(0); i < 100; i++ {
		key := types.NewInteger(i)
		result := idx.ScanKey(&key, txn)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, page.RID{PageId: types.PageID(i / 10), SlotNum: uint32(i % 10)}, result[0])
	}

	// a duplicate key is refused, the stored record id stays
	dupKey := types.NewInteger(42)
	testingpkg.SimpleAssert(t, !idx.InsertEntry(&dupKey, page.RID{PageId: 99, SlotNum: 9}, txn))
	result := idx.ScanKey(&dupKey, txn)
	testingpkg.Equals(t, page.RID{PageId: types.PageID(4), SlotNum: 2}, result[0])

	// deleting makes the key unreachable; deleting again reports the miss
	testingpkg.SimpleAssert(t, idx.DeleteEntry(&dupKey, txn))
	testingpkg.Equals(t, 0, len(idx.ScanKey(&dupKey, txn)))
	testingpkg.SimpleAssert(t, !idx.DeleteEntry(&dupKey, txn))

	// a nil transaction handle is fine: the core ignores it
	probe := types.NewInteger(7)
	testingpkg.Equals(t, 1, len(idx.ScanKey(&probe, nil)))
}

func TestHashTableIndexVarcharKeys(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := buffer.NewBufferPoolManager(common.BufferPoolMaxFrameNumForTest, common.ReplacerKForTest, dm)

	idx := NewExtendibleHashTableIndex(bpm, "account_name_index")

	names := []string{"alice", "bob", "carol", "dave"}
	for i, name := range names {
		key := types.NewVarchar(name)
		testingpkg.SimpleAssert(t, idx.InsertEntry(&key, page.RID{SlotNum: uint32(i)}, nil))
	}

	for i, name := range names {
		key := types.NewVarchar(name)
		result := idx.ScanKey(&key, nil)
		testingpkg.Equals(t, 1, len(result))
		testingpkg.Equals(t, uint32(i), result[0].SlotNum)
	}

	missing := types.NewVarchar("mallory")
	testingpkg.Equals(t, 0, len(idx.ScanKey(&missing, nil)))
}
