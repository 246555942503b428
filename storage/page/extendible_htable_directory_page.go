package page

import (
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/types"
)

// upper bound of the directory max depth so the layout fits in one page
const DirectoryMaxDepthUpperBound = 9

/**
 * Directory page format:
 *  --------------------------------------------------------------------
 * | MaxDepth (4) | GlobalDepth (4) | LocalDepths (512) | BucketPageIds(2048)
 *  --------------------------------------------------------------------
 *
 * The low GlobalDepth bits of a key hash select the bucket slot.
 */
type ExtendibleHTableDirectoryPage struct {
	maxDepth      uint32
	globalDepth   uint32
	localDepths   [1 << DirectoryMaxDepthUpperBound]uint8
	bucketPageIds [1 << DirectoryMaxDepthUpperBound]types.PageID
}

func (page *ExtendibleHTableDirectoryPage) Init(maxDepth uint32) {
	common.MG_Assert(maxDepth <= DirectoryMaxDepthUpperBound, "directory max depth is too large")
	page.maxDepth = maxDepth
	page.globalDepth = 0
	for i := uint32(0); i < (1 << maxDepth); i++ {
		page.localDepths[i] = 0
		page.bucketPageIds[i] = types.InvalidPageID
	}
}

// HashToBucketIndex returns the bucket slot the hash lands on: the low
// GlobalDepth bits of the 32-bit hash.
func (page *ExtendibleHTableDirectoryPage) HashToBucketIndex(hash uint32) uint32 {
	return hash & page.GetGlobalDepthMask()
}

func (page *ExtendibleHTableDirectoryPage) GetBucketPageId(bucketIdx uint32) types.PageID {
	common.MG_Assert(bucketIdx < (1 << page.maxDepth), "bucket index out of range")
	return page.bucketPageIds[bucketIdx]
}

func (page *ExtendibleHTableDirectoryPage) SetBucketPageId(bucketIdx uint32, bucketPageId types.PageID) {
	common.MG_Assert(bucketIdx < (1 << page.maxDepth), "bucket index out of range")
	page.bucketPageIds[bucketIdx] = bucketPageId
}

// GetSplitImageIndex returns the directory index the bucket at bucketIdx splits
// into (or merges with), under the slot's current local depth.
func (page *ExtendibleHTableDirectoryPage) GetSplitImageIndex(bucketIdx uint32) uint32 {
	common.MG_Assert(page.localDepths[bucketIdx] > 0, "split image of a depth-0 bucket")
	return bucketIdx ^ (1 << (page.localDepths[bucketIdx] - 1))
}

// GetGlobalDepthMask returns a mask of GlobalDepth low bits
func (page *ExtendibleHTableDirectoryPage) GetGlobalDepthMask() uint32 {
	return (1 << page.globalDepth) - 1
}

// GetLocalDepthMask returns a mask selecting the highest bit a bucket's local
// depth distinguishes
func (page *ExtendibleHTableDirectoryPage) GetLocalDepthMask(bucketIdx uint32) uint32 {
	common.MG_Assert(bucketIdx < page.Size(), "bucket index out of range")
	localDepth := uint32(page.localDepths[bucketIdx])
	common.MG_Assert(localDepth > 0, "local depth mask of a depth-0 bucket")
	return 1 << (localDepth - 1)
}

func (page *ExtendibleHTableDirectoryPage) GetGlobalDepth() uint32 {
	return page.globalDepth
}

func (page *ExtendibleHTableDirectoryPage) GetMaxDepth() uint32 {
	return page.maxDepth
}

// IncrGlobalDepth doubles the directory, duplicating every existing slot into
// its upper-half image so both keep pointing at the same buckets.
func (page *ExtendibleHTableDirectoryPage) IncrGlobalDepth() {
	if page.globalDepth >= page.maxDepth {
		return
	}
	for i := uint32(0); i < (1 << page.globalDepth); i++ {
		page.bucketPageIds[(1<<page.globalDepth)+i] = page.bucketPageIds[i]
		page.localDepths[(1<<page.globalDepth)+i] = page.localDepths[i]
	}
	page.globalDepth++
}

func (page *ExtendibleHTableDirectoryPage) DecrGlobalDepth() {
	if page.globalDepth == 0 {
		return
	}
	page.globalDepth--
}

// CanShrink reports whether every local depth is strictly below the global depth
func (page *ExtendibleHTableDirectoryPage) CanShrink() bool {
	if page.globalDepth == 0 {
		return false
	}
	for i := uint32(0); i < page.Size(); i++ {
		if uint32(page.localDepths[i]) == page.globalDepth {
			return false
		}
	}
	return true
}

// Size returns the number of live directory slots (2^GlobalDepth)
func (page *ExtendibleHTableDirectoryPage) Size() uint32 {
	return 1 << page.globalDepth
}

func (page *ExtendibleHTableDirectoryPage) GetLocalDepth(bucketIdx uint32) uint32 {
	common.MG_Assert(bucketIdx < (1 << page.maxDepth), "bucket index out of range")
	return uint32(page.localDepths[bucketIdx])
}

func (page *ExtendibleHTableDirectoryPage) SetLocalDepth(bucketIdx uint32, localDepth uint8) {
	common.MG_Assert(bucketIdx < (1 << page.maxDepth), "bucket index out of range")
	page.localDepths[bucketIdx] = localDepth
}

func (page *ExtendibleHTableDirectoryPage) IncrLocalDepth(bucketIdx uint32) {
	if uint32(page.localDepths[bucketIdx]) < page.globalDepth {
		page.localDepths[bucketIdx]++
	}
}

func (page *ExtendibleHTableDirectoryPage) DecrLocalDepth(bucketIdx uint32) {
	if page.localDepths[bucketIdx] > 0 {
		page.localDepths[bucketIdx]--
	}
}

// VerifyIntegrity checks the depth invariants over the live slots:
// every local depth is at most the global depth, slots sharing a bucket page
// share a local depth, and each bucket page id is referenced by exactly
// 2^(globalDepth-localDepth) slots.
func (page *ExtendibleHTableDirectoryPage) VerifyIntegrity() {
	pageIdToCount := make(map[types.PageID]uint32)
	pageIdToLd := make(map[types.PageID]uint32)

	for i := uint32(0); i < page.Size(); i++ {
		bucketPageId := page.bucketPageIds[i]
		ld := uint32(page.localDepths[i])
		common.MG_Assert(ld <= page.globalDepth, "local depth exceeds global depth")
		pageIdToCount[bucketPageId]++
		if knownLd, ok := pageIdToLd[bucketPageId]; ok {
			common.MG_Assert(ld == knownLd, "slots sharing a bucket disagree on local depth")
		} else {
			pageIdToLd[bucketPageId] = ld
		}
	}

	for bucketPageId, count := range pageIdToCount {
		ld := pageIdToLd[bucketPageId]
		shareCount := uint32(1) << (page.globalDepth - ld)
		common.MG_Assert(count == shareCount, "bucket is referenced by the wrong number of slots")
	}
}
