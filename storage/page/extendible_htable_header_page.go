package page

import (
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/types"
)

// upper bound of the header max depth so the layout fits in one page
const HeaderMaxDepthUpperBound = 9

/**
 * Header page format:
 *  ---------------------------------------------------
 * | DirectoryPageIds(2048) | MaxDepth (4) | Free(2044)
 *  ---------------------------------------------------
 *
 * The high MaxDepth bits of a key hash select the directory page.
 * Accessors touch only the first 2^MaxDepth slots.
 */
type ExtendibleHTableHeaderPage struct {
	directoryPageIds [1 << HeaderMaxDepthUpperBound]types.PageID
	maxDepth         uint32
}

func (page *ExtendibleHTableHeaderPage) Init(maxDepth uint32) {
	common.MG_Assert(maxDepth <= HeaderMaxDepthUpperBound, "header max depth is too large")
	page.maxDepth = maxDepth
	size := page.MaxSize()
	for i := uint32(0); i < size; i++ {
		page.directoryPageIds[i] = types.InvalidPageID
	}
}

// HashToDirectoryIndex returns the directory index the hash lands on: the top
// maxDepth bits of the 32-bit hash, or 0 when maxDepth is 0.
func (page *ExtendibleHTableHeaderPage) HashToDirectoryIndex(hash uint32) uint32 {
	if page.maxDepth == 0 {
		return 0
	}
	return hash >> (32 - page.maxDepth)
}

func (page *ExtendibleHTableHeaderPage) GetDirectoryPageId(directoryIdx uint32) types.PageID {
	if directoryIdx >= page.MaxSize() {
		return types.InvalidPageID
	}
	return page.directoryPageIds[directoryIdx]
}

func (page *ExtendibleHTableHeaderPage) SetDirectoryPageId(directoryIdx uint32, directoryPageId types.PageID) {
	common.MG_Assert(directoryIdx < page.MaxSize(), "directory index out of range")
	page.directoryPageIds[directoryIdx] = directoryPageId
}

// MaxSize returns the number of directory page ids the header can hold
func (page *ExtendibleHTableHeaderPage) MaxSize() uint32 {
	return 1 << page.maxDepth
}

func (page *ExtendibleHTableHeaderPage) GetMaxDepth() uint32 {
	return page.maxDepth
}
