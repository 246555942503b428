package buffer

import (
	"errors"
	"sync"

	"github.com/golang-collections/collections/stack"
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/storage/disk"
	"github.com/maguroid/MaguroDB/storage/page"
	"github.com/maguroid/MaguroDB/types"
	"github.com/ncw/directio"
)

// BufferPoolManager mediates between the disk and in-memory clients through a
// fixed array of page frames. All public operations are serialized by one
// mutex, which is held across the synchronous disk I/O they trigger.
type BufferPoolManager struct {
	diskManager   disk.DiskManager
	diskScheduler *disk.DiskScheduler
	pages         []*page.Page // index is FrameID
	replacer      *LRUKReplacer
	freeList      *stack.Stack
	pageTable     map[types.PageID]FrameID
	mutex         *sync.Mutex
}

// NewBufferPoolManager returns an empty buffer pool manager
func NewBufferPoolManager(poolSize uint32, replacerK uint32, diskManager disk.DiskManager) *BufferPoolManager {
	freeList := stack.New()
	pages := make([]*page.Page, poolSize)
	for i := int32(poolSize) - 1; i >= 0; i-- {
		freeList.Push(FrameID(i))
		pages[i] = nil
	}

	replacer := NewLRUKReplacer(poolSize, replacerK)
	return &BufferPoolManager{diskManager, disk.NewDiskScheduler(diskManager), pages,
		replacer, freeList, make(map[types.PageID]FrameID), new(sync.Mutex)}
}

// FetchPage fetches the requested page from the buffer pool.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	if pageID == types.InvalidPageID {
		return nil
	}

	b.mutex.Lock()
	// if it is on buffer pool return it
	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.RecordAccess(frameID)
		b.replacer.SetEvictable(frameID, false)
		b.mutex.Unlock()
		if common.EnableDebug {
			common.MgPrintf(common.DEBUG_INFO, "FetchPage: PageId=%d PinCount=%d\n", pg.GetPageId(), pg.PinCount())
		}
		return pg
	}

	// get a frame from the free list or from the replacer
	frameID, ok := b.getFrameID()
	if !ok {
		b.mutex.Unlock()
		return nil
	}

	// remove the victim page from the chosen frame
	if currentPage := b.pages[frameID]; currentPage != nil {
		common.MG_Assert(currentPage.PinCount() == 0, "pin count of the page being cached out must be zero")
		if currentPage.IsDirty() {
			currentPage.WLatch()
			data := currentPage.Data()
			b.writePageToDisk(currentPage.GetPageId(), data[:])
			currentPage.WUnlatch()
		}
		delete(b.pageTable, currentPage.GetPageId())
	}

	data := directio.AlignedBlock(common.PageSize)
	if err := b.readPageFromDisk(pageID, data); err != nil {
		// the frame stays usable for the next caller
		b.freeList.Push(frameID)
		b.pages[frameID] = nil
		b.mutex.Unlock()
		return nil
	}
	var pageData [common.PageSize]byte
	copy(pageData[:], data)
	pg := page.New(pageID, false, &pageData)

	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)
	b.mutex.Unlock()

	return pg
}

// UnpinPage unpins the target page from the buffer pool.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		if pg.PinCount() <= 0 {
			return errors.New("pin count is already zero")
		}
		if isDirty {
			pg.SetIsDirty(true)
		}
		pg.DecPinCount()
		if pg.PinCount() == 0 {
			b.replacer.SetEvictable(frameID, true)
		}
		return nil
	}

	return errors.New("could not find page")
}

// FlushPage writes the target page's contents to disk and clears its dirty bit.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.flushPage(pageID)
}

// caller holds the pool mutex
func (b *BufferPoolManager) flushPage(pageID types.PageID) bool {
	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		data := pg.Data()
		b.writePageToDisk(pageID, data[:])
		pg.SetIsDirty(false)
		return true
	}
	return false
}

// NewPage allocates a new page in the buffer pool with the disk manager's help
func (b *BufferPoolManager) NewPage() *page.Page {
	b.mutex.Lock()

	frameID, ok := b.getFrameID()
	if !ok {
		b.mutex.Unlock()
		return nil // the buffer is full and nothing is evictable
	}

	if currentPage := b.pages[frameID]; currentPage != nil {
		common.MG_Assert(currentPage.PinCount() == 0, "pin count of the page being cached out must be zero")
		if currentPage.IsDirty() {
			currentPage.WLatch()
			data := currentPage.Data()
			b.writePageToDisk(currentPage.GetPageId(), data[:])
			currentPage.WUnlatch()
		}
		delete(b.pageTable, currentPage.GetPageId())
	}

	pageID := b.diskManager.AllocatePage()
	pg := page.NewEmpty(pageID)

	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)
	b.mutex.Unlock()

	return pg
}

// DeletePage deletes a page from the buffer pool and deallocates it on disk.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		b.diskManager.DeallocatePage(pageID)
		return true
	}

	pg := b.pages[frameID]
	if pg.PinCount() > 0 {
		return false
	}

	delete(b.pageTable, pageID)
	b.replacer.Remove(frameID)
	b.pages[frameID] = nil
	b.freeList.Push(frameID)
	b.diskManager.DeallocatePage(pageID)

	return true
}

// FlushAllPages flushes all the pages in the buffer pool to disk.
func (b *BufferPoolManager) FlushAllPages() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for pageID := range b.pageTable {
		b.flushPage(pageID)
	}
}

// ShutDown flushes the resident pages and joins the disk scheduler's worker.
func (b *BufferPoolManager) ShutDown() {
	b.FlushAllPages()
	b.diskScheduler.ShutDown()
}

// caller holds the pool mutex
func (b *BufferPoolManager) getFrameID() (FrameID, bool) {
	if b.freeList.Len() > 0 {
		return b.freeList.Pop().(FrameID), true
	}
	return b.replacer.Evict()
}

// caller holds the pool mutex. blocks until the scheduler's worker reports back
func (b *BufferPoolManager) writePageToDisk(pageID types.PageID, data []byte) error {
	callback := make(chan error, 1)
	b.diskScheduler.Schedule(&disk.DiskRequest{IsWrite: true, Data: data, PageID: pageID, Callback: callback})
	return <-callback
}

// caller holds the pool mutex. blocks until the scheduler's worker reports back
func (b *BufferPoolManager) readPageFromDisk(pageID types.PageID, data []byte) error {
	callback := make(chan error, 1)
	b.diskScheduler.Schedule(&disk.DiskRequest{IsWrite: false, Data: data, PageID: pageID, Callback: callback})
	return <-callback
}
