package disk

import (
	"errors"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dsnet/golib/memfile"
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/types"
)

// VirtualDiskManagerImpl keeps the database "file" on memory. It is a drop-in
// replacement of DiskManagerImpl for tests.
type VirtualDiskManagerImpl struct {
	db           *memfile.File
	fileName     string
	nextPageID   types.PageID
	numWrites    uint64
	size         int64
	deallocedIDs mapset.Set[types.PageID]
	reusableIDs  []types.PageID
	dbFileMutex  *sync.Mutex
}

func NewVirtualDiskManagerImpl(dbFilename string) DiskManager {
	file := memfile.New(make([]byte, 0))

	return &VirtualDiskManagerImpl{file, dbFilename, types.PageID(0), 0, 0,
		mapset.NewSet[types.PageID](), make([]types.PageID, 0), new(sync.Mutex)}
}

// ShutDown does nothing. the data is just lost when the process exits
func (d *VirtualDiskManagerImpl) ShutDown() {
}

// WritePage writes a page to the in-memory file
func (d *VirtualDiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageId) * common.PageSize
	d.db.WriteAt(pageData, offset)

	if offset >= d.size {
		d.size = offset + int64(len(pageData))
	}

	d.numWrites++
	return nil
}

// ReadPage reads a page from the in-memory file
func (d *VirtualDiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if d.deallocedIDs.Contains(pageID) {
		return types.DeallocatedPageErr
	}

	offset := int64(pageID) * common.PageSize

	if offset > d.size {
		return errors.New("I/O error past end of file")
	}

	bytesRead, err := d.db.ReadAt(pageData, offset)
	if err != nil && bytesRead <= 0 {
		return errors.New("I/O error while reading")
	}

	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

// AllocatePage allocates a new page id, reusing a deallocated one when possible
func (d *VirtualDiskManagerImpl) AllocatePage() types.PageID {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if len(d.reusableIDs) > 0 {
		ret := d.reusableIDs[0]
		d.reusableIDs = d.reusableIDs[1:]
		d.deallocedIDs.Remove(ret)
		return ret
	}
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

// DeallocatePage marks the page id as free for reuse
func (d *VirtualDiskManagerImpl) DeallocatePage(pageID types.PageID) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if d.deallocedIDs.Contains(pageID) {
		return
	}
	d.deallocedIDs.Add(pageID)
	d.reusableIDs = append(d.reusableIDs, pageID)
}

// GetNumWrites returns the number of page writes so far
func (d *VirtualDiskManagerImpl) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the in-memory file
func (d *VirtualDiskManagerImpl) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}
