package disk

import (
	"errors"
	"io"
	"log"
	"os"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/types"
)

// DiskManagerImpl is the disk implementation of DiskManager
type DiskManagerImpl struct {
	db            *os.File
	fileName      string
	nextPageID    types.PageID
	numWrites     uint64
	size          int64
	deallocedIDs  mapset.Set[types.PageID]
	reusableIDs   []types.PageID
	dbFileMutex   *sync.Mutex
}

// NewDiskManagerImpl returns a DiskManager instance backed by dbFilename
func NewDiskManagerImpl(dbFilename string) DiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open db file")
		return nil
	}

	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalln("file info error")
		return nil
	}

	fileSize := fileInfo.Size()
	nPages := fileSize / common.PageSize

	nextPageID := types.PageID(0)
	if nPages > 0 {
		nextPageID = types.PageID(int32(nPages))
	}

	return &DiskManagerImpl{file, dbFilename, nextPageID, 0, fileSize,
		mapset.NewSet[types.PageID](), make([]types.PageID, 0), new(sync.Mutex)}
}

// ShutDown closes the database file
func (d *DiskManagerImpl) ShutDown() {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	d.db.Close()
}

// WritePage writes a page to the database file
func (d *DiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageId) * common.PageSize
	d.db.Seek(offset, io.SeekStart)
	bytesWritten, err := d.db.Write(pageData)
	if err != nil {
		return err
	}

	if bytesWritten != common.PageSize {
		return errors.New("bytes written not equals page size")
	}

	if offset >= d.size {
		d.size = offset + int64(bytesWritten)
	}

	d.db.Sync()
	d.numWrites++
	return nil
}

// ReadPage reads a page from the database file
func (d *DiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if d.deallocedIDs.Contains(pageID) {
		return types.DeallocatedPageErr
	}

	offset := int64(pageID) * common.PageSize

	fileInfo, err := d.db.Stat()
	if err != nil {
		return errors.New("file info error")
	}

	if offset > fileInfo.Size() {
		return errors.New("I/O error past end of file")
	}

	d.db.Seek(offset, io.SeekStart)

	bytesRead, err := d.db.Read(pageData)
	if err != nil {
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
func (d *DiskManagerImpl) AllocatePage() types.PageID {
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
func (d *DiskManagerImpl) DeallocatePage(pageID types.PageID) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if d.deallocedIDs.Contains(pageID) {
		return
	}
	d.deallocedIDs.Add(pageID)
	d.reusableIDs = append(d.reusableIDs, pageID)
}

// GetNumWrites returns the number of disk writes so far
func (d *DiskManagerImpl) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the file in disk
func (d *DiskManagerImpl) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}
