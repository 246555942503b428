package page

import (
	"sync/atomic"

	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/types"
)

/**
 * Page is the basic unit of storage within the database system. Page provides a wrapper for actual data pages being
 * held in main memory. Page also contains book-keeping information that is used by the buffer pool manager, e.g.
 * pin count, dirty flag, page id, etc.
 */

// Page represents an abstract page on disk
type Page struct {
	id       types.PageID           // identifies the page. It is used to find the offset of the page on disk
	pinCount int32                  // counts how many users are accessing it
	isDirty  bool                   // the page was modified but not flushed
	data     *[common.PageSize]byte // bytes stored in disk
	rwlatch  common.ReaderWriterLatch
}

// IncPinCount increments pin count
func (p *Page) IncPinCount() {
	atomic.AddInt32(&p.pinCount, 1)
}

// DecPinCount decrements pin count
func (p *Page) DecPinCount() {
	if atomic.LoadInt32(&p.pinCount) > 0 {
		atomic.AddInt32(&p.pinCount, -1)
	}
}

// PinCount returns the pin count
func (p *Page) PinCount() int32 {
	return atomic.LoadInt32(&p.pinCount)
}

// GetPageId returns the page id
func (p *Page) GetPageId() types.PageID {
	return p.id
}

// Data returns the data of the page
func (p *Page) Data() *[common.PageSize]byte {
	return p.data
}

// SetIsDirty sets the isDirty bit
func (p *Page) SetIsDirty(isDirty bool) {
	p.isDirty = isDirty
}

// IsDirty checks if the page is dirty
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// Copy copies data to the page's data starting at offset
func (p *Page) Copy(offset uint32, data []byte) {
	copy(p.data[offset:], data)
}

// ResetData zeroes the page bytes
func (p *Page) ResetData() {
	*p.data = [common.PageSize]byte{}
}

func (p *Page) WLatch() {
	p.rwlatch.WLock()
}

func (p *Page) WUnlatch() {
	p.rwlatch.WUnlock()
}

func (p *Page) RLatch() {
	p.rwlatch.RLock()
}

func (p *Page) RUnlatch() {
	p.rwlatch.RUnlock()
}

// New creates a new page
func New(id types.PageID, isDirty bool, data *[common.PageSize]byte) *Page {
	return &Page{id, int32(1), isDirty, data, common.NewRWLatch()}
}

// NewEmpty creates a new empty page
func NewEmpty(id types.PageID) *Page {
	return &Page{id, int32(1), false, &[common.PageSize]byte{}, common.NewRWLatch()}
}
