package buffer

import (
	"github.com/maguroid/MaguroDB/common"
	"github.com/maguroid/MaguroDB/storage/page"
	"github.com/maguroid/MaguroDB/types"
)

/**
 * Page guards are scoped holders of a pinned page. Drop unpins exactly once
 * with the dirty flag the guard accumulated, whatever path the caller leaves
 * on. The read/write flavors additionally hold the page's shared/exclusive
 * latch between construction and Drop. A latch is never upgraded in place: a
 * caller wanting a write guard on a page it reads must Drop and re-fetch.
 */

// BasicPageGuard pins a page without latching it
type BasicPageGuard struct {
	bpm     *BufferPoolManager
	page    *page.Page
	isDirty bool
}

// GetData exposes the page bytes for reading
func (g *BasicPageGuard) GetData() *[common.PageSize]byte {
	return g.page.Data()
}

// GetDataMut exposes the page bytes for writing and marks the guard dirty
func (g *BasicPageGuard) GetDataMut() *[common.PageSize]byte {
	g.isDirty = true
	return g.page.Data()
}

func (g *BasicPageGuard) PageId() types.PageID {
	return g.page.GetPageId()
}

// Drop unpins the page. Further use of the guard is a caller bug.
func (g *BasicPageGuard) Drop() {
	if g.page == nil {
		return
	}
	g.bpm.UnpinPage(g.page.GetPageId(), g.isDirty)
	g.page = nil
}

// UpgradeRead converts the guard into a read guard, taking the shared latch.
func (g *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	common.MG_Assert(g.page != nil, "upgrading a dropped page guard")
	g.page.RLatch()
	ret := &ReadPageGuard{BasicPageGuard{g.bpm, g.page, g.isDirty}}
	g.page = nil
	return ret
}

// UpgradeWrite converts the guard into a write guard, taking the exclusive latch.
func (g *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	common.MG_Assert(g.page != nil, "upgrading a dropped page guard")
	g.page.WLatch()
	ret := &WritePageGuard{BasicPageGuard{g.bpm, g.page, g.isDirty}}
	g.page = nil
	return ret
}

// ReadPageGuard holds the page's shared latch for its lifetime
type ReadPageGuard struct {
	guard BasicPageGuard
}

func (g *ReadPageGuard) GetData() *[common.PageSize]byte {
	return g.guard.page.Data()
}

func (g *ReadPageGuard) PageId() types.PageID {
	return g.guard.page.GetPageId()
}

func (g *ReadPageGuard) Drop() {
	if g.guard.page == nil {
		return
	}
	g.guard.page.RUnlatch()
	g.guard.Drop()
}

// WritePageGuard holds the page's exclusive latch for its lifetime
type WritePageGuard struct {
	guard BasicPageGuard
}

func (g *WritePageGuard) GetData() *[common.PageSize]byte {
	return g.guard.page.Data()
}

// GetDataMut exposes the page bytes for writing and marks the guard dirty
func (g *WritePageGuard) GetDataMut() *[common.PageSize]byte {
	return g.guard.GetDataMut()
}

func (g *WritePageGuard) PageId() types.PageID {
	return g.guard.page.GetPageId()
}

func (g *WritePageGuard) Drop() {
	if g.guard.page == nil {
		return
	}
	g.guard.page.WUnlatch()
	g.guard.Drop()
}

// FetchPageBasic fetches the page and wraps it in a basic guard
func (b *BufferPoolManager) FetchPageBasic(pageID types.PageID) *BasicPageGuard {
	pg := b.FetchPage(pageID)
	if pg == nil {
		return nil
	}
	return &BasicPageGuard{b, pg, false}
}

// FetchPageRead fetches the page, takes its shared latch and wraps it
func (b *BufferPoolManager) FetchPageRead(pageID types.PageID) *ReadPageGuard {
	pg := b.FetchPage(pageID)
	if pg == nil {
		return nil
	}
	pg.RLatch()
	return &ReadPageGuard{BasicPageGuard{b, pg, false}}
}

// FetchPageWrite fetches the page, takes its exclusive latch and wraps it
func (b *BufferPoolManager) FetchPageWrite(pageID types.PageID) *WritePageGuard {
	pg := b.FetchPage(pageID)
	if pg == nil {
		return nil
	}
	pg.WLatch()
	return &WritePageGuard{BasicPageGuard{b, pg, false}}
}

// NewPageGuarded allocates a new page and wraps it in a basic guard
func (b *BufferPoolManager) NewPageGuarded() *BasicPageGuard {
	pg := b.NewPage()
	if pg == nil {
		return nil
	}
	return &BasicPageGuard{b, pg, false}
}
