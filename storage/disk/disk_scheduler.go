package disk

import (
	"github.com/maguroid/MaguroDB/types"
)

// DiskRequest represents one read or write for the DiskManager to execute.
type DiskRequest struct {
	// whether the request is a write or a read
	IsWrite bool
	// page-sized buffer being read into or written from
	Data []byte
	// id of the page read from / written to disk
	PageID types.PageID
	// one-shot channel the worker signals completion on. must be buffered
	Callback chan error
}

const requestQueueSize = 64

// DiskScheduler serializes disk I/O behind a FIFO request queue. A single
// background worker forwards requests to the DiskManager in submission order
// and fires each request's callback with the outcome.
type DiskScheduler struct {
	diskManager  DiskManager
	requestQueue chan *DiskRequest
	workerDone   chan struct{}
}

func NewDiskScheduler(diskManager DiskManager) *DiskScheduler {
	ds := &DiskScheduler{
		diskManager:  diskManager,
		requestQueue: make(chan *DiskRequest, requestQueueSize),
		workerDone:   make(chan struct{}),
	}
	go ds.startWorkerThread()
	return ds
}

// Schedule enqueues a request. The caller observes completion on r.Callback.
func (ds *DiskScheduler) Schedule(r *DiskRequest) {
	ds.requestQueue <- r
}

// startWorkerThread drains the queue until the shutdown sentinel arrives.
// Requests ahead of the sentinel are always completed.
func (ds *DiskScheduler) startWorkerThread() {
	for r := range ds.requestQueue {
		if r == nil {
			break
		}
		var err error
		if r.IsWrite {
			err = ds.diskManager.WritePage(r.PageID, r.Data)
		} else {
			err = ds.diskManager.ReadPage(r.PageID, r.Data)
		}
		r.Callback <- err
	}
	close(ds.workerDone)
}

// ShutDown enqueues the sentinel and joins the worker. No Schedule call may
// follow.
func (ds *DiskScheduler) ShutDown() {
	ds.requestQueue <- nil
	<-ds.workerDone
}
