package common

import (
	"time"
)

var LogTimeout time.Duration

const EnableDebug bool = false

// swap every latch for the lock-counting dummy when hunting latch bugs on
// single threaded runs
const EnableSingleThreadExecutionCheck = false

// use on memory virtual storage or not
const EnableOnMemStorage = true

// when this is true, virtual storage use is suppressed
// for test cases which can't work with virtual storage
var TempSuppressOnMemStorage = false

const (
	// invalid page id
	InvalidPageID = -1
	// invalid transaction id
	InvalidTxnID = -1
	// size of a data page in byte
	PageSize = 4096
	// number of frames the buffer pool holds on test runs
	BufferPoolMaxFrameNumForTest = 32
	// default K of the LRU-K replacer
	ReplacerKForTest = 2
	// max depth of a hash index header page (fits 2^9 directory slots in one page)
	HashHeaderMaxDepth = 9
	// max depth of a hash index directory page
	HashDirectoryMaxDepth = 9
	// size of a hash index bucket used by index code
	BucketSizeOfHashIndex = 50

	ActiveLogKindSetting = INFO
)

type TxnID int32        // transaction id type
type SlotOffset uintptr // slot offset type
