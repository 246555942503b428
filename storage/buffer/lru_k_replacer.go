package buffer

import (
	"container/list"

	"github.com/bits-and-blooms/bitset"
	"github.com/maguroid/MaguroDB/common"
	pair "github.com/notEpsilon/go-pair"
)

// FrameID is the type for frame id
type FrameID uint32

/**
 * LRUKReplacer picks the frame whose K-th most recent access lies furthest in
 * the past. A frame with fewer than K recorded accesses has infinite backward
 * distance; ties among those are broken by the earliest first access (classic
 * LRU). Only frames marked evictable are candidates.
 *
 * Two cohorts are kept: frames with < K accesses ordered by first access and
 * frames with >= K accesses ordered by their K-th-back access timestamp.
 */
type LRUKReplacer struct {
	replacerSize     uint32
	k                uint32
	currentTimestamp uint64
	currSize         uint32
	// up to K timestamps per frame, oldest at the front
	history   map[FrameID][]uint64
	evictable *bitset.BitSet
	// frames with < K accesses. newest first access at the front
	unfullFrames *list.List
	unfullMap    map[FrameID]*list.Element
	// frames with >= K accesses as (frame, K-th-back timestamp) pairs,
	// ascending by timestamp
	fullFrames *list.List
	fullMap    map[FrameID]*list.Element
	// taken after the pool mutex, never contended: the checked mutex catches
	// a re-entrant or unbalanced lock right away
	mutex *common.MG_Mutex
}

// NewLRUKReplacer instantiates a replacer tracking numFrames frame slots.
// The capacity is fixed for the replacer's lifetime.
func NewLRUKReplacer(numFrames uint32, k uint32) *LRUKReplacer {
	common.MG_Assert(k > 0, "k of LRU-K must be positive")
	return &LRUKReplacer{
		replacerSize: numFrames,
		k:            k,
		history:      make(map[FrameID][]uint64),
		evictable:    bitset.New(uint(numFrames)),
		unfullFrames: list.New(),
		unfullMap:    make(map[FrameID]*list.Element),
		fullFrames:   list.New(),
		fullMap:      make(map[FrameID]*list.Element),
		mutex:        common.NewMG_Mutex(),
	}
}

// RecordAccess appends the current timestamp to the frame's history. On
// overflow of K entries the oldest one is dropped.
func (r *LRUKReplacer) RecordAccess(frameID FrameID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	common.MG_Assert(uint32(frameID) < r.replacerSize, "frame id out of range")

	r.currentTimestamp++
	prevCount := uint32(len(r.history[frameID]))
	hist := append(r.history[frameID], r.currentTimestamp)
	if uint32(len(hist)) > r.k {
		hist = hist[1:]
	}
	r.history[frameID] = hist

	switch {
	case prevCount == 0 && r.k == 1:
		r.insertIntoFullCohort(frameID, hist[0])
	case prevCount == 0:
		r.unfullMap[frameID] = r.unfullFrames.PushFront(frameID)
	case prevCount+1 == r.k:
		// the frame graduates into the full cohort
		r.unfullFrames.Remove(r.unfullMap[frameID])
		delete(r.unfullMap, frameID)
		r.insertIntoFullCohort(frameID, hist[0])
	case prevCount >= r.k:
		r.fullFrames.Remove(r.fullMap[frameID])
		delete(r.fullMap, frameID)
		r.insertIntoFullCohort(frameID, hist[0])
	}
}

// insertIntoFullCohort places the frame so the cohort stays ordered by
// K-th-back timestamp, after any entries carrying an equal timestamp.
func (r *LRUKReplacer) insertIntoFullCohort(frameID FrameID, kthTime uint64) {
	entry := &pair.Pair[FrameID, uint64]{First: frameID, Second: kthTime}
	for e := r.fullFrames.Front(); e != nil; e = e.Next() {
		if e.Value.(*pair.Pair[FrameID, uint64]).Second > kthTime {
			r.fullMap[frameID] = r.fullFrames.InsertBefore(entry, e)
			return
		}
	}
	r.fullMap[frameID] = r.fullFrames.PushBack(entry)
}

// SetEvictable toggles whether the frame may be victimized and keeps the
// evictable count in step. No-op for a frame with no recorded history.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, setEvictable bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	common.MG_Assert(uint32(frameID) < r.replacerSize, "frame id out of range")

	if len(r.history[frameID]) == 0 {
		return
	}

	status := r.evictable.Test(uint(frameID))
	if status && !setEvictable {
		r.evictable.Clear(uint(frameID))
		r.currSize--
	}
	if !status && setEvictable {
		r.evictable.Set(uint(frameID))
		r.currSize++
	}
}

// Evict selects the victim with the largest backward-k-distance, forgets its
// history and returns its id. Returns false when nothing is evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currSize == 0 {
		return 0, false
	}

	// the < K cohort first: the back of the list saw its first access earliest
	for e := r.unfullFrames.Back(); e != nil; e = e.Prev() {
		frameID := e.Value.(FrameID)
		if r.evictable.Test(uint(frameID)) {
			r.unfullFrames.Remove(e)
			delete(r.unfullMap, frameID)
			r.forget(frameID)
			return frameID, true
		}
	}

	for e := r.fullFrames.Front(); e != nil; e = e.Next() {
		frameID := e.Value.(*pair.Pair[FrameID, uint64]).First
		if r.evictable.Test(uint(frameID)) {
			r.fullFrames.Remove(e)
			delete(r.fullMap, frameID)
			r.forget(frameID)
			return frameID, true
		}
	}

	return 0, false
}

// Remove forgets the frame's history regardless of its backward distance.
// The frame must be evictable. Unknown frames are ignored.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	common.MG_Assert(uint32(frameID) < r.replacerSize, "frame id out of range")

	count := uint32(len(r.history[frameID]))
	if count == 0 {
		return
	}
	common.MG_Assert(r.evictable.Test(uint(frameID)), "removing a non-evictable frame")

	if count < r.k {
		r.unfullFrames.Remove(r.unfullMap[frameID])
		delete(r.unfullMap, frameID)
	} else {
		r.fullFrames.Remove(r.fullMap[frameID])
		delete(r.fullMap, frameID)
	}
	r.forget(frameID)
}

// forget clears history and the evictable bit. caller holds the mutex
func (r *LRUKReplacer) forget(frameID FrameID) {
	delete(r.history, frameID)
	r.evictable.Clear(uint(frameID))
	r.currSize--
}

// Size returns the number of evictable frames
func (r *LRUKReplacer) Size() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.currSize
}
