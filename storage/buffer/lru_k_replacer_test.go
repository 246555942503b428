package buffer

import (
	"testing"

	testingpkg "github.com/maguroid/MaguroDB/testing/testing_assert"
)

func TestLRUKReplacer(t *testing.T) {
	replacer := NewLRUKReplacer(7, 2)

	// Scenario: add six frames to the replacer. We have [1,2,3,4,5]
	// evictable, frame 6 is non-evictable.
	replacer.RecordAccess(1)
	replacer.RecordAccess(2)
	replacer.RecordAccess(3)
	replacer.RecordAccess(4)
	replacer.RecordAccess(5)
	replacer.RecordAccess(6)
	replacer.SetEvictable(1, true)
	replacer.SetEvictable(2, true)
	replacer.SetEvictable(3, true)
	replacer.SetEvictable(4, true)
	replacer.SetEvictable(5, true)
	replacer.SetEvictable(6, false)
	testingpkg.Equals(t, uint32(5), replacer.Size())

	// Scenario: insert access history for frame 1. Now frame 1 has two access
	// records, so its backward k-distance is finite while [2,3,4,5] stay at
	// +inf.
	replacer.RecordAccess(1)

	// Scenario: evict three pages from the replacer. They are picked from the
	// +inf cohort by earliest first access: 2, then 3, then 4.
	victim, ok := replacer.Evict()
	testingpkg.SimpleAssert(t, ok)
	testingpkg.Equals(t, FrameID(2), victim)
	victim, _ = replacer.Evict()
	testingpkg.Equals(t, FrameID(3), victim)
	victim, _ = replacer.Evict()
	testingpkg.Equals(t, FrameID(4), victim)
	testingpkg.Equals(t, uint32(2), replacer.Size())

	// Scenario: insert new access history for frames 5 and 6, then make 6
	// evictable. Every candidate now has two accesses.
	replacer.RecordAccess(5)
	replacer.RecordAccess(5)
	replacer.RecordAccess(6)
	replacer.RecordAccess(6)
	replacer.SetEvictable(6, true)
	testingpkg.Equals(t, uint32(3), replacer.Size())

	// Scenario: the victim order follows the K-th most recent access: frame 1
	// holds the oldest second-to-last access.
	victim, _ = replacer.Evict()
	testingpkg.Equals(t, FrameID(1), victim)
	victim, _ = replacer.Evict()
	testingpkg.Equals(t, FrameID(5), victim)
	victim, _ = replacer.Evict()
	testingpkg.Equals(t, FrameID(6), victim)
	testingpkg.Equals(t, uint32(0), replacer.Size())

	// Scenario: nothing is left to evict.
	_, ok = replacer.Evict()
	testingpkg.SimpleAssert(t, !ok)
}

func TestLRUKReplacerNoHistoryIsNoop(t *testing.T) {
	replacer := NewLRUKReplacer(4, 2)

	// Scenario: toggling evictability of a frame with no recorded history
	// changes nothing.
	replacer.SetEvictable(0, true)
	testingpkg.Equals(t, uint32(0), replacer.Size())

	// Scenario: removing an unknown frame changes nothing either.
	replacer.Remove(3)
	testingpkg.Equals(t, uint32(0), replacer.Size())
}

func TestLRUKReplacerRemove(t *testing.T) {
	replacer := NewLRUKReplacer(4, 2)

	replacer.RecordAccess(0)
	replacer.RecordAccess(1)
	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)
	testingpkg.Equals(t, uint32(2), replacer.Size())

	// Scenario: Remove forgets the frame regardless of its backward distance.
	replacer.Remove(1)
	testingpkg.Equals(t, uint32(1), replacer.Size())
	victim, ok := replacer.Evict()
	testingpkg.SimpleAssert(t, ok)
	testingpkg.Equals(t, FrameID(0), victim)

	// Scenario: removing a non-evictable frame is a caller bug and panics.
	replacer.RecordAccess(2)
	func() {
		defer func() {
			testingpkg.SimpleAssert(t, recover() != nil)
		}()
		replacer.Remove(2)
	}()
}

func TestLRUKReplacerHistoryOverflow(t *testing.T) {
	replacer := NewLRUKReplacer(2, 2)

	// Scenario: frame 1 is touched twice early on, then frame 0 is hammered.
	// The replacer only keeps the K most recent accesses, so frame 0 carries the
	// larger K-th-back timestamp and frame 1 is the victim.
	replacer.RecordAccess(0)
	replacer.RecordAccess(1)
	replacer.RecordAccess(1)
	replacer.RecordAccess(0)
	replacer.RecordAccess(0)
	replacer.RecordAccess(0)
	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)

	victim, ok := replacer.Evict()
	testingpkg.SimpleAssert(t, ok)
	testingpkg.Equals(t, FrameID(1), victim)
}
