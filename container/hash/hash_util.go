package hash

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// HashFunc projects a packed 8-byte key onto the table's 32-bit address space.
// The top bits pick a directory, the low bits pick a bucket.
type HashFunc func(key uint64) uint32

func hashBytes(bytes []byte, length uint32) uint32 {
	// https://github.com/greenplum-db/gpos/blob/b53c1acd6285de94044ff91fbee91589543feba1/libgpos/src/utils.cpp#L126
	var hash uint32 = length
	for i := 0; i < int(length); i++ {
		hash = ((hash << 5) ^ (hash >> 27)) ^ uint32(bytes[i])
	}
	return hash
}

// CombineHashes folds two 32-bit hashes into one
func CombineHashes(l uint32, r uint32) uint32 {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, l)
	binary.Write(buf, binary.LittleEndian, r)
	return hashBytes(buf.Bytes(), 4*2)
}

func GenHashMurMur(key []byte) uint32 {
	h := murmur3.New128()
	h.Write(key)

	hash := h.Sum(nil)

	return binary.LittleEndian.Uint32(hash)
}

func GenHashXX(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}

// MurMurHashFunc is the default HashFunc of the extendible hash table
func MurMurHashFunc(key uint64) uint32 {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, key)
	return GenHashMurMur(buf)
}

// XXHashFunc is an alternative HashFunc on xxHash
func XXHashFunc(key uint64) uint32 {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, key)
	return GenHashXX(buf)
}

// IntComparator orders packed integer keys. 0 means equal.
func IntComparator(lhs uint64, rhs uint64) int {
	if lhs == rhs {
		return 0
	}
	if lhs < rhs {
		return -1
	}
	return 1
}
