package index

import (
	"github.com/maguroid/MaguroDB/storage/access"
	"github.com/maguroid/MaguroDB/storage/page"
	"github.com/maguroid/MaguroDB/types"
)

// Index is the interface executors use to reach an index implementation
// without knowing its structure. The transaction handle is optional and may
// be nil.
type Index interface {
	// InsertEntry maps the key to the record id. false on a duplicate key or
	// an index that cannot grow further
	InsertEntry(key *types.Value, rid page.RID, txn *access.Transaction) bool
	// DeleteEntry removes the key. false when the key is absent
	DeleteEntry(key *types.Value, txn *access.Transaction) bool
	// ScanKey returns the record ids stored under the key
	ScanKey(key *types.Value, txn *access.Transaction) []page.RID
}
