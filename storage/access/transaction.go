package access

import (
	"github.com/google/uuid"
)

// Transaction is the handle executors thread through index operations. The
// storage core accepts it for interface compatibility and never consults it.
type Transaction struct {
	txnId uuid.UUID
}

func NewTransaction() *Transaction {
	return &Transaction{uuid.New()}
}

func (t *Transaction) GetTransactionId() uuid.UUID {
	return t.txnId
}
