package ledger

// Store is the key-value persistence port the ledger writes through.
// Values are JSON documents; Load reports absence through ok=false rather
// than an error.
type Store interface {
	Load(key string) (value []byte, ok bool, err error)
	Save(key string, value []byte) error
}

// Persistence keys for the two ledger aggregates.
const (
	KeyTransactions = "transactions"
	KeyCategories   = "categories"
)
