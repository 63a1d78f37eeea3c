// Package ledger owns the in-memory transaction list and category
// taxonomy, and persists both aggregates through a Store after every
// mutation.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ErrNotFound reports an update or delete referencing an id the ledger
// does not hold. It is never fatal; callers decide how to surface it.
var ErrNotFound = errors.New("transaction not found")

// DefaultTaxonomy seeds the category lists when the persisted taxonomy is
// empty on first run.
var DefaultTaxonomy = core.Taxonomy{
	Income:  []string{"Salary", "Freelance", "Investments", "Other"},
	Expense: []string{"Housing", "Food", "Transportation", "Entertainment", "Bills", "Other"},
}

// Input carries the caller-supplied fields of a transaction. The ledger
// accepts it as-is; there is no validation failure path.
type Input struct {
	Type        core.TransactionType `json:"type"`
	Amount      core.Money           `json:"amount_cents"`
	Date        core.Date            `json:"date"`
	Time        string               `json:"time"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
}

// Patch carries partial updates: nil fields keep the prior value.
type Patch struct {
	Type        *core.TransactionType `json:"type"`
	Amount      *core.Money           `json:"amount_cents"`
	Date        *core.Date            `json:"date"`
	Time        *string               `json:"time"`
	Description *string               `json:"description"`
	Category    *string               `json:"category"`
}

// Publisher is notified after every successful mutation. Publish failures
// are logged, never surfaced to the mutating caller.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id int64, action string) error
}

// Service is the single owner of the transaction list and taxonomy.
// Mutations are serialized through a mutex and persist the whole mutated
// aggregate before returning. A persistence failure is surfaced as an
// error, but the in-memory mutation is retained either way.
type Service struct {
	mu        sync.Mutex
	store     Store
	txs       []core.Transaction
	taxonomy  core.Taxonomy
	publisher Publisher
	logger    *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher attaches a mutation event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New loads both aggregates from the store. Load failures and corrupt
// payloads degrade silently to the empty aggregate; an empty taxonomy is
// seeded with DefaultTaxonomy and persisted.
func New(store Store, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger.WithComponent("ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if data, ok, err := store.Load(KeyTransactions); err != nil {
		s.logger.Warn("Transaction load failed, starting empty", "error", err)
	} else if ok {
		if err := json.Unmarshal(data, &s.txs); err != nil {
			s.logger.Warn("Corrupt transaction data, starting empty", "error", err)
			s.txs = nil
		}
	}

	if data, ok, err := store.Load(KeyCategories); err != nil {
		s.logger.Warn("Taxonomy load failed, using defaults", "error", err)
	} else if ok {
		if err := json.Unmarshal(data, &s.taxonomy); err != nil {
			s.logger.Warn("Corrupt taxonomy data, using defaults", "error", err)
			s.taxonomy = core.Taxonomy{}
		}
	}

	if s.taxonomy.Empty() {
		s.taxonomy = DefaultTaxonomy
		if err := s.saveTaxonomy(); err != nil {
			s.logger.Warn("Seeding default taxonomy failed", "error", err)
		}
	}

	return s
}

// Add assigns the next id, appends the transaction, and persists the
// list. The id rule is max(existing ids)+1, or 1 when the ledger is
// empty, so deleting the highest transaction frees its id for reuse.
func (s *Service) Add(ctx context.Context, in Input) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := core.Transaction{
		ID:          s.nextID(),
		Type:        in.Type,
		Amount:      in.Amount,
		Date:        in.Date,
		Time:        in.Time,
		Description: in.Description,
		Category:    in.Category,
	}
	s.txs = append(s.txs, t)

	if err := s.saveTransactions(); err != nil {
		return t, fmt.Errorf("persist transactions: %w", err)
	}
	s.notify(ctx, t.ID, "created")
	return t, nil
}

// Update merges the patch into the transaction with the given id and
// persists. Returns ErrNotFound (no-op) when the id does not exist.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return core.Transaction{}, ErrNotFound
	}

	t := s.txs[idx]
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	s.txs[idx] = t

	if err := s.saveTransactions(); err != nil {
		return t, fmt.Errorf("persist transactions: %w", err)
	}
	s.notify(ctx, t.ID, "updated")
	return t, nil
}

// Remove deletes the transaction with the given id if present and
// persists the resulting list. The bool reports whether a deletion
// occurred; a missing id is a no-op, not an error.
func (s *Service) Remove(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	s.txs = append(s.txs[:idx], s.txs[idx+1:]...)

	if err := s.saveTransactions(); err != nil {
		return true, fmt.Errorf("persist transactions: %w", err)
	}
	s.notify(ctx, id, "deleted")
	return true, nil
}

// Get returns the transaction with the given id.
func (s *Service) Get(id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.txs[idx], nil
	}
	return core.Transaction{}, ErrNotFound
}

// Transactions returns a snapshot copy of the full transaction list.
func (s *Service) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Taxonomy returns a copy of the category taxonomy.
func (s *Service) Taxonomy() core.Taxonomy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Taxonomy{
		Income:  append([]string(nil), s.taxonomy.Income...),
		Expense: append([]string(nil), s.taxonomy.Expense...),
	}
}

// CategoriesFor returns the ordered category list for the given type.
func (s *Service) CategoriesFor(t core.TransactionType) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.taxonomy.Categories(t)...)
}

func (s *Service) nextID() int64 {
	var max int64
	for _, t := range s.txs {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func (s *Service) indexOf(id int64) int {
	for i, t := range s.txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) saveTransactions() error {
	data, err := json.Marshal(s.txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	return s.store.Save(KeyTransactions, data)
}

func (s *Service) saveTaxonomy() error {
	data, err := json.Marshal(s.taxonomy)
	if err != nil {
		return fmt.Errorf("marshal taxonomy: %w", err)
	}
	return s.store.Save(KeyCategories, data)
}

func (s *Service) notify(ctx context.Context, id int64, action string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, action); err != nil {
		s.logger.WarnContext(ctx, "Publishing sync message failed", "error", err, "id", id, "action", action)
	}
}
