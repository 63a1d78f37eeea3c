package core

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Date is a calendar date with no timezone. It marshals as "2006-01-02".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry. The ID is assigned by the
	// ledger and is unique among the transactions currently stored.
	Transaction struct {
		ID          int64           `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount_cents"`
		Date        Date            `json:"date"`
		Time        string          `json:"time"` // "15:04", recency tiebreaker only
		Description string          `json:"description"`
		Category    string          `json:"category"`
	}

	// Taxonomy holds the ordered category lists per transaction type.
	// Order is display order; neither list enforces uniqueness.
	Taxonomy struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	}
)

var ErrInvalidAmount = errors.New("invalid amount")

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string. Unparseable input yields the
// zero Date.
func ParseDate(s string) Date {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDate(s)
	return nil
}

// Instant combines the calendar date with the "HH:MM" clock value into a
// single point on the recency axis. A malformed clock value contributes
// midnight.
func (t Transaction) Instant() time.Time {
	clock, err := time.Parse("15:04", t.Time)
	if err != nil {
		return t.Date.Time
	}
	return t.Date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
}

// Categories returns the taxonomy list for the given transaction type.
func (tx Taxonomy) Categories(t TransactionType) []string {
	if t == Income {
		return tx.Income
	}
	return tx.Expense
}

// Empty reports whether the taxonomy has no categories at all.
func (tx Taxonomy) Empty() bool {
	return len(tx.Income) == 0 && len(tx.Expense) == 0
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Cents)
}
