// Package account models bank accounts and their transaction ledger.
//
// An account's ledger is the source of truth: the cached balance always
// equals the sum of its entry amounts, and every mutating operation either
// appends exactly one batch of entries and updates the balance, or fails
// without touching either. The package performs no locking and no logging;
// callers (the registry) serialize access per account and report outcomes.
package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is one bank account. Its variant is fixed at construction and
// determines the withdrawal floor and month-end behaviour.
type Account struct {
	id        string
	name      string
	kind      Kind
	balance   decimal.Decimal
	ledger    []Entry
	pol       policy
	createdAt time.Time

	creditLimit    decimal.Decimal
	monthlyDeposit decimal.Decimal
}

// Option configures variant-specific parameters at construction.
type Option func(*options)

type options struct {
	creditLimit    *decimal.Decimal
	monthlyDeposit *decimal.Decimal
}

// WithCreditLimit sets the credit limit of a line-of-credit account.
func WithCreditLimit(limit decimal.Decimal) Option {
	return func(o *options) { o.creditLimit = &limit }
}

// WithMonthlyDeposit sets the monthly top-up of a gift-card account.
func WithMonthlyDeposit(amount decimal.Decimal) Option {
	return func(o *options) { o.monthlyDeposit = &amount }
}

// New creates an account of the given kind. A positive initial balance is
// recorded as the first ledger entry so that the balance/ledger invariant
// holds from the start; a zero initial balance records nothing.
func New(id, name string, initial decimal.Decimal, kind Kind, opts ...Option) (*Account, error) {
	if initial.Sign() < 0 {
		return nil, ErrInvalidConfiguration
	}

	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Account{
		id:        id,
		name:      name,
		kind:      kind,
		balance:   decimal.Zero,
		createdAt: time.Now().UTC(),
	}

	switch kind {
	case LineOfCredit:
		// The credit limit is required, not defaulted.
		if cfg.creditLimit == nil || cfg.creditLimit.Sign() < 0 {
			return nil, ErrInvalidConfiguration
		}
		a.creditLimit = *cfg.creditLimit
		a.pol = lineOfCreditPolicy{limit: a.creditLimit}
	case GiftCard:
		if cfg.monthlyDeposit != nil {
			if cfg.monthlyDeposit.Sign() < 0 {
				return nil, ErrInvalidConfiguration
			}
			a.monthlyDeposit = *cfg.monthlyDeposit
		} else {
			a.monthlyDeposit = decimal.Zero
		}
		a.pol = giftCardPolicy{monthlyDeposit: a.monthlyDeposit}
	case InterestEarning:
		a.pol = interestEarningPolicy{}
	default:
		return nil, ErrInvalidConfiguration
	}

	if initial.Sign() > 0 {
		a.apply(Entry{
			Kind:      EntryDeposit,
			Amount:    initial,
			Timestamp: a.createdAt,
			Note:      "initial balance",
		})
	}
	return a, nil
}

func (a *Account) ID() string               { return a.id }
func (a *Account) Name() string             { return a.name }
func (a *Account) Kind() Kind               { return a.kind }
func (a *Account) Balance() decimal.Decimal { return a.balance }
func (a *Account) CreatedAt() time.Time     { return a.createdAt }

// apply appends the entry and moves the balance by its signed amount.
// All mutations funnel through here to keep balance == sum(ledger).
func (a *Account) apply(e Entry) {
	a.balance = a.balance.Add(e.Amount)
	a.ledger = append(a.ledger, e)
}

// MakeDeposit credits the account. The amount must be strictly positive.
func (a *Account) MakeDeposit(amount decimal.Decimal, ts time.Time, note string) (Entry, error) {
	if amount.Sign() <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	e := Entry{Kind: EntryDeposit, Amount: amount, Timestamp: ts, Note: note}
	a.apply(e)
	return e, nil
}

// MakeWithdrawal debits the account. The amount must be strictly positive
// and the resulting balance may not drop below the variant's floor.
func (a *Account) MakeWithdrawal(amount decimal.Decimal, ts time.Time, note string) (Entry, error) {
	if amount.Sign() <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	if a.balance.Sub(amount).LessThan(a.pol.floor()) {
		return Entry{}, ErrInsufficientFunds
	}
	e := Entry{Kind: EntryWithdrawal, Amount: amount.Neg(), Timestamp: ts, Note: note}
	a.apply(e)
	return e, nil
}

// History returns a copy of the ledger in chronological order. Mutating the
// returned slice does not affect the account.
func (a *Account) History() []Entry {
	out := make([]Entry, len(a.ledger))
	copy(out, a.ledger)
	return out
}

// PerformMonthEnd runs the variant's month-end processing and returns the
// entries it appended, if any. There is no per-period guard: running it twice
// for the same month applies the adjustment twice. Scheduling once per period
// is the caller's responsibility.
func (a *Account) PerformMonthEnd(now time.Time) []Entry {
	entries := a.pol.monthEnd(a.balance, now)
	for _, e := range entries {
		a.apply(e)
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Snapshot is the externally visible state of an account. Variant fields are
// present only for the kinds that carry them.
type Snapshot struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Kind           Kind             `json:"kind"`
	Balance        decimal.Decimal  `json:"balance"`
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
	MonthlyDeposit *decimal.Decimal `json:"monthly_deposit,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Snapshot returns a value copy of the account's visible state.
func (a *Account) Snapshot() Snapshot {
	s := Snapshot{
		ID:        a.id,
		Name:      a.name,
		Kind:      a.kind,
		Balance:   a.balance,
		CreatedAt: a.createdAt,
	}
	switch a.kind {
	case LineOfCredit:
		limit := a.creditLimit
		s.CreditLimit = &limit
	case GiftCard:
		monthly := a.monthlyDeposit
		s.MonthlyDeposit = &monthly
	}
	return s
}
