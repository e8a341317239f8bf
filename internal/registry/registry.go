// Package registry stores accounts and dispatches operations by identifier.
// The account core assumes at most one in-flight mutating operation per
// account; the registry provides that serialization for all callers.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kassa.org/internal/account"
)

var ErrNotFound = errors.New("account not found")

// OpenSpec carries the parameters for opening an account. CreditLimit and
// MonthlyDeposit are optional; presence matters (a line-of-credit account
// without a credit limit is rejected by the core).
type OpenSpec struct {
	Name           string
	Kind           account.Kind
	InitialBalance decimal.Decimal
	CreditLimit    *decimal.Decimal
	MonthlyDeposit *decimal.Decimal
}

// Service defines registry operations.
type Service interface {
	Open(ctx context.Context, spec OpenSpec) (account.Snapshot, error)
	Get(ctx context.Context, id string) (account.Snapshot, error)
	Deposit(ctx context.Context, id string, amount decimal.Decimal, note string) (account.Entry, account.Snapshot, error)
	Withdraw(ctx context.Context, id string, amount decimal.Decimal, note string) (account.Entry, account.Snapshot, error)
	Balance(ctx context.Context, id string) (decimal.Decimal, error)
	History(ctx context.Context, id string) ([]account.Entry, error)
	CloseMonth(ctx context.Context, id string) ([]account.Entry, account.Snapshot, error)
}

// InMemory implements Service for the life of the process. Accounts are held
// by identifier; callers only ever see value snapshots and ledger copies,
// never internal pointers.
type InMemory struct {
	mu    sync.RWMutex
	accts map[string]*account.Account
}

// NewInMemory creates an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{accts: make(map[string]*account.Account)}
}

func (r *InMemory) Open(ctx context.Context, spec OpenSpec) (account.Snapshot, error) {
	var opts []account.Option
	if spec.CreditLimit != nil {
		opts = append(opts, account.WithCreditLimit(*spec.CreditLimit))
	}
	if spec.MonthlyDeposit != nil {
		opts = append(opts, account.WithMonthlyDeposit(*spec.MonthlyDeposit))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, err := account.New(newID(), spec.Name, spec.InitialBalance, spec.Kind, opts...)
	if err != nil {
		return account.Snapshot{}, err
	}
	r.accts[acc.ID()] = acc
	return acc.Snapshot(), nil
}

func (r *InMemory) Get(ctx context.Context, id string) (account.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accts[id]
	if !ok {
		return account.Snapshot{}, ErrNotFound
	}
	return acc.Snapshot(), nil
}

func (r *InMemory) Deposit(ctx context.Context, id string, amount decimal.Decimal, note string) (account.Entry, account.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accts[id]
	if !ok {
		return account.Entry{}, account.Snapshot{}, ErrNotFound
	}
	e, err := acc.MakeDeposit(amount, time.Now().UTC(), note)
	if err != nil {
		return account.Entry{}, account.Snapshot{}, err
	}
	return e, acc.Snapshot(), nil
}

func (r *InMemory) Withdraw(ctx context.Context, id string, amount decimal.Decimal, note string) (account.Entry, account.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accts[id]
	if !ok {
		return account.Entry{}, account.Snapshot{}, ErrNotFound
	}
	e, err := acc.MakeWithdrawal(amount, time.Now().UTC(), note)
	if err != nil {
		return account.Entry{}, account.Snapshot{}, err
	}
	return e, acc.Snapshot(), nil
}

func (r *InMemory) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accts[id]
	if !ok {
		return decimal.Decimal{}, ErrNotFound
	}
	return acc.Balance(), nil
}

func (r *InMemory) History(ctx context.Context, id string) ([]account.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return acc.History(), nil
}

func (r *InMemory) CloseMonth(ctx context.Context, id string) ([]account.Entry, account.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accts[id]
	if !ok {
		return nil, account.Snapshot{}, ErrNotFound
	}
	entries := acc.PerformMonthEnd(time.Now().UTC())
	return entries, acc.Snapshot(), nil
}
