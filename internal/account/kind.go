package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects one of the three account variants. The set is closed: variant
// behaviour is dispatched through the unexported policy below rather than
// open-ended embedding.
type Kind string

const (
	LineOfCredit    Kind = "line_of_credit"
	GiftCard        Kind = "gift_card"
	InterestEarning Kind = "interest_earning"
)

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	switch k {
	case LineOfCredit, GiftCard, InterestEarning:
		return true
	}
	return false
}

// Monthly rates are fixed by policy, not configuration.
// Amounts produced from them are rounded to 2 decimal places.
var (
	// creditChargeRate is charged on the outstanding negative balance of a
	// line-of-credit account at month end.
	creditChargeRate = decimal.RequireFromString("0.07")

	// savingsInterestRate is paid on the balance of an interest-earning
	// account at month end.
	savingsInterestRate = decimal.RequireFromString("0.02")
)

// policy carries the per-variant rules: the minimum balance a withdrawal may
// leave behind, and the entries produced by month-end processing.
type policy interface {
	floor() decimal.Decimal
	monthEnd(balance decimal.Decimal, now time.Time) []Entry
}

type lineOfCreditPolicy struct {
	limit decimal.Decimal
}

func (p lineOfCreditPolicy) floor() decimal.Decimal { return p.limit.Neg() }

func (p lineOfCreditPolicy) monthEnd(balance decimal.Decimal, now time.Time) []Entry {
	if balance.Sign() >= 0 {
		return nil
	}
	charge := balance.Abs().Mul(creditChargeRate).Round(2)
	if charge.IsZero() {
		return nil
	}
	return []Entry{{
		Kind:      EntryMonthEnd,
		Amount:    charge.Neg(),
		Timestamp: now,
		Note:      "interest charge on outstanding balance",
	}}
}

type giftCardPolicy struct {
	monthlyDeposit decimal.Decimal
}

func (p giftCardPolicy) floor() decimal.Decimal { return decimal.Zero }

func (p giftCardPolicy) monthEnd(_ decimal.Decimal, now time.Time) []Entry {
	// A zero monthly deposit appends nothing.
	if p.monthlyDeposit.IsZero() {
		return nil
	}
	return []Entry{{
		Kind:      EntryMonthEnd,
		Amount:    p.monthlyDeposit,
		Timestamp: now,
		Note:      "monthly deposit",
	}}
}

type interestEarningPolicy struct{}

func (interestEarningPolicy) floor() decimal.Decimal { return decimal.Zero }

func (interestEarningPolicy) monthEnd(balance decimal.Decimal, now time.Time) []Entry {
	interest := balance.Mul(savingsInterestRate).Round(2)
	if interest.Sign() <= 0 {
		return nil
	}
	return []Entry{{
		Kind:      EntryMonthEnd,
		Amount:    interest,
		Timestamp: now,
		Note:      "interest earned",
	}}
}
