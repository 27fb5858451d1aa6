// Package amortization computes constant-annuity (French method) schedules.
//
// The calculation keeps sub-cent precision for every period and rounds to the
// currency minor unit in a single final pass, letting the last period absorb
// the residual cents so that the rounded schedule adds up exactly to the
// principal and to the rounded total payable.
package amortization

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-ledger/internal/domain"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/utils"
)

// MaxPeriods bounds the installment count of a single loan.
const MaxPeriods = 600

// workingPlaces is the precision kept for intermediate per-period values. It
// has to stay well above the cent so that discount factors of long, high-rate
// terms (down to (1+r)^-600) still carry significant digits.
const workingPlaces int32 = 32

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Input holds the loan terms the schedule is computed from.
type Input struct {
	Principal            decimal.Decimal
	AnnualRatePercent    decimal.Decimal
	Periods              int
	Frequency            domain.Frequency
	TaxOnInterestPercent decimal.NullDecimal
	StartDate            time.Time
}

// Entry is one period of a rounded schedule.
type Entry struct {
	Sequence         int             `json:"sequence"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Schedule is the computed installment plan and its summary.
type Schedule struct {
	Entries         []Entry         `json:"entries"`
	PeriodicPayment decimal.Decimal `json:"periodic_payment"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	TotalInterest   decimal.Decimal `json:"total_interest"`
	TotalTax        decimal.Decimal `json:"total_tax"`
}

type rawPeriod struct {
	principal decimal.Decimal
	interest  decimal.Decimal
	tax       decimal.Decimal
}

// Validate checks the inputs without computing anything.
func (in Input) Validate() error {
	switch {
	case !utils.RoundMoney(in.Principal).IsPositive():
		return customError.WrapValidation("principal must be at least one cent, got %s", in.Principal)
	case in.Periods <= 0:
		return customError.WrapValidation("periods must be greater than 0, got %d", in.Periods)
	case in.Periods > MaxPeriods:
		return customError.WrapValidation("periods must not exceed %d, got %d", MaxPeriods, in.Periods)
	case in.AnnualRatePercent.IsNegative():
		return customError.WrapValidation("annual rate must not be negative, got %s", in.AnnualRatePercent)
	case in.TaxOnInterestPercent.Valid && in.TaxOnInterestPercent.Decimal.IsNegative():
		return customError.WrapValidation("tax on interest must not be negative, got %s", in.TaxOnInterestPercent.Decimal)
	case in.Frequency.PeriodsPerYear() == 0:
		return customError.WrapValidation("unsupported frequency %q", in.Frequency)
	case in.StartDate.IsZero():
		return customError.WrapValidation("start date is required")
	}
	return nil
}

// PeriodicRate returns the interest rate applied per period, as a fraction.
func PeriodicRate(annualRatePercent decimal.Decimal, frequency domain.Frequency) decimal.Decimal {
	ppy := decimal.NewFromInt(int64(frequency.PeriodsPerYear()))
	return annualRatePercent.Div(ppy).Div(hundred)
}

// Payment returns the untaxed constant payment for principal over periods at
// periodic rate r. A zero rate falls back to flat division.
func Payment(principal, r decimal.Decimal, periods int) decimal.Decimal {
	return annuityPayment(principal, r, discountFactors(r, periods))
}

// discountFactors returns (1+r)^-k for k = 0..periods. Every factor lies in
// (0, 1], so the values stay bounded however large (1+r)^periods grows.
func discountFactors(r decimal.Decimal, periods int) []decimal.Decimal {
	factors := make([]decimal.Decimal, periods+1)
	factors[0] = one
	v := one.DivRound(one.Add(r), workingPlaces)
	for k := 1; k <= periods; k++ {
		factors[k] = factors[k-1].Mul(v).Round(workingPlaces)
	}
	return factors
}

// annuityPayment is P*r / (1 - (1+r)^-n).
func annuityPayment(principal, r decimal.Decimal, factors []decimal.Decimal) decimal.Decimal {
	n := len(factors) - 1
	if r.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n)))
	}
	return principal.Mul(r).DivRound(one.Sub(factors[n]), workingPlaces)
}

// Compute builds the amortization schedule for the given terms.
//
// The principal repaid in period k is the payment discounted over the n-k
// periods that follow it, and the interest is the rest of the payment. This
// equals remaining*r without carrying a running balance, whose error would
// grow by (1+r) every period.
func Compute(in Input) (*Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	r := PeriodicRate(in.AnnualRatePercent, in.Frequency)
	factors := discountFactors(r, in.Periods)
	payment := annuityPayment(in.Principal, r, factors)

	taxRate := decimal.Zero
	if in.TaxOnInterestPercent.Valid {
		taxRate = in.TaxOnInterestPercent.Decimal.Div(hundred)
	}

	raw := make([]rawPeriod, in.Periods)
	rawTotal := decimal.Zero
	for i := range raw {
		principalPortion := payment.Mul(factors[in.Periods-i]).Round(workingPlaces)
		interest := payment.Sub(principalPortion)
		tax := interest.Mul(taxRate).Round(workingPlaces)

		raw[i] = rawPeriod{principal: principalPortion, interest: interest, tax: tax}
		rawTotal = rawTotal.Add(principalPortion).Add(interest).Add(tax)
	}

	schedule := round(raw, in, rawTotal)
	for _, e := range schedule.Entries {
		if e.Principal.IsNegative() || e.Interest.IsNegative() || e.Tax.IsNegative() {
			return nil, customError.WrapValidation(
				"terms cannot be amortized in whole cents: installment %d splits into %s principal, %s interest, %s tax",
				e.Sequence, e.Principal, e.Interest, e.Tax,
			)
		}
	}
	schedule.PeriodicPayment = utils.RoundMoney(payment)
	return schedule, nil
}

// round converts the full-precision periods into cents.
//
// Principal shares are truncated to cents and the last period takes what is
// left, so it never goes below its own share and cumulative principal is exact.
// Interest and tax are rounded on their running totals, which keeps every
// period non-negative and within a cent of its exact value. A cent lost between
// rounding the parts and rounding the whole goes on the latest interest that
// can take it, so the totals add up to the rounded total payable.
func round(raw []rawPeriod, in Input, rawTotal decimal.Decimal) *Schedule {
	principal := utils.RoundMoney(in.Principal)
	totalPayable := utils.RoundMoney(rawTotal)
	months := in.Frequency.MonthsPerPeriod()

	s := &Schedule{
		Entries:      make([]Entry, 0, len(raw)),
		TotalPayable: totalPayable,
	}

	paidPrincipal := decimal.Zero
	rawInterest, rawTax := decimal.Zero, decimal.Zero
	roundedInterest, roundedTax := decimal.Zero, decimal.Zero
	last := len(raw) - 1
	for i, p := range raw {
		rawInterest = rawInterest.Add(p.interest)
		rawTax = rawTax.Add(p.tax)

		e := Entry{
			Sequence: i + 1,
			DueDate:  utils.CalculateDueDate(in.StartDate, months, i+1),
			Interest: utils.RoundMoney(rawInterest).Sub(roundedInterest),
			Tax:      utils.RoundMoney(rawTax).Sub(roundedTax),
		}
		if i < last {
			e.Principal = p.principal.Truncate(utils.MoneyPlaces)
		} else {
			e.Principal = principal.Sub(paidPrincipal)
		}

		paidPrincipal = paidPrincipal.Add(e.Principal)
		roundedInterest = roundedInterest.Add(e.Interest)
		roundedTax = roundedTax.Add(e.Tax)
		s.Entries = append(s.Entries, e)
	}

	if diff := totalPayable.Sub(principal).Sub(roundedInterest).Sub(roundedTax); !diff.IsZero() {
		for i := last; i >= 0; i-- {
			if adjusted := s.Entries[i].Interest.Add(diff); !adjusted.IsNegative() {
				s.Entries[i].Interest = adjusted
				roundedInterest = roundedInterest.Add(diff)
				break
			}
		}
	}

	remaining := principal
	for i := range s.Entries {
		e := &s.Entries[i]
		e.Total = e.Principal.Add(e.Interest).Add(e.Tax)
		remaining = remaining.Sub(e.Principal)
		e.RemainingBalance = remaining
	}
	s.TotalInterest = roundedInterest
	s.TotalTax = roundedTax
	return s
}
