package amortization

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-ledger/internal/domain"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
)

var startDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sumEntries(entries []Entry, pick func(Entry) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(pick(e))
	}
	return total
}

func TestCompute_ExampleScenario(t *testing.T) {
	schedule, err := Compute(Input{
		Principal:            decimal.NewFromInt(120000),
		AnnualRatePercent:    decimal.NewFromInt(65),
		Periods:              12,
		Frequency:            domain.FrequencyMonthly,
		TaxOnInterestPercent: decimal.NewNullDecimal(decimal.NewFromInt(21)),
		StartDate:            startDate,
	})
	require.NoError(t, err)
	require.Len(t, schedule.Entries, 12)

	assert.True(t, schedule.PeriodicPayment.Equal(decimal.RequireFromString("13859.06")),
		"unexpected periodic payment %s", schedule.PeriodicPayment)
	assert.True(t, schedule.TotalPayable.Equal(decimal.RequireFromString("176033.59")),
		"unexpected total payable %s", schedule.TotalPayable)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), schedule.Entries[0].DueDate)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), schedule.Entries[11].DueDate)

	first := schedule.Entries[0]
	assert.True(t, first.Interest.Equal(decimal.NewFromInt(6500)), "first interest %s", first.Interest)
	assert.True(t, first.Tax.Equal(decimal.NewFromInt(1365)), "first tax %s", first.Tax)
	assert.True(t, first.Principal.Equal(decimal.RequireFromString("7359.06")), "first principal %s", first.Principal)

	principal := sumEntries(schedule.Entries, func(e Entry) decimal.Decimal { return e.Principal })
	assert.True(t, principal.Equal(decimal.NewFromInt(120000)), "cumulative principal %s", principal)
	assert.True(t, schedule.Entries[11].RemainingBalance.IsZero())

	total := sumEntries(schedule.Entries, func(e Entry) decimal.Decimal { return e.Total })
	assert.True(t, total.Equal(schedule.TotalPayable))
	assert.True(t, schedule.TotalPayable.Equal(
		decimal.NewFromInt(120000).Add(schedule.TotalInterest).Add(schedule.TotalTax)))
}

func TestCompute_ScheduleSumInvariant(t *testing.T) {
	principals := []string{"1000", "99999.99", "120000", "1234567.89"}
	rates := []string{"0", "3.5", "65", "120", "300"}
	periods := []int{1, 7, 12, 36, 120, MaxPeriods}
	frequencies := []domain.Frequency{domain.FrequencyMonthly, domain.FrequencySemiannual}
	taxes := []decimal.NullDecimal{
		{},
		decimal.NewNullDecimal(decimal.NewFromInt(21)),
		decimal.NewNullDecimal(decimal.RequireFromString("10.5")),
	}

	for _, p := range principals {
		for _, rate := range rates {
			for _, n := range periods {
				for _, freq := range frequencies {
					for _, tax := range taxes {
						name := fmt.Sprintf("%s@%s%%x%d_%s_tax=%v", p, rate, n, freq, tax.Decimal)
						t.Run(name, func(t *testing.T) {
							schedule, err := Compute(Input{
								Principal:            decimal.RequireFromString(p),
								AnnualRatePercent:    decimal.RequireFromString(rate),
								Periods:              n,
								Frequency:            freq,
								TaxOnInterestPercent: tax,
								StartDate:            startDate,
							})
							require.NoError(t, err)
							require.Len(t, schedule.Entries, n)

							total := sumEntries(schedule.Entries, func(e Entry) decimal.Decimal { return e.Total })
							assert.True(t, total.Equal(schedule.TotalPayable),
								"sum of totals %s != total payable %s", total, schedule.TotalPayable)

							principal := sumEntries(schedule.Entries, func(e Entry) decimal.Decimal { return e.Principal })
							assert.True(t, principal.Equal(decimal.RequireFromString(p)),
								"sum of principal %s != %s", principal, p)

							assertWellFormed(t, schedule)
							for i, e := range schedule.Entries {
								assert.Equal(t, i+1, e.Sequence)
								assert.True(t, e.Total.Equal(e.Principal.Add(e.Interest).Add(e.Tax)))
								assert.True(t, e.Total.Equal(e.Total.Round(2)), "entry %d not in cents: %s", i+1, e.Total)
								if i > 0 {
									assert.True(t, e.DueDate.After(schedule.Entries[i-1].DueDate))
								}
							}
						})
					}
				}
			}
		}
	}
}

func assertWellFormed(t *testing.T, schedule *Schedule) {
	t.Helper()

	previous := decimal.Zero
	for i, e := range schedule.Entries {
		assert.False(t, e.Principal.IsNegative(), "entry %d principal %s", i+1, e.Principal)
		assert.False(t, e.Interest.IsNegative(), "entry %d interest %s", i+1, e.Interest)
		assert.False(t, e.Tax.IsNegative(), "entry %d tax %s", i+1, e.Tax)
		if i > 0 {
			assert.True(t, e.RemainingBalance.LessThanOrEqual(previous),
				"entry %d balance %s rose from %s", i+1, e.RemainingBalance, previous)
		}
		previous = e.RemainingBalance
	}
	assert.True(t, schedule.Entries[len(schedule.Entries)-1].RemainingBalance.IsZero())
}

func TestCompute_LongHighRateTerms(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		periods   int
		frequency domain.Frequency
		tax       decimal.NullDecimal
	}{
		{"monthly 100% over the maximum term", "100000", "100", MaxPeriods, domain.FrequencyMonthly, decimal.NullDecimal{}},
		{"monthly 178.7% over 454 periods", "33058.87", "178.7", 454, domain.FrequencyMonthly, decimal.NullDecimal{}},
		{"monthly 300% over the maximum term with tax", "250000", "300", MaxPeriods, domain.FrequencyMonthly, decimal.NewNullDecimal(decimal.NewFromInt(21))},
		{"semiannual 999.99% over the maximum term with tax", "1234567.89", "999.99", MaxPeriods, domain.FrequencySemiannual, decimal.NewNullDecimal(decimal.NewFromInt(21))},
		{"semiannual 120% over the maximum term", "1000", "120", MaxPeriods, domain.FrequencySemiannual, decimal.NewNullDecimal(decimal.RequireFromString("10.5"))},
		{"zero rate over the maximum term", "1000", "0", MaxPeriods, domain.FrequencyMonthly, decimal.NullDecimal{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := Compute(Input{
				Principal:            decimal.RequireFromString(tt.principal),
				AnnualRatePercent:    decimal.RequireFromString(tt.rate),
				Periods:              tt.periods,
				Frequency:            tt.frequency,
				TaxOnInterestPercent: tt.tax,
				StartDate:            startDate,
			})
			require.NoError(t, err)
			require.Len(t, schedule.Entries, tt.periods)
			assertWellFormed(t, schedule)

			total := sumEntries(schedule.Entries, func(e Entry) decimal.Decimal { return e.Total })
			assert.True(t, total.Equal(schedule.TotalPayable), "sum of totals %s != %s", total, schedule.TotalPayable)

			principal := sumEntries(schedule.Entries, func(e Entry) decimal.Decimal { return e.Principal })
			assert.True(t, principal.Equal(decimal.RequireFromString(tt.principal)), "sum of principal %s", principal)

			// No period repays more than one payment's worth of principal.
			ceiling := schedule.PeriodicPayment.Add(decimal.NewFromInt(10))
			for i, e := range schedule.Entries {
				assert.True(t, e.Principal.LessThanOrEqual(ceiling), "entry %d principal %s", i+1, e.Principal)
			}
		})
	}

	t.Run("payment and tail of a 100% monthly term", func(t *testing.T) {
		schedule, err := Compute(Input{
			Principal:         decimal.NewFromInt(100000),
			AnnualRatePercent: decimal.NewFromInt(100),
			Periods:           MaxPeriods,
			Frequency:         domain.FrequencyMonthly,
			StartDate:         startDate,
		})
		require.NoError(t, err)

		assert.True(t, schedule.PeriodicPayment.Equal(decimal.RequireFromString("8333.33")), "payment %s", schedule.PeriodicPayment)
		assert.True(t, schedule.TotalPayable.Equal(decimal.NewFromInt(5000000)), "total payable %s", schedule.TotalPayable)

		last := schedule.Entries[MaxPeriods-1]
		assert.True(t, last.Interest.Equal(decimal.RequireFromString("641.03")), "last interest %s", last.Interest)
		assert.InDelta(t, 7693.27, last.Principal.InexactFloat64(), 1.0)
	})
}

func TestCompute_ZeroRateFallback(t *testing.T) {
	schedule, err := Compute(Input{
		Principal:            decimal.NewFromInt(1000),
		AnnualRatePercent:    decimal.Zero,
		Periods:              3,
		Frequency:            domain.FrequencyMonthly,
		TaxOnInterestPercent: decimal.NewNullDecimal(decimal.NewFromInt(21)),
		StartDate:            startDate,
	})
	require.NoError(t, err)

	assert.True(t, schedule.PeriodicPayment.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, schedule.TotalPayable.Equal(decimal.NewFromInt(1000)))
	assert.True(t, schedule.TotalInterest.IsZero())
	assert.True(t, schedule.TotalTax.IsZero())

	expected := []string{"333.33", "333.33", "333.34"}
	for i, e := range schedule.Entries {
		assert.True(t, e.Principal.Equal(decimal.RequireFromString(expected[i])), "entry %d principal %s", i+1, e.Principal)
		assert.True(t, e.Interest.IsZero())
		assert.True(t, e.Tax.IsZero())
	}
}

func TestCompute_SemiannualDueDates(t *testing.T) {
	schedule, err := Compute(Input{
		Principal:         decimal.NewFromInt(50000),
		AnnualRatePercent: decimal.NewFromInt(40),
		Periods:           4,
		Frequency:         domain.FrequencySemiannual,
		StartDate:         time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	dates := []time.Time{
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	for i, e := range schedule.Entries {
		assert.Equal(t, dates[i], e.DueDate)
	}

	// 20% per semester on the full principal.
	assert.True(t, schedule.Entries[0].Interest.Equal(decimal.NewFromInt(10000)))
}

func TestCompute_ValidationErrors(t *testing.T) {
	valid := Input{
		Principal:         decimal.NewFromInt(1000),
		AnnualRatePercent: decimal.NewFromInt(10),
		Periods:           12,
		Frequency:         domain.FrequencyMonthly,
		StartDate:         startDate,
	}

	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"zero principal", func(in *Input) { in.Principal = decimal.Zero }},
		{"negative principal", func(in *Input) { in.Principal = decimal.NewFromInt(-5) }},
		{"sub-cent principal", func(in *Input) { in.Principal = decimal.RequireFromString("0.004") }},
		{"zero periods", func(in *Input) { in.Periods = 0 }},
		{"negative periods", func(in *Input) { in.Periods = -3 }},
		{"too many periods", func(in *Input) { in.Periods = MaxPeriods + 1 }},
		{"negative rate", func(in *Input) { in.AnnualRatePercent = decimal.NewFromInt(-1) }},
		{"negative tax", func(in *Input) { in.TaxOnInterestPercent = decimal.NewNullDecimal(decimal.NewFromInt(-21)) }},
		{"unknown frequency", func(in *Input) { in.Frequency = "WEEKLY" }},
		{"missing start date", func(in *Input) { in.StartDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			schedule, err := Compute(in)
			assert.Nil(t, schedule)
			require.Error(t, err)
			assert.True(t, errors.Is(err, customError.ErrValidation))
			assert.Equal(t, customError.ErrCodeValidation, customError.CodeOf(err))
		})
	}
}

func TestPayment(t *testing.T) {
	r := PeriodicRate(decimal.NewFromInt(12), domain.FrequencyMonthly)
	assert.True(t, r.Equal(decimal.RequireFromString("0.01")))

	payment := Payment(decimal.NewFromInt(10000), r, 12)
	assert.True(t, payment.Round(2).Equal(decimal.RequireFromString("888.49")), "payment %s", payment)

	flat := Payment(decimal.NewFromInt(1200), decimal.Zero, 12)
	assert.True(t, flat.Equal(decimal.NewFromInt(100)))
}
