package service

import (
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
	"github.com/locamoto/rental-billing/pkg/utils"

	"github.com/shopspring/decimal"
)

// DueCalculator derives the next payment due date from a recurrence policy
// and an anchor date. It performs no I/O and is total over valid inputs.
type DueCalculator struct {
	// Fallback amounts substituted when a rental term is unset. Upstream
	// data occasionally ships contracts whose rental terms were never
	// filled in; the reminder pipeline stays available instead of failing.
	DefaultWeeklyAmount  decimal.Decimal
	DefaultMonthlyAmount decimal.Decimal
}

func NewDueCalculator(defaultWeekly, defaultMonthly decimal.Decimal) *DueCalculator {
	return &DueCalculator{
		DefaultWeeklyAmount:  defaultWeekly,
		DefaultMonthlyAmount: defaultMonthly,
	}
}

// ComputeDueInfo returns the next due date, amount and days remaining.
//
// With a prior approved payment the first candidate is anchor + 1 cycle:
// payments are assumed current, so no catch-up search runs from a payment
// anchor. Without one (anchor = contract start) the candidate advances by
// whole cycles until it is no longer before now, catching up contracts
// whose start date is far in the past. Either way the candidate keeps
// advancing while still strictly before now, which covers clock skew and
// delayed evaluation.
//
// An unrecognized recurrence type is treated as monthly.
func (c *DueCalculator) ComputeDueInfo(anchor time.Time, recurrenceType string, hasPriorPayment bool, terms domain.RentalTerms, now time.Time) domain.DueInfo {
	recurrence := recurrenceType
	if recurrence != domain.RecurrenceWeekly && recurrence != domain.RecurrenceMonthly {
		recurrence = domain.RecurrenceMonthly
	}

	var dueDate time.Time
	if hasPriorPayment {
		dueDate = nextCycle(anchor, recurrence)
	} else {
		dueDate = anchor
		for dueDate.Before(now) {
			dueDate = nextCycle(dueDate, recurrence)
		}
	}

	for dueDate.Before(now) {
		dueDate = nextCycle(dueDate, recurrence)
	}

	return domain.DueInfo{
		Amount:         c.amountFor(recurrence, terms),
		DueDate:        dueDate,
		RecurrenceType: recurrence,
		DaysRemaining:  utils.DaysUntil(now, dueDate),
	}
}

func (c *DueCalculator) amountFor(recurrence string, terms domain.RentalTerms) decimal.Decimal {
	if recurrence == domain.RecurrenceWeekly {
		if terms.WeeklyAmount.IsPositive() {
			return terms.WeeklyAmount
		}
		return c.DefaultWeeklyAmount
	}

	if terms.MonthlyAmount.IsPositive() {
		return terms.MonthlyAmount
	}
	return c.DefaultMonthlyAmount
}

func nextCycle(t time.Time, recurrence string) time.Time {
	if recurrence == domain.RecurrenceWeekly {
		return utils.AddWeeklyCycle(t)
	}
	return utils.AddMonthsClamped(t, 1)
}
