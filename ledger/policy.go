/*
policy.go - Per-category accrual rules

PURPOSE:
  Pure computation only: given counts and categories, produce balance
  deltas. Nothing here touches the store; engine.go applies these deltas
  inside a transaction.

THE SHORT-LEAVE CONVERSION:
  Three short leaves convert toward one full day. Each short leave adds
  0.33; whenever the faculty member's cumulative short-leave count
  reaches a multiple of 3, an extra 0.01 is added so the trio sums to
  exactly 1.00 (0.33 + 0.33 + 0.34). Deleting a short leave reverses
  -0.34 when the pre-deletion count is a multiple of 3, else -0.33.

ROUNDING:
  All balances carry two-decimal precision. Round2 is applied after
  every arithmetic step that lands in the faculty row.
*/
package ledger

import "github.com/shopspring/decimal"

var (
	shortLeaveWeight = decimal.New(33, -2) // 0.33
	shortLeaveBump   = decimal.New(1, -2)  // 0.01
	halfDayWeight    = decimal.New(5, -1)  // 0.5
	fullDayWeight    = decimal.NewFromInt(1)
	three            = decimal.NewFromInt(3)
)

// Round2 rounds to the two-decimal precision every stored balance carries.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// ShortLeaveDelta returns the consumption added by the short leave that
// brings the faculty member's cumulative short-leave count to newCount.
func ShortLeaveDelta(newCount int) decimal.Decimal {
	d := shortLeaveWeight
	if newCount > 0 && newCount%3 == 0 {
		d = d.Add(shortLeaveBump)
	}
	return d
}

// ShortLeaveReversal returns the (negative) adjustment for deleting one
// short leave when the faculty member holds count short leaves before
// the deletion.
func ShortLeaveReversal(count int) decimal.Decimal {
	if count > 0 && count%3 == 0 {
		return shortLeaveWeight.Add(shortLeaveBump).Neg() // -0.34
	}
	return shortLeaveWeight.Neg()
}

// DeletionDelta returns the balance adjustment applied when deleting one
// event of the given category. shortCount is the faculty member's
// short-leave count fetched fresh before the deletion; it is only
// consulted for short leaves. debitAll mirrors Config.DebitAllCategories:
// when set, the other dated categories (academic, medical, compensatory,
// without-payment, earned) debited one day on insert, so their deletion
// credits one day back.
func DeletionDelta(category Category, shortCount int, debitAll bool) decimal.Decimal {
	switch category {
	case CategoryShortLeave:
		return ShortLeaveReversal(shortCount)
	case CategoryHalfDayLeave:
		return halfDayWeight.Neg()
	case CategoryCasualLeave:
		return fullDayWeight.Neg()
	default:
		if debitAll && category.Dated() {
			return fullDayWeight.Neg()
		}
		return decimal.Zero
	}
}

// WindowTotal computes the weighted consumption for a set of per-category
// event counts within a report window: short leaves count/3 when evenly
// divisible (a whole number of converted days), otherwise 0.33 each;
// half-day leaves 0.5 each; casual leaves 1 each. Other categories do
// not contribute.
func WindowTotal(counts map[Category]int) decimal.Decimal {
	total := decimal.Zero
	if n := counts[CategoryShortLeave]; n > 0 {
		d := decimal.NewFromInt(int64(n))
		if n%3 == 0 {
			total = total.Add(d.Div(three))
		} else {
			total = total.Add(d.Mul(shortLeaveWeight))
		}
	}
	if n := counts[CategoryHalfDayLeave]; n > 0 {
		total = total.Add(decimal.NewFromInt(int64(n)).Mul(halfDayWeight))
	}
	if n := counts[CategoryCasualLeave]; n > 0 {
		total = total.Add(decimal.NewFromInt(int64(n)))
	}
	return Round2(total)
}

// ProjectedTotal replays a faculty member's full event history and
// returns the total consumption the denormalized fields should hold.
// Events must be in creation order so the every-third short-leave bump
// lands on the same events it originally did.
func ProjectedTotal(events []LeaveEvent, debitAll bool) decimal.Decimal {
	total := decimal.Zero
	shortSeen := 0
	for _, ev := range events {
		switch ev.Category {
		case CategoryShortLeave:
			shortSeen++
			total = total.Add(ShortLeaveDelta(shortSeen))
		case CategoryHalfDayLeave:
			total = total.Add(halfDayWeight)
		case CategoryCasualLeave:
			total = total.Add(fullDayWeight)
		default:
			if debitAll && ev.Category.Dated() {
				total = total.Add(fullDayWeight)
			}
		}
		total = Round2(total)
	}
	return total
}
