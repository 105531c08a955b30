package attendance

import "github.com/shopspring/decimal"

// Calc turns one in/out pair into regular, tier-1 and tier-2 hours.
//
// Absent endpoints yield a zero split. An out time at or before the in time
// is taken to be on the next day. The break is deducted only when the
// rounded shift straddles the lunch point and skipBreak is false.
func Calc(start, end ClockTime, breakHours decimal.Decimal, skipBreak bool, p Policy) Split {
	if !start.Valid || !end.Valid {
		return Split{}
	}

	in := Round(start, RoleClockIn)
	out := Round(end, RoleClockOut)
	if out.LessThanOrEqual(in) {
		out = out.Add(hoursPerDay)
	}

	deduct := decimal.Zero
	if !skipBreak && in.LessThan(p.LunchPoint) && out.GreaterThan(p.LunchPoint) {
		deduct = breakHours
	}

	total := decimal.Max(out.Sub(in).Sub(deduct), decimal.Zero)
	return splitTotal(total, p)
}

// splitTotal partitions hours into the three buckets by the policy caps.
func splitTotal(total decimal.Decimal, p Policy) Split {
	overRegular := decimal.Max(total.Sub(p.RegularCap), decimal.Zero)
	return Split{
		Regular: decimal.Min(total, p.RegularCap).Round(1),
		OTTier1: decimal.Min(overRegular, p.Tier1Cap).Round(1),
		OTTier2: decimal.Max(overRegular.Sub(p.Tier1Cap), decimal.Zero).Round(1),
	}
}

var hoursPerDay = decimal.NewFromInt(24)
