package attendance

import "github.com/shopspring/decimal"

// ResolveSegmentBounds returns the morning shift's in/out pair.
//
// When am-out is missing the employee worked straight through, so pm-out
// closes the morning shift. The lunch break is skipped when pm-in is
// present because the employee punched their own break.
func ResolveSegmentBounds(day DaySegments) (in, out ClockTime, skipBreak bool) {
	in = day.Morning.In
	out = day.Morning.Out
	if !out.Valid {
		out = day.Afternoon.Out
	}
	return in, out, day.Afternoon.In.Valid
}

// Allocate computes one employee-day.
//
// Morning and afternoon hours fill the regular bucket first, then tier-1,
// then tier-2, with running daily caps. Overtime-segment hours go to tier-1
// (up to what is left of its cap) and tier-2 only. On holidays the total
// is reported as Holiday and the three work buckets are zero.
func Allocate(day DaySegments, breakHours decimal.Decimal, isHoliday bool, p Policy) DayAllocation {
	acc := accumulator{policy: p}

	if in, out, skip := ResolveSegmentBounds(day); in.Valid && out.Valid {
		acc.addCapped(Calc(in, out, breakHours, skip, p).Total())
	}
	if day.Afternoon.Complete() {
		acc.addCapped(Calc(day.Afternoon.In, day.Afternoon.Out, breakHours, true, p).Total())
	}
	if day.Overtime.Complete() {
		acc.addOvertime(Calc(day.Overtime.In, day.Overtime.Out, breakHours, true, p).Total())
	}

	a := DayAllocation{
		Regular:   acc.reg,
		OTTier1:   acc.ot1,
		OTTier2:   acc.ot2,
		IsHoliday: isHoliday,
		Attended:  acc.reg.IsPositive() || acc.ot1.IsPositive() || acc.ot2.IsPositive(),
	}
	if isHoliday {
		a.Holiday = acc.reg.Add(acc.ot1).Add(acc.ot2)
		a.Regular, a.OTTier1, a.OTTier2 = decimal.Zero, decimal.Zero, decimal.Zero
	}
	return a
}

// accumulator keeps the running per-day bucket totals.
type accumulator struct {
	policy        Policy
	reg, ot1, ot2 decimal.Decimal
}

func (a *accumulator) addCapped(h decimal.Decimal) {
	takeReg := clampZero(decimal.Min(h, a.policy.RegularCap.Sub(a.reg)))
	a.reg = a.reg.Add(takeReg)
	a.addOvertime(h.Sub(takeReg))
}

func (a *accumulator) addOvertime(h decimal.Decimal) {
	take1 := clampZero(decimal.Min(h, a.policy.Tier1Cap.Sub(a.ot1)))
	a.ot1 = a.ot1.Add(take1)
	a.ot2 = a.ot2.Add(h.Sub(take1))
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	return decimal.Max(d, decimal.Zero)
}
