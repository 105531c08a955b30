package attendance

import "github.com/shopspring/decimal"

// Policy holds the rule parameters of the engine. It is an immutable value
// passed into every call.
type Policy struct {
	// NightEnd is the inclusive cutoff: clock-outs at or before it belong to
	// the previous work date.
	NightEnd ClockTime

	// LunchPoint is the hour a shift must straddle for the break to apply.
	LunchPoint decimal.Decimal

	// RegularCap and Tier1Cap are the daily limits of the first two buckets.
	RegularCap decimal.Decimal
	Tier1Cap   decimal.Decimal
}

// DefaultPolicy returns night end 04:00, lunch point 13:00 and caps 8 / 2.
func DefaultPolicy() Policy {
	return Policy{
		NightEnd:   NewClock(4, 0),
		LunchPoint: decimal.NewFromInt(13),
		RegularCap: decimal.NewFromInt(8),
		Tier1Cap:   decimal.NewFromInt(2),
	}
}

// WithNightEnd returns a copy with a different night cutoff.
func (p Policy) WithNightEnd(t ClockTime) Policy {
	p.NightEnd = t
	return p
}

// WithLunchPoint returns a copy with a different lunch hour.
func (p Policy) WithLunchPoint(hour int) Policy {
	p.LunchPoint = decimal.NewFromInt(int64(hour))
	return p
}
