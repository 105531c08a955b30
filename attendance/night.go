package attendance

// Reassign moves early-morning clock-outs to the previous work date.
//
// A "-out" event whose clock is at or before p.NightEnd closes a shift that
// started the day before, so its WorkDate becomes WorkDate-1 and it is
// marked Reassigned, with StoredDate holding the date it was recorded
// under. Events already marked are passed through, which makes
// Reassign(Reassign(x)) == Reassign(x). The input slice is not modified.
func Reassign(events []PunchEvent, p Policy) []PunchEvent {
	out := make([]PunchEvent, len(events))
	for i, ev := range events {
		if !ev.Reassigned && ev.Segment.IsOut() && ev.Clock.Valid && ev.Clock.AtOrBefore(p.NightEnd) {
			ev.StoredDate = ev.WorkDate
			ev.WorkDate = ev.WorkDate.AddDays(-1)
			ev.Reassigned = true
		}
		out[i] = ev
	}
	return out
}
