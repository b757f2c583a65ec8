package generic

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive range of calendar days [Start, End].
type Period struct {
	Start Date
	End   Date
}

// TrailingWindow returns the n-day lookback ending on asOf, inclusive on
// both ends: [asOf - n days, asOf].
func TrailingWindow(asOf Date, days int) Period {
	return Period{Start: asOf.AddDays(-days), End: asOf}
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// ContainsNull is Contains for optional dates; an absent date is never
// inside a period.
func (p Period) ContainsNull(d NullDate) bool {
	return d.Valid && p.Contains(d.Date)
}

// CrossesYear reports whether the window's month/day bounds wrap from
// December into January, i.e. Start's month/day sorts after End's.
func (p Period) CrossesYear() bool {
	return p.Start.MonthDay() > p.End.MonthDay()
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
