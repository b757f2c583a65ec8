package eligibility

import (
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// AgedOut reports whether someone born on birth reached threshold years of
// age inside the trailing window of windowDays ending on asOf.
//
// Month/day is compared as a plain number (MMDD), so a window that wraps
// from December into January is split in two: the part at-or-after the lower
// bound belongs to the lower bound's year, the part at-or-before asOf
// belongs to asOf's year.
func AgedOut(birth, asOf generic.Date, windowDays, threshold int) bool {
	window := generic.TrailingWindow(asOf, windowDays)
	lo, hi := window.Start.MonthDay(), window.End.MonthDay()
	md := birth.MonthDay()
	turnsIn := birth.Year() + threshold

	if !window.CrossesYear() {
		return md >= lo && md <= hi && turnsIn == asOf.Year()
	}
	return (md >= lo && turnsIn == window.Start.Year()) ||
		(md <= hi && turnsIn == asOf.Year())
}

// agesOut applies the eligibility preconditions before the window check:
// known birth date, child-like relationship, not disabled, and an employee
// whose status still carries coverage.
func (e *Engine) agesOut(emp source.Employee, dep source.Dependent, asOf generic.Date) bool {
	if !dep.BirthDate.Valid || dep.Disabled {
		return false
	}
	if !e.rules.IsChild(dep.Relationship) {
		return false
	}
	if !e.rules.IsStillCovered(emp.Status) {
		return false
	}
	return AgedOut(dep.BirthDate.Date, asOf, e.rules.WindowDays, e.rules.AgeOutThreshold)
}

// ageOutDate is the last day of the month the dependent reaches the threshold.
func (e *Engine) ageOutDate(birth generic.Date) generic.Date {
	return generic.EndOfMonth(birth.Year()+e.rules.AgeOutThreshold, birth.Month())
}
