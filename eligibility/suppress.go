package eligibility

import (
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// Visible decides whether a plan is shown on a row. Plan name, coverage
// level and end date are shown or hidden together.
//
// The conditional plan is governed only by its own rules:
//
//	age-out row                                         -> hide
//	terminated employee inside the window, level employee-only or
//	employee+spouse, and no dependent or a spouse       -> show
//	anything else                                       -> hide
//
// Every other plan is hidden on a dependent row unless its level includes
// children, and shown otherwise.
func (e *Engine) Visible(plan Plan, ev Event, emp source.Employee, dep *source.Dependent, asOf generic.Date) bool {
	if plan.IsConditional() {
		if ev.IsAgeOut() {
			return false
		}
		return e.rules.IsTermination(emp.Status) &&
			e.Window(asOf).ContainsNull(emp.TerminationDate) &&
			e.rules.IsEmployeeOrSpouse(plan.CoverageLevel) &&
			(dep == nil || e.rules.IsSpouse(dep.Relationship))
	}
	if dep != nil && !e.rules.IncludesChildren(plan.CoverageLevel) {
		return false
	}
	return true
}
