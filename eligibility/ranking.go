package eligibility

import (
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// The four uses of generic.BestPerGroup. Each returns one winner per group.

var (
	byNewestContact = generic.NewestFirst(func(c source.Contact) generic.Date { return c.EffectiveDate })

	byNewestEnrollment = generic.NewestFirst(func(b source.Benefit) generic.Date { return b.Begin })

	byLatestEnd = generic.Then(
		generic.OpenEndedFirst(func(b source.Benefit) generic.NullDate { return b.End }),
		generic.NewestFirst(func(b source.Benefit) generic.Date { return b.Begin }),
	)

	byPlanPreference = generic.Then(
		generic.Ascending(func(p Plan) SourcePriority { return p.Priority }),
		generic.OpenEndedFirst(func(p Plan) generic.NullDate { return p.End }),
		generic.NewestFirst(func(p Plan) generic.Date { return p.Begin }),
	)
)

func contactEmployee(c source.Contact) string { return c.EmployeeID }
func benefitEmployee(b source.Benefit) string { return b.EmployeeID }
func planBucket(p Plan) planKey               { return planKey{EmployeeID: p.EmployeeID, Bucket: p.Bucket} }

// newestContact picks the most recent contact row per employee.
func newestContact(contacts []source.Contact) *generic.Ranked[string, source.Contact] {
	return generic.BestPerGroup(contacts, contactEmployee, byNewestContact)
}

// newestMedical picks the most recently begun active medical enrollment per
// employee. Its begin date is the enrollment-date surrogate and its option
// drives the conditional plan's coverage level.
func (e *Engine) newestMedical(benefits []source.Benefit) *generic.Ranked[string, source.Benefit] {
	return generic.BestPerGroup(e.activeWhere(benefits, e.rules.IsMedical), benefitEmployee, byNewestEnrollment)
}

// latestEnd picks, per employee, the active row of the given kind whose end
// date is latest, an open end beating any fixed one, ties by newest begin.
func (e *Engine) latestEnd(benefits []source.Benefit, kind func(string) bool) *generic.Ranked[string, source.Benefit] {
	return generic.BestPerGroup(e.activeWhere(benefits, kind), benefitEmployee, byLatestEnd)
}

// bestPlans keeps one plan per (employee, carrier bucket).
func bestPlans(plans []Plan) []Plan {
	return generic.BestPerGroup(plans, planBucket, byPlanPreference).Rows()
}

func (e *Engine) activeWhere(benefits []source.Benefit, planCode func(string) bool) []source.Benefit {
	var out []source.Benefit
	for _, b := range benefits {
		if e.rules.IsActiveBenefit(b.Status) && planCode(b.PlanCode) {
			out = append(out, b)
		}
	}
	return out
}
