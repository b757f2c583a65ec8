package eligibility

import (
	"go.uber.org/zap"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// benefitFacts are the ranked benefit rows one employee's plans derive from.
type benefitFacts struct {
	medical     source.Benefit // newest active medical enrollment
	hasMedical  bool
	medicalEnd  generic.NullDate
	waiveEnd    generic.NullDate
	conditional bool // an active row carries the conditional-plan flag
}

// rankedBenefits holds the benefit rankings for every employee of a run.
type rankedBenefits struct {
	medical    *generic.Ranked[string, source.Benefit]
	medicalEnd *generic.Ranked[string, source.Benefit]
	waiveEnd   *generic.Ranked[string, source.Benefit]
}

func (e *Engine) rankBenefits(all []source.Benefit) rankedBenefits {
	return rankedBenefits{
		medical:    e.newestMedical(all),
		medicalEnd: e.latestEnd(all, e.rules.IsMedical),
		waiveEnd:   e.latestEnd(all, e.rules.IsWaive),
	}
}

func (e *Engine) factsFor(employeeID string, benefits []source.Benefit, rb rankedBenefits) benefitFacts {
	var f benefitFacts
	if b, ok := rb.medical.Get(employeeID); ok {
		f.medical, f.hasMedical = b, true
	}
	if b, ok := rb.medicalEnd.Get(employeeID); ok {
		f.medicalEnd = b.End
	}
	if b, ok := rb.waiveEnd.Get(employeeID); ok {
		f.waiveEnd = b.End
	}
	for _, b := range benefits {
		if e.rules.IsActiveBenefit(b.Status) && e.rules.IsConditionalFlag(b.EligibilityFlag) {
			f.conditional = true
			break
		}
	}
	return f
}

// realPlans maps active, non-waive benefit rows through the plan table.
// Unmapped plan codes or options are skipped.
func (e *Engine) realPlans(benefits []source.Benefit) []Plan {
	var plans []Plan
	for _, b := range benefits {
		if !e.rules.IsActiveBenefit(b.Status) || e.rules.IsWaive(b.PlanCode) {
			continue
		}
		mapping, level, ok := e.rules.LookupPlan(b.PlanCode, b.CoverageOption)
		if !ok {
			e.logger.Debug("unmapped benefit skipped",
				zap.String("employee_id", b.EmployeeID),
				zap.String("plan_code", b.PlanCode),
				zap.String("coverage_option", b.CoverageOption))
			continue
		}
		plans = append(plans, Plan{
			EmployeeID:    b.EmployeeID,
			Bucket:        mapping.Bucket,
			Name:          mapping.Name,
			CoverageLevel: level,
			Begin:         b.Begin,
			End:           b.End,
			Units:         b.CoverageAmount,
			Priority:      PriorityReal,
		})
	}
	return plans
}

// syntheticPlans manufactures the plans not backed by benefit rows.
//
// The mandatory plan is emitted for every in-scope employee. Its end date is
// the latest medical end date, else the latest waived-medical end date,
// else open.
//
// The conditional plan is emitted only when an active benefit row carries
// the eligibility flag; its level comes from the newest medical option.
func (e *Engine) syntheticPlans(employeeID string, f benefitFacts) []Plan {
	mp := e.rules.MandatoryPlan
	plans := []Plan{{
		EmployeeID:    employeeID,
		Bucket:        mp.Bucket,
		Name:          mp.Name,
		CoverageLevel: e.rules.MandatoryLevel(),
		Begin:         f.medical.Begin,
		End:           f.medicalEnd.Or(f.waiveEnd),
		Priority:      PriorityMandatory,
	}}

	if f.conditional {
		cp := e.rules.ConditionalPlan
		plans = append(plans, Plan{
			EmployeeID:    employeeID,
			Bucket:        cp.Bucket,
			Name:          cp.Name,
			CoverageLevel: e.rules.ConditionalLevel(f.medical.CoverageOption, f.hasMedical),
			Begin:         f.medical.Begin,
			End:           f.medical.End,
			Priority:      PriorityConditional,
		})
	}
	return plans
}

// plansFor returns the one best plan per carrier bucket for an employee.
func (e *Engine) plansFor(employeeID string, benefits []source.Benefit, f benefitFacts) []Plan {
	candidates := append(e.realPlans(benefits), e.syntheticPlans(employeeID, f)...)
	return bestPlans(candidates)
}
