package eligibility_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/qb-export/eligibility"
	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/rules"
	"github.com/warp/qb-export/source"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var asOf = date(2025, time.June, 15)

func date(year int, month time.Month, day int) generic.Date {
	return generic.NewDate(year, month, day)
}

func some(d generic.Date) generic.NullDate { return generic.Some(d) }

func newEngine(t *testing.T) *eligibility.Engine {
	t.Helper()
	return eligibility.NewEngine(rules.Default(), nil)
}

// fixture builds a snapshot one employee at a time.
type fixture struct {
	snap source.Snapshot
}

func (f *fixture) employee(id, status string, terminated generic.NullDate) *fixture {
	f.snap.Employees = append(f.snap.Employees, source.Employee{
		ID:              id,
		FirstName:       "First" + id,
		MiddleName:      "quinn",
		LastName:        "Last" + id,
		Sex:             "F",
		BirthDate:       some(date(1980, time.March, 3)),
		Address1:        "1 Main St",
		City:            "Springfield",
		State:           "IL",
		PostalCode:      "62701",
		Country:         "US",
		Status:          status,
		TerminationDate: terminated,
	})
	f.snap.Assignments = append(f.snap.Assignments, source.WorkAssignment{EmployeeID: id, PositionCode: "ENG", Active: true})
	f.snap.Identifications = append(f.snap.Identifications, source.Identification{PersonID: id, Type: "SSN", Number: "123-45-6789"})
	return f
}

func (f *fixture) benefit(empID, code, option string, begin generic.Date, end generic.NullDate, flag string) *fixture {
	f.snap.Benefits = append(f.snap.Benefits, source.Benefit{
		EmployeeID:      empID,
		PlanCode:        code,
		CoverageOption:  option,
		Begin:           begin,
		End:             end,
		Status:          "A",
		EligibilityFlag: flag,
	})
	return f
}

func (f *fixture) dependent(empID, id, rel string, birth generic.Date) *fixture {
	f.snap.Dependents = append(f.snap.Dependents, source.Dependent{
		EmployeeID:   empID,
		ID:           id,
		FirstName:    "Dep" + id,
		LastName:     "Last" + empID,
		Relationship: rel,
		Sex:          "F",
		BirthDate:    some(birth),
	})
	f.snap.Identifications = append(f.snap.Identifications, source.Identification{PersonID: id, Type: "SSN", Number: "987654321"})
	return f
}

func planNames(rows []extract.Row) []string {
	var names []string
	for _, r := range rows {
		names = append(names, r.PlanName)
	}
	return names
}

func rowsFor(rows []extract.Row, empID string) []extract.Row {
	var out []extract.Row
	for _, r := range rows {
		if r.EmployeeID == empID {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestFlatten_TerminatedEmployeeWithConditionalPlan(t *testing.T) {
	// GIVEN: E001 terminated 10 days ago, one active medical benefit flagged
	//   for the conditional plan, no dependents
	// WHEN: flattening
	// THEN: one TERMINATION event dated at month end, with the medical plan,
	//   the mandatory plan, and the conditional plan at employee-only level
	f := &fixture{}
	f.employee("E001", "TV", some(asOf.AddDays(-10))).
		benefit("E001", "MED-PPO", "EE", date(2024, time.January, 1), generic.NullDate{}, "TOB")

	rows := newEngine(t).Flatten(&f.snap, asOf)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Medical PPO", "EAP", "Tobacco Surcharge"}, planNames(rows))
	for _, r := range rows {
		assert.Equal(t, "TERMINATION", r.EventType)
		assert.Equal(t, "2025-06-30", r.EventDate)
		assert.Equal(t, "2024-01-01", r.EnrollmentDate)
		assert.Equal(t, "123-45-6789", r.EmployeeSSN)
		assert.Equal(t, "Q", r.MiddleInitial)
		assert.False(t, r.HasDependent())
	}
	assert.Equal(t, "EE", rows[2].CoverageLevel)
	assert.Equal(t, "EE+FAMILY", rows[1].CoverageLevel)
}

func TestFlatten_DaughterAgesOut(t *testing.T) {
	// GIVEN: an active employee on family medical and spouse dental, with a
	//   daughter who turns 26 on the first day of the window and a spouse
	// WHEN: flattening
	// THEN: only the daughter gets rows, typed INELIGIBLE_DEPENDENT, and only
	//   children-inclusive plans are visible (no dental, no surcharge)
	windowStart := asOf.AddDays(-30)
	f := &fixture{}
	f.employee("E200", "AC", generic.NullDate{}).
		benefit("E200", "MED-PPO", "EF", date(2023, time.January, 1), generic.NullDate{}, "TOB").
		benefit("E200", "DEN-BASIC", "ES", date(2023, time.January, 1), generic.NullDate{}, "").
		dependent("E200", "D100", "DAUGHTER", windowStart.AddYears(-26)).
		dependent("E200", "D101", "SPOUSE", date(1981, time.May, 20))

	rows := newEngine(t).Flatten(&f.snap, asOf)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Medical PPO", "EAP"}, planNames(rows))
	for _, r := range rows {
		assert.Equal(t, "D100", r.DependentID)
		assert.Equal(t, "INELIGIBLE_DEPENDENT", r.EventType)
		assert.Equal(t, "2025-05-31", r.EventDate)
		assert.Equal(t, "EE+FAMILY", r.CoverageLevel)
	}
}

func TestFlatten_NoEventNoRows(t *testing.T) {
	tests := []struct {
		name string
		f    *fixture
	}{
		{
			name: "active employee with young child",
			f: (&fixture{}).employee("E1", "AC", generic.NullDate{}).
				dependent("E1", "D1", "SON", date(2015, time.June, 1)),
		},
		{
			name: "termination outside the window",
			f:    (&fixture{}).employee("E2", "TV", some(asOf.AddDays(-31))),
		},
		{
			name: "terminated without a termination date",
			f:    (&fixture{}).employee("E3", "TV", generic.NullDate{}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := newEngine(t).Flatten(&tt.f.snap, asOf)
			assert.Empty(t, rows)
		})
	}
}

func TestFlatten_ExcludedPositionIsOutOfScope(t *testing.T) {
	f := &fixture{}
	f.employee("E1", "TV", some(asOf.AddDays(-3)))
	f.snap.Assignments[0].PositionCode = "intern"

	assert.Empty(t, newEngine(t).Flatten(&f.snap, asOf))

	f.snap.Assignments[0].PositionCode = "ENG"
	f.snap.Assignments[0].Active = false
	assert.Empty(t, newEngine(t).Flatten(&f.snap, asOf))
}

func TestFlatten_FansOutOnePlanPerCarrierBucket(t *testing.T) {
	// GIVEN: a terminated employee with medical, two dental rows (one ended,
	//   one open-ended) and vision
	// WHEN: flattening
	// THEN: one row per carrier bucket; the open-ended dental wins
	f := &fixture{}
	f.employee("E1", "TI", some(asOf.AddDays(-1))).
		benefit("E1", "MED-HDHP", "EE", date(2024, time.January, 1), generic.NullDate{}, "").
		benefit("E1", "DEN-BASIC", "EE", date(2024, time.March, 1), some(date(2025, time.December, 31)), "").
		benefit("E1", "DEN-PLUS", "EE", date(2023, time.January, 1), generic.NullDate{}, "").
		benefit("E1", "VIS", "EE", date(2024, time.January, 1), generic.NullDate{}, "")

	rows := newEngine(t).Flatten(&f.snap, asOf)

	assert.Equal(t, []string{"Medical HDHP", "Dental Plus", "Vision", "EAP"}, planNames(rows))
}

func TestFlatten_TerminatedEmployeeDependents(t *testing.T) {
	// GIVEN: a terminated employee on EE+SPOUSE medical with the surcharge
	//   flag, a spouse and a child
	// WHEN: flattening
	// THEN: the spouse sees the surcharge and the mandatory plan; the child
	//   sees only the mandatory plan; the employee sees all three
	f := &fixture{}
	f.employee("E1", "TV", some(asOf.AddDays(-5))).
		benefit("E1", "MED-PPO", "ES", date(2024, time.January, 1), generic.NullDate{}, "TOB").
		dependent("E1", "S1", "SPOUSE", date(1982, time.February, 2)).
		dependent("E1", "C1", "SON", date(2012, time.July, 7))

	rows := newEngine(t).Flatten(&f.snap, asOf)

	var employee, spouse, child []string
	for _, r := range rows {
		switch r.DependentID {
		case "":
			employee = append(employee, r.PlanName)
		case "S1":
			spouse = append(spouse, r.PlanName)
		case "C1":
			child = append(child, r.PlanName)
		}
	}
	assert.Equal(t, []string{"Medical PPO", "EAP", "Tobacco Surcharge"}, employee)
	assert.Equal(t, []string{"EAP", "Tobacco Surcharge"}, spouse)
	assert.Equal(t, []string{"EAP"}, child)
}

func TestFlatten_DependentWithoutVisiblePlanKeptOnce(t *testing.T) {
	// GIVEN: rules whose mandatory plan is employee-only, and a terminated
	//   employee with employee-only medical and a child
	// WHEN: flattening
	// THEN: the child still appears exactly once, with blank plan fields
	r := rules.Default()
	r.MandatoryPlan.CoverageLevel = r.CoverageLevels.EmployeeOnly
	engine := eligibility.NewEngine(r, nil)

	f := &fixture{}
	f.employee("E1", "TV", some(asOf.AddDays(-5))).
		benefit("E1", "MED-PPO", "EE", date(2024, time.January, 1), generic.NullDate{}, "").
		dependent("E1", "C1", "SON", date(2012, time.July, 7))

	rows := engine.Flatten(&f.snap, asOf)

	var childRows []extract.Row
	for _, row := range rows {
		if row.DependentID == "C1" {
			childRows = append(childRows, row)
		}
	}
	require.Len(t, childRows, 1)
	assert.False(t, childRows[0].HasPlan())
	assert.Empty(t, childRows[0].CoverageLevel)
	assert.Empty(t, childRows[0].PlanEndDate)
}

func TestFlatten_CollapsesDuplicates(t *testing.T) {
	// GIVEN: the same dependent delivered twice by the source
	// WHEN: flattening
	// THEN: identical rows collapse to one
	f := &fixture{}
	f.employee("E1", "RT", some(asOf.AddDays(-2))).
		dependent("E1", "C1", "DAUGHTER", date(2010, time.January, 1)).
		dependent("E1", "C1", "DAUGHTER", date(2010, time.January, 1))

	rows := newEngine(t).Flatten(&f.snap, asOf)

	// employee EAP row + one child EAP row
	require.Len(t, rows, 2)
	assert.Equal(t, "RETIREMENT", rows[0].EventType)
}

func TestFlatten_NewestContactOverridesAddress(t *testing.T) {
	f := &fixture{}
	f.employee("E1", "DC", some(asOf.AddDays(-4)))
	f.snap.Contacts = []source.Contact{
		{EmployeeID: "E1", EffectiveDate: date(2025, time.January, 1), Address1: "Old Rd", City: "Oldtown"},
		{EmployeeID: "E1", EffectiveDate: date(2025, time.April, 1), Address1: "New Ave", City: "Newtown", Email: "e1@example.com"},
		{EmployeeID: "E1", EffectiveDate: date(2024, time.April, 1), Address1: "Older Ln", City: "Oldest"},
	}

	rows := newEngine(t).Flatten(&f.snap, asOf)

	require.NotEmpty(t, rows)
	assert.Equal(t, "DEATH", rows[0].EventType)
	assert.Equal(t, "New Ave", rows[0].Address1)
	assert.Equal(t, "Newtown", rows[0].City)
	assert.Equal(t, "e1@example.com", rows[0].Email)
}

func TestFlatten_UnitsAndEndDates(t *testing.T) {
	// GIVEN: an FSA election with a coverage amount and a medical plan that
	//   ended, plus a waive row with a later end date
	// WHEN: flattening
	// THEN: units are rendered; the mandatory plan ends with the medical end
	f := &fixture{}
	f.employee("E1", "TV", some(asOf.AddDays(-1))).
		benefit("E1", "MED-PPO", "EE", date(2024, time.January, 1), some(date(2025, time.June, 30)), "").
		benefit("E1", "WAIVE-MED", "EE", date(2024, time.January, 1), some(date(2025, time.December, 31)), "").
		benefit("E1", "HCFSA", "EE", date(2025, time.January, 1), some(date(2025, time.December, 31)), "")
	f.snap.Benefits[2].CoverageAmount = decimal.RequireFromString("2500.00")

	rows := newEngine(t).Flatten(&f.snap, asOf)

	byPlan := make(map[string]extract.Row)
	for _, r := range rows {
		byPlan[r.PlanName] = r
	}
	assert.Equal(t, "2500", byPlan["Health Care FSA"].NumberOfUnits)
	assert.Empty(t, byPlan["Medical PPO"].NumberOfUnits)
	assert.Equal(t, "2025-06-30", byPlan["EAP"].PlanEndDate)
}

func TestFlatten_MandatoryPlanFallsBackToWaiveEnd(t *testing.T) {
	f := &fixture{}
	f.employee("E1", "TV", some(asOf.AddDays(-1))).
		benefit("E1", "WAIVE-MED", "EE", date(2024, time.January, 1), some(date(2025, time.March, 31)), "").
		benefit("E1", "WAIVE-MED", "EE", date(2024, time.June, 1), some(date(2025, time.September, 30)), "")

	rows := newEngine(t).Flatten(&f.snap, asOf)

	require.Len(t, rows, 1)
	assert.Equal(t, "EAP", rows[0].PlanName)
	assert.Equal(t, "2025-09-30", rows[0].PlanEndDate)
	assert.Empty(t, rows[0].EnrollmentDate)
}

func TestFlatten_IgnoresInactiveBenefits(t *testing.T) {
	f := &fixture{}
	f.employee("E1", "TV", some(asOf.AddDays(-1))).
		benefit("E1", "MED-PPO", "EE", date(2024, time.January, 1), generic.NullDate{}, "TOB")
	f.snap.Benefits[0].Status = "T"

	rows := newEngine(t).Flatten(&f.snap, asOf)

	assert.Equal(t, []string{"EAP"}, planNames(rowsFor(rows, "E1")))
}
