/*
scenarios.go - Demo data sets for previews and demonstrations

PURPOSE:
	Replaces the source tables with a small, realistic snapshot built around
	a chosen date so every event family can be previewed without real HR
	data. Each scenario exercises one branch of the eligibility rules.

AVAILABLE SCENARIOS:

	termination:  Terminated employee with the tobacco flag, no dependents
	age-out:      Active employee whose daughter turns 26 in the window
	retirement:   Retiree with a spouse on family medical
	mixed:        All of the above plus out-of-scope and no-event employees

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "age-out", "asOf": "2025-06-15"}

NOTE:
	Scenarios replace the source tables. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: preview endpoints to run after loading
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "termination",
		Name:        "Termination",
		Description: "Employee terminated 10 days ago on PPO medical with the tobacco surcharge",
	},
	{
		ID:          "age-out",
		Name:        "Dependent Age-Out",
		Description: "Active employee on family medical whose daughter turns 26 inside the window",
	},
	{
		ID:          "retirement",
		Name:        "Retirement",
		Description: "Retiree with spouse on family medical and dental",
	},
	{
		ID:          "mixed",
		Name:        "Mixed Population",
		Description: "All event families plus an intern and an employee with no event",
	},
}

var scenarioBuilders = map[string]func(asOf generic.Date) *source.Snapshot{
	"termination": func(asOf generic.Date) *source.Snapshot {
		return newScenario().termination(asOf).snap
	},
	"age-out": func(asOf generic.Date) *source.Snapshot {
		return newScenario().ageOut(asOf).snap
	},
	"retirement": func(asOf generic.Date) *source.Snapshot {
		return newScenario().retirement(asOf).snap
	},
	"mixed": func(asOf generic.Date) *source.Snapshot {
		return newScenario().termination(asOf).ageOut(asOf).retirement(asOf).quiet().intern(asOf).snap
	},
}

// ScenarioSnapshot builds the named scenario around asOf.
func ScenarioSnapshot(id string, asOf generic.Date) (*source.Snapshot, bool) {
	build, ok := scenarioBuilders[id]
	if !ok {
		return nil, false
	}
	return build(asOf), true
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo data sets.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario replaces the source tables with a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Saver == nil {
		writeError(w, http.StatusNotImplemented, "Source store is read-only", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asOf := h.Today()
	if req.AsOf != "" {
		d, err := generic.ParseDate("asOf", req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid asOf", err)
			return
		}
		asOf = d
	}

	snap, ok := ScenarioSnapshot(req.ScenarioID, asOf)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err := h.Saver.Save(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.Logger.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID),
		zap.String("as_of", asOf.String()),
		zap.Int("employees", len(snap.Employees)))
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario":  req.ScenarioID,
		"asOf":      asOf.String(),
		"employees": len(snap.Employees),
	})
}

// =============================================================================
// SNAPSHOT BUILDER
// =============================================================================

type scenario struct {
	snap *source.Snapshot
}

func newScenario() *scenario {
	return &scenario{snap: &source.Snapshot{}}
}

func (s *scenario) employee(e source.Employee, position, ssn string) {
	s.snap.Employees = append(s.snap.Employees, e)
	s.snap.Assignments = append(s.snap.Assignments, source.WorkAssignment{EmployeeID: e.ID, PositionCode: position, Active: true})
	s.snap.Identifications = append(s.snap.Identifications, source.Identification{PersonID: e.ID, Type: "SSN", Number: ssn})
}

func (s *scenario) dependent(d source.Dependent, ssn string) {
	s.snap.Dependents = append(s.snap.Dependents, d)
	s.snap.Identifications = append(s.snap.Identifications, source.Identification{PersonID: d.ID, Type: "SSN", Number: ssn})
}

func (s *scenario) benefit(empID, code, option, flag string, begin generic.Date) {
	s.snap.Benefits = append(s.snap.Benefits, source.Benefit{
		EmployeeID:      empID,
		PlanCode:        code,
		CoverageOption:  option,
		Begin:           begin,
		Status:          "A",
		EligibilityFlag: flag,
	})
}

func (s *scenario) termination(asOf generic.Date) *scenario {
	s.employee(source.Employee{
		ID: "E100", FirstName: "Ann", MiddleName: "Quinn", LastName: "Lee", Sex: "F",
		BirthDate: generic.Some(generic.NewDate(1980, time.March, 3)), Smoker: true,
		Address1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
		Status: "TV", TerminationDate: generic.Some(asOf.AddDays(-10)),
	}, "ENG", "123-45-6789")
	s.benefit("E100", "MED-PPO", "EE", "TOB", asOf.AddYears(-2))
	return s
}

func (s *scenario) ageOut(asOf generic.Date) *scenario {
	windowStart := asOf.AddDays(-30)
	s.employee(source.Employee{
		ID: "E200", FirstName: "José", LastName: "Núñez", Sex: "M",
		BirthDate: generic.Some(generic.NewDate(1970, time.January, 9)),
		Address1:  "9 Elm Rd", City: "Peoria", State: "IL", PostalCode: "61602", Country: "US",
		Status: "AC",
	}, "OPS", "234-56-7890")
	s.benefit("E200", "MED-HDHP", "EF", "", asOf.AddYears(-3))
	s.snap.Benefits = append(s.snap.Benefits, source.Benefit{
		EmployeeID: "E200", PlanCode: "HCFSA", CoverageOption: "EE", Begin: asOf.AddYears(-1),
		Status: "A", CoverageAmount: decimal.NewFromInt(1500),
	})
	s.dependent(source.Dependent{
		EmployeeID: "E200", ID: "D201", FirstName: "Ana", LastName: "Núñez",
		Relationship: "DAUGHTER", Sex: "F", BirthDate: generic.Some(windowStart.AddDays(5).AddYears(-26)),
	}, "345-67-8901")
	return s
}

func (s *scenario) retirement(asOf generic.Date) *scenario {
	s.employee(source.Employee{
		ID: "E300", FirstName: "Ray", LastName: "Ortiz", Sex: "M",
		BirthDate: generic.Some(generic.NewDate(1958, time.August, 21)),
		Address1:  "40 Lake Dr", City: "Naperville", State: "IL", PostalCode: "60540", Country: "US",
		Status: "RT", TerminationDate: generic.Some(asOf.AddDays(-3)),
	}, "FIN", "456-78-9012")
	s.benefit("E300", "MED-PPO", "EF", "TOB", asOf.AddYears(-10))
	s.benefit("E300", "DEN-BASIC", "ES", "", asOf.AddYears(-10))
	s.dependent(source.Dependent{
		EmployeeID: "E300", ID: "D301", FirstName: "Rita", LastName: "Ortiz",
		Relationship: "SPOUSE", Sex: "F", BirthDate: generic.Some(generic.NewDate(1960, time.February, 2)),
	}, "567-89-0123")
	return s
}

func (s *scenario) quiet() *scenario {
	s.employee(source.Employee{ID: "E400", FirstName: "Cy", LastName: "Park", Status: "AC"}, "ENG", "678-90-1234")
	s.benefit("E400", "MED-PPO", "EE", "", generic.NewDate(2020, time.January, 1))
	return s
}

func (s *scenario) intern(asOf generic.Date) *scenario {
	s.employee(source.Employee{
		ID: "E500", FirstName: "Dee", LastName: "Intern", Status: "TV",
		TerminationDate: generic.Some(asOf.AddDays(-2)),
	}, "INTERN", "789-01-2345")
	s.benefit("E500", "MED-PPO", "EE", "", asOf.AddYears(-1))
	return s
}
