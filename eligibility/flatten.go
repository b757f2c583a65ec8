package eligibility

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// Flatten joins the snapshot into extract rows as of the given date.
//
// A row survives when the employee has a termination, retirement or death
// event inside the window, or when the row's dependent aged out. Employee
// rows (no dependent) exist only for employee events. Each row is
// multiplied by the employee's best plan per carrier bucket; a row whose
// plans are all hidden is kept once with empty plan fields. Exact duplicates
// collapse, first occurrence wins.
func (e *Engine) Flatten(snap *source.Snapshot, asOf generic.Date) []extract.Row {
	idx := snap.NewIndex(e.rules.IdentificationType)
	contacts := newestContact(snap.Contacts)
	ranked := e.rankBenefits(snap.Benefits)

	out := newRowSet()
	inScope := 0
	for _, emp := range snap.Employees {
		if !e.inScope(idx.Assignments[emp.ID]) {
			continue
		}
		inScope++

		benefits := idx.Benefits[emp.ID]
		facts := e.factsFor(emp.ID, benefits, ranked)
		plans := e.plansFor(emp.ID, benefits, facts)

		base := e.employeeRow(emp, idx, contacts, facts)
		empEvent, hasEvent := e.employeeEvent(emp, asOf)

		if hasEvent {
			e.emit(out, base, plans, empEvent, emp, nil, asOf)
		}
		for _, dep := range idx.Dependents[emp.ID] {
			agedOut := e.agesOut(emp, dep, asOf)
			if !hasEvent && !agedOut {
				continue
			}
			ev := empEvent
			if agedOut {
				ev = e.Classify(emp, &dep, true)
			}
			row := withDependent(base, dep, idx.Identifiers[dep.ID])
			e.emit(out, row, plans, ev, emp, &dep, asOf)
		}
	}

	e.logger.Info("eligibility flattened",
		zap.String("as_of", asOf.String()),
		zap.Int("employees", len(snap.Employees)),
		zap.Int("in_scope", inScope),
		zap.Int("rows", len(out.rows)))
	return out.rows
}

// inScope is the work-assignment gate.
func (e *Engine) inScope(assignments []source.WorkAssignment) bool {
	for _, a := range assignments {
		if a.Active && !strings.EqualFold(strings.TrimSpace(a.PositionCode), e.rules.ExcludedPosition) {
			return true
		}
	}
	return false
}

// emit writes one row per plan, blanking the plan fields where hidden.
func (e *Engine) emit(out *rowSet, base extract.Row, plans []Plan, ev Event, emp source.Employee, dep *source.Dependent, asOf generic.Date) {
	base.EventType = string(ev.Type)
	base.EventDate = ev.Date.String()

	shown := false
	for _, p := range plans {
		if !e.Visible(p, ev, emp, dep, asOf) {
			continue
		}
		shown = true
		row := base
		row.PlanName = p.Name
		row.CoverageLevel = p.CoverageLevel
		row.PlanEndDate = p.End.String()
		if !p.Units.IsZero() {
			row.NumberOfUnits = p.Units.String()
		}
		out.add(row)
	}
	if !shown {
		out.add(base)
	}
}

// employeeRow fills the employee-level columns. The newest contact row, when
// present, supplies address, email and phone.
func (e *Engine) employeeRow(emp source.Employee, idx *source.Index, contacts *generic.Ranked[string, source.Contact], f benefitFacts) extract.Row {
	row := extract.Row{
		EmployeeID:      emp.ID,
		EmployeeSSN:     idx.Identifiers[emp.ID],
		FirstName:       emp.FirstName,
		MiddleInitial:   initial(emp.MiddleName),
		LastName:        emp.LastName,
		Email:           emp.Email,
		Phone:           emp.Phone,
		Address1:        emp.Address1,
		Address2:        emp.Address2,
		City:            emp.City,
		State:           emp.State,
		PostalCode:      emp.PostalCode,
		Country:         emp.Country,
		Sex:             emp.Sex,
		BirthDate:       emp.BirthDate.String(),
		TobaccoUse:      yesNo(emp.Smoker),
		EmployeeStatus:  emp.Status,
		TerminationDate: emp.TerminationDate.String(),
	}
	if f.hasMedical {
		row.EnrollmentDate = f.medical.Begin.String()
	}
	if c, ok := contacts.Get(emp.ID); ok {
		row.Address1, row.Address2 = c.Address1, c.Address2
		row.City, row.State = c.City, c.State
		row.PostalCode, row.Country = c.PostalCode, c.Country
		if c.Email != "" {
			row.Email = c.Email
		}
		if c.Phone != "" {
			row.Phone = c.Phone
		}
	}
	return row
}

func withDependent(row extract.Row, dep source.Dependent, ssn string) extract.Row {
	row.DependentID = dep.ID
	row.DependentSSN = ssn
	row.DependentRelationship = dep.Relationship
	row.DependentFirstName = dep.FirstName
	row.DependentMiddleInitial = initial(dep.MiddleName)
	row.DependentLastName = dep.LastName
	row.DependentSex = dep.Sex
	row.DependentBirthDate = dep.BirthDate.String()
	return row
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// =============================================================================
// ROW SET - Insertion-ordered set semantics
// =============================================================================

type rowSet struct {
	seen map[extract.Row]bool
	rows []extract.Row
}

func newRowSet() *rowSet { return &rowSet{seen: make(map[extract.Row]bool)} }

func (s *rowSet) add(r extract.Row) {
	if s.seen[r] {
		return
	}
	s.seen[r] = true
	s.rows = append(s.rows, r)
}
