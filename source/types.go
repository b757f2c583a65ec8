// Package source models the raw HR/benefits tables the eligibility engine
// reads. Types here carry shape only; every decision lives in eligibility.
package source

import (
	"github.com/shopspring/decimal"
	"github.com/warp/qb-export/generic"
)

// =============================================================================
// SOURCE TABLES
// =============================================================================

// Employee is the latest state of one employee. No history is modeled.
type Employee struct {
	ID              string
	FirstName       string
	MiddleName      string
	LastName        string
	Sex             string
	BirthDate       generic.NullDate
	Smoker          bool
	Address1        string
	Address2        string
	City            string
	State           string
	PostalCode      string
	Country         string
	Email           string
	Phone           string
	Status          string // relationship status code (active/terminated/retired/deceased families)
	TerminationDate generic.NullDate
}

// WorkAssignment only gates scope: an employee is exported when at least
// one active assignment has a non-excluded position.
type WorkAssignment struct {
	EmployeeID   string
	PositionCode string
	Active       bool
}

// Contact is a dated address/phone/email record. The newest one wins.
type Contact struct {
	EmployeeID    string
	EffectiveDate generic.Date
	Address1      string
	Address2      string
	City          string
	State         string
	PostalCode    string
	Country       string
	Email         string
	Phone         string
}

// Benefit is one historical enrollment row.
type Benefit struct {
	EmployeeID      string
	PlanCode        string
	CoverageOption  string
	Begin           generic.Date
	End             generic.NullDate // invalid = open-ended
	Status          string
	EligibilityFlag string
	CoverageAmount  decimal.Decimal // units for volume-based plans; zero otherwise
}

type Dependent struct {
	EmployeeID   string
	ID           string
	FirstName    string
	MiddleName   string
	LastName     string
	Relationship string
	Sex          string
	BirthDate    generic.NullDate
	Disabled     bool
}

// Identification links a person (employee or dependent) to a government ID.
// Number may contain punctuation.
type Identification struct {
	PersonID string
	Type     string
	Number   string
}

// =============================================================================
// SNAPSHOT - All tables for one run
// =============================================================================

// Snapshot is the complete set of source rows for one run.
type Snapshot struct {
	Employees       []Employee
	Assignments     []WorkAssignment
	Contacts        []Contact
	Benefits        []Benefit
	Dependents      []Dependent
	Identifications []Identification
}

// Index groups snapshot rows by employee for the joins in eligibility.
type Index struct {
	Assignments map[string][]WorkAssignment
	Contacts    map[string][]Contact
	Benefits    map[string][]Benefit
	Dependents  map[string][]Dependent
	Identifiers map[string]string // person ID -> first government ID of the configured type
}

// NewIndex builds the per-employee lookup maps. idType selects which
// identification type is used (e.g. "SSN"); the first matching row wins.
func (s *Snapshot) NewIndex(idType string) *Index {
	idx := &Index{
		Assignments: make(map[string][]WorkAssignment),
		Contacts:    make(map[string][]Contact),
		Benefits:    make(map[string][]Benefit),
		Dependents:  make(map[string][]Dependent),
		Identifiers: make(map[string]string),
	}
	for _, a := range s.Assignments {
		idx.Assignments[a.EmployeeID] = append(idx.Assignments[a.EmployeeID], a)
	}
	for _, c := range s.Contacts {
		idx.Contacts[c.EmployeeID] = append(idx.Contacts[c.EmployeeID], c)
	}
	for _, b := range s.Benefits {
		idx.Benefits[b.EmployeeID] = append(idx.Benefits[b.EmployeeID], b)
	}
	for _, d := range s.Dependents {
		idx.Dependents[d.EmployeeID] = append(idx.Dependents[d.EmployeeID], d)
	}
	for _, id := range s.Identifications {
		if idType != "" && id.Type != idType {
			continue
		}
		if _, ok := idx.Identifiers[id.PersonID]; !ok {
			idx.Identifiers[id.PersonID] = id.Number
		}
	}
	return idx
}
