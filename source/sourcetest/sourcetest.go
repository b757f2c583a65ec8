// Package sourcetest provides a small source snapshot shared by store, API
// and pipeline tests.
package sourcetest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// AsOf is the run date the sample snapshot is built around.
var AsOf = generic.NewDate(2025, time.June, 15)

// Snapshot returns a fresh sample with:
//   - E001: terminated 10 days before AsOf, medical with the surcharge flag
//   - E002: active, with a daughter aging out on the first day of the window
//     and a young son
//   - E003: active, no event
//   - E004: terminated, but an intern (out of scope)
func Snapshot() *source.Snapshot {
	d := generic.NewDate
	some := generic.Some
	open := generic.NullDate{}

	return &source.Snapshot{
		Employees: []source.Employee{
			{ID: "E001", FirstName: "Ann", MiddleName: "Quinn", LastName: "Lee", Sex: "F",
				BirthDate: some(d(1980, time.March, 3)), Smoker: true,
				Address1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
				Status: "TV", TerminationDate: some(AsOf.AddDays(-10))},
			{ID: "E002", FirstName: "José", LastName: "Núñez", Sex: "M",
				BirthDate: some(d(1970, time.January, 9)),
				Address1: "9 Elm Rd", City: "Peoria", State: "IL", PostalCode: "61602", Country: "US",
				Status: "AC"},
			{ID: "E003", FirstName: "Cy", LastName: "Park", Status: "AC"},
			{ID: "E004", FirstName: "Dee", LastName: "Intern", Status: "TV", TerminationDate: some(AsOf.AddDays(-2))},
		},
		Assignments: []source.WorkAssignment{
			{EmployeeID: "E001", PositionCode: "ENG", Active: true},
			{EmployeeID: "E002", PositionCode: "OPS", Active: true},
			{EmployeeID: "E003", PositionCode: "ENG", Active: true},
			{EmployeeID: "E004", PositionCode: "INTERN", Active: true},
		},
		Contacts: []source.Contact{
			{EmployeeID: "E001", EffectiveDate: d(2025, time.February, 1), Address1: "2 Oak Ave",
				City: "Springfield", State: "IL", PostalCode: "62702", Country: "US", Email: "ann@example.com"},
		},
		Benefits: []source.Benefit{
			{EmployeeID: "E001", PlanCode: "MED-PPO", CoverageOption: "EE", Begin: d(2024, time.January, 1),
				End: open, Status: "A", EligibilityFlag: "TOB"},
			{EmployeeID: "E002", PlanCode: "MED-HDHP", CoverageOption: "EF", Begin: d(2023, time.January, 1),
				End: open, Status: "A"},
			{EmployeeID: "E002", PlanCode: "HCFSA", CoverageOption: "EE", Begin: d(2025, time.January, 1),
				End: some(d(2025, time.December, 31)), Status: "A", CoverageAmount: decimal.NewFromInt(1500)},
		},
		Dependents: []source.Dependent{
			{EmployeeID: "E002", ID: "D100", FirstName: "Ana", LastName: "Núñez", Relationship: "DAUGHTER",
				Sex: "F", BirthDate: some(AsOf.AddDays(-30).AddYears(-26))},
			{EmployeeID: "E002", ID: "D101", FirstName: "Leo", LastName: "Núñez", Relationship: "SON",
				Sex: "M", BirthDate: some(d(2015, time.April, 4))},
		},
		Identifications: []source.Identification{
			{PersonID: "E001", Type: "SSN", Number: "123-45-6789"},
			{PersonID: "E002", Type: "SSN", Number: "234-56-7890"},
			{PersonID: "E002", Type: "PASSPORT", Number: "X1234567"},
			{PersonID: "D100", Type: "SSN", Number: "345-67-8901"},
			{PersonID: "D101", Type: "SSN", Number: "4567"},
		},
	}
}
