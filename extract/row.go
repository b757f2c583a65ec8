// Package extract defines the flattened eligibility row and the file codecs
// for it. The extract file is the only boundary between the eligibility
// engine and the segment builder: the builder never re-derives eligibility.
package extract

import (
	"reflect"
)

// Row is one (employee, optional dependent, optional plan) decision.
// Field order is column order. Dates are ISO strings; blank means absent.
type Row struct {
	EmployeeID      string `csv:"employee_id" parquet:"employee_id" json:"employeeId"`
	EmployeeSSN     string `csv:"employee_ssn" parquet:"employee_ssn" json:"employeeSsn"`
	FirstName       string `csv:"first_name" parquet:"first_name" json:"firstName"`
	MiddleInitial   string `csv:"middle_initial" parquet:"middle_initial" json:"middleInitial"`
	LastName        string `csv:"last_name" parquet:"last_name" json:"lastName"`
	Email           string `csv:"email" parquet:"email" json:"email"`
	Phone           string `csv:"phone" parquet:"phone" json:"phone"`
	Address1        string `csv:"address1" parquet:"address1" json:"address1"`
	Address2        string `csv:"address2" parquet:"address2" json:"address2"`
	City            string `csv:"city" parquet:"city" json:"city"`
	State           string `csv:"state" parquet:"state" json:"state"`
	PostalCode      string `csv:"postal_code" parquet:"postal_code" json:"postalCode"`
	Country         string `csv:"country" parquet:"country" json:"country"`
	Sex             string `csv:"sex" parquet:"sex" json:"sex"`
	BirthDate       string `csv:"birth_date" parquet:"birth_date" json:"birthDate"`
	TobaccoUse      string `csv:"tobacco_use" parquet:"tobacco_use" json:"tobaccoUse"`
	EmployeeStatus  string `csv:"employee_status" parquet:"employee_status" json:"employeeStatus"`
	TerminationDate string `csv:"termination_date" parquet:"termination_date" json:"terminationDate"`
	EnrollmentDate  string `csv:"enrollment_date" parquet:"enrollment_date" json:"enrollmentDate"`
	EventType       string `csv:"event_type" parquet:"event_type" json:"eventType"`
	EventDate       string `csv:"event_date" parquet:"event_date" json:"eventDate"`
	PlanName        string `csv:"plan_name" parquet:"plan_name" json:"planName"`
	CoverageLevel   string `csv:"coverage_level" parquet:"coverage_level" json:"coverageLevel"`
	NumberOfUnits   string `csv:"number_of_units" parquet:"number_of_units" json:"numberOfUnits"`
	PlanEndDate     string `csv:"plan_end_date" parquet:"plan_end_date" json:"planEndDate"`

	DependentID            string `csv:"dependent_id" parquet:"dependent_id" json:"dependentId"`
	DependentSSN           string `csv:"dependent_ssn" parquet:"dependent_ssn" json:"dependentSsn"`
	DependentRelationship  string `csv:"dependent_relationship" parquet:"dependent_relationship" json:"dependentRelationship"`
	DependentFirstName     string `csv:"dependent_first_name" parquet:"dependent_first_name" json:"dependentFirstName"`
	DependentMiddleInitial string `csv:"dependent_middle_initial" parquet:"dependent_middle_initial" json:"dependentMiddleInitial"`
	DependentLastName      string `csv:"dependent_last_name" parquet:"dependent_last_name" json:"dependentLastName"`
	DependentSex           string `csv:"dependent_sex" parquet:"dependent_sex" json:"dependentSex"`
	DependentBirthDate     string `csv:"dependent_birth_date" parquet:"dependent_birth_date" json:"dependentBirthDate"`
}

// HasDependent reports whether the row describes a dependent.
func (r Row) HasDependent() bool { return r.DependentID != "" }

// HasPlan reports whether the row carries a visible plan.
func (r Row) HasPlan() bool { return r.PlanName != "" }

// =============================================================================
// COLUMN METADATA
// =============================================================================

var (
	rowType = reflect.TypeOf(Row{})
	columns = func() []string {
		cols := make([]string, rowType.NumField())
		for i := range cols {
			cols[i] = rowType.Field(i).Tag.Get("csv")
		}
		return cols
	}()
)

// Columns returns the extract header in order. Every column is required.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// values returns the row's cells in column order.
func (r Row) values() []string {
	v := reflect.ValueOf(r)
	out := make([]string, v.NumField())
	for i := range out {
		out[i] = v.Field(i).String()
	}
	return out
}

// setField assigns the cell for column index i.
func (r *Row) setField(i int, value string) {
	reflect.ValueOf(r).Elem().Field(i).SetString(value)
}
