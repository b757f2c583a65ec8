/*
Package segment renders the flattened extract as the vendor's hierarchical
qualified-beneficiary import file.

PURPOSE:
  The extract has one row per (employee, dependent, plan). The vendor wants
  one nested block per employee instead. This package regroups the rows,
  deduplicates plans, and writes every block with the exact field order the
  vendor's importer expects.

OUTPUT LAYOUT:
  sep=,
  [VERSION],1.2
  [QB],...                       one per employee, ascending employee ID
  [QBEVENT],...                  exactly one
  [QBPLANINITIAL],...            per distinct (plan name, coverage level)
  [QBDEPENDENT],...              per distinct dependent ID, ascending
  [QBDEPENDENTPLANINITIAL],...   per distinct plan name of that dependent

RECORD SHAPE:
  Each block is a struct whose exported string fields are the columns, in
  declaration order. Columns the client does not populate are still named
  fields and render as empty strings, so inserting a column in the layout
  is a one-line struct change.

SEE ALSO:
  - extract/row.go: input contract
  - generic/errors.go: MissingFieldError, DateParseError
*/
package segment

import "reflect"

// Block tags, the first cell of every record.
const (
	TagVersion       = "[VERSION]"
	TagQB            = "[QB]"
	TagEvent         = "[QBEVENT]"
	TagPlan          = "[QBPLANINITIAL]"
	TagDependent     = "[QBDEPENDENT]"
	TagDependentPlan = "[QBDEPENDENTPLANINITIAL]"
)

// Record is one output line.
type Record interface {
	Tag() string
}

// Fields returns the tag followed by the record's columns in order.
func Fields(r Record) []string {
	v := reflect.Indirect(reflect.ValueOf(r))
	out := make([]string, 0, v.NumField()+1)
	out = append(out, r.Tag())
	for i := 0; i < v.NumField(); i++ {
		if v.Type().Field(i).IsExported() && v.Field(i).Kind() == reflect.String {
			out = append(out, v.Field(i).String())
		}
	}
	return out
}

// =============================================================================
// QUALIFIED BENEFICIARY
// =============================================================================

// QBRecord is the qualified-beneficiary header.
type QBRecord struct {
	ClientName                  string
	ClientDivisionName          string
	Salutation                  string
	FirstName                   string
	MiddleInitial               string
	LastName                    string
	SSN                         string
	IndividualIdentifier        string
	Email                       string
	Phone                       string
	Phone2                      string
	Address1                    string
	Address2                    string
	City                        string
	StateOrProvince             string
	PostalCode                  string
	Country                     string
	PremiumAddressSameAsPrimary string
	PremiumAddress1             string
	PremiumAddress2             string
	PremiumCity                 string
	PremiumStateOrProvince      string
	PremiumPostalCode           string
	PremiumCountry              string
	Sex                         string
	DOB                         string
	TobaccoUse                  string
	EmployeeType                string
	EmployeePayrollType         string
	YearsOfService              string
	PremiumCouponType           string
	UsesHCTC                    string
	Active                      string
	AllowMemberSSO              string
	BenefitGroup                string
	AccountStructure            string
	ClientSpecificData          string
}

func (QBRecord) Tag() string { return TagQB }

// EventRecord is the single qualifying event of a QB.
type EventRecord struct {
	EventType               string
	EventDate               string
	EnrollmentDate          string
	EmployeeSSN             string
	EmployeeName            string
	SecondEventOriginalFDOC string
}

func (EventRecord) Tag() string { return TagEvent }

// PlanRecord is one plan the QB was enrolled in.
type PlanRecord struct {
	PlanName      string
	CoverageLevel string
	NumberOfUnits string
}

func (PlanRecord) Tag() string { return TagPlan }

// =============================================================================
// DEPENDENTS
// =============================================================================

// DependentRecord describes one dependent. The address is always the QB's.
type DependentRecord struct {
	SSN             string
	Relationship    string
	Salutation      string
	FirstName       string
	MiddleInitial   string
	LastName        string
	Email           string
	Phone           string
	Phone2          string
	AddressSameAsQB string
	Address1        string
	Address2        string
	City            string
	StateOrProvince string
	PostalCode      string
	Country         string
	EnrollmentDate  string
	Sex             string
	DOB             string
	IsQMCSO         string
}

func (DependentRecord) Tag() string { return TagDependent }

// DependentPlanRecord names one plan a dependent is covered under. The
// coverage level is not repeated at this level.
type DependentPlanRecord struct {
	PlanName string
}

func (DependentPlanRecord) Tag() string { return TagDependentPlan }

// versionRecord is the second line of the file.
type versionRecord struct {
	Version string
}

func (versionRecord) Tag() string { return TagVersion }

// =============================================================================
// TREE
// =============================================================================

// Beneficiary is one employee's block tree.
type Beneficiary struct {
	QB         QBRecord
	Event      EventRecord
	Plans      []PlanRecord
	Dependents []DependentBlock
}

type DependentBlock struct {
	Dependent DependentRecord
	Plans     []DependentPlanRecord
}

// Records flattens the tree into output order.
func (b Beneficiary) Records() []Record {
	out := []Record{b.QB, b.Event}
	for _, p := range b.Plans {
		out = append(out, p)
	}
	for _, d := range b.Dependents {
		out = append(out, d.Dependent)
		for _, p := range d.Plans {
			out = append(out, p)
		}
	}
	return out
}
