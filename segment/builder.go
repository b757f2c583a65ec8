package segment

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/rules"
)

// VendorDate is the date layout of the import file.
const VendorDate = "01/02/2006"

// requiredFields must be non-blank on every extract row.
var requiredFields = []struct {
	name string
	get  func(extract.Row) string
}{
	{"employee_id", func(r extract.Row) string { return r.EmployeeID }},
	{"first_name", func(r extract.Row) string { return r.FirstName }},
	{"last_name", func(r extract.Row) string { return r.LastName }},
	{"event_type", func(r extract.Row) string { return r.EventType }},
	{"event_date", func(r extract.Row) string { return r.EventDate }},
}

// Result is the block tree plus the non-fatal issues met while building it.
type Result struct {
	Beneficiaries []Beneficiary
	Warnings      []error
}

// Builder turns extract rows into block trees for one client.
type Builder struct {
	client rules.Client
	logger *zap.Logger
}

func NewBuilder(client rules.Client, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{client: client, logger: logger}
}

// Build validates and normalizes every row, then emits one Beneficiary per
// employee in ascending employee ID order. The first blank required field
// or unparseable date aborts the build.
func (b *Builder) Build(rows []extract.Row) (*Result, error) {
	res := &Result{}
	clean := make([]extract.Row, len(rows))
	reported := make(map[string]bool)
	for i, r := range rows {
		line := i + 2 // header is line 1
		c, warns, err := b.prepare(line, r)
		if err != nil {
			return nil, err
		}
		for _, w := range warns {
			if reported[w.Error()] {
				continue
			}
			reported[w.Error()] = true
			res.Warnings = append(res.Warnings, w)
			b.logger.Warn("malformed identifier passed through",
				zap.Int("line", line),
				zap.String("employee_id", r.EmployeeID),
				zap.Error(w))
		}
		clean[i] = c
	}

	groups := make(map[string][]extract.Row)
	var ids []string
	for _, r := range clean {
		if _, ok := groups[r.EmployeeID]; !ok {
			ids = append(ids, r.EmployeeID)
		}
		groups[r.EmployeeID] = append(groups[r.EmployeeID], r)
	}
	slices.Sort(ids)

	for _, id := range ids {
		group := groups[id]
		slices.SortStableFunc(group, byPlanThenDependent)
		res.Beneficiaries = append(res.Beneficiaries, b.beneficiary(group))
	}

	b.logger.Info("segments built",
		zap.Int("rows", len(rows)),
		zap.Int("beneficiaries", len(res.Beneficiaries)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

func byPlanThenDependent(a, b extract.Row) int {
	return cmp.Or(
		cmp.Compare(a.PlanName, b.PlanName),
		cmp.Compare(a.DependentLastName, b.DependentLastName),
		cmp.Compare(a.DependentFirstName, b.DependentFirstName),
		cmp.Compare(a.DependentID, b.DependentID),
	)
}

// =============================================================================
// ROW PREPARATION
// =============================================================================

// prepare checks required fields, reformats dates to the vendor layout,
// normalizes IDs and folds text. Malformed IDs come back as warnings.
func (b *Builder) prepare(line int, r extract.Row) (extract.Row, []error, error) {
	for _, f := range requiredFields {
		if strings.TrimSpace(f.get(r)) == "" {
			return r, nil, &generic.MissingFieldError{Line: line, EmployeeID: r.EmployeeID, Field: f.name}
		}
	}

	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	r.DependentID = strings.TrimSpace(r.DependentID)
	r.PlanName = strings.TrimSpace(r.PlanName)
	r.CoverageLevel = strings.TrimSpace(r.CoverageLevel)

	dates := []struct {
		name     string
		v        *string
		required bool
	}{
		{"event_date", &r.EventDate, true},
		{"birth_date", &r.BirthDate, false},
		{"termination_date", &r.TerminationDate, false},
		{"enrollment_date", &r.EnrollmentDate, false},
		{"plan_end_date", &r.PlanEndDate, false},
		{"dependent_birth_date", &r.DependentBirthDate, false},
	}
	for _, d := range dates {
		n, err := generic.ParseNullDate(d.name, *d.v)
		if err != nil || (d.required && !n.Valid) {
			if err == nil {
				err = &generic.DateParseError{Field: d.name, Value: *d.v}
			}
			return r, nil, fmt.Errorf("line %d (employee %q): %w", line, r.EmployeeID, err)
		}
		*d.v = n.Format(VendorDate)
	}

	var warns []error
	for _, id := range []*string{&r.EmployeeSSN, &r.DependentSSN} {
		norm, err := NormalizeID(*id)
		if err != nil {
			warns = append(warns, err)
		}
		*id = norm
	}

	for _, s := range []*string{
		&r.FirstName, &r.MiddleInitial, &r.LastName,
		&r.Address1, &r.Address2, &r.City, &r.State, &r.PostalCode, &r.Country,
		&r.DependentFirstName, &r.DependentMiddleInitial, &r.DependentLastName,
	} {
		*s = Fold(*s)
	}
	return r, warns, nil
}

// =============================================================================
// BLOCKS
// =============================================================================

// beneficiary builds one employee's tree from its sorted rows. Header and
// event fields come from the first row.
func (b *Builder) beneficiary(rows []extract.Row) Beneficiary {
	first := rows[0]
	qb := Beneficiary{
		QB:    b.qbRecord(first),
		Event: eventRecord(first),
	}

	type planKey struct{ name, level string }
	seenPlan := make(map[planKey]bool)
	for _, r := range rows {
		k := planKey{r.PlanName, r.CoverageLevel}
		if r.PlanName == "" || seenPlan[k] {
			continue
		}
		seenPlan[k] = true
		qb.Plans = append(qb.Plans, PlanRecord{
			PlanName:      r.PlanName,
			CoverageLevel: r.CoverageLevel,
			NumberOfUnits: r.NumberOfUnits,
		})
	}

	byDependent := make(map[string][]extract.Row)
	var depIDs []string
	for _, r := range rows {
		if r.DependentID == "" {
			continue
		}
		if _, ok := byDependent[r.DependentID]; !ok {
			depIDs = append(depIDs, r.DependentID)
		}
		byDependent[r.DependentID] = append(byDependent[r.DependentID], r)
	}
	slices.Sort(depIDs)

	for _, id := range depIDs {
		depRows := byDependent[id]
		block := DependentBlock{Dependent: dependentRecord(first, depRows[0])}
		seen := make(map[string]bool)
		for _, r := range depRows {
			if r.PlanName == "" || seen[r.PlanName] {
				continue
			}
			seen[r.PlanName] = true
			block.Plans = append(block.Plans, DependentPlanRecord{PlanName: r.PlanName})
		}
		qb.Dependents = append(qb.Dependents, block)
	}
	return qb
}

func (b *Builder) qbRecord(r extract.Row) QBRecord {
	return QBRecord{
		ClientName:                  b.client.Name,
		ClientDivisionName:          b.client.Division,
		FirstName:                   r.FirstName,
		MiddleInitial:               r.MiddleInitial,
		LastName:                    r.LastName,
		SSN:                         r.EmployeeSSN,
		IndividualIdentifier:        r.EmployeeID,
		Email:                       r.Email,
		Phone:                       r.Phone,
		Address1:                    r.Address1,
		Address2:                    r.Address2,
		City:                        r.City,
		StateOrProvince:             r.State,
		PostalCode:                  r.PostalCode,
		Country:                     r.Country,
		PremiumAddressSameAsPrimary: "TRUE",
		Sex:                         sexCode(r.Sex),
		DOB:                         r.BirthDate,
		TobaccoUse:                  yesNoUnknown(r.TobaccoUse),
		UsesHCTC:                    "FALSE",
		Active:                      "TRUE",
		AllowMemberSSO:              "FALSE",
	}
}

func eventRecord(r extract.Row) EventRecord {
	return EventRecord{
		EventType:      r.EventType,
		EventDate:      r.EventDate,
		EnrollmentDate: r.EnrollmentDate,
		EmployeeSSN:    r.EmployeeSSN,
		EmployeeName:   strings.TrimSpace(r.FirstName + " " + r.LastName),
	}
}

// dependentRecord takes identity from the dependent's row and the address
// from the employee's first row.
func dependentRecord(employee, dep extract.Row) DependentRecord {
	return DependentRecord{
		SSN:             dep.DependentSSN,
		Relationship:    strings.ToUpper(strings.TrimSpace(dep.DependentRelationship)),
		FirstName:       dep.DependentFirstName,
		MiddleInitial:   dep.DependentMiddleInitial,
		LastName:        dep.DependentLastName,
		AddressSameAsQB: "TRUE",
		Address1:        employee.Address1,
		Address2:        employee.Address2,
		City:            employee.City,
		StateOrProvince: employee.State,
		PostalCode:      employee.PostalCode,
		Country:         employee.Country,
		EnrollmentDate:  employee.EnrollmentDate,
		Sex:             sexCode(dep.DependentSex),
		DOB:             dep.DependentBirthDate,
		IsQMCSO:         "FALSE",
	}
}
