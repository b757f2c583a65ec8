package segment_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/rules"
	"github.com/warp/qb-export/segment"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newBuilder() *segment.Builder {
	return segment.NewBuilder(rules.Default().Client, nil)
}

func employeeRow(empID, plan, level string) extract.Row {
	return extract.Row{
		EmployeeID:     empID,
		EmployeeSSN:    "123-45-6789",
		FirstName:      "Ann",
		MiddleInitial:  "Q",
		LastName:       "Lee",
		Address1:       "1 Main St",
		City:           "Springfield",
		State:          "IL",
		PostalCode:     "62701",
		Country:        "US",
		Sex:            "F",
		BirthDate:      "1980-03-03",
		TobaccoUse:     "Y",
		EmployeeStatus: "TV",
		EnrollmentDate: "2024-01-01",
		EventType:      "TERMINATION",
		EventDate:      "2025-06-30",
		PlanName:       plan,
		CoverageLevel:  level,
	}
}

func dependentRow(empID, depID, first, last, plan, level string) extract.Row {
	r := employeeRow(empID, plan, level)
	r.DependentID = depID
	r.DependentSSN = "987654321"
	r.DependentRelationship = "daughter"
	r.DependentFirstName = first
	r.DependentLastName = last
	r.DependentSex = "F"
	r.DependentBirthDate = "2010-07-07"
	return r
}

func build(t *testing.T, rows ...extract.Row) *segment.Result {
	t.Helper()
	res, err := newBuilder().Build(rows)
	require.NoError(t, err)
	return res
}

// =============================================================================
// TREE SHAPE
// =============================================================================

func TestBuild_TerminatedEmployeeTree(t *testing.T) {
	// GIVEN: the extract rows of a terminated employee with three plans
	// WHEN: building
	// THEN: one QB with its event and the plans sorted by name
	res := build(t,
		employeeRow("E001", "Medical PPO", "EE"),
		employeeRow("E001", "EAP", "EE+FAMILY"),
		employeeRow("E001", "Tobacco Surcharge", "EE"),
	)

	want := segment.Beneficiary{
		QB: segment.QBRecord{
			ClientName:                  "Warp Industries",
			ClientDivisionName:          "Warp Industries",
			FirstName:                   "Ann",
			MiddleInitial:               "Q",
			LastName:                    "Lee",
			SSN:                         "123456789",
			IndividualIdentifier:        "E001",
			Address1:                    "1 Main St",
			City:                        "Springfield",
			StateOrProvince:             "IL",
			PostalCode:                  "62701",
			Country:                     "US",
			PremiumAddressSameAsPrimary: "TRUE",
			Sex:                         "F",
			DOB:                         "03/03/1980",
			TobaccoUse:                  "YES",
			UsesHCTC:                    "FALSE",
			Active:                      "TRUE",
			AllowMemberSSO:              "FALSE",
		},
		Event: segment.EventRecord{
			EventType:      "TERMINATION",
			EventDate:      "06/30/2025",
			EnrollmentDate: "01/01/2024",
			EmployeeSSN:    "123456789",
			EmployeeName:   "Ann Lee",
		},
		Plans: []segment.PlanRecord{
			{PlanName: "EAP", CoverageLevel: "EE+FAMILY"},
			{PlanName: "Medical PPO", CoverageLevel: "EE"},
			{PlanName: "Tobacco Surcharge", CoverageLevel: "EE"},
		},
	}

	require.Len(t, res.Beneficiaries, 1)
	if diff := cmp.Diff(want, res.Beneficiaries[0]); diff != "" {
		t.Errorf("beneficiary mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Warnings)
}

func TestBuild_EmployeesAscendingDependentsAscending(t *testing.T) {
	res := build(t,
		employeeRow("E2", "EAP", "EE+FAMILY"),
		dependentRow("E1", "D2", "Zed", "Alpha", "EAP", "EE+FAMILY"),
		dependentRow("E1", "D1", "Amy", "Beta", "EAP", "EE+FAMILY"),
		employeeRow("E10", "EAP", "EE+FAMILY"),
	)

	var ids []string
	for _, b := range res.Beneficiaries {
		ids = append(ids, b.QB.IndividualIdentifier)
	}
	assert.Equal(t, []string{"E1", "E10", "E2"}, ids)

	deps := res.Beneficiaries[0].Dependents
	require.Len(t, deps, 2)
	assert.Equal(t, "Amy", deps[0].Dependent.FirstName)
	assert.Equal(t, "Zed", deps[1].Dependent.FirstName)
}

func TestBuild_DependentAddressComesFromEmployee(t *testing.T) {
	dep := dependentRow("E1", "D1", "Amy", "Lee", "Medical PPO", "EE+FAMILY")
	dep.City = "Elsewhere"
	emp := employeeRow("E1", "EAP", "EE+FAMILY")

	res := build(t, emp, dep)

	// EAP sorts first, so the employee row is the header source.
	d := res.Beneficiaries[0].Dependents[0].Dependent
	assert.Equal(t, "TRUE", d.AddressSameAsQB)
	assert.Equal(t, "Springfield", d.City)
	assert.Equal(t, "1 Main St", d.Address1)
	assert.Equal(t, "DAUGHTER", d.Relationship)
	assert.Equal(t, "07/07/2010", d.DOB)
}

// =============================================================================
// DEDUPLICATION
// =============================================================================

func TestBuild_PlansDedupByNameAndLevel(t *testing.T) {
	// GIVEN: two rows for the same plan and level with different end dates
	// WHEN: building
	// THEN: exactly one plan block
	a := employeeRow("E1", "Medical PPO", "EE")
	a.PlanEndDate = "2025-06-30"
	b := employeeRow("E1", "Medical PPO", "EE")
	b.PlanEndDate = "2025-12-31"
	c := employeeRow("E1", "Medical PPO", "EE+SPOUSE")

	res := build(t, a, b, c)

	assert.Equal(t, []segment.PlanRecord{
		{PlanName: "Medical PPO", CoverageLevel: "EE"},
		{PlanName: "Medical PPO", CoverageLevel: "EE+SPOUSE"},
	}, res.Beneficiaries[0].Plans)
}

func TestBuild_DependentPlansDedupByNameOnly(t *testing.T) {
	res := build(t,
		dependentRow("E1", "D1", "Amy", "Lee", "Medical PPO", "EE+FAMILY"),
		dependentRow("E1", "D1", "Amy", "Lee", "Medical PPO", "EE+CHILDREN"),
		dependentRow("E1", "D1", "Amy", "Lee", "", ""),
	)

	deps := res.Beneficiaries[0].Dependents
	require.Len(t, deps, 1)
	assert.Equal(t, []segment.DependentPlanRecord{{PlanName: "Medical PPO"}}, deps[0].Plans)
}

func TestBuild_DependentWithoutPlanStillListed(t *testing.T) {
	res := build(t,
		employeeRow("E1", "EAP", "EE"),
		dependentRow("E1", "D1", "Amy", "Lee", "", ""),
	)

	deps := res.Beneficiaries[0].Dependents
	require.Len(t, deps, 1)
	assert.Empty(t, deps[0].Plans)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestBuild_MissingRequiredFieldIsFatal(t *testing.T) {
	bad := employeeRow("E2", "EAP", "EE")
	bad.LastName = "  "

	_, err := newBuilder().Build([]extract.Row{employeeRow("E1", "EAP", "EE"), bad})

	require.Error(t, err)
	var mf *generic.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "last_name", mf.Field)
	assert.Equal(t, 3, mf.Line)
	assert.True(t, generic.IsContractError(err))
}

func TestBuild_UnparseableDateIsFatal(t *testing.T) {
	bad := employeeRow("E1", "EAP", "EE")
	bad.DependentBirthDate = "31/31/2010"

	_, err := newBuilder().Build([]extract.Row{bad})

	require.ErrorIs(t, err, generic.ErrInvalidDate)
	assert.Contains(t, err.Error(), "dependent_birth_date")
}

func TestBuild_MalformedIdentifierIsWarning(t *testing.T) {
	r := employeeRow("E1", "EAP", "EE")
	r.EmployeeSSN = " 12-345 "

	res := build(t, r, r)

	assert.Equal(t, "12-345", res.Beneficiaries[0].QB.SSN)
	require.Len(t, res.Warnings, 1, "reported once per value")
	assert.ErrorIs(t, res.Warnings[0], generic.ErrMalformedIdentifier)
	assert.False(t, generic.IsFatal(res.Warnings[0]))
}

// =============================================================================
// WRITER
// =============================================================================

func TestWrite_Layout(t *testing.T) {
	res := build(t,
		employeeRow("E1", "Medical PPO", "EE+FAMILY"),
		dependentRow("E1", "D1", "Amy", "Lee", "Medical PPO", "EE+FAMILY"),
	)

	var buf bytes.Buffer
	require.NoError(t, segment.Write(&buf, "1.2", res.Beneficiaries))

	first, rest, ok := strings.Cut(buf.String(), "\n")
	require.True(t, ok)
	assert.Equal(t, "sep=,", first)

	cr := csv.NewReader(strings.NewReader(rest))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	require.NoError(t, err)

	var tags []string
	for _, rec := range records {
		tags = append(tags, rec[0])
	}
	assert.Equal(t, []string{
		segment.TagVersion, segment.TagQB, segment.TagEvent, segment.TagPlan,
		segment.TagDependent, segment.TagDependentPlan,
	}, tags)
	assert.Equal(t, []string{"[VERSION]", "1.2"}, records[0])
	assert.Len(t, records[1], len(segment.Fields(segment.QBRecord{})))
	assert.Equal(t, []string{"[QBPLANINITIAL]", "Medical PPO", "EE+FAMILY", ""}, records[3])
	assert.Equal(t, []string{"[QBDEPENDENTPLANINITIAL]", "Medical PPO"}, records[5])
}

func TestWrite_Idempotent(t *testing.T) {
	rows := []extract.Row{
		dependentRow("E2", "D9", "Bo", "Ng", "EAP", "EE+FAMILY"),
		employeeRow("E1", "Vision", "EE"),
		employeeRow("E1", "EAP", "EE+FAMILY"),
	}

	render := func() []byte {
		res, err := newBuilder().Build(rows)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, segment.Write(&buf, "1.2", res.Beneficiaries))
		return buf.Bytes()
	}

	assert.Equal(t, render(), render())
}

func TestWriteFile_CreatesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cobra_qb_import.csv")
	res := build(t, employeeRow("E1", "EAP", "EE"))

	require.NoError(t, segment.WriteFile(path, "1.2", res.Beneficiaries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "sep=,\n[VERSION],1.2\n[QB],"))
}
