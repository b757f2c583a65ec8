package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/qb-export/generic"
)

// Table file names inside a CSV source directory.
const (
	EmployeesFile       = "employees.csv"
	AssignmentsFile     = "work_assignments.csv"
	ContactsFile        = "contacts.csv" // optional
	BenefitsFile        = "benefits.csv"
	DependentsFile      = "dependents.csv"
	IdentificationsFile = "identifications.csv"
)

// CSVDir loads a snapshot from a directory of CSV table exports, one file
// per table, each with a header row.
type CSVDir struct {
	Dir string
}

var _ Store = CSVDir{}

func (c CSVDir) Load(_ context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	emp, err := readTable(filepath.Join(c.Dir, EmployeesFile),
		"employee_id", "first_name", "last_name", "status", "termination_date", "birth_date")
	if err != nil {
		return nil, err
	}
	for _, r := range emp.rows {
		e := Employee{
			ID:         emp.get(r, "employee_id"),
			FirstName:  emp.get(r, "first_name"),
			MiddleName: emp.get(r, "middle_name"),
			LastName:   emp.get(r, "last_name"),
			Sex:        emp.get(r, "sex"),
			Address1:   emp.get(r, "address1"),
			Address2:   emp.get(r, "address2"),
			City:       emp.get(r, "city"),
			State:      emp.get(r, "state"),
			PostalCode: emp.get(r, "postal_code"),
			Country:    emp.get(r, "country"),
			Email:      emp.get(r, "email"),
			Phone:      emp.get(r, "phone"),
			Status:     emp.get(r, "status"),
		}
		if e.Smoker, err = parseFlag("employees.smoker", emp.get(r, "smoker")); err != nil {
			return nil, err
		}
		if e.BirthDate, err = generic.ParseNullDate("employees.birth_date", emp.get(r, "birth_date")); err != nil {
			return nil, err
		}
		if e.TerminationDate, err = generic.ParseNullDate("employees.termination_date", emp.get(r, "termination_date")); err != nil {
			return nil, err
		}
		snap.Employees = append(snap.Employees, e)
	}

	wa, err := readTable(filepath.Join(c.Dir, AssignmentsFile), "employee_id", "position_code", "active")
	if err != nil {
		return nil, err
	}
	for _, r := range wa.rows {
		active, err := parseFlag("work_assignments.active", wa.get(r, "active"))
		if err != nil {
			return nil, err
		}
		snap.Assignments = append(snap.Assignments, WorkAssignment{
			EmployeeID:   wa.get(r, "employee_id"),
			PositionCode: wa.get(r, "position_code"),
			Active:       active,
		})
	}

	ct, err := readTable(filepath.Join(c.Dir, ContactsFile), "employee_id", "effective_date")
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		for _, r := range ct.rows {
			eff, err := generic.ParseDate("contacts.effective_date", ct.get(r, "effective_date"))
			if err != nil {
				return nil, err
			}
			snap.Contacts = append(snap.Contacts, Contact{
				EmployeeID:    ct.get(r, "employee_id"),
				EffectiveDate: eff,
				Address1:      ct.get(r, "address1"),
				Address2:      ct.get(r, "address2"),
				City:          ct.get(r, "city"),
				State:         ct.get(r, "state"),
				PostalCode:    ct.get(r, "postal_code"),
				Country:       ct.get(r, "country"),
				Email:         ct.get(r, "email"),
				Phone:         ct.get(r, "phone"),
			})
		}
	}

	bt, err := readTable(filepath.Join(c.Dir, BenefitsFile),
		"employee_id", "plan_code", "coverage_option", "begin_date", "end_date", "status", "eligibility_flag")
	if err != nil {
		return nil, err
	}
	for _, r := range bt.rows {
		b := Benefit{
			EmployeeID:      bt.get(r, "employee_id"),
			PlanCode:        bt.get(r, "plan_code"),
			CoverageOption:  bt.get(r, "coverage_option"),
			Status:          bt.get(r, "status"),
			EligibilityFlag: bt.get(r, "eligibility_flag"),
		}
		if b.Begin, err = generic.ParseDate("benefits.begin_date", bt.get(r, "begin_date")); err != nil {
			return nil, err
		}
		if b.End, err = generic.ParseNullDate("benefits.end_date", bt.get(r, "end_date")); err != nil {
			return nil, err
		}
		if amt := bt.get(r, "coverage_amount"); amt != "" {
			if b.CoverageAmount, err = decimal.NewFromString(amt); err != nil {
				return nil, fmt.Errorf("benefits.coverage_amount %q: %w", amt, err)
			}
		}
		snap.Benefits = append(snap.Benefits, b)
	}

	dt, err := readTable(filepath.Join(c.Dir, DependentsFile),
		"employee_id", "dependent_id", "first_name", "last_name", "relationship", "birth_date")
	if err != nil {
		return nil, err
	}
	for _, r := range dt.rows {
		d := Dependent{
			EmployeeID:   dt.get(r, "employee_id"),
			ID:           dt.get(r, "dependent_id"),
			FirstName:    dt.get(r, "first_name"),
			MiddleName:   dt.get(r, "middle_name"),
			LastName:     dt.get(r, "last_name"),
			Relationship: dt.get(r, "relationship"),
			Sex:          dt.get(r, "sex"),
		}
		if d.Disabled, err = parseFlag("dependents.disabled", dt.get(r, "disabled")); err != nil {
			return nil, err
		}
		if d.BirthDate, err = generic.ParseNullDate("dependents.birth_date", dt.get(r, "birth_date")); err != nil {
			return nil, err
		}
		snap.Dependents = append(snap.Dependents, d)
	}

	it, err := readTable(filepath.Join(c.Dir, IdentificationsFile), "person_id", "id_type", "id_number")
	if err != nil {
		return nil, err
	}
	for _, r := range it.rows {
		snap.Identifications = append(snap.Identifications, Identification{
			PersonID: it.get(r, "person_id"),
			Type:     it.get(r, "id_type"),
			Number:   it.get(r, "id_number"),
		})
	}

	return snap, nil
}

// =============================================================================
// TABLE READER
// =============================================================================

type table struct {
	cols map[string]int
	rows [][]string
}

// readTable reads a whole CSV file, failing if any required column is absent.
func readTable(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file, no header row", path)
		}
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	t := &table{cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := t.cols[col]; !ok {
			return nil, &generic.MissingColumnError{File: filepath.Base(path), Column: col}
		}
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// get returns the trimmed cell for col, or "" when the column or cell is absent.
func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseFlag reads a yes/no cell. Blank is false; anything outside the
// known spellings is an ErrInvalidFlag.
func parseFlag(field, s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "T", "TRUE", "1":
		return true, nil
	case "", "N", "NO", "F", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s %q: %w", field, s, generic.ErrInvalidFlag)
}
