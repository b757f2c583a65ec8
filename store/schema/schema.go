/*
Package schema defines the relational layout of the source tables, shared by
the SQLite and PostgreSQL stores.

PURPOSE:
  Both stores hold the same six tables with the same columns. Each Table
  here knows its DDL, how to turn snapshot rows into column values and how
  to scan a result row back. The stores only differ in placeholders, bulk
  insert strategy and driver.

COLUMN TYPES:
  Dates are ISO-8601 TEXT (NULL = absent / open-ended), flags are BOOLEAN,
  amounts are TEXT decimals. Every table carries seq, the row's position in
  the snapshot, so loads return rows in the order they were saved.

SEE ALSO:
  - store/sqlite/sqlite.go
  - store/postgres/postgres.go
*/
package schema

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// Scanner is satisfied by *sql.Rows and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table is one source table.
type Table struct {
	Name    string
	Columns []string
	ddl     string
	rows    func(*source.Snapshot) [][]any
	scan    func(Scanner, *source.Snapshot) error
}

// CreateSQL returns the CREATE TABLE statement. It is valid for both
// SQLite and PostgreSQL.
func (t Table) CreateSQL() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n);", t.Name, t.ddl)
}

// SelectSQL returns the full-table select in saved order.
func (t Table) SelectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(t.Columns[1:], ", "), t.Name)
}

// Rows returns the snapshot's rows for this table, seq first.
func (t Table) Rows(snap *source.Snapshot) [][]any { return t.rows(snap) }

// ScanInto scans one row (without seq) and appends it to snap.
func (t Table) ScanInto(s Scanner, snap *source.Snapshot) error {
	if err := t.scan(s, snap); err != nil {
		return fmt.Errorf("scan %s: %w", t.Name, err)
	}
	return nil
}

// Tables lists every source table in load order.
func Tables() []Table {
	return []Table{Employees, WorkAssignments, Contacts, Benefits, Dependents, Identifications}
}

// DDL returns the CREATE statements for every table.
func DDL() string {
	var b strings.Builder
	for _, t := range Tables() {
		b.WriteString(t.CreateSQL())
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// TABLES
// =============================================================================

var Employees = Table{
	Name: "employees",
	Columns: []string{"seq", "employee_id", "first_name", "middle_name", "last_name", "sex", "birth_date",
		"smoker", "address1", "address2", "city", "state", "postal_code", "country", "email", "phone",
		"status", "termination_date"},
	ddl: `seq INTEGER NOT NULL,
	employee_id TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	sex TEXT NOT NULL DEFAULT '',
	birth_date TEXT,
	smoker BOOLEAN NOT NULL DEFAULT FALSE,
	address1 TEXT NOT NULL DEFAULT '',
	address2 TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	termination_date TEXT`,
	rows: func(s *source.Snapshot) [][]any {
		out := make([][]any, len(s.Employees))
		for i, e := range s.Employees {
			out[i] = []any{i, e.ID, e.FirstName, e.MiddleName, e.LastName, e.Sex, nullDate(e.BirthDate),
				e.Smoker, e.Address1, e.Address2, e.City, e.State, e.PostalCode, e.Country, e.Email, e.Phone,
				e.Status, nullDate(e.TerminationDate)}
		}
		return out
	},
	scan: func(sc Scanner, s *source.Snapshot) error {
		var e source.Employee
		var birth, term *string
		if err := sc.Scan(&e.ID, &e.FirstName, &e.MiddleName, &e.LastName, &e.Sex, &birth,
			&e.Smoker, &e.Address1, &e.Address2, &e.City, &e.State, &e.PostalCode, &e.Country, &e.Email, &e.Phone,
			&e.Status, &term); err != nil {
			return err
		}
		var err error
		if e.BirthDate, err = parseNullDate("birth_date", birth); err != nil {
			return err
		}
		if e.TerminationDate, err = parseNullDate("termination_date", term); err != nil {
			return err
		}
		s.Employees = append(s.Employees, e)
		return nil
	},
}

var WorkAssignments = Table{
	Name:    "work_assignments",
	Columns: []string{"seq", "employee_id", "position_code", "active"},
	ddl: `seq INTEGER NOT NULL,
	employee_id TEXT NOT NULL,
	position_code TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT FALSE`,
	rows: func(s *source.Snapshot) [][]any {
		out := make([][]any, len(s.Assignments))
		for i, a := range s.Assignments {
			out[i] = []any{i, a.EmployeeID, a.PositionCode, a.Active}
		}
		return out
	},
	scan: func(sc Scanner, s *source.Snapshot) error {
		var a source.WorkAssignment
		if err := sc.Scan(&a.EmployeeID, &a.PositionCode, &a.Active); err != nil {
			return err
		}
		s.Assignments = append(s.Assignments, a)
		return nil
	},
}

var Contacts = Table{
	Name: "contacts",
	Columns: []string{"seq", "employee_id", "effective_date", "address1", "address2", "city", "state",
		"postal_code", "country", "email", "phone"},
	ddl: `seq INTEGER NOT NULL,
	employee_id TEXT NOT NULL,
	effective_date TEXT NOT NULL,
	address1 TEXT NOT NULL DEFAULT '',
	address2 TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT ''`,
	rows: func(s *source.Snapshot) [][]any {
		out := make([][]any, len(s.Contacts))
		for i, c := range s.Contacts {
			out[i] = []any{i, c.EmployeeID, c.EffectiveDate.String(), c.Address1, c.Address2, c.City, c.State,
				c.PostalCode, c.Country, c.Email, c.Phone}
		}
		return out
	},
	scan: func(sc Scanner, s *source.Snapshot) error {
		var c source.Contact
		var eff string
		if err := sc.Scan(&c.EmployeeID, &eff, &c.Address1, &c.Address2, &c.City, &c.State,
			&c.PostalCode, &c.Country, &c.Email, &c.Phone); err != nil {
			return err
		}
		var err error
		if c.EffectiveDate, err = generic.ParseDate("effective_date", eff); err != nil {
			return err
		}
		s.Contacts = append(s.Contacts, c)
		return nil
	},
}

var Benefits = Table{
	Name: "benefits",
	Columns: []string{"seq", "employee_id", "plan_code", "coverage_option", "begin_date", "end_date",
		"status", "eligibility_flag", "coverage_amount"},
	ddl: `seq INTEGER NOT NULL,
	employee_id TEXT NOT NULL,
	plan_code TEXT NOT NULL,
	coverage_option TEXT NOT NULL DEFAULT '',
	begin_date TEXT NOT NULL,
	end_date TEXT,
	status TEXT NOT NULL DEFAULT '',
	eligibility_flag TEXT NOT NULL DEFAULT '',
	coverage_amount TEXT NOT NULL DEFAULT '0'`,
	rows: func(s *source.Snapshot) [][]any {
		out := make([][]any, len(s.Benefits))
		for i, b := range s.Benefits {
			out[i] = []any{i, b.EmployeeID, b.PlanCode, b.CoverageOption, b.Begin.String(), nullDate(b.End),
				b.Status, b.EligibilityFlag, b.CoverageAmount.String()}
		}
		return out
	},
	scan: func(sc Scanner, s *source.Snapshot) error {
		var b source.Benefit
		var begin, amount string
		var end *string
		if err := sc.Scan(&b.EmployeeID, &b.PlanCode, &b.CoverageOption, &begin, &end,
			&b.Status, &b.EligibilityFlag, &amount); err != nil {
			return err
		}
		var err error
		if b.Begin, err = generic.ParseDate("begin_date", begin); err != nil {
			return err
		}
		if b.End, err = parseNullDate("end_date", end); err != nil {
			return err
		}
		if b.CoverageAmount, err = parseAmount(amount); err != nil {
			return err
		}
		s.Benefits = append(s.Benefits, b)
		return nil
	},
}

var Dependents = Table{
	Name: "dependents",
	Columns: []string{"seq", "employee_id", "dependent_id", "first_name", "middle_name", "last_name",
		"relationship", "sex", "birth_date", "disabled"},
	ddl: `seq INTEGER NOT NULL,
	employee_id TEXT NOT NULL,
	dependent_id TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	relationship TEXT NOT NULL DEFAULT '',
	sex TEXT NOT NULL DEFAULT '',
	birth_date TEXT,
	disabled BOOLEAN NOT NULL DEFAULT FALSE`,
	rows: func(s *source.Snapshot) [][]any {
		out := make([][]any, len(s.Dependents))
		for i, d := range s.Dependents {
			out[i] = []any{i, d.EmployeeID, d.ID, d.FirstName, d.MiddleName, d.LastName,
				d.Relationship, d.Sex, nullDate(d.BirthDate), d.Disabled}
		}
		return out
	},
	scan: func(sc Scanner, s *source.Snapshot) error {
		var d source.Dependent
		var birth *string
		if err := sc.Scan(&d.EmployeeID, &d.ID, &d.FirstName, &d.MiddleName, &d.LastName,
			&d.Relationship, &d.Sex, &birth, &d.Disabled); err != nil {
			return err
		}
		var err error
		if d.BirthDate, err = parseNullDate("birth_date", birth); err != nil {
			return err
		}
		s.Dependents = append(s.Dependents, d)
		return nil
	},
}

var Identifications = Table{
	Name:    "identifications",
	Columns: []string{"seq", "person_id", "id_type", "id_number"},
	ddl: `seq INTEGER NOT NULL,
	person_id TEXT NOT NULL,
	id_type TEXT NOT NULL,
	id_number TEXT NOT NULL`,
	rows: func(s *source.Snapshot) [][]any {
		out := make([][]any, len(s.Identifications))
		for i, id := range s.Identifications {
			out[i] = []any{i, id.PersonID, id.Type, id.Number}
		}
		return out
	},
	scan: func(sc Scanner, s *source.Snapshot) error {
		var id source.Identification
		if err := sc.Scan(&id.PersonID, &id.Type, &id.Number); err != nil {
			return err
		}
		s.Identifications = append(s.Identifications, id)
		return nil
	},
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

func nullDate(d generic.NullDate) any {
	if !d.Valid {
		return nil
	}
	return d.String()
}

func parseNullDate(field string, s *string) (generic.NullDate, error) {
	if s == nil {
		return generic.NullDate{}, nil
	}
	return generic.ParseNullDate(field, *s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("coverage_amount %q: %w", s, err)
	}
	return d, nil
}
