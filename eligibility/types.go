/*
Package eligibility derives COBRA qualifying events and the plans that apply
to each qualified beneficiary.

PURPOSE:
  Consolidates the source tables into one decision per (employee, dependent,
  plan) and emits them as extract rows. This is stage one of the export; the
  segment builder only ever sees its output file.

PIPELINE (per employee, in input order):
  1. Scope gate      - active work assignment with a non-excluded position
  2. Ranking         - newest contact, newest medical enrollment, newest
                       medical/waive end date, best plan per carrier bucket
  3. Synthesis       - mandatory plan always, conditional plan when flagged
  4. Classification  - employee event (in window) and dependent age-out
  5. Suppression     - hide plans a beneficiary must not see
  6. Flattening      - one row per surviving combination, duplicates collapsed

DETERMINISM:
  Nothing reads the clock. Every entry point takes asOf explicitly, so a run
  against archived inputs reproduces byte-for-byte.

SEE ALSO:
  - generic/rank.go: the ranking operator
  - rules/: every code list consulted here
  - extract/row.go: output contract
*/
package eligibility

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/rules"
)

// =============================================================================
// PLAN CANDIDATE
// =============================================================================

// SourcePriority orders plan candidates for the same carrier bucket; lower
// wins. Real benefit rows always beat synthetic ones.
type SourcePriority int

const (
	PriorityReal        SourcePriority = 1
	PriorityMandatory   SourcePriority = 2
	PriorityConditional SourcePriority = 3
)

// Plan is a candidate plan row for one employee, real or synthetic.
type Plan struct {
	EmployeeID    string
	Bucket        string
	Name          string
	CoverageLevel string
	Begin         generic.Date
	End           generic.NullDate
	Units         decimal.Decimal
	Priority      SourcePriority
}

func (p Plan) IsConditional() bool { return p.Priority == PriorityConditional }

type planKey struct {
	EmployeeID string
	Bucket     string
}

// =============================================================================
// EVENTS
// =============================================================================

type EventType string

const (
	EventNone                EventType = ""
	EventIneligibleDependent EventType = "INELIGIBLE_DEPENDENT"
	EventDeath               EventType = "DEATH"
	EventRetirement          EventType = "RETIREMENT"
	EventTermination         EventType = "TERMINATION"
)

// Event is a classified qualifying event.
type Event struct {
	Type EventType
	Date generic.Date
}

func (e Event) IsAgeOut() bool { return e.Type == EventIneligibleDependent }

// =============================================================================
// ENGINE
// =============================================================================

// Engine applies one rules document. It holds no per-run state and may be
// reused across runs.
type Engine struct {
	rules  *rules.Rules
	logger *zap.Logger
}

func NewEngine(r *rules.Rules, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: r, logger: logger}
}

// Window returns the trailing notification window ending on asOf.
func (e *Engine) Window(asOf generic.Date) generic.Period {
	return generic.TrailingWindow(asOf, e.rules.WindowDays)
}
