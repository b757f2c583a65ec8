/*
Package rules loads the employer's qualifying-event policy from YAML.

PURPOSE:
  Every code list, plan mapping and constant the eligibility engine consults
  lives in one rules file. Benefits staff can change a status code or add a
  dental plan without a code change; the engine itself stays generic over
  these lists.

YAML SCHEMA (abridged, see default.yaml):
  window_days: 30
  age_out_threshold: 26
  status:
    still_covered: [AC, LA]
    termination:   [TV, TI]
    retirement:    [RT]
    deceased:      DC
  plans:
    - code: MED-PPO
      bucket: MEDICAL
      name: "Medical PPO"
      levels: { EE: EE, EF: EE+FAMILY }
  conditional_plan:
    eligibility_flag: TOB
    spouse_options: [EF, EF1]

USAGE:
  r, err := rules.Load("rules.yaml") // "" = embedded defaults
  if r.IsTermination(emp.Status) { ... }

SEE ALSO:
  - eligibility/: consumes Rules
  - config/config.go: QB_RULES_FILE selects the file
*/
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

type Rules struct {
	Client              Client         `yaml:"client"`
	WindowDays          int            `yaml:"window_days" validate:"gt=0"`
	AgeOutThreshold     int            `yaml:"age_out_threshold" validate:"gt=0"`
	IdentificationType  string         `yaml:"identification_type"`
	ExcludedPosition    string         `yaml:"excluded_position"`
	ActiveBenefitStatus string         `yaml:"active_benefit_status"`
	Status              StatusCodes    `yaml:"status"`
	Relationships       Relationships  `yaml:"relationships"`
	CoverageLevels      CoverageLevels `yaml:"coverage_levels" validate:"required"`
	MedicalPlanCodes    []string       `yaml:"medical_plan_codes"`
	WaivePlanCodes      []string       `yaml:"waive_plan_codes"`
	Plans               []PlanMapping  `yaml:"plans" validate:"dive"`
	MandatoryPlan       SyntheticPlan  `yaml:"mandatory_plan" validate:"required"`
	ConditionalPlan     SyntheticPlan  `yaml:"conditional_plan" validate:"required"`
	Output              Output         `yaml:"output"`

	compiled *lookups
}

type Client struct {
	Name     string `yaml:"name"`
	Division string `yaml:"division"`
}

type StatusCodes struct {
	StillCovered []string `yaml:"still_covered"`
	Termination  []string `yaml:"termination"`
	Retirement   []string `yaml:"retirement"`
	Deceased     string   `yaml:"deceased"`
}

type Relationships struct {
	Child  []string `yaml:"child"`
	Spouse []string `yaml:"spouse"`
}

type CoverageLevels struct {
	EmployeeOnly     string `yaml:"employee_only" validate:"required"`
	EmployeeSpouse   string `yaml:"employee_spouse" validate:"required"`
	EmployeeChildren string `yaml:"employee_children" validate:"required"`
	EmployeeFamily   string `yaml:"employee_family" validate:"required"`
}

// PlanMapping maps a raw plan code to a vendor plan name, a carrier bucket
// and a per-coverage-option level.
type PlanMapping struct {
	Code   string            `yaml:"code" validate:"required"`
	Bucket string            `yaml:"bucket" validate:"required"`
	Name   string            `yaml:"name" validate:"required"`
	Levels map[string]string `yaml:"levels"`
}

// SyntheticPlan describes a plan row not backed by a benefit record.
type SyntheticPlan struct {
	Name            string   `yaml:"name" validate:"required"`
	Bucket          string   `yaml:"bucket" validate:"required"`
	CoverageLevel   string   `yaml:"coverage_level,omitempty"`
	EligibilityFlag string   `yaml:"eligibility_flag,omitempty"`
	SpouseOptions   []string `yaml:"spouse_options,omitempty"`
}

type Output struct {
	Version string `yaml:"version"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the embedded rules.
func Default() *Rules {
	r, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules invalid: %v", err))
	}
	return r
}

// Load reads rules from path, or the embedded defaults when path is empty.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Parse(defaultYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a rules document.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.compile()
	return &r, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the fields the engine cannot run without.
func (r *Rules) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if r.ConditionalPlan.EligibilityFlag == "" {
		return fmt.Errorf("rules: conditional_plan.eligibility_flag is required")
	}
	seen := make(map[string]bool)
	for _, p := range r.Plans {
		code := norm(p.Code)
		if seen[code] {
			return fmt.Errorf("rules: duplicate plan code %q", p.Code)
		}
		seen[code] = true
	}
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

type lookups struct {
	stillCovered, termination, retirement set
	child, spouse                         set
	medical, waive                        set
	spouseOptions                         set
	plans                                 map[string]PlanMapping
}

type set map[string]bool

func newSet(values ...string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[norm(v)] = true
	}
	return s
}

func (s set) has(v string) bool { return s[norm(v)] }

func norm(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func (r *Rules) compile() {
	c := &lookups{
		stillCovered:  newSet(r.Status.StillCovered...),
		termination:   newSet(r.Status.Termination...),
		retirement:    newSet(r.Status.Retirement...),
		child:         newSet(r.Relationships.Child...),
		spouse:        newSet(r.Relationships.Spouse...),
		medical:       newSet(r.MedicalPlanCodes...),
		waive:         newSet(r.WaivePlanCodes...),
		spouseOptions: newSet(r.ConditionalPlan.SpouseOptions...),
		plans:         make(map[string]PlanMapping, len(r.Plans)),
	}
	for _, p := range r.Plans {
		levels := make(map[string]string, len(p.Levels))
		for opt, lvl := range p.Levels {
			levels[norm(opt)] = lvl
		}
		p.Levels = levels
		c.plans[norm(p.Code)] = p
	}
	r.compiled = c
}

func (r *Rules) lk() *lookups {
	if r.compiled == nil {
		r.compile()
	}
	return r.compiled
}

// Employee status families
func (r *Rules) IsStillCovered(status string) bool { return r.lk().stillCovered.has(status) }
func (r *Rules) IsTermination(status string) bool  { return r.lk().termination.has(status) }
func (r *Rules) IsRetirement(status string) bool   { return r.lk().retirement.has(status) }
func (r *Rules) IsDeceased(status string) bool {
	return r.Status.Deceased != "" && norm(status) == norm(r.Status.Deceased)
}

// IsChild reports a child-like relationship. A code listed as spouse-like is
// never child-like, even if it also appears in the child list.
func (r *Rules) IsChild(rel string) bool  { return r.lk().child.has(rel) && !r.lk().spouse.has(rel) }
func (r *Rules) IsSpouse(rel string) bool { return r.lk().spouse.has(rel) }

// Coverage level families
func (r *Rules) IncludesChildren(level string) bool {
	return level != "" && (level == r.CoverageLevels.EmployeeChildren || level == r.CoverageLevels.EmployeeFamily)
}

func (r *Rules) IsEmployeeOrSpouse(level string) bool {
	return level != "" && (level == r.CoverageLevels.EmployeeOnly || level == r.CoverageLevels.EmployeeSpouse)
}

// Plan codes
func (r *Rules) IsMedical(planCode string) bool { return r.lk().medical.has(planCode) }
func (r *Rules) IsWaive(planCode string) bool   { return r.lk().waive.has(planCode) }
func (r *Rules) IsActiveBenefit(status string) bool {
	return norm(status) == norm(r.ActiveBenefitStatus)
}

// LookupPlan resolves a plan code and coverage option to its vendor plan.
// ok is false for unmapped plan codes or options.
func (r *Rules) LookupPlan(planCode, option string) (p PlanMapping, level string, ok bool) {
	p, ok = r.lk().plans[norm(planCode)]
	if !ok {
		return PlanMapping{}, "", false
	}
	level, ok = p.Levels[norm(option)]
	return p, level, ok
}

// ConditionalLevel maps a medical coverage option to the conditional plan's
// coverage level. Only the designated spouse options yield employee+spouse;
// everything else, including a missing option, is employee-only.
func (r *Rules) ConditionalLevel(option string, present bool) string {
	if present && r.lk().spouseOptions.has(option) {
		return r.CoverageLevels.EmployeeSpouse
	}
	return r.CoverageLevels.EmployeeOnly
}

// IsConditionalFlag reports whether a benefit's eligibility flag makes the
// employee eligible for the conditional plan.
func (r *Rules) IsConditionalFlag(flag string) bool {
	return norm(flag) != "" && norm(flag) == norm(r.ConditionalPlan.EligibilityFlag)
}

// MandatoryLevel is the coverage level stamped on the mandatory plan.
func (r *Rules) MandatoryLevel() string {
	if r.MandatoryPlan.CoverageLevel != "" {
		return r.MandatoryPlan.CoverageLevel
	}
	return r.CoverageLevels.EmployeeOnly
}
