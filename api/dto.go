/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Extract rows already
  carry JSON tags and are returned as-is; the block tree and run history
  get flatter shapes suited to a preview screen.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Preview:
    ExtractResponse, BeneficiariesResponse, BeneficiaryDTO, DependentDTO

  Runs:
    RunDTO, RunsResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - extract/row.go: Row JSON tags
*/
package api

import (
	"time"

	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/segment"
)

// =============================================================================
// PREVIEW TYPES
// =============================================================================

// WindowDTO is the trailing notification window used for a preview.
type WindowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExtractResponse is the stage-one preview.
type ExtractResponse struct {
	AsOf   string        `json:"asOf"`
	Window WindowDTO     `json:"window"`
	Count  int           `json:"count"`
	Rows   []extract.Row `json:"rows"`
}

// PlanDTO is one plan block.
type PlanDTO struct {
	Name          string `json:"name"`
	CoverageLevel string `json:"coverageLevel,omitempty"`
	Units         string `json:"units,omitempty"`
}

// DependentDTO is one dependent block with its plan names.
type DependentDTO struct {
	Name         string   `json:"name"`
	SSN          string   `json:"ssn"`
	Relationship string   `json:"relationship"`
	BirthDate    string   `json:"birthDate"`
	Plans        []string `json:"plans"`
}

// BeneficiaryDTO summarizes one qualified beneficiary's block tree.
type BeneficiaryDTO struct {
	EmployeeID string         `json:"employeeId"`
	Name       string         `json:"name"`
	SSN        string         `json:"ssn"`
	EventType  string         `json:"eventType"`
	EventDate  string         `json:"eventDate"`
	Plans      []PlanDTO      `json:"plans"`
	Dependents []DependentDTO `json:"dependents"`
}

// BeneficiariesResponse is the stage-two preview.
type BeneficiariesResponse struct {
	AsOf          string           `json:"asOf"`
	Count         int              `json:"count"`
	Beneficiaries []BeneficiaryDTO `json:"beneficiaries"`
	Warnings      []string         `json:"warnings"`
}

// =============================================================================
// RUN TYPES
// =============================================================================

// RunDTO is one recorded pipeline run.
type RunDTO struct {
	ID            string `json:"id"`
	AsOf          string `json:"asOf"`
	Status        string `json:"status"`
	ExtractRows   int    `json:"extractRows"`
	Beneficiaries int    `json:"beneficiaries"`
	OutputPath    string `json:"outputPath,omitempty"`
	Error         string `json:"error,omitempty"`
	StartedAt     string `json:"startedAt"`
	CompletedAt   string `json:"completedAt,omitempty"`
}

type RunsResponse struct {
	Runs []RunDTO `json:"runs"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario and the date it is built around.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	AsOf       string `json:"asOf,omitempty"`
}

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(r generic.RunRecord) RunDTO {
	dto := RunDTO{
		ID:            r.ID,
		AsOf:          r.AsOf.String(),
		Status:        string(r.Status),
		ExtractRows:   r.ExtractRows,
		Beneficiaries: r.Beneficiaries,
		OutputPath:    r.OutputPath,
		Error:         r.Error,
		StartedAt:     r.StartedAt.Format(time.RFC3339),
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

func toBeneficiaryDTO(b segment.Beneficiary) BeneficiaryDTO {
	dto := BeneficiaryDTO{
		EmployeeID: b.QB.IndividualIdentifier,
		Name:       b.Event.EmployeeName,
		SSN:        b.QB.SSN,
		EventType:  b.Event.EventType,
		EventDate:  b.Event.EventDate,
		Plans:      make([]PlanDTO, 0, len(b.Plans)),
		Dependents: make([]DependentDTO, 0, len(b.Dependents)),
	}
	for _, p := range b.Plans {
		dto.Plans = append(dto.Plans, PlanDTO{Name: p.PlanName, CoverageLevel: p.CoverageLevel, Units: p.NumberOfUnits})
	}
	for _, d := range b.Dependents {
		dep := DependentDTO{
			Name:         d.Dependent.FirstName + " " + d.Dependent.LastName,
			SSN:          d.Dependent.SSN,
			Relationship: d.Dependent.Relationship,
			BirthDate:    d.Dependent.DOB,
			Plans:        make([]string, 0, len(d.Plans)),
		}
		for _, p := range d.Plans {
			dep.Plans = append(dep.Plans, p.PlanName)
		}
		dto.Dependents = append(dto.Dependents, dep)
	}
	return dto
}
