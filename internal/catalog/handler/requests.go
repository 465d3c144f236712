package handler

import (
	"time"

	"github.com/shopspring/decimal"

	catalog "donorhub/internal/catalog/models"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// CauseRequest is the body for POST /causes and PATCH /causes/{id}.
type CauseRequest struct {
	Title                     string          `json:"title" validate:"required,max=200"`
	Description               string          `json:"description" validate:"max=5000"`
	Tags                      []string        `json:"tags" validate:"max=20,dive,max=50"`
	TargetAmount              decimal.Decimal `json:"target_amount"`
	AcceptedContributionTypes []string        `json:"accepted_contribution_types" validate:"required,min=1,max=9"`

	parsedTypes domain.ContributionTypes
}

// Validate parses contribution types. Implements httputil.Validatable.
func (r *CauseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	types, err := domain.ParseContributionTypes(r.AcceptedContributionTypes)
	if err != nil {
		return err
	}
	r.parsedTypes = types
	return nil
}

func (r *CauseRequest) Details() catalog.CauseDetails {
	return catalog.CauseDetails{
		Title:         r.Title,
		Description:   r.Description,
		Tags:          r.Tags,
		TargetAmount:  r.TargetAmount,
		AcceptedTypes: r.parsedTypes,
	}
}

// CampaignRequest is the body for POST /campaigns.
type CampaignRequest struct {
	Title                     string    `json:"title" validate:"required,max=200"`
	Description               string    `json:"description" validate:"max=5000"`
	OrganizationIDs           []string  `json:"organization_ids" validate:"max=20"`
	StartDate                 time.Time `json:"start_date" validate:"required"`
	EndDate                   time.Time `json:"end_date" validate:"required"`
	AcceptedContributionTypes []string  `json:"accepted_contribution_types" validate:"required,min=1,max=9"`
	AutoStart                 bool      `json:"auto_start"`

	parsedOrgs  []domain.OrganizationID
	parsedTypes domain.ContributionTypes
}

func (r *CampaignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	orgs := make([]domain.OrganizationID, 0, len(r.OrganizationIDs))
	for _, raw := range r.OrganizationIDs {
		id, err := domain.ParseOrganizationID(raw)
		if err != nil {
			return err
		}
		orgs = append(orgs, id)
	}
	types, err := domain.ParseContributionTypes(r.AcceptedContributionTypes)
	if err != nil {
		return err
	}
	r.parsedOrgs = orgs
	r.parsedTypes = types
	return nil
}

func (r *CampaignRequest) Details() catalog.CampaignDetails {
	return catalog.CampaignDetails{
		Title:           r.Title,
		Description:     r.Description,
		OrganizationIDs: r.parsedOrgs,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		AcceptedTypes:   r.parsedTypes,
		AutoStart:       r.AutoStart,
	}
}

// WindowRequest is the body for PATCH /campaigns/{id}/window.
type WindowRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// StatusRequest is the body for POST /campaigns/{id}/status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`

	parsedStatus catalog.CampaignStatus
}

func (r *StatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := catalog.ParseCampaignStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}
