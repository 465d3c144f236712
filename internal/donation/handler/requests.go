package handler

import (
	"strings"

	"github.com/shopspring/decimal"

	donation "donorhub/internal/donation/models"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// maxReceiptImageBytes bounds the decoded receipt image carried in a
// transition body.
const maxReceiptImageBytes = 512 << 10

// CreateDonationRequest is the body for POST /donations.
type CreateDonationRequest struct {
	CauseID          string          `json:"cause_id" validate:"required"`
	ContributionType string          `json:"contribution_type" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Quantity         int64           `json:"quantity"`
	Unit             string          `json:"unit" validate:"max=50"`

	parsedCauseID      domain.CauseID
	parsedContribution domain.Contribution
}

// Validate parses the cause reference and the contribution. Implements
// httputil.Validatable.
func (r *CreateDonationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	causeID, err := domain.ParseCauseID(r.CauseID)
	if err != nil {
		return err
	}
	contribution, err := domain.ParseContribution(r.ContributionType, r.Amount, r.Quantity, r.Unit)
	if err != nil {
		return err
	}
	r.parsedCauseID = causeID
	r.parsedContribution = contribution
	return nil
}

// TransitionRequest is the body for POST /donations/{id}/transitions.
// ReceiptImage is base64 in JSON.
type TransitionRequest struct {
	Status             string `json:"status" validate:"required"`
	ExpectedVersion    *int64 `json:"expected_version,omitempty"`
	ReceiptImage       []byte `json:"receipt_image,omitempty"`
	ReceiptContentType string `json:"receipt_content_type,omitempty" validate:"omitempty,oneof=image/png image/jpeg application/pdf"`
	ReceiptImageRef    string `json:"receipt_image_ref,omitempty" validate:"max=512"`

	parsedStatus donation.Status
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := donation.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	if len(r.ReceiptImage) > maxReceiptImageBytes {
		return dErrors.New(dErrors.CodeValidation, "receipt image is too large")
	}
	if r.ExpectedVersion != nil && *r.ExpectedVersion < 1 {
		return dErrors.New(dErrors.CodeValidation, "expected_version must be positive")
	}
	r.parsedStatus = status
	return nil
}

// Evidence returns the receipt evidence, or nil when none was sent.
func (r *TransitionRequest) Evidence() *donation.ReceiptEvidence {
	ref := strings.TrimSpace(r.ReceiptImageRef)
	if len(r.ReceiptImage) == 0 && ref == "" {
		return nil
	}
	return &donation.ReceiptEvidence{
		Image:       r.ReceiptImage,
		ContentType: r.ReceiptContentType,
		ImageRef:    ref,
	}
}
