package models

import (
	dErrors "donorhub/pkg/domain-errors"
)

// ReceiptRefs are the opaque references produced when a donation is received.
type ReceiptRefs struct {
	ImageRef       string `json:"receipt_image_ref"`
	DocumentRef    string `json:"receipt_document_ref"`
	DocumentNumber string `json:"document_number,omitempty"`
}

// Receipt returns the receipt references, distinguishing "not yet" from
// "never": PENDING and APPROVED donations report receipt_not_yet_available,
// CANCELLED donations report receipt_unavailable.
func (d *Donation) Receipt() (ReceiptRefs, error) {
	switch {
	case d.Status.HasReceipt():
		return ReceiptRefs{
			ImageRef:       d.ReceiptImageRef,
			DocumentRef:    d.ReceiptDocumentRef,
			DocumentNumber: d.DocumentNumber,
		}, nil
	case d.Status == StatusCancelled:
		return ReceiptRefs{}, dErrors.New(dErrors.CodeReceiptUnavailable,
			"donation was cancelled and will never have a receipt")
	default:
		return ReceiptRefs{}, dErrors.New(dErrors.CodeReceiptNotYetAvailable,
			"receipt is not available until the donation is received")
	}
}

// ReceiptEvidence is what an organization supplies when marking a donation
// RECEIVED: either fresh image bytes or a reference to an image it already
// stored.
type ReceiptEvidence struct {
	Image       []byte
	ContentType string
	ImageRef    string
}

func (e *ReceiptEvidence) Validate() error {
	if e == nil || (len(e.Image) == 0 && e.ImageRef == "") {
		return dErrors.New(dErrors.CodeValidation, "a receipt image or image reference is required")
	}
	if len(e.Image) > 0 && e.ImageRef != "" {
		return dErrors.New(dErrors.CodeValidation, "supply either a receipt image or an image reference, not both")
	}
	return nil
}
