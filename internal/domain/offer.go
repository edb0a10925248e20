package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusDraft           OfferStatus = "draft"
	OfferStatusPendingApproval OfferStatus = "pending_approval"
	OfferStatusApproved        OfferStatus = "approved"
)

type Offer struct {
	ID            int32           `json:"id"`
	ApplicationID int32           `json:"application_id"`
	Status        OfferStatus     `json:"status"`
	Salary        decimal.Decimal `json:"salary"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	CreatedBy     int32           `json:"created_by"`
}
