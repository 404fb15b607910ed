package models

import (
	"ams/src/types"
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID              uuid.UUID           `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	TenantID        uint                `json:"tenant_id,omitempty"`
	Amount          float64             `json:"amount,omitempty"`
	Currency        string              `gorm:"default:'usd'" json:"currency,omitempty"`
	Period          string              `json:"period,omitempty"`
	DueDate         time.Time           `gorm:"type:date" json:"due_date,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	Status          types.PaymentStatus `gorm:"default:'unpaid'" json:"status,omitempty"`
	ReceiptPath     *string             `json:"receipt_path,omitempty"`
	StripeSessionID *string             `json:"-"`
	Metadata        types.JSONB         `gorm:"type:jsonb" json:"-"`

	Tenant Tenant `gorm:"foreignKey:tenant_id" json:"tenant,omitempty"`

	types.Timestamps
}
