package models

import "ams/src/types"

type Complaint struct {
	ID          uint                  `gorm:"primarykey" json:"id"`
	TenantID    uint                  `json:"tenant_id,omitempty"`
	Subject     string                `json:"subject,omitempty"`
	Description string                `json:"description,omitempty"`
	Attachment  *string               `json:"attachment,omitempty"`
	Status      types.ComplaintStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Resolution  *string               `json:"resolution,omitempty"`

	Tenant Tenant `gorm:"foreignKey:tenant_id" json:"tenant,omitempty"`

	types.Timestamps
}
