package models

import "ams/src/types"

type VisitRequest struct {
	ID            uint              `gorm:"primarykey" json:"id"`
	RequesterID   uint              `json:"requester_id,omitempty"`
	ApartmentID   uint              `json:"apartment_id,omitempty"`
	RequestedDate string            `gorm:"type:date" json:"requested_date,omitempty"`
	RequestedTime string            `json:"requested_time,omitempty"`
	SuggestedDate *string           `gorm:"type:date" json:"suggested_date,omitempty"`
	SuggestedTime *string           `json:"suggested_time,omitempty"`
	Status        types.VisitStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	RejectReason  *string           `json:"reject_reason,omitempty"`

	Requester *User      `gorm:"foreignKey:requester_id" json:"requester,omitempty"`
	Apartment *Apartment `gorm:"foreignKey:apartment_id" json:"apartment,omitempty"`

	types.Timestamps
}
