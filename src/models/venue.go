package models

import "ams/src/types"

type VenueBooking struct {
	ID                uint                     `gorm:"primarykey" json:"id"`
	TenantID          uint                     `json:"tenant_id,omitempty"`
	VenueType         types.VenueType          `gorm:"index:venue_day" json:"venue_type,omitempty"`
	BookingDate       string                   `gorm:"type:date;index:venue_day" json:"booking_date,omitempty"`
	BookingTime       string                   `json:"booking_time,omitempty"`
	EndTime           *string                  `json:"end_time,omitempty"`
	Status            types.VenueBookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	CleaningScheduled bool                     `gorm:"default:false" json:"cleaning_scheduled,omitempty"`
	AdminNotes        *string                  `json:"admin_notes,omitempty"`

	Tenant Tenant `gorm:"foreignKey:tenant_id" json:"tenant,omitempty"`

	types.Timestamps
}
