package models

import (
	"ams/src/types"
	"time"
)

type Tenant struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	UserID            uint      `json:"user_id,omitempty"`
	ApartmentID       uint      `json:"apartment_id,omitempty"`
	ContractStart     time.Time `gorm:"type:date" json:"contract_start,omitempty"`
	ContractEnd       time.Time `gorm:"type:date" json:"contract_end,omitempty"`
	MonthlyRent       float64   `json:"monthly_rent,omitempty"`
	RentPlanMonths    int       `json:"rent_plan_months,omitempty"`
	AgreementDocument *string   `json:"agreement_document,omitempty"`

	User      *User      `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Apartment *Apartment `gorm:"foreignKey:apartment_id" json:"apartment,omitempty"`

	Payments      []Payment      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Complaints    []Complaint    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	VenueBookings []VenueBooking `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Reviews       []Review       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	types.Timestamps
}
