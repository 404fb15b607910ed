package models

import "ams/src/types"

type Apartment struct {
	ID          uint                  `gorm:"primarykey" json:"id"`
	BuildingID  uint                  `json:"building_id,omitempty"`
	Number      string                `json:"number,omitempty"`
	Type        string                `json:"type,omitempty"`
	Floor       int                   `json:"floor"`
	Size        float32               `json:"size,omitempty"`
	BaseRent    float64               `json:"base_rent,omitempty"`
	Status      types.ApartmentStatus `gorm:"default:'available'" json:"status,omitempty"`
	Description string                `json:"description,omitempty"`
	Photos      types.JSONBArray      `gorm:"type:jsonb" json:"photos,omitempty"`

	Building      *Building      `gorm:"foreignKey:building_id" json:"building,omitempty"`
	VisitRequests []VisitRequest `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Tenants       []Tenant       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	types.Timestamps
}
