package models

import "ams/src/types"

type Review struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	TenantID    uint   `json:"tenant_id,omitempty"`
	ApartmentID uint   `json:"apartment_id,omitempty"`
	Rating      uint8  `json:"rating,omitempty"`
	Comment     string `json:"comment,omitempty"`

	Tenant    Tenant    `gorm:"foreignKey:tenant_id" json:"-"`
	Apartment Apartment `gorm:"foreignKey:apartment_id" json:"-"`

	types.Timestamps
}
