package models

import "ams/src/types"

type Building struct {
	ID      uint    `gorm:"primarykey;uniqueIndex:slugid" json:"id"`
	Name    string  `json:"name,omitempty"`
	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	Floors  uint    `json:"floors,omitempty"`
	OwnerID uint    `json:"owner_id,omitempty"`
	Slug    string  `gorm:"uniqueIndex:slugid" json:"slug"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`

	Owner      User        `gorm:"foreignKey:owner_id" json:"-"`
	Apartments []Apartment `gorm:"constraint:OnDelete:CASCADE;" json:"apartments,omitempty"`

	types.Timestamps
}
