package scopes

import (
	"ams/src/types"

	"gorm.io/gorm"
)

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithIDs(ids ...uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)", ids)
	}
}

func WithPendingStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", "pending")
}

// ApprovedForVenueDay narrows venue bookings to the approved rows that
// compete for the same venue and date.
func ApprovedForVenueDay(venue types.VenueType, date string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("venue_type = ?", venue).
			Where("booking_date = ?", date).
			Where("status = ?", types.VENUE_BOOKING_APPROVED)
	}
}

// ActiveTenancies keeps tenancies whose contract has not ended before
// the supplied day.
func ActiveTenancies(today string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("contract_end >= ?", today)
	}
}
