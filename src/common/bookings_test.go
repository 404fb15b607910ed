package common

import (
	"ams/src/models"
	"ams/src/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string {
	return &s
}

func booking(venue types.VenueType, date, start string, end *string, status types.VenueBookingStatus) models.VenueBooking {
	return models.VenueBooking{
		VenueType:   venue,
		BookingDate: date,
		BookingTime: start,
		EndTime:     end,
		Status:      status,
	}
}

func TestFindBookingConflictEmptyDay(t *testing.T) {
	candidate := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:00", strptr("16:00"), types.VENUE_BOOKING_PENDING)
	conflict, err := FindBookingConflict(&candidate, nil)
	assert.Nil(t, err)
	assert.Nil(t, conflict)
}

func TestFindBookingConflictOverlap(t *testing.T) {
	existing := []models.VenueBooking{
		booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:00", strptr("16:00"), types.VENUE_BOOKING_APPROVED),
	}

	overlapping := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "15:00", strptr("17:00"), types.VENUE_BOOKING_PENDING)
	conflict, err := FindBookingConflict(&overlapping, existing)
	assert.Nil(t, err)
	assert.NotNil(t, conflict)

	duplicate := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:00", strptr("16:00"), types.VENUE_BOOKING_PENDING)
	conflict, err = FindBookingConflict(&duplicate, existing)
	assert.Nil(t, err)
	assert.NotNil(t, conflict)

	contained := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:30", strptr("15:30"), types.VENUE_BOOKING_PENDING)
	conflict, err = FindBookingConflict(&contained, existing)
	assert.Nil(t, err)
	assert.NotNil(t, conflict)
}

func TestFindBookingConflictAdjacentSlots(t *testing.T) {
	existing := []models.VenueBooking{
		booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:00", strptr("16:00"), types.VENUE_BOOKING_APPROVED),
	}

	after := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "16:00", strptr("18:00"), types.VENUE_BOOKING_PENDING)
	conflict, err := FindBookingConflict(&after, existing)
	assert.Nil(t, err)
	assert.Nil(t, conflict, "a slot starting exactly at the other's end must be allowed")

	before := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "12:00", strptr("14:00"), types.VENUE_BOOKING_PENDING)
	conflict, err = FindBookingConflict(&before, existing)
	assert.Nil(t, err)
	assert.Nil(t, conflict)
}

func TestFindBookingConflictDefaultDuration(t *testing.T) {
	// No end time means the slot runs for the standard two hours.
	existing := []models.VenueBooking{
		booking(types.VENUE_ROOFTOP, "2026-09-12", "14:00", nil, types.VENUE_BOOKING_APPROVED),
	}

	inside := booking(types.VENUE_ROOFTOP, "2026-09-12", "15:00", nil, types.VENUE_BOOKING_PENDING)
	conflict, err := FindBookingConflict(&inside, existing)
	assert.Nil(t, err)
	assert.NotNil(t, conflict)

	next := booking(types.VENUE_ROOFTOP, "2026-09-12", "16:00", nil, types.VENUE_BOOKING_PENDING)
	conflict, err = FindBookingConflict(&next, existing)
	assert.Nil(t, err)
	assert.Nil(t, conflict)
}

func TestFindBookingConflictUnparseableCandidate(t *testing.T) {
	// A candidate with garbage times must surface an error instead of
	// slipping past a slot that blocks the whole day.
	existing := []models.VenueBooking{
		booking(types.VENUE_GARDEN_HALL, "2026-09-12", "00:00", strptr("23:59"), types.VENUE_BOOKING_APPROVED),
	}

	candidate := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "half past two", nil, types.VENUE_BOOKING_PENDING)
	conflict, err := FindBookingConflict(&candidate, existing)
	assert.Nil(t, conflict)
	assert.NotNil(t, err)

	badEnd := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:00", strptr("late"), types.VENUE_BOOKING_PENDING)
	conflict, err = FindBookingConflict(&badEnd, existing)
	assert.Nil(t, conflict)
	assert.NotNil(t, err)
}

func TestUnavailabilityNotice(t *testing.T) {
	b := booking(types.VENUE_GARDEN_HALL, "2026-09-12", "14:00", strptr("16:00"), types.VENUE_BOOKING_APPROVED)
	notice := UnavailabilityNotice(&b)
	assert.Equal(t, "Garden Hall is unavailable on 2026-09-12 from 13:00 to 17:00", notice)
}
