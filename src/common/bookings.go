package common

import (
	"ams/src/config"
	"ams/src/db"
	"ams/src/lib"
	"ams/src/models"
	"ams/src/models/scopes"
	"ams/src/types"
	"ams/src/utils"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"gorm.io/gorm"
)

// bookingWindow resolves a booking to its half-open minute interval on
// the booking day. A missing end time means the slot runs for the
// standard venue slot duration.
func bookingWindow(start string, end *string) (int, int, error) {
	st, err := time.Parse(config.CLOCK_PARSE_FORMAT, start)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid booking time %q: %s", start, err.Error())
	}
	s := st.Hour()*60 + st.Minute()
	if end == nil || *end == "" {
		return s, s + int(config.VENUE_SLOT_DURATION.Minutes()), nil
	}
	et, err := time.Parse(config.CLOCK_PARSE_FORMAT, *end)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end time %q: %s", *end, err.Error())
	}
	return s, et.Hour()*60 + et.Minute(), nil
}

// FindBookingConflict applies the overlap rule to already-fetched rows.
// Two bookings conflict when their half-open windows intersect, so a
// booking that starts exactly when another ends is allowed. A candidate
// whose times cannot be parsed is an error, never a free pass.
func FindBookingConflict(candidate *models.VenueBooking, existing []models.VenueBooking) (*models.VenueBooking, error) {
	cs, ce, err := bookingWindow(candidate.BookingTime, candidate.EndTime)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		e := &existing[i]
		es, ee, err := bookingWindow(e.BookingTime, e.EndTime)
		if err != nil {
			log.Printf("Error resolving booking window for [%d]: %s\n", e.ID, err.Error())
			continue
		}
		if cs < ee && es < ce {
			return e, nil
		}
	}
	return nil, nil
}

// CheckBookingConflict fetches the approved bookings competing for the
// candidate's venue and day and returns the first overlapping one.
// excludeID skips the row being edited.
func CheckBookingConflict(tx *gorm.DB, candidate *models.VenueBooking, excludeID uint) (*models.VenueBooking, error) {
	var existing []models.VenueBooking
	q := tx.
		Model(&models.VenueBooking{}).
		Scopes(scopes.ApprovedForVenueDay(candidate.VenueType, candidate.BookingDate))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&existing).Error; err != nil {
		return nil, err
	}
	return FindBookingConflict(candidate, existing)
}

// UnavailabilityNotice renders the message shown to other tenants when
// a booking is approved. The blocked window widens the slot by the
// cleaning buffer on both sides.
func UnavailabilityNotice(booking *models.VenueBooking) string {
	start, _ := time.Parse(config.CLOCK_PARSE_FORMAT, booking.BookingTime)
	end := start.Add(config.VENUE_SLOT_DURATION)
	if booking.EndTime != nil && *booking.EndTime != "" {
		if e, err := time.Parse(config.CLOCK_PARSE_FORMAT, *booking.EndTime); err == nil {
			end = e
		}
	}
	blockedFrom := start.Add(-config.VENUE_SLOT_BUFFER)
	blockedUntil := end.Add(config.VENUE_SLOT_BUFFER)
	return fmt.Sprintf(
		"%s is unavailable on %s from %s to %s",
		utils.VenueDisplayName(booking.VenueType),
		booking.BookingDate,
		blockedFrom.Format(config.CLOCK_PARSE_FORMAT),
		blockedUntil.Format(config.CLOCK_PARSE_FORMAT),
	)
}

// ApproveVenueBooking re-validates the slot and flips the booking to
// Approved in one serializable transaction, so two owners approving
// overlapping requests cannot both win.
func ApproveVenueBooking(id uint, notes *string) (*models.VenueBooking, string, error) {
	var booking models.VenueBooking
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Preload("Tenant").
			Preload("Tenant.User").
			First(&booking, id).
			Error; err != nil {
			return fmt.Errorf("VenueBooking not found")
		}
		if booking.Status != types.VENUE_BOOKING_PENDING {
			return fmt.Errorf("only pending bookings can be approved")
		}
		conflict, err := CheckBookingConflict(tx, &booking, booking.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return fmt.Errorf("This time slot is already booked")
		}
		updates := models.VenueBooking{
			Status:            types.VENUE_BOOKING_APPROVED,
			CleaningScheduled: true,
			AdminNotes:        notes,
		}
		if err := tx.Model(&booking).Updates(&updates).Error; err != nil {
			return err
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, "", err
	}

	notice := UnavailabilityNotice(&booking)
	go publishUnavailabilityNotice(&booking, notice)
	go func() {
		trail := models.TrailLog{
			Type:      "venue_booking:approved",
			Initiator: fmt.Sprintf("tenant:%d", booking.TenantID),
			Group:     fmt.Sprintf("venue:%s", booking.VenueType),
			Detail:    notice,
		}
		if err := conn.Create(&trail).Error; err != nil {
			log.Printf("Error writing trail log: %s\n", err.Error())
		}
	}()
	return &booking, notice, nil
}

// publishUnavailabilityNotice fans the notice out to the building
// topic and caches it for the venue day.
func publishUnavailabilityNotice(booking *models.VenueBooking, notice string) {
	ctx := context.Background()
	rd := lib.GetRedisClient()
	key := fmt.Sprintf("venue:%s:%s:notice", booking.VenueType, booking.BookingDate)
	if err := rd.Set(ctx, key, notice, 48*time.Hour).Err(); err != nil {
		log.Printf("[redis] Error caching notice: %s\n", err.Error())
	}

	topic := utils.WithSuffix("VenueUnavailable")
	if err := lib.SNSPublishMessage(topic, notice); err != nil {
		log.Printf("[SNS] Error publishing notice: %s\n", err.Error())
	}

	fcm, err := lib.GetFirebaseMessaging()
	if err != nil {
		log.Printf("[FCM] Error getting client: %s\n", err.Error())
		return
	}
	res, err := fcm.Send(ctx, &messaging.Message{
		Topic: topic,
		Data: map[string]string{
			"title": "Venue Unavailable",
			"body":  notice,
		},
	})
	if err != nil {
		log.Printf("[FCM] error sending notification message: %s", err.Error())
		return
	}
	log.Printf("[FCM] notification sent to topic %s: %s", topic, res)
}
