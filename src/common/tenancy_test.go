package common

import (
	"ams/src/db"
	"ams/src/models"
	"ams/src/types"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("error opening test database: %s", err.Error())
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.UserRole{},
		&models.Building{},
		&models.Apartment{},
		&models.VisitRequest{},
		&models.Tenant{},
		&models.VenueBooking{},
		&models.Complaint{},
		&models.Review{},
	); err != nil {
		t.Fatalf("error on migration: %s", err.Error())
	}
	// TrailLog carries a postgres uuid default, so the table is laid
	// down by hand here.
	if err := conn.Exec(`
	CREATE TABLE trail_logs (
		id text PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		type text,
		initiator text,
		"group" text,
		detail text
	)`).Error; err != nil {
		t.Fatalf("error creating trail_logs: %s", err.Error())
	}
	db.NewDB(conn)
	return conn
}

func seedTenancyFixtures(t *testing.T, conn *gorm.DB) (*models.User, *models.Apartment, *models.VisitRequest) {
	t.Helper()
	owner := models.User{Name: "Olive Owner", Email: "owner@example.com", Role: types.ROLE_OWNER}
	guest := models.User{Name: "Gary Guest", Email: "guest@example.com", Role: types.ROLE_GUEST}
	if err := conn.Create(&owner).Error; err != nil {
		t.Fatalf("error seeding owner: %s", err.Error())
	}
	if err := conn.Create(&guest).Error; err != nil {
		t.Fatalf("error seeding guest: %s", err.Error())
	}
	building := models.Building{Name: "Elm Court", Address: "12 Elm St", City: "Springfield", Floors: 4, OwnerID: owner.ID, Slug: "elm-court"}
	if err := conn.Create(&building).Error; err != nil {
		t.Fatalf("error seeding building: %s", err.Error())
	}
	apartment := models.Apartment{BuildingID: building.ID, Number: "2B", Type: "1br", Floor: 2, BaseRent: 1200, Status: types.APARTMENT_AVAILABLE}
	if err := conn.Create(&apartment).Error; err != nil {
		t.Fatalf("error seeding apartment: %s", err.Error())
	}
	visit := models.VisitRequest{
		RequesterID:   guest.ID,
		ApartmentID:   apartment.ID,
		RequestedDate: "2026-09-20",
		RequestedTime: "10:00",
		Status:        types.VISIT_VISITED,
	}
	if err := conn.Create(&visit).Error; err != nil {
		t.Fatalf("error seeding visit: %s", err.Error())
	}
	return &guest, &apartment, &visit
}

func TestCanTransitionVisit(t *testing.T) {
	cases := []struct {
		from    types.VisitStatus
		to      types.VisitStatus
		allowed bool
	}{
		{types.VISIT_PENDING, types.VISIT_APPROVED, true},
		{types.VISIT_PENDING, types.VISIT_RESCHEDULED, true},
		{types.VISIT_PENDING, types.VISIT_REJECTED, true},
		{types.VISIT_PENDING, types.VISIT_COMPLETED, false},
		{types.VISIT_APPROVED, types.VISIT_VISITED, true},
		{types.VISIT_APPROVED, types.VISIT_PENDING, false},
		{types.VISIT_RESCHEDULED, types.VISIT_VISITED, true},
		{types.VISIT_RESCHEDULED, types.VISIT_REJECTED, true},
		{types.VISIT_VISITED, types.VISIT_COMPLETED, true},
		{types.VISIT_VISITED, types.VISIT_REJECTED, false},
		{types.VISIT_REJECTED, types.VISIT_APPROVED, false},
		{types.VISIT_COMPLETED, types.VISIT_PENDING, false},
	}
	for _, c := range cases {
		got := CanTransitionVisit(c.from, c.to)
		assert.Equalf(t, c.allowed, got, "%s -> %s", c.from, c.to)
	}
}

func TestConvertToTenant(t *testing.T) {
	conn := newTestDB(t)
	guest, apartment, visit := seedTenancyFixtures(t, conn)

	body := types.ConvertToTenantRequestBody{
		ContractStart:  "2026-10-01",
		MonthlyRent:    1250,
		RentPlanMonths: 12,
	}
	tenant, err := ConvertToTenant(visit.ID, &body, nil)
	assert.Nil(t, err)
	if tenant == nil {
		t.Fatal("expected a tenant")
	}

	assert.Equal(t, guest.ID, tenant.UserID)
	assert.Equal(t, apartment.ID, tenant.ApartmentID)
	assert.Equal(t, "2027-10-01", tenant.ContractEnd.Format("2006-01-02"))

	var freshApartment models.Apartment
	assert.Nil(t, conn.First(&freshApartment, apartment.ID).Error)
	assert.Equal(t, types.APARTMENT_RENTED, freshApartment.Status)

	var freshUser models.User
	assert.Nil(t, conn.First(&freshUser, guest.ID).Error)
	assert.Equal(t, types.ROLE_TENANT, freshUser.Role)

	var grants int64
	assert.Nil(t, conn.Model(&models.UserRole{}).Where(&models.UserRole{UserID: guest.ID, Role: types.ROLE_TENANT}).Count(&grants).Error)
	assert.Equal(t, int64(1), grants)

	var freshVisit models.VisitRequest
	assert.Nil(t, conn.First(&freshVisit, visit.ID).Error)
	assert.Equal(t, types.VISIT_COMPLETED, freshVisit.Status)
}

func TestConvertToTenantRequiresVisitedStatus(t *testing.T) {
	conn := newTestDB(t)
	_, _, visit := seedTenancyFixtures(t, conn)
	assert.Nil(t, conn.Model(visit).Update("status", types.VISIT_PENDING).Error)

	body := types.ConvertToTenantRequestBody{
		ContractStart:  "2026-10-01",
		MonthlyRent:    1250,
		RentPlanMonths: 6,
	}
	tenant, err := ConvertToTenant(visit.ID, &body, nil)
	assert.Nil(t, tenant)
	assert.NotNil(t, err)
}

func TestConvertToTenantRollsBackOnMissingApartment(t *testing.T) {
	conn := newTestDB(t)
	guest, apartment, visit := seedTenancyFixtures(t, conn)
	assert.Nil(t, conn.Delete(&models.Apartment{}, apartment.ID).Error)

	body := types.ConvertToTenantRequestBody{
		ContractStart:  "2026-10-01",
		MonthlyRent:    1250,
		RentPlanMonths: 12,
	}
	tenant, err := ConvertToTenant(visit.ID, &body, nil)
	assert.Nil(t, tenant)
	if assert.NotNil(t, err) {
		assert.Equal(t, "Apartment not found", err.Error())
	}

	var tenants int64
	assert.Nil(t, conn.Model(&models.Tenant{}).Count(&tenants).Error)
	assert.Equal(t, int64(0), tenants)

	var freshVisit models.VisitRequest
	assert.Nil(t, conn.First(&freshVisit, visit.ID).Error)
	assert.Equal(t, types.VISIT_VISITED, freshVisit.Status, "visit must be untouched when conversion fails")

	var freshUser models.User
	assert.Nil(t, conn.First(&freshUser, guest.ID).Error)
	assert.Equal(t, types.ROLE_GUEST, freshUser.Role)
}

func TestDeleteConfirmed(t *testing.T) {
	conn := newTestDB(t)
	guest, apartment, visit := seedTenancyFixtures(t, conn)

	body := types.ConvertToTenantRequestBody{
		ContractStart:  "2026-10-01",
		MonthlyRent:    1250,
		RentPlanMonths: 12,
	}
	tenant, err := ConvertToTenant(visit.ID, &body, nil)
	if err != nil {
		t.Fatalf("error converting tenant: %s", err.Error())
	}

	now := time.Date(2026, 12, 15, 9, 0, 0, 0, time.UTC)
	NewClock(func() time.Time { return now })
	defer NewClock(time.Now)

	terminated, err := DeleteConfirmed(tenant.ID)
	assert.Nil(t, err)
	if terminated == nil {
		t.Fatal("expected the terminated tenancy back")
	}

	var fresh models.Tenant
	assert.Nil(t, conn.First(&fresh, tenant.ID).Error)
	assert.Equal(t, "2026-12-14", fresh.ContractEnd.Format("2006-01-02"))

	var freshApartment models.Apartment
	assert.Nil(t, conn.First(&freshApartment, apartment.ID).Error)
	assert.Equal(t, types.APARTMENT_AVAILABLE, freshApartment.Status)

	var freshUser models.User
	assert.Nil(t, conn.First(&freshUser, guest.ID).Error)
	assert.Equal(t, types.ROLE_GUEST, freshUser.Role)

	var tenantGrants int64
	assert.Nil(t, conn.Model(&models.UserRole{}).Where(&models.UserRole{UserID: guest.ID, Role: types.ROLE_TENANT}).Count(&tenantGrants).Error)
	assert.Equal(t, int64(0), tenantGrants)

	today := now.Format("2006-01-02")
	var active []models.Tenant
	assert.Nil(t, conn.Model(&models.Tenant{}).Where("contract_end >= ?", today).Find(&active).Error)
	assert.Empty(t, active, fmt.Sprintf("tenancy %d should no longer be active", tenant.ID))
}

func TestCheckBookingConflictScopesToVenueAndDay(t *testing.T) {
	conn := newTestDB(t)
	guest, _, visit := seedTenancyFixtures(t, conn)

	body := types.ConvertToTenantRequestBody{
		ContractStart:  "2026-10-01",
		MonthlyRent:    1250,
		RentPlanMonths: 12,
	}
	tenant, err := ConvertToTenant(visit.ID, &body, nil)
	if err != nil {
		t.Fatalf("error converting tenant: %s", err.Error())
	}
	log.Printf("Converted user %d to tenant %d\n", guest.ID, tenant.ID)

	end := "16:00"
	approved := models.VenueBooking{
		TenantID:    tenant.ID,
		VenueType:   types.VENUE_GARDEN_HALL,
		BookingDate: "2026-11-01",
		BookingTime: "14:00",
		EndTime:     &end,
		Status:      types.VENUE_BOOKING_APPROVED,
	}
	if err := conn.Create(&approved).Error; err != nil {
		t.Fatalf("error seeding booking: %s", err.Error())
	}

	overlap := models.VenueBooking{
		TenantID:    tenant.ID,
		VenueType:   types.VENUE_GARDEN_HALL,
		BookingDate: "2026-11-01",
		BookingTime: "15:00",
	}
	conflict, err := CheckBookingConflict(conn, &overlap, 0)
	assert.Nil(t, err)
	assert.NotNil(t, conflict)

	otherVenue := overlap
	otherVenue.VenueType = types.VENUE_GYM
	conflict, err = CheckBookingConflict(conn, &otherVenue, 0)
	assert.Nil(t, err)
	assert.Nil(t, conflict)

	otherDay := overlap
	otherDay.BookingDate = "2026-11-02"
	conflict, err = CheckBookingConflict(conn, &otherDay, 0)
	assert.Nil(t, err)
	assert.Nil(t, conflict)

	conflict, err = CheckBookingConflict(conn, &overlap, approved.ID)
	assert.Nil(t, err)
	assert.Nil(t, conflict, "the row being edited must not conflict with itself")
}
