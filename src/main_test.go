package main

import (
	"ams/src/db"
	"ams/src/middlewares"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB *gorm.DB

	OwnerToken  string
	TenantToken string
	GuestToken  string

	Owner      models.User
	TenantUser models.User
	Guest      models.User
	Building   models.Building
	Apartment  models.Apartment
	Tenant     models.Tenant
}

var dbi *gorm.DB

func authMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	parts := strings.Split(bearerToken, " ")
	if len(parts) != 2 || parts[1] == "" {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	reqToken := parts[1]
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return jwtKey, nil
	})
	if err != nil || !tkn.Valid {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var user models.User
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		log.Println("error parsing claims:", err.Error())
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	err = dbi.
		Model(&models.User{}).
		Where(&models.User{ID: uint(uid)}).
		First(&user).
		Error
	if err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ctx.Set("id", user.ID)
	ctx.Set("email", user.Email)
	ctx.Set("uid", user.UID)
	ctx.Set("role", user.Role)
}

func newSuiteDB() *gorm.DB {
	conn, err := gorm.Open(sqlite.Open("file:apitest?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening test database: %s", err.Error())
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
		&models.Credential{},
	); err != nil {
		log.Fatalf("error on migration: %s", err.Error())
	}
	if err := conn.Exec(`
	CREATE TABLE trail_logs (
		id text PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		type text,
		initiator text,
		"group" text,
		detail text
	)`).Error; err != nil {
		log.Fatalf("error creating trail_logs: %s", err.Error())
	}
	// Payment also defaults its uuid key on the postgres side.
	if err := conn.Exec(`
	CREATE TABLE payments (
		id text PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		tenant_id integer,
		amount real,
		currency text DEFAULT 'usd',
		period text,
		due_date date,
		paid_at datetime,
		status text DEFAULT 'unpaid',
		receipt_path text,
		stripe_session_id text,
		metadata jsonb,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`).Error; err != nil {
		log.Fatalf("error creating payments: %s", err.Error())
	}
	return conn
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("visitdate", visitDateValidatorFunc)
		v.RegisterValidation("clocktime", clocktime)
		v.RegisterValidation("gtclock", gtclock)
	}

	d := newSuiteDB()
	db.NewDB(d)
	s.DB = d
	dbi = d

	s.Owner = models.User{Name: "Olive Owner", Email: "owner@example.com", UID: "owner-uid", Role: types.ROLE_OWNER}
	s.TenantUser = models.User{Name: "Tess Tenant", Email: "tenant@example.com", UID: "tenant-uid", Role: types.ROLE_TENANT}
	s.Guest = models.User{Name: "Gary Guest", Email: "guest@example.com", UID: "guest-uid", Role: types.ROLE_GUEST}
	for _, u := range []*models.User{&s.Owner, &s.TenantUser, &s.Guest} {
		if err := d.Create(u).Error; err != nil {
			log.Fatalf("Could not create user: %s\n", err.Error())
		}
	}

	s.Building = models.Building{Name: "Elm Court", Address: "12 Elm St", City: "Springfield", Floors: 4, OwnerID: s.Owner.ID, Slug: "elm-court"}
	if err := d.Create(&s.Building).Error; err != nil {
		log.Fatalf("Could not create building: %s\n", err.Error())
	}
	s.Apartment = models.Apartment{BuildingID: s.Building.ID, Number: "2B", Type: "1br", Floor: 2, BaseRent: 1200, Status: types.APARTMENT_AVAILABLE}
	if err := d.Create(&s.Apartment).Error; err != nil {
		log.Fatalf("Could not create apartment: %s\n", err.Error())
	}
	s.Tenant = models.Tenant{
		UserID:        s.TenantUser.ID,
		ApartmentID:   s.Apartment.ID,
		ContractStart: time.Now().AddDate(0, -1, 0),
		ContractEnd:   time.Now().AddDate(1, 0, 0),
		MonthlyRent:   1200,
	}
	if err := d.Create(&s.Tenant).Error; err != nil {
		log.Fatalf("Could not create tenant: %s\n", err.Error())
	}

	for user, target := range map[*models.User]*string{
		&s.Owner:      &s.OwnerToken,
		&s.TenantUser: &s.TenantToken,
		&s.Guest:      &s.GuestToken,
	} {
		token, err := utils.GenerateJWT(user)
		if err != nil {
			log.Fatalf("Error generating JWT token: %s\n", err.Error())
		}
		*target = token
	}
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) authorizedRouter() (*gin.Engine, *gin.RouterGroup) {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(authMiddleware)
	return router, apiv1
}

func (s *TestSuite) doJSON(router *gin.Engine, method, url, token string, body any) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		assert.Nil(s.T(), err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	assert.Nil(s.T(), err)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestBuildingRoutesRequireOwnerRole() {
	os.Setenv("MAINTENANCE_MODE", "false")
	router, apiv1 := s.authorizedRouter()
	owner := apiv1.Group("", middlewares.RequireRoles(types.ROLE_OWNER))
	buildingHandlers(owner)

	s.Run("Owner can list buildings", func() {
		w := s.doJSON(router, "GET", "/api/v1/buildings", s.OwnerToken, nil)
		assert.Equal(s.T(), 200, w.Code)
		count := gjson.Get(w.Body.String(), "count").Int()
		assert.GreaterOrEqual(s.T(), count, int64(1))
	})

	s.Run("Guest is rejected", func() {
		w := s.doJSON(router, "GET", "/api/v1/buildings", s.GuestToken, nil)
		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Missing token is rejected", func() {
		w := s.doJSON(router, "GET", "/api/v1/buildings", "", nil)
		assert.Equal(s.T(), 401, w.Code)
	})
}

func (s *TestSuite) TestVisitRequestValidation() {
	router, apiv1 := s.authorizedRouter()
	visitHandlers(apiv1)

	s.Run("Past visit date is rejected", func() {
		body := types.CreateVisitRequestBody{
			ApartmentID:   s.Apartment.ID,
			RequestedDate: "2020-01-01",
			RequestedTime: "10:00",
		}
		w := s.doJSON(router, "POST", "/api/v1/visits", s.GuestToken, &body)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Future visit date is accepted", func() {
		body := types.CreateVisitRequestBody{
			ApartmentID:   s.Apartment.ID,
			RequestedDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
			RequestedTime: "10:00",
			Notes:         "after work if possible",
		}
		w := s.doJSON(router, "POST", "/api/v1/visits", s.GuestToken, &body)
		assert.Equal(s.T(), 201, w.Code)
		id := gjson.Get(w.Body.String(), "data.id").Uint()
		assert.Greater(s.T(), id, uint64(0))

		var visit models.VisitRequest
		assert.Nil(s.T(), s.DB.First(&visit, uint(id)).Error)
		assert.Equal(s.T(), types.VISIT_PENDING, visit.Status)
	})
}

func (s *TestSuite) TestVisitModeration() {
	router, apiv1 := s.authorizedRouter()
	visitHandlers(apiv1)

	visit := models.VisitRequest{
		RequesterID:   s.Guest.ID,
		ApartmentID:   s.Apartment.ID,
		RequestedDate: time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		RequestedTime: "14:00",
		Status:        types.VISIT_PENDING,
	}
	assert.Nil(s.T(), s.DB.Create(&visit).Error)

	s.Run("Suggesting a new time reschedules the visit", func() {
		body := types.SuggestVisitTimeRequestBody{
			SuggestedDate: time.Now().AddDate(0, 0, 5).Format("2006-01-02"),
			SuggestedTime: "16:00",
		}
		w := s.doJSON(router, "POST", fmt.Sprintf("/api/v1/visits/%d/suggest", visit.ID), s.OwnerToken, &body)
		assert.Equal(s.T(), 204, w.Code)

		var fresh models.VisitRequest
		assert.Nil(s.T(), s.DB.First(&fresh, visit.ID).Error)
		assert.Equal(s.T(), types.VISIT_RESCHEDULED, fresh.Status)
		if assert.NotNil(s.T(), fresh.SuggestedTime) {
			assert.Equal(s.T(), "16:00", *fresh.SuggestedTime)
		}
	})

	s.Run("A completed transition out of order is rejected", func() {
		w := s.doJSON(router, "POST", fmt.Sprintf("/api/v1/visits/%d/suggest", visit.ID), s.OwnerToken, &types.SuggestVisitTimeRequestBody{
			SuggestedDate: time.Now().AddDate(0, 0, 6).Format("2006-01-02"),
			SuggestedTime: "17:00",
		})
		assert.Equal(s.T(), 422, w.Code)
	})

	s.Run("Marking visited then rejecting fails", func() {
		w := s.doJSON(router, "POST", fmt.Sprintf("/api/v1/visits/%d/visited", visit.ID), s.OwnerToken, nil)
		assert.Equal(s.T(), 204, w.Code)

		w = s.doJSON(router, "POST", fmt.Sprintf("/api/v1/visits/%d/reject", visit.ID), s.OwnerToken, &types.RejectVisitRequestBody{Reason: "too late"})
		assert.Equal(s.T(), 422, w.Code)
	})
}

func (s *TestSuite) TestVenueBookingConflicts() {
	router, apiv1 := s.authorizedRouter()
	venueHandlers(apiv1)

	end := "16:00"
	approved := models.VenueBooking{
		TenantID:    s.Tenant.ID,
		VenueType:   types.VENUE_GARDEN_HALL,
		BookingDate: "2027-06-01",
		BookingTime: "14:00",
		EndTime:     &end,
		Status:      types.VENUE_BOOKING_APPROVED,
	}
	assert.Nil(s.T(), s.DB.Create(&approved).Error)

	s.Run("Overlapping slot is rejected", func() {
		endTime := "17:00"
		body := types.CreateVenueBookingRequestBody{
			VenueType:   types.VENUE_GARDEN_HALL,
			BookingDate: "2027-06-01",
			BookingTime: "15:00",
			EndTime:     &endTime,
		}
		w := s.doJSON(router, "POST", "/api/v1/venues/bookings", s.TenantToken, &body)
		assert.Equal(s.T(), 422, w.Code)
		errMsg := gjson.Get(w.Body.String(), "error").String()
		assert.Equal(s.T(), "This time slot is already booked", errMsg)
	})

	s.Run("Back to back slot is accepted", func() {
		endTime := "18:00"
		body := types.CreateVenueBookingRequestBody{
			VenueType:   types.VENUE_GARDEN_HALL,
			BookingDate: "2027-06-01",
			BookingTime: "16:00",
			EndTime:     &endTime,
		}
		w := s.doJSON(router, "POST", "/api/v1/venues/bookings", s.TenantToken, &body)
		assert.Equal(s.T(), 201, w.Code)
		status := gjson.Get(w.Body.String(), "data.status").String()
		assert.Equal(s.T(), string(types.VENUE_BOOKING_PENDING), status)
	})

	s.Run("Unparseable booking time is rejected by validation", func() {
		body := types.CreateVenueBookingRequestBody{
			VenueType:   types.VENUE_GARDEN_HALL,
			BookingDate: "2027-06-01",
			BookingTime: "half past two",
		}
		w := s.doJSON(router, "POST", "/api/v1/venues/bookings", s.TenantToken, &body)
		assert.Equal(s.T(), 400, w.Code)

		var count int64
		assert.Nil(s.T(), s.DB.Model(&models.VenueBooking{}).Where("booking_time = ?", "half past two").Count(&count).Error)
		assert.Equal(s.T(), int64(0), count)
	})

	s.Run("End time before start is rejected by validation", func() {
		endTime := "13:00"
		body := types.CreateVenueBookingRequestBody{
			VenueType:   types.VENUE_GARDEN_HALL,
			BookingDate: "2027-06-02",
			BookingTime: "14:00",
			EndTime:     &endTime,
		}
		w := s.doJSON(router, "POST", "/api/v1/venues/bookings", s.TenantToken, &body)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Guest without a tenancy cannot book", func() {
		body := types.CreateVenueBookingRequestBody{
			VenueType:   types.VENUE_GYM,
			BookingDate: "2027-06-03",
			BookingTime: "08:00",
		}
		w := s.doJSON(router, "POST", "/api/v1/venues/bookings", s.GuestToken, &body)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestReviews() {
	router, apiv1 := s.authorizedRouter()
	reviewHandlers(apiv1)
	publicRouter := setupRouter()
	browseApartmentRoutes(apiv1Group(publicRouter))

	s.Run("Tenant can review their apartment", func() {
		body := types.CreateReviewRequestBody{
			ApartmentID: s.Apartment.ID,
			Rating:      4,
			Comment:     "quiet building, slow elevator",
		}
		w := s.doJSON(router, "POST", "/api/v1/reviews", s.TenantToken, &body)
		assert.Equal(s.T(), 201, w.Code)
	})

	s.Run("Non-tenant cannot review", func() {
		body := types.CreateReviewRequestBody{
			ApartmentID: s.Apartment.ID,
			Rating:      1,
			Comment:     "never lived here",
		}
		w := s.doJSON(router, "POST", "/api/v1/reviews", s.GuestToken, &body)
		assert.Equal(s.T(), 422, w.Code)
	})

	s.Run("Reviews are browsable without a token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/api/v1/apartments/%d/reviews", s.Apartment.ID), nil)
		publicRouter.ServeHTTP(w, req)
		assert.Equal(s.T(), 200, w.Code)
		count := gjson.Get(w.Body.String(), "count").Int()
		assert.GreaterOrEqual(s.T(), count, int64(1))
	})
}

func (s *TestSuite) TestPaymentReceipts() {
	router, apiv1 := s.authorizedRouter()
	paymentHandlers(apiv1)

	payment := models.Payment{
		ID:       uuid.New(),
		TenantID: s.Tenant.ID,
		Amount:   1200,
		Period:   "2026-08",
		DueDate:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Status:   types.PAYMENT_UNPAID,
	}
	assert.Nil(s.T(), s.DB.Create(&payment).Error)

	s.Run("Unsettled invoice has no receipt", func() {
		w := s.doJSON(router, "GET", fmt.Sprintf("/api/v1/payments/%s/receipt", payment.ID), s.TenantToken, nil)
		assert.Equal(s.T(), 404, w.Code)
		errMsg := gjson.Get(w.Body.String(), "error").String()
		assert.Equal(s.T(), "no receipt for this payment", errMsg)
	})

	s.Run("Another account's invoice stays hidden", func() {
		w := s.doJSON(router, "GET", fmt.Sprintf("/api/v1/payments/%s/receipt", payment.ID), s.GuestToken, nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestApartmentPhotoRemoval() {
	router, apiv1 := s.authorizedRouter()
	owner := apiv1.Group("", middlewares.RequireRoles(types.ROLE_OWNER))
	apartmentHandlers(owner)

	s.Run("Unknown photo key is refused", func() {
		url := fmt.Sprintf("/api/v1/apartments/%d/photos?key=apartments/%d/missing.jpg", s.Apartment.ID, s.Apartment.ID)
		w := s.doJSON(router, "DELETE", url, s.OwnerToken, nil)
		assert.Equal(s.T(), 422, w.Code)
	})

	s.Run("Missing key is a validation error", func() {
		url := fmt.Sprintf("/api/v1/apartments/%d/photos", s.Apartment.ID)
		w := s.doJSON(router, "DELETE", url, s.OwnerToken, nil)
		assert.Equal(s.T(), 400, w.Code)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
