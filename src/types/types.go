package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata map[string]any

type Environment string

const (
	Production  Environment = "production"
	Test        Environment = "test"
	Development Environment = "local"
)

type Role string

const (
	ROLE_OWNER  Role = "owner"
	ROLE_TENANT Role = "tenant"
	ROLE_GUEST  Role = "guest"
)

type ApartmentStatus string

const (
	APARTMENT_AVAILABLE ApartmentStatus = "available"
	APARTMENT_RENTED    ApartmentStatus = "rented"
)

type VisitStatus string

const (
	VISIT_PENDING     VisitStatus = "pending"
	VISIT_APPROVED    VisitStatus = "approved"
	VISIT_RESCHEDULED VisitStatus = "rescheduled"
	VISIT_VISITED     VisitStatus = "visited"
	VISIT_REJECTED    VisitStatus = "rejected"
	VISIT_COMPLETED   VisitStatus = "completed"
)

type VenueBookingStatus string

const (
	VENUE_BOOKING_PENDING  VenueBookingStatus = "pending"
	VENUE_BOOKING_APPROVED VenueBookingStatus = "approved"
	VENUE_BOOKING_REJECTED VenueBookingStatus = "rejected"
)

type VenueType string

const (
	VENUE_GARDEN_HALL    VenueType = "garden_hall"
	VENUE_ROOFTOP        VenueType = "rooftop"
	VENUE_COMMUNITY_ROOM VenueType = "community_room"
	VENUE_GYM            VenueType = "gym"
)

type PaymentStatus string

const (
	PAYMENT_UNPAID  PaymentStatus = "unpaid"
	PAYMENT_PENDING PaymentStatus = "pending"
	PAYMENT_PAID    PaymentStatus = "paid"
)

type ComplaintStatus string

const (
	COMPLAINT_PENDING  ComplaintStatus = "pending"
	COMPLAINT_RESOLVED ComplaintStatus = "resolved"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateBuildingRequestBody struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
	City    string `json:"city,omitempty"`
	Floors  uint   `json:"floors,omitempty"`
}

type CreateApartmentRequestBody struct {
	BuildingID  uint    `json:"building" binding:"required"`
	Number      string  `json:"number" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Floor       int     `json:"floor"`
	Size        float32 `json:"size,omitempty"`
	BaseRent    float64 `json:"base_rent" binding:"required"`
	Description string  `json:"description,omitempty"`
}

type ApartmentQueryFilters struct {
	Type     string   `form:"type,omitempty"`
	Floor    *int     `form:"floor,omitempty"`
	MinRent  *float64 `form:"min_rent,omitempty"`
	MaxRent  *float64 `form:"max_rent,omitempty"`
	Status   string   `form:"status,omitempty"`
	Building *uint    `form:"building,omitempty"`
	SortBy   string   `form:"sort_by,omitempty"`
	Order    string   `form:"order,omitempty"`
}

type CreateVisitRequestBody struct {
	ApartmentID   uint   `json:"apartment" binding:"required"`
	RequestedDate string `json:"requested_date" binding:"required,visitdate"`
	RequestedTime string `json:"requested_time" binding:"required,clocktime"`
	Notes         string `json:"notes,omitempty"`
}

type SuggestVisitTimeRequestBody struct {
	SuggestedDate string `json:"suggested_date" binding:"required,visitdate"`
	SuggestedTime string `json:"suggested_time" binding:"required,clocktime"`
}

type RejectVisitRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type ConvertToTenantRequestBody struct {
	ContractStart  string  `form:"contract_start" binding:"required"`
	MonthlyRent    float64 `form:"monthly_rent" binding:"required"`
	RentPlanMonths int     `form:"rent_plan_months" binding:"required,min=1"`
}

type CreateVenueBookingRequestBody struct {
	VenueType   VenueType `json:"venue_type" binding:"required"`
	BookingDate string    `json:"booking_date" binding:"required,visitdate"`
	BookingTime string    `json:"booking_time" binding:"required,clocktime"`
	EndTime     *string   `json:"end_time,omitempty" binding:"omitempty,clocktime,gtclock=BookingTime"`
}

type UpdateVenueBookingRequestBody struct {
	BookingDate string  `json:"booking_date" binding:"required,visitdate"`
	BookingTime string  `json:"booking_time" binding:"required,clocktime"`
	EndTime     *string `json:"end_time,omitempty" binding:"omitempty,clocktime,gtclock=BookingTime"`
}

type ModerateVenueBookingRequestBody struct {
	AdminNotes string `json:"admin_notes,omitempty"`
}

type CreatePaymentRequestBody struct {
	TenantID uint    `json:"tenant" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	Currency string  `json:"currency,omitempty"`
	DueDate  string  `json:"due_date" binding:"required"`
	Period   string  `json:"period,omitempty"`
}

type CreateComplaintRequestBody struct {
	Subject     string `form:"subject" binding:"required"`
	Description string `form:"description" binding:"required"`
}

type ResolveComplaintRequestBody struct {
	Resolution string `json:"resolution" binding:"required"`
}

type CreateReviewRequestBody struct {
	ApartmentID uint   `json:"apartment" binding:"required"`
	Rating      uint8  `json:"rating" binding:"required,min=1,max=5"`
	Comment     string `json:"comment,omitempty"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required"`
}

type CreateSettingRequestBody struct {
	Key   string `json:"key" binding:"required"`
	Value JSONB  `json:"value" binding:"required"`
	Group string `json:"group" binding:"required"`
}

type Oauth2FlowState struct {
	AccountID   uint   `json:"account_id"`
	AccountType string `json:"account_type"`
	Nonce       string `json:"nonce"`
	Redirect    string `json:"redirect"`
}

type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	UID         string   `json:"uid"`
	jwt.RegisteredClaims
}

type APIResponseApartment struct {
	ID          uint            `json:"id,omitempty"`
	BuildingID  uint            `json:"building_id,omitempty"`
	Number      string          `json:"number,omitempty"`
	Type        string          `json:"type,omitempty"`
	Floor       int             `json:"floor,omitempty"`
	Size        float32         `json:"size,omitempty"`
	BaseRent    float64         `json:"base_rent,omitempty"`
	Status      ApartmentStatus `json:"status,omitempty"`
	Description string          `json:"description,omitempty"`
	Photos      JSONBArray      `json:"photos,omitempty"`

	Timestamps
}

type APIResponseVenueBooking struct {
	ID          uint               `json:"id,omitempty"`
	TenantID    uint               `json:"tenant_id,omitempty"`
	VenueType   VenueType          `json:"venue_type,omitempty"`
	BookingDate string             `json:"booking_date,omitempty"`
	BookingTime string             `json:"booking_time,omitempty"`
	EndTime     *string            `json:"end_time,omitempty"`
	Status      VenueBookingStatus `json:"status,omitempty"`
	AdminNotes  *string            `json:"admin_notes,omitempty"`

	Timestamps
}

type Handler func(payload string)
