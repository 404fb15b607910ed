package main

import (
	"ams/src/common"
	"ams/src/db"
	"ams/src/lib"
	"ams/src/middlewares"
	"ams/src/models"
	"ams/src/types"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func venueHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/venues/bookings", func(ctx *gin.Context) {
			var body types.CreateVenueBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			tenant, err := currentTenant(conn, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			booking := models.VenueBooking{
				TenantID:    tenant.ID,
				VenueType:   body.VenueType,
				BookingDate: body.BookingDate,
				BookingTime: body.BookingTime,
				EndTime:     body.EndTime,
				Status:      types.VENUE_BOOKING_PENDING,
			}
			err = conn.Transaction(func(tx *gorm.DB) error {
				conflict, err := common.CheckBookingConflict(tx, &booking, 0)
				if err != nil {
					return err
				}
				if conflict != nil {
					return fmt.Errorf("This time slot is already booked")
				}
				return tx.Create(&booking).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		GET("/venues/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			tenant, err := currentTenant(conn, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var bookings []models.VenueBooking
			if err := conn.
				Model(&models.VenueBooking{}).
				Where(&models.VenueBooking{TenantID: tenant.ID}).
				Order("booking_date desc, booking_time desc").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/venues/bookings/all", middlewares.RequireRoles(types.ROLE_OWNER), func(ctx *gin.Context) {
			conn := db.GetDb()
			var bookings []models.VenueBooking
			if err := conn.
				Model(&models.VenueBooking{}).
				Preload("Tenant").
				Preload("Tenant.User").
				Order("booking_date desc, booking_time desc").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/venues/:venue/notice", func(ctx *gin.Context) {
			venue := ctx.Param("venue")
			date := ctx.Query("date")
			if date == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
				return
			}
			rd := lib.GetRedisClient()
			key := fmt.Sprintf("venue:%s:%s:notice", venue, date)
			notice, err := rd.Get(ctx, key).Result()
			if err == redis.Nil {
				ctx.JSON(http.StatusOK, gin.H{"data": nil})
				return
			}
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": notice})
		}).
		POST("/venues/bookings/:id/approve", middlewares.RequireRoles(types.ROLE_OWNER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ModerateVenueBookingRequestBody
			_ = ctx.ShouldBindJSON(&body)
			var notes *string
			if body.AdminNotes != "" {
				notes = &body.AdminNotes
			}
			booking, notice, err := common.ApproveVenueBooking(params.ID, notes)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking, "notice": notice})
		}).
		POST("/venues/bookings/:id/reject", middlewares.RequireRoles(types.ROLE_OWNER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ModerateVenueBookingRequestBody
			_ = ctx.ShouldBindJSON(&body)
			conn := db.GetDb()
			err := conn.Transaction(func(tx *gorm.DB) error {
				var booking models.VenueBooking
				if err := tx.First(&booking, params.ID).Error; err != nil {
					return fmt.Errorf("VenueBooking not found")
				}
				if booking.Status != types.VENUE_BOOKING_PENDING {
					return fmt.Errorf("only pending bookings can be rejected")
				}
				updates := map[string]any{"status": types.VENUE_BOOKING_REJECTED}
				if body.AdminNotes != "" {
					updates["admin_notes"] = body.AdminNotes
				}
				return tx.Model(&booking).Updates(updates).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/venues/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateVenueBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			tenant, err := currentTenant(conn, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			err = conn.Transaction(func(tx *gorm.DB) error {
				var booking models.VenueBooking
				if err := tx.
					Where(&models.VenueBooking{ID: params.ID, TenantID: tenant.ID}).
					First(&booking).
					Error; err != nil {
					return fmt.Errorf("VenueBooking not found")
				}
				if booking.Status != types.VENUE_BOOKING_PENDING {
					return fmt.Errorf("only pending bookings can be edited")
				}
				candidate := booking
				candidate.BookingDate = body.BookingDate
				candidate.BookingTime = body.BookingTime
				candidate.EndTime = body.EndTime
				conflict, err := common.CheckBookingConflict(tx, &candidate, booking.ID)
				if err != nil {
					return err
				}
				if conflict != nil {
					return fmt.Errorf("This time slot is already booked")
				}
				return tx.Model(&booking).Updates(map[string]any{
					"booking_date": body.BookingDate,
					"booking_time": body.BookingTime,
					"end_time":     body.EndTime,
				}).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/venues/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			tenant, err := currentTenant(conn, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			err = conn.Transaction(func(tx *gorm.DB) error {
				var booking models.VenueBooking
				if err := tx.
					Where(&models.VenueBooking{ID: params.ID, TenantID: tenant.ID}).
					First(&booking).
					Error; err != nil {
					return fmt.Errorf("VenueBooking not found")
				}
				return tx.Delete(&booking).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
