package main

import (
	"ams/src/config"
	"ams/src/db"
	awslib "ams/src/lib/aws"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errDuplicateInvoice = errors.New("an invoice already exists for this period")

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/payments", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			tenant, err := currentTenant(db, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var payments []models.Payment
			if err := db.
				Model(&models.Payment{}).
				Where(&models.Payment{TenantID: tenant.ID}).
				Order("due_date desc").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		}).
		GET("/payments/all", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var payments []models.Payment
			if err := db.
				Model(&models.Payment{}).
				Joins("JOIN tenants ON tenants.id = payments.tenant_id").
				Joins("JOIN apartments ON apartments.id = tenants.apartment_id").
				Joins("JOIN buildings ON buildings.id = apartments.building_id").
				Where("buildings.owner_id = ?", ownerId).
				Preload("Tenant").
				Preload("Tenant.User").
				Order("payments.due_date desc").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		}).
		POST("/payments", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			if err := verifyTenantOwnership(body.TenantID, ownerId); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			dueDate, err := time.Parse(config.DATE_PARSE_FORMAT, body.DueDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			currency := body.Currency
			if currency == "" {
				currency = "usd"
			}
			period := body.Period
			if period == "" {
				period = dueDate.Format("2006-01")
			}
			payment := models.Payment{
				TenantID: body.TenantID,
				Amount:   body.Amount,
				Currency: currency,
				Period:   period,
				DueDate:  dueDate,
				Status:   types.PAYMENT_UNPAID,
			}
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				var count int64
				if err := tx.
					Model(&models.Payment{}).
					Where(&models.Payment{TenantID: body.TenantID, Period: period}).
					Count(&count).
					Error; err != nil {
					return err
				}
				if count > 0 {
					return errDuplicateInvoice
				}
				return tx.Create(&payment).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		POST("/payments/:id/pay", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Param("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			tenant, err := currentTenant(db, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var payment models.Payment
			if err := db.
				Model(&models.Payment{}).
				Where(&models.Payment{ID: id, TenantID: tenant.ID}).
				First(&payment).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
				return
			}
			if payment.Status == types.PAYMENT_PAID {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "payment is already settled"})
				return
			}
			url, sessionId, err := utils.CreateRentCheckout(&payment)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url, "session": sessionId}})
		}).
		GET("/payments/:id/receipt", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Param("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var payment models.Payment
			if err := db.
				Model(&models.Payment{}).
				Where("id = ?", id).
				Preload("Tenant").
				First(&payment).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
				return
			}
			if payment.Tenant.UserID != userId {
				if err := verifyTenantOwnership(payment.TenantID, userId); err != nil {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
					return
				}
			}
			if payment.ReceiptPath == nil || *payment.ReceiptPath == "" {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "no receipt for this payment"})
				return
			}
			url, err := awslib.S3PresignGetObject(*payment.ReceiptPath)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url}})
		})
	return g
}
