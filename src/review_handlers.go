package main

import (
	"ams/src/db"
	"ams/src/models"
	"ams/src/types"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errNotYourApartment = errors.New("only current or past tenants of the apartment can review it")

func reviewHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/reviews", func(ctx *gin.Context) {
			var body types.CreateReviewRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			var review models.Review
			err := conn.Transaction(func(tx *gorm.DB) error {
				var tenant models.Tenant
				if err := tx.
					Model(&models.Tenant{}).
					Where(&models.Tenant{UserID: userId, ApartmentID: body.ApartmentID}).
					Order("created_at desc").
					First(&tenant).
					Error; err != nil {
					return errNotYourApartment
				}
				review = models.Review{
					TenantID:    tenant.ID,
					ApartmentID: body.ApartmentID,
					Rating:      body.Rating,
					Comment:     body.Comment,
				}
				return tx.Create(&review).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": review})
		}).
		GET("/reviews", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			var reviews []models.Review
			if err := conn.
				Model(&models.Review{}).
				Joins("JOIN tenants ON tenants.id = reviews.tenant_id").
				Where("tenants.user_id = ?", userId).
				Order("reviews.created_at desc").
				Find(&reviews).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reviews, "count": len(reviews)})
		})
	return g
}
