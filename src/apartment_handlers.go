package main

import (
	"ams/src/db"
	awslib "ams/src/lib/aws"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var apartmentSortColumns = map[string]string{
	"rent":    "base_rent",
	"size":    "size",
	"floor":   "floor",
	"created": "created_at",
}

func apartmentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/apartments", func(ctx *gin.Context) {
			var body types.CreateApartmentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			id, err := utils.CreateNewApartment(ctx, &body, ownerId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": id}})
		}).
		PUT("/apartments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CreateApartmentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				apartment, err := ownedApartment(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				return tx.
					Model(apartment).
					Updates(&models.Apartment{
						Number:      body.Number,
						Type:        body.Type,
						Floor:       body.Floor,
						Size:        body.Size,
						BaseRent:    body.BaseRent,
						Description: body.Description,
					}).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/apartments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				apartment, err := ownedApartment(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				if apartment.Status == types.APARTMENT_RENTED {
					return fmt.Errorf("apartment is currently rented")
				}
				return tx.Delete(apartment).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			go func() {
				if err := awslib.S3DeleteFolder(fmt.Sprintf("apartments/%d", params.ID)); err != nil {
					log.Printf("[S3] Error deleting apartment folder: %s\n", err.Error())
				}
			}()
			ctx.Status(http.StatusNoContent)
		}).
		POST("/apartments/:id/photos", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			header, err := ctx.FormFile("photo")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			file, err := header.Open()
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
			contentType := header.Header.Get("Content-Type")
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var key string
			err = db.Transaction(func(tx *gorm.DB) error {
				apartment, err := ownedApartment(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				key, err = awslib.S3StoreObject(data, fmt.Sprintf("apartments/%d", apartment.ID), ext, contentType)
				if err != nil {
					return err
				}
				photos := append(apartment.Photos, key)
				return tx.Model(apartment).Update("photos", photos).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"photo": key}})
		}).
		DELETE("/apartments/:id/photos", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			key := ctx.Query("key")
			if key == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				apartment, err := ownedApartment(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				photos := types.JSONBArray{}
				found := false
				for _, p := range apartment.Photos {
					if s, ok := p.(string); ok && s == key {
						found = true
						continue
					}
					photos = append(photos, p)
				}
				if !found {
					return fmt.Errorf("photo not found on this apartment")
				}
				if err := awslib.S3DeleteObject(key); err != nil {
					return err
				}
				return tx.Model(apartment).Update("photos", photos).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}

// browseApartmentRoutes is reachable without an account so guests can
// look around before requesting a visit.
func browseApartmentRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/apartments", func(ctx *gin.Context) {
			var filters types.ApartmentQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.Model(&models.Apartment{}).Preload("Building")
			if filters.Type != "" {
				q = q.Where("type = ?", filters.Type)
			}
			if filters.Floor != nil {
				q = q.Where("floor = ?", *filters.Floor)
			}
			if filters.MinRent != nil {
				q = q.Where("base_rent >= ?", *filters.MinRent)
			}
			if filters.MaxRent != nil {
				q = q.Where("base_rent <= ?", *filters.MaxRent)
			}
			if filters.Status != "" {
				q = q.Where("status = ?", filters.Status)
			}
			if filters.Building != nil {
				q = q.Where("building_id = ?", *filters.Building)
			}
			column, ok := apartmentSortColumns[filters.SortBy]
			if !ok {
				column = "created_at"
			}
			order := "asc"
			if filters.Order == "desc" {
				order = "desc"
			}
			var apartments []models.Apartment
			if err := q.Order(fmt.Sprintf("%s %s", column, order)).Find(&apartments).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": apartments, "count": len(apartments)})
		}).
		GET("/apartments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var apartment models.Apartment
			if err := db.
				Model(&models.Apartment{}).
				Preload("Building").
				First(&apartment, params.ID).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Apartment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": apartment})
		}).
		GET("/apartments/:id/reviews", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var reviews []models.Review
			if err := db.
				Model(&models.Review{}).
				Where(&models.Review{ApartmentID: params.ID}).
				Order("created_at desc").
				Find(&reviews).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reviews, "count": len(reviews)})
		})
	return g
}

// ownedApartment loads an apartment and verifies it sits in one of the
// caller's buildings.
func ownedApartment(tx *gorm.DB, id uint, ownerId uint) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := tx.
		Preload("Building").
		First(&apartment, id).
		Error; err != nil {
		return nil, fmt.Errorf("Apartment not found")
	}
	if apartment.Building == nil || apartment.Building.OwnerID != ownerId {
		return nil, fmt.Errorf("apartment does not belong to this owner")
	}
	return &apartment, nil
}
