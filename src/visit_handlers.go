package main

import (
	"ams/src/common"
	"ams/src/config"
	"ams/src/db"
	"ams/src/lib"
	awslib "ams/src/lib/aws"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/calendar/v3"
	"gorm.io/gorm"
)

func visitHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/visits", func(ctx *gin.Context) {
			var body types.CreateVisitRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			visit := models.VisitRequest{
				RequesterID:   userId,
				ApartmentID:   body.ApartmentID,
				RequestedDate: body.RequestedDate,
				RequestedTime: body.RequestedTime,
			}
			if body.Notes != "" {
				visit.Notes = &body.Notes
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				var apartment models.Apartment
				if err := tx.First(&apartment, body.ApartmentID).Error; err != nil {
					return fmt.Errorf("Apartment not found")
				}
				if apartment.Status != types.APARTMENT_AVAILABLE {
					return fmt.Errorf("apartment is not available for visits")
				}
				return tx.Create(&visit).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": visit.ID}})
		}).
		GET("/visits", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var visits []models.VisitRequest
			if err := db.
				Model(&models.VisitRequest{}).
				Where(&models.VisitRequest{RequesterID: userId}).
				Preload("Apartment").
				Preload("Apartment.Building").
				Order("created_at desc").
				Find(&visits).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": visits, "count": len(visits)})
		}).
		GET("/visits/requests", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var visits []models.VisitRequest
			if err := db.
				Model(&models.VisitRequest{}).
				Joins("JOIN apartments ON apartments.id = visit_requests.apartment_id").
				Joins("JOIN buildings ON buildings.id = apartments.building_id").
				Where("buildings.owner_id = ?", ownerId).
				Preload("Requester").
				Preload("Apartment").
				Order("visit_requests.created_at desc").
				Find(&visits).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": visits, "count": len(visits)})
		}).
		POST("/visits/:id/approve", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var visit models.VisitRequest
			err := db.Transaction(func(tx *gorm.DB) error {
				v, err := ownedVisit(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				visit = *v
				return common.TransitionVisit(tx, &visit, types.VISIT_APPROVED, nil)
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			go func() {
				if _, err := utils.GenerateVisitPass(&visit); err != nil {
					log.Printf("Error generating visit pass for [%d]: %s\n", visit.ID, err.Error())
				}
			}()
			go syncVisitToCalendar(&visit, ownerId)
			ctx.JSON(http.StatusOK, gin.H{"data": visit})
		}).
		POST("/visits/:id/suggest", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.SuggestVisitTimeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				visit, err := ownedVisit(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				return common.TransitionVisit(tx, visit, types.VISIT_RESCHEDULED, map[string]any{
					"suggested_date": body.SuggestedDate,
					"suggested_time": body.SuggestedTime,
				})
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/visits/:id/visited", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				visit, err := ownedVisit(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				return common.TransitionVisit(tx, visit, types.VISIT_VISITED, nil)
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/visits/:id/reject", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.RejectVisitRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				visit, err := ownedVisit(tx, params.ID, ownerId)
				if err != nil {
					return err
				}
				return common.TransitionVisit(tx, visit, types.VISIT_REJECTED, map[string]any{
					"reject_reason": body.Reason,
				})
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/visits/:id/convert", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ConvertToTenantRequestBody
			if err := ctx.ShouldBind(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			if _, err := ownedVisit(db, params.ID, ownerId); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			var agreementPath *string
			if header, err := ctx.FormFile("agreement"); err == nil {
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
				key, err := awslib.S3StoreObject(data, "agreements", ext, header.Header.Get("Content-Type"))
				if err != nil {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
					return
				}
				agreementPath = &key
			}
			tenant, err := common.ConvertToTenant(params.ID, &body, agreementPath)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": tenant})
		})
	return g
}

// ownedVisit loads a visit and verifies its apartment belongs to the
// caller.
func ownedVisit(tx *gorm.DB, id uint, ownerId uint) (*models.VisitRequest, error) {
	var visit models.VisitRequest
	if err := tx.
		Preload("Apartment").
		Preload("Apartment.Building").
		Preload("Requester").
		First(&visit, id).
		Error; err != nil {
		return nil, fmt.Errorf("VisitRequest not found")
	}
	if visit.Apartment == nil || visit.Apartment.Building == nil || visit.Apartment.Building.OwnerID != ownerId {
		return nil, fmt.Errorf("visit does not belong to this owner")
	}
	return &visit, nil
}

// syncVisitToCalendar mirrors an approved visit into the owner's
// dedicated calendar. Owners who never connected one are skipped.
func syncVisitToCalendar(visit *models.VisitRequest, ownerId uint) {
	rd := lib.GetRedisClient()
	calId, err := rd.Get(context.Background(), fmt.Sprintf("user::%d:calendar:id", ownerId)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[calendar] Error reading calendar id for owner [%d]: %s\n", ownerId, err.Error())
		}
		return
	}
	date := visit.RequestedDate
	clock := visit.RequestedTime
	if visit.SuggestedDate != nil && *visit.SuggestedDate != "" {
		date = *visit.SuggestedDate
	}
	if visit.SuggestedTime != nil && *visit.SuggestedTime != "" {
		clock = *visit.SuggestedTime
	}
	layout := fmt.Sprintf("%s %s", config.DATE_PARSE_FORMAT, config.CLOCK_PARSE_FORMAT)
	start, err := time.ParseInLocation(layout, fmt.Sprintf("%s %s", date, clock), time.Local)
	if err != nil {
		log.Printf("[calendar] Error parsing schedule for visit [%d]: %s\n", visit.ID, err.Error())
		return
	}
	event := &calendar.Event{
		Summary:     fmt.Sprintf("Apartment visit #%d", visit.ID),
		Description: fmt.Sprintf("Visit request %d for apartment %d", visit.ID, visit.ApartmentID),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)},
	}
	if err := lib.GAPIAddEvent(calId, event, nil); err != nil {
		log.Printf("[calendar] Error adding event for visit [%d]: %s\n", visit.ID, err.Error())
	}
}
