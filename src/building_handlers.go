package main

import (
	"ams/src/db"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func buildingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/buildings", func(ctx *gin.Context) {
			var body types.CreateBuildingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			id, err := utils.CreateNewBuilding(ctx, &body, ownerId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": id}})
		}).
		GET("/buildings", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var buildings []models.Building
			if err := db.
				Model(&models.Building{}).
				Where(&models.Building{OwnerID: ownerId}).
				Preload("Apartments").
				Order("created_at desc").
				Find(&buildings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": buildings, "count": len(buildings)})
		}).
		GET("/buildings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var building models.Building
			ss := db.Session(&gorm.Session{PrepareStmt: true})
			if err := ss.
				Model(&models.Building{}).
				Where(&models.Building{ID: params.ID, OwnerID: ownerId}).
				Preload("Apartments").
				First(&building).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": building})
		}).
		PUT("/buildings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CreateBuildingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var building models.Building
				if err := tx.
					Where(&models.Building{ID: params.ID, OwnerID: ownerId}).
					First(&building).
					Error; err != nil {
					return err
				}
				return tx.
					Model(&building).
					Updates(&models.Building{
						Name:    body.Name,
						Address: body.Address,
						City:    body.City,
						Floors:  body.Floors,
					}).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/buildings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var building models.Building
				if err := tx.
					Where(&models.Building{ID: params.ID, OwnerID: ownerId}).
					First(&building).
					Error; err != nil {
					return err
				}
				return tx.Delete(&building).Error
			})
			if err != nil {
				log.Printf("Could not delete building [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
