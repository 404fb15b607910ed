package main

import (
	"ams/src/db"
	"ams/src/lib"
	awslib "ams/src/lib/aws"
	"ams/src/middlewares"
	"ams/src/models"
	"ams/src/types"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func complaintHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/complaints", func(ctx *gin.Context) {
			var body types.CreateComplaintRequestBody
			if err := ctx.ShouldBind(&body); err != nil {
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
			complaint := models.Complaint{
				TenantID:    tenant.ID,
				Subject:     body.Subject,
				Description: body.Description,
				Status:      types.COMPLAINT_PENDING,
			}
			if header, err := ctx.FormFile("attachment"); err == nil {
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
				key, err := awslib.S3StoreObject(data, "complaints", ext, header.Header.Get("Content-Type"))
				if err != nil {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
					return
				}
				complaint.Attachment = &key
			}
			if err := conn.Create(&complaint).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": complaint})
		}).
		GET("/complaints", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			conn := db.GetDb()
			tenant, err := currentTenant(conn, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var complaints []models.Complaint
			if err := conn.
				Model(&models.Complaint{}).
				Where(&models.Complaint{TenantID: tenant.ID}).
				Order("created_at desc").
				Find(&complaints).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": complaints, "count": len(complaints)})
		}).
		GET("/complaints/all", middlewares.RequireRoles(types.ROLE_OWNER), func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			conn := db.GetDb()
			var complaints []models.Complaint
			if err := conn.
				Model(&models.Complaint{}).
				Joins("JOIN tenants ON tenants.id = complaints.tenant_id").
				Joins("JOIN apartments ON apartments.id = tenants.apartment_id").
				Joins("JOIN buildings ON buildings.id = apartments.building_id").
				Where("buildings.owner_id = ?", ownerId).
				Preload("Tenant").
				Preload("Tenant.User").
				Order("complaints.created_at desc").
				Find(&complaints).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": complaints, "count": len(complaints)})
		}).
		POST("/complaints/:id/resolve", middlewares.RequireRoles(types.ROLE_OWNER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ResolveComplaintRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			conn := db.GetDb()
			var complaint models.Complaint
			err := conn.Transaction(func(tx *gorm.DB) error {
				if err := tx.Preload("Tenant").First(&complaint, params.ID).Error; err != nil {
					return fmt.Errorf("Complaint not found")
				}
				if complaint.Status == types.COMPLAINT_RESOLVED {
					return fmt.Errorf("complaint is already resolved")
				}
				return tx.Model(&complaint).Updates(map[string]any{
					"status":     types.COMPLAINT_RESOLVED,
					"resolution": body.Resolution,
				}).Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			go func() {
				client := lib.GetPusherClient()
				channel := fmt.Sprintf("tenant-%d", complaint.TenantID)
				if err := client.Trigger(channel, "complaint:resolved", map[string]string{
					"subject":    complaint.Subject,
					"resolution": body.Resolution,
				}); err != nil {
					log.Printf("[pusher] Error triggering event: %s\n", err.Error())
				}
			}()
			ctx.Status(http.StatusNoContent)
		})
	return g
}
