package main

import (
	"ams/src/common"
	"ams/src/db"
	"ams/src/models"
	"ams/src/types"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func tenantHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/tenants", func(ctx *gin.Context) {
			ownerId := ctx.GetUint("id")
			db := db.GetDb()
			var tenants []models.Tenant
			if err := db.
				Model(&models.Tenant{}).
				Joins("JOIN apartments ON apartments.id = tenants.apartment_id").
				Joins("JOIN buildings ON buildings.id = apartments.building_id").
				Where("buildings.owner_id = ?", ownerId).
				Preload("User").
				Preload("Apartment").
				Order("tenants.created_at desc").
				Find(&tenants).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tenants, "count": len(tenants)})
		}).
		GET("/tenants/me", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var tenant models.Tenant
			if err := db.
				Model(&models.Tenant{}).
				Where(&models.Tenant{UserID: userId}).
				Preload("Apartment").
				Preload("Apartment.Building").
				Order("created_at desc").
				First(&tenant).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tenant})
		}).
		DELETE("/tenants/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ownerId := ctx.GetUint("id")
			if err := verifyTenantOwnership(params.ID, ownerId); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			tenant, err := common.DeleteConfirmed(params.ID)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tenant})
		})
	return g
}

func verifyTenantOwnership(tenantID uint, ownerId uint) error {
	db := db.GetDb()
	var tenant models.Tenant
	if err := db.
		Preload("Apartment").
		Preload("Apartment.Building").
		First(&tenant, tenantID).
		Error; err != nil {
		return fmt.Errorf("Tenant not found")
	}
	if tenant.Apartment == nil || tenant.Apartment.Building == nil || tenant.Apartment.Building.OwnerID != ownerId {
		return fmt.Errorf("tenant does not belong to this owner")
	}
	return nil
}

// currentTenant resolves the caller's active tenancy. Most tenant
// facing routes hang everything off this row.
func currentTenant(tx *gorm.DB, userId uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := tx.
		Model(&models.Tenant{}).
		Where(&models.Tenant{UserID: userId}).
		Where("contract_end >= ?", common.Clock()).
		Order("created_at desc").
		First(&tenant).
		Error; err != nil {
		return nil, fmt.Errorf("no active tenancy for this account")
	}
	return &tenant, nil
}
