package common

import (
	"ams/src/config"
	"ams/src/db"
	"ams/src/models"
	"ams/src/types"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// visitTransitions lists the legal status moves of a visit request.
// Rejected and Completed are terminal.
var visitTransitions = map[types.VisitStatus][]types.VisitStatus{
	types.VISIT_PENDING:     {types.VISIT_APPROVED, types.VISIT_RESCHEDULED, types.VISIT_VISITED, types.VISIT_REJECTED},
	types.VISIT_APPROVED:    {types.VISIT_VISITED, types.VISIT_REJECTED},
	types.VISIT_RESCHEDULED: {types.VISIT_VISITED, types.VISIT_REJECTED},
	types.VISIT_VISITED:     {types.VISIT_COMPLETED},
}

func CanTransitionVisit(from, to types.VisitStatus) bool {
	for _, allowed := range visitTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionVisit moves the visit to the target status after checking
// the lifecycle rules. extra carries status-specific column updates.
func TransitionVisit(tx *gorm.DB, visit *models.VisitRequest, to types.VisitStatus, extra map[string]any) error {
	if !CanTransitionVisit(visit.Status, to) {
		return fmt.Errorf("cannot move visit from %s to %s", visit.Status, to)
	}
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	if err := tx.Model(visit).Updates(updates).Error; err != nil {
		return err
	}
	visit.Status = to
	return nil
}

// ConvertToTenant turns a visited request into an active tenancy. The
// whole chain runs in one transaction: tenant row, apartment flip to
// Rented, tenant role grant and visit completion either all land or
// none do.
func ConvertToTenant(visitID uint, body *types.ConvertToTenantRequestBody, agreementPath *string) (*models.Tenant, error) {
	var tenant models.Tenant
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		var visit models.VisitRequest
		if err := tx.First(&visit, visitID).Error; err != nil {
			return fmt.Errorf("VisitRequest not found")
		}
		if visit.Status != types.VISIT_VISITED {
			return fmt.Errorf("cannot move visit from %s to %s", visit.Status, types.VISIT_COMPLETED)
		}
		var user models.User
		if err := tx.First(&user, visit.RequesterID).Error; err != nil {
			return fmt.Errorf("User not found")
		}
		var apartment models.Apartment
		if err := tx.First(&apartment, visit.ApartmentID).Error; err != nil {
			return fmt.Errorf("Apartment not found")
		}
		var building models.Building
		if err := tx.First(&building, apartment.BuildingID).Error; err != nil {
			return fmt.Errorf("Building not found")
		}
		if apartment.Status != types.APARTMENT_AVAILABLE {
			return fmt.Errorf("apartment %s is not available", apartment.Number)
		}

		contractStart, err := time.Parse(config.DATE_PARSE_FORMAT, body.ContractStart)
		if err != nil {
			return fmt.Errorf("invalid contract start date: %s", err.Error())
		}
		contractEnd := contractStart.AddDate(0, body.RentPlanMonths, 0)

		tenant = models.Tenant{
			UserID:            user.ID,
			ApartmentID:       apartment.ID,
			ContractStart:     contractStart,
			ContractEnd:       contractEnd,
			MonthlyRent:       body.MonthlyRent,
			RentPlanMonths:    body.RentPlanMonths,
			AgreementDocument: agreementPath,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&apartment).
			Update("status", types.APARTMENT_RENTED).
			Error; err != nil {
			return err
		}
		if err := GrantRole(tx, user.ID, types.ROLE_TENANT); err != nil {
			return err
		}
		if err := TransitionVisit(tx, &visit, types.VISIT_COMPLETED, nil); err != nil {
			return err
		}
		trail := models.TrailLog{
			Type:      "tenancy:created",
			Initiator: fmt.Sprintf("user:%d", user.ID),
			Group:     fmt.Sprintf("building:%d", building.ID),
			Detail:    fmt.Sprintf("visit %d converted to tenancy for apartment %s", visit.ID, apartment.Number),
		}
		if err := tx.Create(&trail).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GrantRole records the role for the user. Re-granting an already held
// role is a no-op.
func GrantRole(tx *gorm.DB, userID uint, role types.Role) error {
	grant := models.UserRole{UserID: userID, Role: role}
	if err := tx.
		Where(&models.UserRole{UserID: userID, Role: role}).
		FirstOrCreate(&grant).
		Error; err != nil {
		return err
	}
	if err := tx.
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role).
		Error; err != nil {
		return err
	}
	return nil
}

// DeleteConfirmed soft-terminates a tenancy: the contract is ended as
// of yesterday, the user drops back to guest and the apartment opens
// up again. The row itself stays for payment history.
func DeleteConfirmed(tenantID uint) (*models.Tenant, error) {
	var tenant models.Tenant
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").First(&tenant, tenantID).Error; err != nil {
			return fmt.Errorf("Tenant not found")
		}
		yesterday := Clock().AddDate(0, 0, -1)
		if err := tx.
			Model(&tenant).
			Update("contract_end", yesterday).
			Error; err != nil {
			return err
		}
		if err := tx.
			Where(&models.UserRole{UserID: tenant.UserID, Role: types.ROLE_TENANT}).
			Delete(&models.UserRole{}).
			Error; err != nil {
			return err
		}
		if err := GrantRole(tx, tenant.UserID, types.ROLE_GUEST); err != nil {
			return err
		}
		if err := tx.
			Model(&models.Apartment{}).
			Where("id = ?", tenant.ApartmentID).
			Update("status", types.APARTMENT_AVAILABLE).
			Error; err != nil {
			return err
		}
		trail := models.TrailLog{
			Type:      "tenancy:terminated",
			Initiator: fmt.Sprintf("user:%d", tenant.UserID),
			Group:     fmt.Sprintf("apartment:%d", tenant.ApartmentID),
			Detail:    fmt.Sprintf("tenancy %d terminated effective %s", tenant.ID, yesterday.Format(config.DATE_PARSE_FORMAT)),
		}
		if err := tx.Create(&trail).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Terminated tenancy [%d]\n", tenant.ID)
	return &tenant, nil
}
