package utils

import (
	"ams/src/db"
	"ams/src/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func GetCredentials(user *models.User) error {
	conn := db.GetDb()
	return conn.
		Model(&models.Credential{}).
		Where(&models.Credential{UserID: user.ID}).
		Find(&user.StoredCredentials).
		Error
}

func GetCredentialsByUser(userId uint) ([]models.Credential, error) {
	var creds []models.Credential
	conn := db.GetDb()
	err := conn.
		Model(&models.Credential{}).
		Where(&models.Credential{UserID: userId}).
		Find(&creds).
		Error
	return creds, err
}

func SaveCredentials(user *models.User) error {
	conn := db.GetDb()
	return conn.Transaction(func(tx *gorm.DB) error {
		for _, cred := range user.StoredCredentials {
			if err := tx.
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&cred).
				Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func RevokeCredential(userId uint, deviceName string) error {
	conn := db.GetDb()
	return conn.
		Where(&models.Credential{UserID: userId, DeviceName: deviceName}).
		Delete(&models.Credential{}).
		Error
}
