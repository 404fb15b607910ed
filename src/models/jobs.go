package models

import (
	"ams/src/db"
	"ams/src/lib"
	"ams/src/types"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobTask struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	Name          string      `json:"-"`
	JobType       string      `json:"-"`
	RunsAt        time.Time   `json:"-"`
	HandlerParams []any       `gorm:"type:jsonb" json:"-"`
	PayloadID     string      `json:"-"`
	Payload       types.JSONB `gorm:"type:jsonb" json:"-"`
	Source        string      `json:"-"`
	SourceType    string      `json:"-"`
	Status        string      `gorm:"default:'pending'" json:"-"`
	Topic         string      `json:"-"`
}

// CreateAndEnqueueJobTask persists the task and registers its schedule.
// Used for contract-expiry and rent-due follow-ups.
func (self *JobTask) CreateAndEnqueueJobTask(jobTask JobTask) (string, error) {
	var jobID string
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		pBytes, err := json.Marshal(jobTask.Payload)
		if err != nil {
			log.Printf("Failed to marshal payload: %s\n", err.Error())
			return err
		}
		sRunsAt := jobTask.RunsAt.Format("2006-01-02T15:04:05")
		sPayload := string(pBytes)
		sid, err := lib.CreateSchedule(jobTask.Name, jobTask.RunsAt, sRunsAt, jobTask.Topic, sPayload)
		if err != nil {
			log.Printf("Error creating schedule for job %s: %s\n", jobTask.Name, err.Error())
			return err
		}
		jobID = sid.String()
		jobTask.ID = *sid
		jobTask.Payload["JobID"] = jobID
		err = tx.Create(&jobTask).Error
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Printf("Created schedule for job %s with name %s at %s\n", jobID, jobTask.Name, jobTask.RunsAt)
	return jobID, nil
}
