package models

import "github.com/google/uuid"

// TrailLog records lifecycle transitions (visit moderation, tenancy
// conversion and termination) for auditing.
type TrailLog struct {
	ID        uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	Type      string
	Initiator string
	Group     string
	Detail    string
}
