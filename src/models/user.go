package models

import (
	"ams/src/types"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

type User struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `json:"name,omitempty"`
	Email         string          `json:"email,omitempty"`
	Role          types.Role      `gorm:"default:'guest'" json:"role,omitempty"`
	UID           string          `json:"uid,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	EmailVerified bool            `json:"email_verified,omitempty"`
	VerifiedAt    time.Time       `json:"verified_at,omitempty"`
	LastActive    *time.Time      `json:"last_active,omitempty"`
	Metadata      *types.Metadata `gorm:"type:jsonb" json:"-"`

	Buildings     []Building     `gorm:"foreignKey:owner_id" json:"buildings,omitempty"`
	VisitRequests []VisitRequest `gorm:"foreignKey:requester_id" json:"visit_requests,omitempty"`
	Tenancies     []Tenant       `gorm:"foreignKey:user_id" json:"tenancies,omitempty"`

	StoredCredentials []Credential `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}

func (u User) WebAuthnID() []byte {
	return []byte(fmt.Sprint(u.ID))
}

func (u User) WebAuthnName() string {
	return u.Email
}

func (u User) WebAuthnDisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func (u User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(u.StoredCredentials))
	for _, stored := range u.StoredCredentials {
		raw, err := stored.UnmarshalRawCredentials()
		if err != nil {
			log.Printf("Skipping credential [%s]: %s\n", stored.ID, err.Error())
			continue
		}
		creds = append(creds, *raw)
	}
	return creds
}

// AddCredential stages a freshly registered passkey on the user. The
// caller persists it afterwards.
func (u *User) AddCredential(cred webauthn.Credential) {
	var raw types.JSONB
	b, err := json.Marshal(&cred)
	if err != nil {
		log.Printf("Could not serialize credential: %s\n", err.Error())
		return
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		log.Printf("Could not map credential: %s\n", err.Error())
		return
	}
	u.StoredCredentials = append(u.StoredCredentials, Credential{
		ID:        string(cred.ID),
		UserID:    u.ID,
		PublicKey: string(cred.PublicKey),
		RawCreds:  &raw,
	})
}
