package config

import (
	"fmt"
	"os"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := GetDatabasePassword()
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"
const DATE_PARSE_FORMAT = "2006-01-02"
const CLOCK_PARSE_FORMAT = "15:04"

// VENUE_SLOT_DURATION is the assumed length of a venue booking with no
// explicit end time. The same value drives the conflict check and the
// occupied window announced on approval.
const VENUE_SLOT_DURATION = 2 * time.Hour

// VENUE_SLOT_BUFFER is added on each side of an approved booking's
// occupied window when composing the unavailability notice.
const VENUE_SLOT_BUFFER = 1 * time.Hour

var (
	API_ENV             = os.Getenv("API_ENV")
	API_HOST            = os.Getenv("API_HOST")
	API_DOMAIN          = os.Getenv("API_DOMAIN")
	APP_HOST            = os.Getenv("APP_HOST")
	API_SECRET          = os.Getenv("API_SECRET")
	GAPI_API_KEY        = os.Getenv("GAPI_API_KEY")
	OAUTH_CLIENT_ID     = os.Getenv("OAUTH_CLIENT_ID")
	OAUTH_CLIENT_SECRET = os.Getenv("OAUTH_CLIENT_SECRET")
)

var secretDatabasePassword string

// GetDatabasePassword prefers the Secrets Manager value when
// AMS_DB_SECRET_ID names a secret, falling back to the plain environment
// variable for local runs.
func GetDatabasePassword() string {
	if os.Getenv("AMS_DB_SECRET_ID") != "" && secretDatabasePassword != "" {
		return secretDatabasePassword
	}
	return os.Getenv("DATABASE_PASSWORD")
}

// SetDatabasePassword is called from boot once the secret has been resolved.
func SetDatabasePassword(p string) {
	secretDatabasePassword = p
}
