package utils

import (
	"ams/src/config"
	"ams/src/db"
	"ams/src/lib"
	awslib "ams/src/lib/aws"
	"ams/src/models"
	"ams/src/types"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/stripe/stripe-go/v82"
	"github.com/yeqown/go-qrcode"
	"googlemaps.github.io/maps"
	"gorm.io/gorm"
)

func IsProd() bool {
	return config.API_ENV == string(types.Production)
}

// WithSuffix namespaces queue and topic names per environment so the
// deployments do not consume each other's messages.
func WithSuffix(name string) string {
	if IsProd() {
		return name
	}
	return fmt.Sprintf("%s_%s", name, config.API_ENV)
}

func GenerateJWT(user *models.User) (string, error) {
	expiry := time.Now().Add(24 * time.Hour)
	claims := types.Claims{
		Username: user.Email,
		Role:     string(user.Role),
		UID:      user.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func VenueDisplayName(venue types.VenueType) string {
	words := strings.Split(string(venue), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// CreateNewBuilding persists the building with a unique slug and
// geocoded coordinates for the map view.
func CreateNewBuilding(ctx *gin.Context, params *types.CreateBuildingRequestBody, ownerId uint) (uint, error) {
	building := models.Building{
		Name:    params.Name,
		Address: params.Address,
		City:    params.City,
		Floors:  params.Floors,
		OwnerID: ownerId,
		Slug:    slug.Make(params.Name),
	}
	if cli, err := lib.GetMapsClient(); err == nil {
		results, err := cli.Geocode(context.Background(), &maps.GeocodingRequest{
			Address: fmt.Sprintf("%s, %s", params.Address, params.City),
		})
		if err != nil {
			log.Printf("Error geocoding address for building: %s\n", err.Error())
		} else if len(results) > 0 {
			building.Lat = results[0].Geometry.Location.Lat
			building.Lng = results[0].Geometry.Location.Lng
		}
	}

	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, ownerId).Error; err != nil {
			return fmt.Errorf("User not found")
		}
		if err := tx.Create(&building).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return building.ID, nil
}

func CreateNewApartment(ctx *gin.Context, params *types.CreateApartmentRequestBody, ownerId uint) (uint, error) {
	apartment := models.Apartment{
		BuildingID:  params.BuildingID,
		Number:      params.Number,
		Type:        params.Type,
		Floor:       params.Floor,
		Size:        params.Size,
		BaseRent:    params.BaseRent,
		Description: params.Description,
		Status:      types.APARTMENT_AVAILABLE,
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var building models.Building
		if err := tx.First(&building, params.BuildingID).Error; err != nil {
			return fmt.Errorf("Building not found")
		}
		if building.OwnerID != ownerId {
			return fmt.Errorf("building %s does not belong to this owner", building.Name)
		}
		if err := tx.Create(&apartment).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return apartment.ID, nil
}

// GenerateVisitPass renders an encrypted QR pass for an approved
// visit and stores it in the blob store. Returns the stored key.
func GenerateVisitPass(visit *models.VisitRequest) (string, error) {
	key := []byte(config.API_SECRET)
	rawText := fmt.Sprintf("visit:%d:%d:%s", visit.ID, visit.ApartmentID, visit.RequestedDate)
	encryptedMessage, err := EncryptMessage(key, rawText)
	if err != nil {
		log.Printf("Error encrypting message: %s\n", err.Error())
		return "", err
	}
	qrc, err := qrcode.New(encryptedMessage)
	if err != nil {
		return "", err
	}
	wd, _ := os.Getwd()
	tempdir := os.Getenv("TEMP_DIR")
	filename := fmt.Sprintf("%s.jpeg", uuid.New().String())
	filepath := path.Join(wd, tempdir, filename)
	if err = qrc.Save(filepath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		return "", err
	}
	defer os.Remove(filepath)
	data, err := os.ReadFile(filepath)
	if err != nil {
		return "", err
	}
	stored, err := awslib.S3StoreObject(data, "passes", ".jpeg", "image/jpeg")
	if err != nil {
		return "", err
	}
	rd := lib.GetRedisClient()
	rd.SetEx(context.Background(), fmt.Sprintf("visit:%d:pass", visit.ID), stored, 72*time.Hour)
	return stored, nil
}

// CreateRentCheckout opens a Stripe Checkout session for an unpaid
// rent invoice and links the session back to the payment row.
func CreateRentCheckout(payment *models.Payment) (*string, *string, error) {
	sc := lib.GetStripeClient()
	successUrl := fmt.Sprintf("%s/payments/callback/success", os.Getenv("APP_HOST"))
	currency := payment.Currency
	if currency == "" {
		currency = "usd"
	}
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL: stripe.String(successUrl),
		UIMode:     stripe.String("hosted"),
		Mode:       stripe.String("payment"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(payment.Amount * 100)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Rent for period %s", payment.Period)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"payment_id": payment.ID.String(),
			"tenant_id":  fmt.Sprint(payment.TenantID),
			"period":     payment.Period,
		},
	}
	checkoutSession, err := sc.V1CheckoutSessions.Create(context.Background(), &createParams)
	if err != nil {
		log.Printf("CreateRentCheckout failed: %s\n", err.Error())
		return nil, nil, err
	}
	conn := db.GetDb()
	err = conn.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]any{
				"stripe_session_id": checkoutSession.ID,
				"status":            types.PAYMENT_PENDING,
			}).
			Error
	})
	if err != nil {
		return nil, nil, err
	}
	rd := lib.GetRedisClient()
	if _, err := rd.SetEx(context.Background(), payment.ID.String(), checkoutSession.ID, 10*time.Minute).Result(); err != nil {
		log.Printf("Error caching value [%s]: %s\n", checkoutSession.ID, err.Error())
	}
	return &checkoutSession.URL, &checkoutSession.ID, nil
}

func EncryptMessage(key []byte, message string) (string, error) {
	plaintext := []byte(message)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, plaintext, nil)
	encodedString := hex.EncodeToString(cipherText)

	return encodedString, nil
}

func DecryptMessage(key []byte, message string) (*string, error) {
	cipherText, err := hex.DecodeString(message)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	decryptedData, err := gcm.Open(nil, cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	decodedString := string(decryptedData)

	return &decodedString, nil
}
