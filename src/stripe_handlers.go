package main

import (
	"ams/src/db"
	"ams/src/lib"
	awslib "ams/src/lib/aws"
	"ams/src/models"
	"ams/src/types"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "checkout.session.completed":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			paymentId, err := uuid.Parse(cs.Metadata["payment_id"])
			if err != nil {
				log.Printf("Could not retrieve payment id for session %s: %s\n", cs.ID, err.Error())
				break
			}
			if err := settleRentPayment(paymentId, &cs); err != nil {
				log.Printf("Error settling payment [%s]: %s\n", paymentId, err.Error())
				ctx.Status(http.StatusUnprocessableEntity)
				return
			}
		case "checkout.session.expired":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			db := db.GetDb()
			if err := db.
				Model(&models.Payment{}).
				Where("stripe_session_id = ? AND status = ?", cs.ID, types.PAYMENT_PENDING).
				Updates(map[string]any{
					"status":            types.PAYMENT_UNPAID,
					"stripe_session_id": nil,
				}).
				Error; err != nil {
				log.Printf("Error reverting payment for session %s: %s\n", cs.ID, err.Error())
			}
		default:
			log.Printf("Unhandled event type: %s\n", event.Type)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

// settleRentPayment marks the invoice paid and files a receipt copy.
func settleRentPayment(paymentId uuid.UUID, cs *stripe.CheckoutSession) error {
	conn := db.GetDb()
	var payment models.Payment
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", paymentId).Error; err != nil {
			return fmt.Errorf("Payment not found")
		}
		if payment.Status == types.PAYMENT_PAID {
			return nil
		}
		now := time.Now()
		receipt := fmt.Sprintf(
			"Receipt for rent period %s\nPayment: %s\nSession: %s\nAmount: %.2f %s\nPaid at: %s\n",
			payment.Period, payment.ID, cs.ID, payment.Amount, payment.Currency, now.Format(time.RFC3339),
		)
		key, err := awslib.S3StoreObject([]byte(receipt), "receipts", "txt", "text/plain")
		if err != nil {
			log.Printf("[S3] Error storing receipt for payment %s: %s\n", payment.ID, err.Error())
		}
		updates := map[string]any{
			"status":  types.PAYMENT_PAID,
			"paid_at": now,
		}
		if key != "" {
			updates["receipt_path"] = key
		}
		return tx.Model(&payment).Updates(updates).Error
	})
	if err != nil {
		return err
	}
	rd := lib.GetRedisClient()
	if err := rd.Del(context.Background(), payment.ID.String()).Err(); err != nil {
		log.Printf("[redis] Error clearing checkout cache: %s\n", err.Error())
	}
	return nil
}
