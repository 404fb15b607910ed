package common

import (
	"ams/src/config"
	"ams/src/db"
	"ams/src/lib"
	awslib "ams/src/lib/aws"
	"ams/src/lib/mailer"
	"ams/src/models"
	"ams/src/models/scopes"
	"ams/src/types"
	"ams/src/utils"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// GenerateMonthlyInvoices creates the unpaid rent row for every active
// tenancy that has no invoice for the current period yet. Runs from
// the daily cron.
func GenerateMonthlyInvoices() {
	now := Clock()
	period := now.Format("2006-01")
	today := now.Format(config.DATE_PARSE_FORMAT)
	dueDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	conn := db.GetDb()
	var tenants []models.Tenant
	if err := conn.
		Model(&models.Tenant{}).
		Scopes(scopes.ActiveTenancies(today)).
		Preload("User").
		Find(&tenants).
		Error; err != nil {
		log.Printf("[RentInvoices] Error retrieving active tenancies: %s\n", err.Error())
		return
	}
	for _, tenant := range tenants {
		var count int64
		if err := conn.
			Model(&models.Payment{}).
			Where(&models.Payment{TenantID: tenant.ID, Period: period}).
			Count(&count).
			Error; err != nil {
			log.Printf("[RentInvoices] Error checking invoices for tenant [%d]: %s\n", tenant.ID, err.Error())
			continue
		}
		if count > 0 {
			continue
		}
		payment := models.Payment{
			TenantID: tenant.ID,
			Amount:   tenant.MonthlyRent,
			Period:   period,
			DueDate:  dueDate,
			Status:   types.PAYMENT_UNPAID,
		}
		if err := conn.Create(&payment).Error; err != nil {
			log.Printf("[RentInvoices] Error creating invoice for tenant [%d]: %s\n", tenant.ID, err.Error())
			continue
		}
		payload := types.JSONB{
			"id":     payment.ID.String(),
			"tenant": tenant.ID,
			"period": period,
			"topic":  "rent-due",
		}
		if config.API_ENV == string(types.Development) {
			if err := lib.KafkaProduceMessage("rent_due_producer", utils.WithSuffix("RentDue"), &payload); err != nil {
				log.Printf("[RentInvoices] Error producing message: %s\n", err.Error())
			}
			continue
		}
		body, _ := json.Marshal(&payload)
		if err := lib.SQSProduceMessage(utils.WithSuffix("RentDue"), string(body)); err != nil {
			log.Printf("[RentInvoices] Error sending message to queue: %s\n", err.Error())
		}
	}
}

// MarkOverduePayments flips unpaid invoices past their due date and
// mails the tenant a reminder.
func MarkOverduePayments() {
	today := Clock().Format(config.DATE_PARSE_FORMAT)
	conn := db.GetDb()
	var payments []models.Payment
	if err := conn.
		Model(&models.Payment{}).
		Where("status = ?", types.PAYMENT_UNPAID).
		Where("due_date < ?", today).
		Preload("Tenant").
		Preload("Tenant.User").
		Find(&payments).
		Error; err != nil {
		log.Printf("[RentOverdue] Error retrieving overdue payments: %s\n", err.Error())
		return
	}
	for _, payment := range payments {
		if payment.Tenant.User == nil {
			continue
		}
		go sendRentReminder(&payment)
	}
}

func sendRentReminder(payment *models.Payment) {
	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Rent reminder for %s", payment.Period),
		From:     senderFrom,
		FromName: "noreply",
		To: []string{
			payment.Tenant.User.Email,
		},
		Body: fmt.Sprintf(`
			<p>Your rent payment of %.2f %s for period <b>%s</b> was due on %s.</p>
			<p>You can settle it from your dashboard <a href="%s/payments">here</a></p>
			<p>This is a system-generated message. Do not reply to this email.</p>
			`,
			payment.Amount,
			payment.Currency,
			payment.Period,
			payment.DueDate.Format(config.DATE_PARSE_FORMAT),
			os.Getenv("APP_HOST"),
		),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("[mailer] Error sending message: %s\n", err.Error())
	}
}

func notifyRentDue(paymentId string) {
	conn := db.GetDb()
	var payment models.Payment
	if err := conn.
		Where("id = ?", paymentId).
		Preload("Tenant").
		Preload("Tenant.User").
		First(&payment).
		Error; err != nil {
		log.Printf("[RentDueConsumer] Error retrieving payment [%s]: %s\n", paymentId, err.Error())
		return
	}
	if payment.Tenant.User == nil {
		log.Printf("[RentDueConsumer] No user attached to tenant [%d]. Aborting", payment.TenantID)
		return
	}
	go sendRentReminder(&payment)
	go func() {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return tx.
				Where(&models.JobTask{PayloadID: paymentId}).
				Updates(&models.JobTask{Status: "done"}).
				Error
		})
		if err != nil {
			log.Printf("[RentDueConsumer] Error updating job: %s\n", err.Error())
		}
	}()
}

func KafkaRentDueConsumer(spayload string) {
	if !gjson.Valid(spayload) {
		log.Println("Received invalid json body. Aborting")
		return
	}
	paymentId := gjson.Get(spayload, "id").String()
	log.Printf("[RentDue] payment: %s\n", paymentId)
	notifyRentDue(paymentId)
}

func RentDueConsumer() {
	qname := utils.WithSuffix("RentDue")
	c := awslib.NewSQSConsumer(qname, func(body string) {
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", qname)
			return
		}
		message := gjson.Get(body, "Message").String()
		if message == "" {
			message = body
		}
		paymentId := gjson.Get(message, "id").String()
		log.Printf("[%s] payment: %s\n", qname, paymentId)
		notifyRentDue(paymentId)
	})
	c.Listen()
}

func decodeSendMailInput(spayload string) *lib.SendMailInput {
	toArr := gjson.Get(spayload, "to").Array()
	to := make([]string, 0)
	for _, item := range toArr {
		to = append(to, item.String())
	}
	ccArr := gjson.Get(spayload, "cc").Array()
	cc := make([]string, 0)
	for _, item := range ccArr {
		cc = append(cc, item.String())
	}
	bccArr := gjson.Get(spayload, "bcc").Array()
	bcc := make([]string, 0)
	for _, item := range bccArr {
		bcc = append(bcc, item.String())
	}
	return &lib.SendMailInput{
		From:     gjson.Get(spayload, "from").String(),
		FromName: gjson.Get(spayload, "from-name").String(),
		To:       to,
		Cc:       cc,
		Bcc:      bcc,
		ReplyTo:  gjson.Get(spayload, "reply-to").String(),
		Subject:  gjson.Get(spayload, "subject").String(),
		Body:     gjson.Get(spayload, "body").String(),
		Html:     gjson.Get(spayload, "html").Bool(),
	}
}

func KafkaEmailsToSendConsumer(spayload string) {
	if !gjson.Valid(spayload) {
		log.Println("Received invalid json body. Aborting")
		return
	}
	input := decodeSendMailInput(spayload)
	log.Printf("from [%s] with subject: %s\n", input.From, input.Subject)
	go func() {
		if err := lib.SendMail(input); err != nil {
			log.Printf("[MAILER] error sending email: %s\n", err.Error())
			return
		}
		log.Printf("[MAILER]: an email has been sent to %s\n", input.To)
	}()
}

func EmailsToSendConsumer() {
	qname := utils.WithSuffix("EmailsToSend")
	log.Printf("%s: Listening for messages...", qname)
	c := awslib.NewSQSConsumer(qname, func(spayload string) {
		if !gjson.Valid(spayload) {
			log.Printf("[%s]: Received invalid json body. Aborting", qname)
			return
		}
		input := decodeSendMailInput(spayload)
		go func() {
			if err := awslib.SESSendEmail(input); err != nil {
				log.Printf("[MAILER] error sending email: %s\n", err.Error())
				return
			}
			log.Printf("[MAILER]: an email has been sent to %s\n", input.To)
		}()
	})
	c.Listen()
}
