package boot

import (
	"ams/src/common"
	"ams/src/config"
	"ams/src/db"
	"ams/src/lib"
	awslib "ams/src/lib/aws"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.Building{},
		&models.Apartment{},
		&models.VisitRequest{},
		&models.Tenant{},
		&models.Payment{},
		&models.VenueBooking{},
		&models.Complaint{},
		&models.Review{},
		&models.Notification{},
		&models.Credential{},
		&models.Token{},
		&models.JobTask{},
		&models.Setting{},
		&models.TrailLog{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	SeedRoles(db)
	return db
}

// SeedRoles makes sure the three built-in roles exist.
func SeedRoles(conn *gorm.DB) {
	for _, name := range []types.Role{types.ROLE_OWNER, types.ROLE_TENANT, types.ROLE_GUEST} {
		role := models.Role{Name: string(name)}
		if err := conn.FirstOrCreate(&role, models.Role{Name: string(name)}).Error; err != nil {
			log.Printf("Error seeding role %s: %s\n", name, err.Error())
		}
	}
}

// InitSecrets pulls the database password before the first connection
// opens. No-op when AMS_DB_SECRET_ID is unset.
func InitSecrets() {
	secretId := os.Getenv("AMS_DB_SECRET_ID")
	if secretId == "" {
		return
	}
	secret, err := lib.GetSecretString(secretId)
	if err != nil {
		log.Printf("Error retrieving database secret: %s\n", err.Error())
		return
	}
	config.SetDatabasePassword(secret)
}

func InitBroker() {
	go RecoverQueuedJobs()
	go UpdateExpiredJobs()
	if config.API_ENV == string(types.Development) {
		go lib.KafkaCreateTopics(
			utils.WithSuffix("RentDue"),
			utils.WithSuffix("EmailsToSend"),
			utils.WithSuffix("VenueUnavailable"),
		)
		lib.KafkaSubscribe("rent_due", common.KafkaRentDueConsumer, utils.WithSuffix("RentDue"))
		lib.KafkaSubscribe("emails", common.KafkaEmailsToSendConsumer, utils.WithSuffix("EmailsToSend"))
		return
	}
	go common.RentDueConsumer()
	go common.EmailsToSendConsumer()
	go func() {
		sub := awslib.NewSNSSubscriber(utils.WithSuffix("VenueUnavailable"))
		if sub == nil {
			return
		}
		endpoint := os.Getenv("VENUE_NOTICE_ENDPOINT")
		if endpoint == "" {
			return
		}
		if _, err := sub.Subscribe("sqs", endpoint); err != nil {
			log.Printf("Error subscribing to notice topic: %s\n", err.Error())
		}
	}()
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	if _, err := lib.CreateCronJob(common.GenerateMonthlyInvoices, 24*time.Hour); err != nil {
		log.Printf("Error scheduling invoice job: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob(common.MarkOverduePayments, 24*time.Hour); err != nil {
		log.Printf("Error scheduling overdue job: %s\n", err.Error())
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}

// RecoverQueuedJobs re-queues pending one-shot jobs after a restart.
func RecoverQueuedJobs() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	db := db.GetDb()
	ss := db.Session(&gorm.Session{PrepareStmt: true})
	var jobTasks []models.JobTask
	today := time.Now()
	in1m := today.Add(1 * time.Minute)
	in3months := today.Add((24 * 30 * 3) * time.Hour)
	err = ss.
		Model(&models.JobTask{}).Select("id", "payload", "runs_at").
		Where(&models.JobTask{Status: "pending", JobType: "OneTimeJobStartDateTime"}).
		Where("runs_at BETWEEN ? AND ?", in1m, in3months).
		Order("runs_at asc").
		Limit(100).
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error retrieving jobs: %s\n", err.Error())
		return err
	}
	log.Printf("Found %d pending jobs", len(jobTasks))
	for _, jobTask := range jobTasks {
		log.Printf("Queueing: %s\n", jobTask.ID.String())
		payload := jobTask.Payload
		jobDef := gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(jobTask.RunsAt))
		jt := gocron.NewTask(func() {
			log.Println("Running scheduled task")
			err := lib.KafkaProduceMessage(payload["producerClientId"].(string), payload["topic"].(string), &payload)
			if err != nil {
				log.Printf("Error on producing message: %s\n", err.Error())
				return
			}
		})
		job, err := sched.NewJob(
			jobDef,
			jt,
		)
		if err != nil {
			log.Printf("Failed to schedule job [%s]. Skipping: %s\n", jobTask.ID.String(), err.Error())
			continue
		}
		log.Printf("Added job to scheduler: name=%s id=%s job=%s\n", jobTask.Name, jobTask.ID.String(), job.ID().String())
	}

	return nil
}

func UpdateExpiredJobs() {
	db := db.GetDb()
	err := db.
		Transaction(func(tx *gorm.DB) error {
			return tx.Model(&models.JobTask{}).
				Where("status", "pending").
				Where("runs_at < ?", time.Now()).
				Update("status", "expired").Error
		})
	if err != nil {
		log.Printf("Error while processing expired jobs: %s\n", err.Error())
	}
}
