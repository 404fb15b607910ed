package aws

import (
	"ams/src/lib"
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSendEmail delivers mail through SES. Deployed environments use
// this; local environments go through SMTP.
func SESSendEmail(input *lib.SendMailInput) error {
	client := lib.AWSGetSESClient()
	body := sestypes.Body{}
	if input.Html {
		body.Html = &sestypes.Content{Data: aws.String(input.Body)}
	} else {
		body.Text = &sestypes.Content{Data: aws.String(input.Body)}
	}
	output, err := client.SendEmail(context.TODO(), &ses.SendEmailInput{
		Source: aws.String(input.From),
		Destination: &sestypes.Destination{
			ToAddresses:  input.To,
			CcAddresses:  input.Cc,
			BccAddresses: input.Bcc,
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(input.Subject)},
			Body:    &body,
		},
	})
	if err != nil {
		log.Printf("Error sending email via SES: %s\n", err.Error())
		return err
	}
	log.Printf("Sent email via SES: %s\n", *output.MessageId)
	return nil
}
