package aws

import (
	"ams/src/lib"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3StoreObject writes raw bytes under folder/ and returns the stored
// object key. Folders in use: receipts, complaints, agreements,
// payments, apartments/{id}.
func S3StoreObject(data []byte, folder string, ext string, contentType string) (string, error) {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	key := path.Join(folder, fmt.Sprintf("%s%s", uuid.New().String(), ext))
	client := lib.AWSGetS3Client()
	_, err := client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(assetsBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
		return "", err
	}
	err = s3.NewObjectExistsWaiter(client).Wait(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(key),
	}, time.Minute)
	if err != nil {
		log.Printf("Failed attempt to wait for object %s to exist: %s\n", key, err.Error())
		return "", err
	}
	log.Printf("Added object '%s' to bucket '%s'", key, assetsBucket)
	return key, nil
}

// S3DeleteObject removes one stored object, used when an owner pulls a
// single photo off a listing.
func S3DeleteObject(key string) error {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	client := lib.AWSGetS3Client()
	_, err := client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("Could not delete object [%s]: %s\n", key, err.Error())
		return err
	}
	return nil
}

// S3DeleteFolder removes every object under prefix/. Failures are
// reported per object, not suppressed.
func S3DeleteFolder(prefix string) error {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	client := lib.AWSGetS3Client()
	output, err := client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
		Bucket: aws.String(assetsBucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		log.Printf("[S3] Error retrieving objects for prefix [%s]: %s\n", prefix, err.Error())
		return err
	}
	var failed []string
	for _, object := range output.Contents {
		_, err := client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(assetsBucket),
			Key:    object.Key,
		})
		if err != nil {
			log.Printf("Could not delete object [%s]: %s\n", aws.ToString(object.Key), err.Error())
			failed = append(failed, aws.ToString(object.Key))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d objects under %s: %v", len(failed), prefix, failed)
	}
	return nil
}

func S3PresignGetObject(key string) (*string, error) {
	assetsBucket := os.Getenv("S3_ASSETS_BUCKET")
	client := lib.AWSGetS3Client()
	pre := s3.NewPresignClient(client)
	r, err := pre.PresignGetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = time.Duration(3600 * time.Second)
	})
	if err != nil {
		log.Printf("Could not generate presigned URL for object [%s]: %s\n", key, err.Error())
		return nil, err
	}
	return &r.URL, nil
}
