package utils

import (
	"bytes"
	"fmt"

	"learnhub/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SpacesStorage keeps certificate artifacts in an S3-compatible bucket
// (DigitalOcean Spaces). It satisfies the services.ObjectStorage interface.
type SpacesStorage struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
}

func NewSpacesStorage() (*SpacesStorage, error) {
	cfg := config.AppConfig
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.SpacesAccessKey,
			cfg.SpacesSecretKey,
			"",
		),
		Endpoint: aws.String(cfg.SpacesEndpoint),
		Region:   aws.String(cfg.SpacesRegion),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesStorage{
		s3Client: s3.New(sess),
		bucket:   cfg.SpacesBucket,
		endpoint: cfg.SpacesEndpoint,
	}, nil
}

func (s *SpacesStorage) Exists(name string) (bool, error) {
	_, err := s.s3Client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == "NotFound" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object %s: %w", name, err)
	}
	return true, nil
}

func (s *SpacesStorage) Put(name string, data []byte, contentType string) (string, error) {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", name, err)
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpoint, name), nil
}
