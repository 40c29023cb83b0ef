/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package blob stores chart payloads in an S3-compatible object store. Chart
// rows in the database keep only the object key; the bytes live here.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"k8s.io/klog/v2"

	commonconfig "github.com/amd-enterprise-ai/airm/pkg/config"
	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

const presignExpire = 15 * time.Minute

type Interface interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, key string) (string, error)
}

// NewStore builds the chart blob store, creating the bucket with the
// configured expiry lifecycle on first use. Returns a disabled stub when the
// object store is turned off in config.
func NewStore(ctx context.Context) (Interface, error) {
	if !commonconfig.IsS3Enable() {
		klog.Infof("chart blob store is disabled")
		return &disabled{}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			commonconfig.GetS3AccessKey(), commonconfig.GetS3SecretKey(), "")),
		awsconfig.WithRegion("us-east-1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}
	endpoint := commonconfig.GetS3Endpoint()
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	store := &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  commonconfig.GetS3Bucket(),
	}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	klog.Infof("chart blob store ready, endpoint: %s, bucket: %s", endpoint, store.bucket)
	return store, nil
}

type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func (s *Store) ensureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	_, err := s.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(s.bucket),
		LifecycleConfiguration: &s3types.BucketLifecycleConfiguration{
			Rules: []s3types.LifecycleRule{
				{
					ID:         aws.String("ExpireStaleObjects"),
					Filter:     &s3types.LifecycleRuleFilter{Prefix: aws.String("")},
					Expiration: &s3types.LifecycleExpiration{Days: aws.Int32(commonconfig.GetS3ExpireDay())},
					Status:     s3types.ExpirationStatusEnabled,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set bucket lifecycle: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" || len(data) == 0 {
		return commonerrors.NewValidation("the object key or payload is empty")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to store object %s: %v", key, err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, commonerrors.NewValidation("the object key is empty")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("failed to fetch object %s: %v", key, err))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, commonerrors.NewExternalServiceError(fmt.Sprintf("failed to read object %s: %v", key, err))
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return commonerrors.NewValidation("the object key is empty")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return commonerrors.NewExternalServiceError(fmt.Sprintf("failed to delete object %s: %v", key, err))
	}
	return nil
}

func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpire))
	if err != nil {
		return "", commonerrors.NewExternalServiceError(fmt.Sprintf("failed to presign object %s: %v", key, err))
	}
	return req.URL, nil
}

// disabled satisfies Interface for deployments without an object store.
type disabled struct{}

func (d *disabled) Put(context.Context, string, []byte) error {
	return commonerrors.NewExternalServiceError("the chart blob store is disabled")
}

func (d *disabled) Get(context.Context, string) ([]byte, error) {
	return nil, commonerrors.NewExternalServiceError("the chart blob store is disabled")
}

func (d *disabled) Delete(context.Context, string) error {
	return nil
}

func (d *disabled) PresignGet(context.Context, string) (string, error) {
	return "", commonerrors.NewExternalServiceError("the chart blob store is disabled")
}
