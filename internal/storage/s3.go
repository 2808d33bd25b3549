// Package storage uploads patient documents to S3-compatible object storage
// and hands back fetchable URLs. Callers never see bucket or key details;
// the URL is the whole contract.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("document storage not configured")

type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3 builds the store from the ambient AWS configuration. baseURL is the
// public prefix documents are served from (a CDN or the bucket website
// endpoint).
func NewS3(ctx context.Context, bucket, baseURL string) (*S3Store, error) {
	if bucket == "" || baseURL == "" {
		return nil, ErrNotConfigured
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})

	return &S3Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload stores the payload under a fresh key and returns its public URL.
// The original filename only contributes its extension; keys are random so
// two patients uploading "document.pdf" can never collide.
func (s *S3Store) Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	key := uuid.NewString() + strings.ToLower(path.Ext(fileName))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete removes the object a previously returned URL points at. Unknown
// URLs are ignored; replaced documents may already be gone.
func (s *S3Store) Delete(ctx context.Context, fileURL string) error {
	key, ok := strings.CutPrefix(fileURL, s.baseURL+"/")
	if !ok || key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
