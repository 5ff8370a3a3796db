// Package s3store keeps each collection as one JSON object in a bucket. The
// object ETag is the revision; writes use conditional PutObject.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds a client from static credentials. A custom endpoint (MinIO,
// R2, a test server) switches to path-style addressing.
func New(cfg config.StoreConfig) (*Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required for the s3 store")
	}

	opts := s3.Options{
		Region:                     cfg.S3Region,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	if cfg.S3AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
		opts.UsePathStyle = true
	}

	return &Store{
		client: s3.New(opts),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name + ".json"
}

func (s *Store) ReadCollection(ctx context.Context, name string) (store.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if isNotFound(err) {
		return store.Snapshot{}, nil
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("get %s: %w", name, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read %s: %w", name, err)
	}
	records, err := store.DecodePayload(body)
	if err != nil {
		return store.Snapshot{}, err
	}

	return store.Snapshot{
		Records:  records,
		Revision: aws.ToString(out.ETag),
	}, nil
}

func (s *Store) WriteCollection(ctx context.Context, name string, records []json.RawMessage, expectedRevision string) error {
	payload, err := store.EncodePayload(records)
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	}
	if expectedRevision == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(expectedRevision)
	}

	_, err = s.client.PutObject(ctx, in)
	if isPreconditionFailed(err) {
		return store.ErrStaleRevision
	}
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}

// isPreconditionFailed covers a failed If-Match/If-None-Match and the 409 S3
// returns when two conditional writes race.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

var _ store.KeyedStore = (*Store)(nil)
