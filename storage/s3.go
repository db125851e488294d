package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/attestd/device-attestation-backend/interfaces"
)

// S3Store persists identity records in Amazon S3 or a compatible object
// store, one JSON object per device.
type S3Store struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Store creates an S3-backed identity store. Credentials are required:
// identity records are written on every successful verification.
func NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	} else {
		log.Warn("No S3 credentials provided - identity writes may fail unless the bucket allows them")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      strings.TrimSuffix(prefix, "/"),
		log:         log,
		locationURI: uri,
	}, nil
}

// Get retrieves a record by device ID. Returns ErrIdentityNotFound if the
// object doesn't exist.
func (s *S3Store) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceIdentity, error) {
	start := time.Now()
	key := s.objectKey(id)

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return nil, interfaces.ErrIdentityNotFound
		}
		s.log.Error("Failed to get identity record from S3",
			slog.String("bucket", s.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	var identity interfaces.DeviceIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity record: %w", err)
	}

	s.log.Debug("Fetched identity record from S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", key),
		slog.Duration("duration", time.Since(start)))

	return &identity, nil
}

// Put saves a record, replacing any existing object for the same device.
func (s *S3Store) Put(ctx context.Context, identity *interfaces.DeviceIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity record: %w", err)
	}

	key := s.objectKey(identity.DeviceID)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored identity record in S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", key),
		slog.String("deviceID", identity.DeviceID.String()))

	return nil
}

// Available checks if the S3 store is accessible by attempting to head the
// bucket.
func (s *S3Store) Available(ctx context.Context) bool {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		s.log.Warn("S3 store unavailable",
			slog.String("bucket", s.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucketName)
}

// LocationURI returns the URI that identifies this store.
func (s *S3Store) LocationURI() string {
	return s.locationURI
}

func (s *S3Store) objectKey(id interfaces.DeviceID) string {
	name := id.String() + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}
