package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/storage/object"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements object.Uploader on Amazon S3. Every object is written with
// server-side encryption.
type Store struct {
	client   PutObjectAPI
	prefix   string
	kmsKeyID string
}

// New creates an S3-backed uploader. Keys are placed under prefix when it is set;
// kmsKeyID selects SSE-KMS, otherwise SSE-S3 (AES256) is used.
func New(client PutObjectAPI, prefix, kmsKeyID string) *Store {
	return &Store{
		client:   client,
		prefix:   normalizePrefix(prefix),
		kmsKeyID: strings.TrimSpace(kmsKeyID),
	}
}

// Upload writes data to bucket under key. Remote failures are returned without retry.
func (s *Store) Upload(ctx context.Context, bucket, key string, data []byte) (object.Receipt, error) {
	if strings.TrimSpace(bucket) == "" {
		return object.Receipt{}, config.Missing("bucket name")
	}
	if err := ctx.Err(); err != nil {
		return object.Receipt{}, err
	}

	objectKey := ObjectKey(s.prefix, key)
	contentType := http.DetectContentType(data)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	s.applyEncryption(input)

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return object.Receipt{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", bucket, objectKey, err)
	}

	return object.Receipt{
		Bucket:      bucket,
		Key:         objectKey,
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
		VersionID:   aws.ToString(out.VersionId),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (s *Store) applyEncryption(input *s3.PutObjectInput) {
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
		return
	}
	input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
}

// ObjectKey joins an optional prefix and key with a single slash.
func ObjectKey(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

var _ object.Uploader = (*Store)(nil)
