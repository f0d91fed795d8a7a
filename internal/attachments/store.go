// Package attachments stores note images in S3-compatible object storage.
// For production, configure any S3 endpoint. For tests and --no-s3, an
// in-memory gofakes3 backend stands in.
package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// MaxImageSize caps a single upload.
const MaxImageSize = 10 << 20

var (
	// ErrObjectNotFound is returned when a requested object does not exist.
	ErrObjectNotFound = errors.New("attachments: object not found")

	// ErrNotImage is returned when uploaded bytes are not a supported image.
	ErrNotImage = errors.New("attachments: not an image")

	// ErrTooLarge is returned when an upload exceeds MaxImageSize.
	ErrTooLarge = errors.New("attachments: image too large")
)

// Store wraps an S3 client with bucket and URL configuration.
type Store struct {
	s3Client   *s3.Client
	bucketName string
	publicURL  string
}

// Config holds the configuration for creating a Store.
type Config struct {
	// Endpoint is the S3 endpoint URL. Leave empty to use default AWS S3.
	Endpoint string
	// Region is the AWS region (e.g., "auto" for Tigris, "us-east-1" for AWS).
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// PublicURL is the base URL images are served from.
	PublicURL string
	// UsePathStyle enables path-style addressing (required for gofakes3 and MinIO).
	UsePathStyle bool
}

// Object is a stored image.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// New creates a Store with the given configuration.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewFromS3Client(client, cfg.BucketName, cfg.PublicURL), nil
}

// NewFromS3Client creates a Store from an existing S3 client.
func NewFromS3Client(client *s3.Client, bucketName, publicURL string) *Store {
	return &Store{
		s3Client:   client,
		bucketName: bucketName,
		publicURL:  strings.TrimSuffix(publicURL, "/"),
	}
}

// Put stores an image for a note and returns its key. The content type is
// sniffed when contentType is empty and must be image/*.
func (s *Store) Put(ctx context.Context, noteID string, data []byte, contentType string) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}

	key := NoteKeyPrefix(noteID) + uuid.NewString() + extensionFor(mediaType)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mediaType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("attachments: failed to put object %q: %w", key, err)
	}
	return key, nil
}

// Get retrieves the image stored under key.
// Returns ErrObjectNotFound if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (Object, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &notFound) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("attachments: failed to get object %q: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Object{}, fmt.Errorf("attachments: failed to read object body %q: %w", key, err)
	}
	return Object{Key: key, ContentType: aws.ToString(result.ContentType), Data: data}, nil
}

// Delete removes the object at key.
// Returns nil if the object was deleted or did not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("attachments: failed to delete object %q: %w", key, err)
	}
	return nil
}

// DeleteNote removes every image stored for a note and returns how many
// objects were deleted.
func (s *Store) DeleteNote(ctx context.Context, noteID string) (int, error) {
	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(NoteKeyPrefix(noteID)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("attachments: failed to list images of note %s: %w", noteID, err)
		}
		for _, obj := range page.Contents {
			if err := s.Delete(ctx, aws.ToString(obj.Key)); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

// URL returns the publicly accessible URL for key.
func (s *Store) URL(key string) string {
	return s.publicURL + "/" + strings.TrimPrefix(key, "/")
}

// NoteKeyPrefix is the key prefix under which a note's images live.
func NoteKeyPrefix(noteID string) string {
	return "notes/" + noteID + "/"
}

// OwnedBy reports whether key belongs to the note.
func OwnedBy(key, noteID string) bool {
	return strings.HasPrefix(key, NoteKeyPrefix(noteID)) && !strings.Contains(key, "..")
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
