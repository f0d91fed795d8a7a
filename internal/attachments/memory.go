package attachments

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// NewInMemory starts an in-memory S3 server backed by gofakes3 and returns
// a Store pointed at it, for --no-s3 runs. Call the returned func to stop
// the server; stored images are lost.
func NewInMemory(ctx context.Context, bucketName string) (*Store, func(), error) {
	faker := gofakes3.New(s3mem.New())
	ts := httptest.NewServer(faker.Server())

	sdkConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local-key", "local-secret", ""),
		),
	)
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ts.URL)
		o.UsePathStyle = true // Required for gofakes3
	})
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	return NewFromS3Client(client, bucketName, ts.URL+"/"+bucketName), ts.Close, nil
}

// TestStore creates a Store backed by gofakes3 for testing.
// The test server is automatically cleaned up when the test completes.
func TestStore(t testing.TB, bucketName string) *Store {
	t.Helper()

	store, stop, err := NewInMemory(context.Background(), bucketName)
	if err != nil {
		t.Fatalf("failed to start in-memory S3: %v", err)
	}
	t.Cleanup(stop)
	return store
}
