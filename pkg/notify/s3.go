package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 5 * time.Second

	reportTimeFormat = "2006-01-02_15-04-05"
)

// Uploader is the subset of manager.Uploader the S3 notifier needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Notifier stores each summary as s3://<bucket>/<prefix><run time>.txt.
type S3Notifier struct {
	uploader Uploader
	bucket   string
	prefix   string
	runTime  time.Time

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewS3Notifier creates a notifier that uploads with the manager uploader
// built from cfg. uri has the form s3://bucket/prefix.
func NewS3Notifier(cfg aws.Config, uri string, runTime time.Time) (*S3Notifier, error) {
	return newS3Notifier(manager.NewUploader(s3.NewFromConfig(cfg)), uri, runTime)
}

func newS3Notifier(uploader Uploader, uri string, runTime time.Time) (*S3Notifier, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	return &S3Notifier{
		uploader:   uploader,
		bucket:     bucket,
		prefix:     prefix,
		runTime:    runTime,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}, nil
}

// Key returns the object key the summary is written to.
func (n *S3Notifier) Key() string {
	return n.prefix + n.runTime.Format(reportTimeFormat) + ".txt"
}

func (n *S3Notifier) Notify(ctx context.Context, summary string) error {
	key := n.Key()

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		_, err := n.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(n.bucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(summary),
			ContentType: aws.String("text/markdown; charset=utf-8"),
		})
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return fmt.Errorf("failed to upload summary to s3://%s/%s: %w", n.bucket, key, err)
		}

		lastErr = err
		if attempt < n.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.calculateDelay(attempt)):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException":
			return true
		}
		// Retry on 5xx errors
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// calculateDelay calculates the retry delay with exponential backoff and jitter
func (n *S3Notifier) calculateDelay(attempt int) time.Duration {
	base := float64(n.baseDelay)
	delay := base * math.Pow(2.0, float64(attempt))

	// ±25%
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter

	if delay > float64(n.maxDelay) {
		delay = float64(n.maxDelay)
	}

	return time.Duration(delay)
}

// ParseS3URI parses an S3 URI into bucket and prefix
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)

	if len(parts) == 0 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
		// Ensure prefix ends with / if not empty
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
	}

	return bucket, prefix, nil
}
