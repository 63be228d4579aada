package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var reportTime = time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

func TestS3Notifier(t *testing.T) {
	uploader := &mockUploader{}
	n, err := newS3Notifier(uploader, "s3://reports/sync/nightly", reportTime)
	if err != nil {
		t.Fatalf("newS3Notifier() error = %v", err)
	}

	if err := n.Notify(context.Background(), "summary text"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(uploader.calls) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploader.calls))
	}
	want := upload{Bucket: "reports", Key: "sync/nightly/2024-05-01_12-30-45.txt", Body: "summary text"}
	if uploader.calls[0] != want {
		t.Errorf("upload = %+v, want %+v", uploader.calls[0], want)
	}
}

func TestS3NotifierRetries(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{
			name:      "retryable",
			err:       &smithy.GenericAPIError{Code: "SlowDown"},
			wantCalls: 4,
		},
		{
			name:      "not retryable",
			err:       &smithy.GenericAPIError{Code: "AccessDenied"},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := &mockUploader{
				UploadFunc: func(ctx context.Context, input *s3.PutObjectInput) error {
					return tt.err
				},
			}
			n, err := newS3Notifier(uploader, "s3://reports", reportTime)
			if err != nil {
				t.Fatal(err)
			}
			n.baseDelay = time.Millisecond
			n.maxDelay = time.Millisecond

			err = n.Notify(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr smithy.APIError
			if !errors.As(err, &apiErr) {
				t.Errorf("error %v does not wrap the API error", err)
			}
			if len(uploader.calls) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(uploader.calls), tt.wantCalls)
			}
		})
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{uri: "s3://bucket", wantBucket: "bucket"},
		{uri: "s3://bucket/", wantBucket: "bucket"},
		{uri: "s3://bucket/reports", wantBucket: "bucket", wantPrefix: "reports/"},
		{uri: "s3://bucket/a/b/", wantBucket: "bucket", wantPrefix: "a/b/"},
		{uri: "bucket/reports", wantErr: true},
		{uri: "s3://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, prefix, err := ParseS3URI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("ParseS3URI() = (%q, %q), want (%q, %q)", bucket, prefix, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}
