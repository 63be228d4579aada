package notify

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type upload struct {
	Bucket string
	Key    string
	Body   string
}

type mockUploader struct {
	UploadFunc func(ctx context.Context, input *s3.PutObjectInput) error
	calls      []upload
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.calls = append(m.calls, upload{
		Bucket: aws.ToString(input.Bucket),
		Key:    aws.ToString(input.Key),
		Body:   string(body),
	})
	if m.UploadFunc != nil {
		if err := m.UploadFunc(ctx, input); err != nil {
			return nil, err
		}
	}
	return &manager.UploadOutput{}, nil
}

type notifierFunc func(ctx context.Context, summary string) error

func (f notifierFunc) Notify(ctx context.Context, summary string) error {
	return f(ctx, summary)
}

type mockLogger struct {
	infos []string
}

func (m *mockLogger) PhaseStart(phase string, totalItems int) {}

func (m *mockLogger) ItemProcessed(phase string, item string, action string) {}

func (m *mockLogger) PhaseComplete(phase string, processedItems int) {}

func (m *mockLogger) Info(msg string, args ...any) {
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Debug(msg string, args ...any) {}

func (m *mockLogger) Error(operation, path string, err error) {}
