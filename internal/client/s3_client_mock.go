package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockS3Client implements service.S3Client without AWS, for tests
type MockS3Client struct {
	BaseURL string

	PresignUploadFunc   func(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignDownloadFunc func(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteFileFunc      func(ctx context.Context, key string) error

	mu      sync.Mutex
	deleted []string
}

// NewMockS3Client creates a mock whose URLs point at BaseURL
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{BaseURL: "http://localhost:9000/onboarding-test"}
}

func (m *MockS3Client) GenerateFileKey(formID uuid.UUID, fieldID, fileName string) string {
	return FileKey(time.Now(), formID, fieldID, fileName)
}

func (m *MockS3Client) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	if m.PresignUploadFunc != nil {
		return m.PresignUploadFunc(ctx, key, contentType, expires)
	}
	return fmt.Sprintf("%s/%s?X-Amz-Expires=%d", m.BaseURL, key, int(expires.Seconds())), nil
}

func (m *MockS3Client) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	if m.PresignDownloadFunc != nil {
		return m.PresignDownloadFunc(ctx, key, expires)
	}
	return fmt.Sprintf("%s/%s", m.BaseURL, key), nil
}

func (m *MockS3Client) DeleteFile(ctx context.Context, key string) error {
	if m.DeleteFileFunc != nil {
		if err := m.DeleteFileFunc(ctx, key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
	return nil
}

// Deleted lists the keys passed to DeleteFile
func (m *MockS3Client) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
