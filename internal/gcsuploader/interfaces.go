package gcsuploader

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/exchange-desk/internal/gcs"
)

// Re-export interface from shared package
type StorageService = gcs.StorageService

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage through a shared client.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a client using Application Default Credentials.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close releases the storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// Upload delegates to UploadBytes with the shared client.
func (s *GCSStorageService) Upload(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	return UploadBytes(ctx, s.client, bucketName, objectName, data, contentType)
}

// FetchFromGCS delegates to FetchFromGCS with the shared client.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, s.client, gcsURI)
}

var _ StorageService = (*GCSStorageService)(nil)
