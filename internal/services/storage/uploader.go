package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

var errMirrorDisabled = errors.New("supabase mirror is not configured")

// Mirror uploads a processed image under processed/<key> and returns its public URL.
func (s *StorageService) Mirror(ctx context.Context, localPath, key string) (string, error) {
	if s.sbClient == nil {
		return "", errMirrorDisabled
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	objectKey := "processed/" + key

	_, err = s.sbClient.UploadFile(s.bucket, objectKey, file, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	publicURL := s.sbClient.GetPublicUrl(s.bucket, objectKey)
	s.logger.Debug("Image mirrored", zap.String("key", objectKey))
	return publicURL.SignedURL, nil
}
