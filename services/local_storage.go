package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/kendall-kelly/jewelry-erp-api/utils"
)

// LocalStorage keeps attachments on disk. It is used when no S3 bucket is configured.
type LocalStorage struct {
	dir string
}

// NewLocalStorage stores files under dir
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// localName flattens a key into a single file name
func localName(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

// UploadFile writes the file and returns the flattened file name as its key
func (l *LocalStorage) UploadFile(_ context.Context, fileHeader *multipart.FileHeader, key, _ string) (string, error) {
	name := localName(key)
	if err := utils.SaveUploadedFile(fileHeader, l.dir, name); err != nil {
		return "", err
	}
	return name, nil
}

// GetPresignedURL returns the API path that serves the file
func (l *LocalStorage) GetPresignedURL(_ context.Context, key string) (string, error) {
	return utils.GetAttachmentURL(localName(key)), nil
}

// DeleteFile removes the file, ignoring files that are already gone
func (l *LocalStorage) DeleteFile(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.dir, localName(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
