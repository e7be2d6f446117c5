package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/jewelry-erp-api/utils"
)

// AttachmentKind selects which list of an order an upload is appended to
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// ParseAttachmentKind accepts "image" (the default) or "document"
func ParseAttachmentKind(s string) (AttachmentKind, bool) {
	switch AttachmentKind(strings.ToLower(s)) {
	case "", AttachmentImage:
		return AttachmentImage, true
	case AttachmentDocument:
		return AttachmentDocument, true
	}
	return "", false
}

// AttachmentService validates order attachments and puts them in object storage
type AttachmentService struct {
	storage ObjectStorage
	newID   func() string
}

var attachmentServiceInstance *AttachmentService

// NewAttachmentService creates an attachment service on top of storage
func NewAttachmentService(storage ObjectStorage) *AttachmentService {
	return &AttachmentService{
		storage: storage,
		newID:   func() string { return uuid.NewString() },
	}
}

// InitAttachmentService creates the shared attachment service instance
func InitAttachmentService(storage ObjectStorage) *AttachmentService {
	attachmentServiceInstance = NewAttachmentService(storage)
	return attachmentServiceInstance
}

// GetAttachmentService returns the shared attachment service instance
func GetAttachmentService() *AttachmentService {
	return attachmentServiceInstance
}

// SetAttachmentService replaces the shared instance (primarily for testing)
func SetAttachmentService(service *AttachmentService) {
	attachmentServiceInstance = service
}

// ObjectKey builds the storage key of a new attachment of an order
func (s *AttachmentService) ObjectKey(orderNo string, kind AttachmentKind, filename string) string {
	return fmt.Sprintf("orders/%s/%ss/%s%s", orderNo, kind, s.newID(), strings.ToLower(filepath.Ext(filename)))
}

// Upload validates the file for kind and stores it, returning the stored key
func (s *AttachmentService) Upload(ctx context.Context, orderNo string, kind AttachmentKind, fileHeader *multipart.FileHeader) (string, error) {
	validate := utils.ValidateImageFile
	if kind == AttachmentDocument {
		validate = utils.ValidateDocumentFile
	}
	contentType, err := validate(fileHeader)
	if err != nil {
		return "", err
	}

	key, err := s.storage.UploadFile(ctx, fileHeader, s.ObjectKey(orderNo, kind, fileHeader.Filename), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", kind, err)
	}
	return key, nil
}

// URL resolves a stored key to a URL the client can fetch
func (s *AttachmentService) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.storage.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate attachment URL: %w", err)
	}
	return url, nil
}

// URLs resolves every key in order
func (s *AttachmentService) URLs(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		url, err := s.URL(ctx, key)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Delete removes a stored attachment
func (s *AttachmentService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
