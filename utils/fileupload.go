package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

var (
	// UploadDir is where attachments are kept when no S3 bucket is configured.
	// Can be overridden for testing
	UploadDir = "./uploads"

	imageTypes = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".webp": "image/webp",
	}

	documentTypes = map[string]string{
		".pdf":  "application/pdf",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
	}
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile checks size and extension of an order image and returns its content type
func ValidateImageFile(fileHeader *multipart.FileHeader) (string, error) {
	return validate(fileHeader, imageTypes)
}

// ValidateDocumentFile checks size and extension of an order document and returns its content type
func ValidateDocumentFile(fileHeader *multipart.FileHeader) (string, error) {
	return validate(fileHeader, documentTypes)
}

func validate(fileHeader *multipart.FileHeader, allowed map[string]string) (string, error) {
	if fileHeader.Size > MaxFileSize {
		return "", &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	if fileHeader.Size == 0 {
		return "", &FileUploadError{Code: "EMPTY_FILE", Message: "File is empty"}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowed[ext]
	if !ok {
		return "", &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", strings.Join(extensions(allowed), ", ")),
		}
	}
	return contentType, nil
}

func extensions(allowed map[string]string) []string {
	// fixed order for stable messages
	order := []string{".png", ".jpg", ".jpeg", ".webp", ".pdf"}
	var exts []string
	for _, ext := range order {
		if _, ok := allowed[ext]; ok {
			exts = append(exts, ext)
		}
	}
	return exts
}

// ContentTypeFor returns the content type served for a stored attachment name
func ContentTypeFor(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := imageTypes[ext]; ok {
		return ct, true
	}
	ct, ok := documentTypes[ext]
	return ct, ok
}

// SaveUploadedFile saves the uploaded file as uploadDir/filename
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir, filename string) (err error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			fmt.Printf("warning: failed to close source file: %v\n", closeErr)
		}
	}()

	dst, err := os.Create(filepath.Join(uploadDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// GetAttachmentURL returns the URL path serving a locally stored attachment
func GetAttachmentURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}
