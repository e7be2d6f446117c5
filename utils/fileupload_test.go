package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader builds a multipart.FileHeader the way gin hands them to handlers
func createTestFileHeader(filename string, size int64, content []byte) *multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, _ := writer.CreatePart(h)
	part.Write(content)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, _ := reader.ReadForm(int64(len(content)) + 1024)

	if len(form.File["file"]) > 0 {
		fileHeader := form.File["file"][0]
		// Override size for testing purposes
		fileHeader.Size = size
		return fileHeader
	}

	return nil
}

func TestValidateImageFile(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		errCode     string
	}{
		{"ring.png", "image/png", ""},
		{"ring.JPG", "image/jpeg", ""},
		{"ring.jpeg", "image/jpeg", ""},
		{"ring.webp", "image/webp", ""},
		{"design.pdf", "", "INVALID_FILE_FORMAT"},
		{"noext", "", "INVALID_FILE_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			content := []byte("fake content")
			fileHeader := createTestFileHeader(tt.filename, int64(len(content)), content)
			require.NotNil(t, fileHeader)

			contentType, err := ValidateImageFile(fileHeader)
			if tt.errCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.contentType, contentType)
				return
			}
			var fileErr *FileUploadError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.errCode, fileErr.Code)
			assert.Contains(t, fileErr.Message, ".png, .jpg, .jpeg, .webp")
		})
	}
}

func TestValidateDocumentFile(t *testing.T) {
	content := []byte("%PDF-1.4")
	contentType, err := ValidateDocumentFile(createTestFileHeader("order-sheet.pdf", int64(len(content)), content))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)

	_, err = ValidateDocumentFile(createTestFileHeader("notes.docx", int64(len(content)), content))
	var fileErr *FileUploadError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "INVALID_FILE_FORMAT", fileErr.Code)
}

func TestValidate_Size(t *testing.T) {
	content := []byte("fake png content")

	_, err := ValidateImageFile(createTestFileHeader("large.png", 11*1024*1024, content))
	var fileErr *FileUploadError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "FILE_TOO_LARGE", fileErr.Code)
	assert.Contains(t, fileErr.Message, "File size exceeds maximum allowed size")

	_, err = ValidateImageFile(createTestFileHeader("exact.png", MaxFileSize, content))
	assert.NoError(t, err, "a file of exactly the limit is accepted")

	_, err = ValidateImageFile(createTestFileHeader("empty.png", 0, content))
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "EMPTY_FILE", fileErr.Code)
}

func TestContentTypeFor(t *testing.T) {
	ct, ok := ContentTypeFor("a.pdf")
	assert.True(t, ok)
	assert.Equal(t, "application/pdf", ct)

	ct, ok = ContentTypeFor("a.png")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	_, ok = ContentTypeFor("a.exe")
	assert.False(t, ok)
}

func TestSaveUploadedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	content := []byte("design sketch")
	fileHeader := createTestFileHeader("sketch.png", int64(len(content)), content)
	require.NotNil(t, fileHeader)

	require.NoError(t, SaveUploadedFile(fileHeader, dir, "orders_1_sketch.png"))

	saved, err := os.ReadFile(filepath.Join(dir, "orders_1_sketch.png"))
	require.NoError(t, err)
	assert.Equal(t, content, saved)
}

func TestGetAttachmentURL(t *testing.T) {
	assert.Equal(t, "/api/v1/uploads/a.png", GetAttachmentURL("a.png"))
	assert.Equal(t, "", GetAttachmentURL(""))
}
