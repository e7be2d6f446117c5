package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/kendall-kelly/jewelry-erp-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileHeader builds a multipart.FileHeader the way gin hands them to handlers
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}

func newTestAttachmentService(storage ObjectStorage) *AttachmentService {
	svc := NewAttachmentService(storage)
	svc.newID = func() string { return "0b7e5c1e-8d2b-4a43-9a55-6f1f7f3c2a10" }
	return svc
}

func TestParseAttachmentKind(t *testing.T) {
	kind, ok := ParseAttachmentKind("")
	assert.True(t, ok)
	assert.Equal(t, AttachmentImage, kind)

	kind, ok = ParseAttachmentKind("Document")
	assert.True(t, ok)
	assert.Equal(t, AttachmentDocument, kind)

	_, ok = ParseAttachmentKind("video")
	assert.False(t, ok)
}

func TestAttachmentService_ObjectKey(t *testing.T) {
	svc := newTestAttachmentService(NewMockS3Service())

	assert.Equal(t, "orders/ORD-20240307-001/images/0b7e5c1e-8d2b-4a43-9a55-6f1f7f3c2a10.png",
		svc.ObjectKey("ORD-20240307-001", AttachmentImage, "Ring Front.PNG"))
	assert.Equal(t, "orders/ORD-20240307-001/documents/0b7e5c1e-8d2b-4a43-9a55-6f1f7f3c2a10.pdf",
		svc.ObjectKey("ORD-20240307-001", AttachmentDocument, "cad.pdf"))
}

func TestAttachmentService_UploadToMockS3(t *testing.T) {
	mock := NewMockS3Service()
	svc := newTestAttachmentService(mock)
	ctx := context.Background()

	key, err := svc.Upload(ctx, "ORD-20240307-001", AttachmentImage, newFileHeader(t, "ring.jpg", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.True(t, mock.FileExists(key))
	assert.Equal(t, []byte("jpeg bytes"), mock.GetUploadedFiles()[key])

	urls, err := svc.URLs(ctx, []string{key})
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], key)

	require.NoError(t, svc.Delete(ctx, key))
	assert.False(t, mock.FileExists(key))
}

func TestAttachmentService_RejectsWrongKind(t *testing.T) {
	mock := NewMockS3Service()
	svc := newTestAttachmentService(mock)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "ORD-20240307-001", AttachmentImage, newFileHeader(t, "invoice.pdf", []byte("%PDF")))
	require.Error(t, err)
	uploadErr, ok := err.(*utils.FileUploadError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_FILE_FORMAT", uploadErr.Code)
	assert.Empty(t, mock.GetUploadedFiles())

	key, err := svc.Upload(ctx, "ORD-20240307-001", AttachmentDocument, newFileHeader(t, "invoice.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.True(t, mock.FileExists(key))
}

func TestAttachmentService_LocalStorage(t *testing.T) {
	dir := t.TempDir()
	svc := newTestAttachmentService(NewLocalStorage(dir))
	ctx := context.Background()

	key, err := svc.Upload(ctx, "ORD-20240307-001", AttachmentImage, newFileHeader(t, "ring.png", []byte("png bytes")))
	require.NoError(t, err)
	assert.Equal(t, "orders_ORD-20240307-001_images_0b7e5c1e-8d2b-4a43-9a55-6f1f7f3c2a10.png", key)

	content, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), content)

	url, err := svc.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/uploads/"+key, url)

	require.NoError(t, svc.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, svc.Delete(ctx, key), "deleting twice is harmless")
}
