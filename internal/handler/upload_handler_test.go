package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyxuan/lan-chat/internal/app/storage"
	"github.com/garyxuan/lan-chat/internal/configs"
	"github.com/garyxuan/lan-chat/internal/pkg/errs"
)

func newTestDeps(t *testing.T) *AppDeps {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment: "development",
		Port:        3000,
		RootDir:     t.TempDir(),
	}
	require.NoError(t, cfg.EnsureDirectories())

	storageService, err := storage.NewService(storage.ServiceConfig{RootDir: cfg.RootDir})
	require.NoError(t, err)

	return &AppDeps{
		Config:  cfg,
		Storage: storageService,
	}
}

// multipartBody builds a multipart request body with a single file part.
func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestHandleUploadImageReturnsURL(t *testing.T) {
	deps := newTestDeps(t)

	body, contentType := multipartBody(t, "image", "cat.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	HandleUploadImage(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.URL, "/uploads/")
	assert.Contains(t, result.URL, "cat.png")
}

func TestHandleUploadFileReturnsNameAndSize(t *testing.T) {
	deps := newTestDeps(t)

	content := []byte("file contents here")
	body, contentType := multipartBody(t, "file", "notes.txt", content)
	req := httptest.NewRequest(http.MethodPost, "/upload-file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	HandleUploadFile(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.URL, "/uploads/")
	assert.Equal(t, "notes.txt", result.Filename)
	assert.Equal(t, int64(len(content)), result.Size)
}

func TestHandleUploadAvatarStoresUnderPublic(t *testing.T) {
	deps := newTestDeps(t)

	body, contentType := multipartBody(t, "avatar", "me.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload-avatar", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	HandleUploadAvatar(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.URL, "/public/avatars/")
}

func TestUploadWithoutFilePartFails(t *testing.T) {
	deps := newTestDeps(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	HandleUploadImage(deps)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var result struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, errs.ErrNoFileUploaded, result.Code)
}

func TestAvatarUploadOverLimitFails(t *testing.T) {
	deps := newTestDeps(t)

	oversized := bytes.Repeat([]byte("a"), int(MaxAvatarBytes)+1024)
	body, contentType := multipartBody(t, "avatar", "huge.png", oversized)
	req := httptest.NewRequest(http.MethodPost, "/upload-avatar", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	HandleUploadAvatar(deps)(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var result struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, errs.ErrFileSizeTooLarge, result.Code)
}
