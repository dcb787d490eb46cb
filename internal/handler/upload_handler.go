/*
Package handler provides the HTTP handlers and routing setup for the LAN Chat server.

This file contains the upload endpoints. Each accepts one multipart file part,
hands the blob to the storage service, and answers with the retrievable URL the
client embeds in chat messages. Response bodies keep the flat shape the chat
client expects ({"url": ...}), not the standard envelope.
*/
package handler

import (
	"net/http"

	"github.com/garyxuan/lan-chat/internal/app/storage"
	"github.com/garyxuan/lan-chat/internal/pkg/errs"
	"github.com/garyxuan/lan-chat/internal/pkg/logx"
	"github.com/garyxuan/lan-chat/internal/pkg/req"
	"github.com/garyxuan/lan-chat/internal/pkg/resp"
)

const (
	// MaxUploadBytes caps general image and file uploads at 50 MB.
	MaxUploadBytes int64 = 50 << 20

	// MaxAvatarBytes caps avatar uploads at 5 MB.
	MaxAvatarBytes int64 = 5 << 20
)

// HandleUploadImage accepts a chat image under the "image" form field and
// responds with {"url": ...}.
func HandleUploadImage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, customErr := saveUploadedFile(w, r, deps, "image", storage.KindUpload, MaxUploadBytes)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondJSON(w, r, http.StatusOK, map[string]any{
			"url": stored.URL,
		})
	}
}

// HandleUploadFile accepts an arbitrary shared file under the "file" form
// field and responds with {"url", "filename", "size"}.
func HandleUploadFile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, customErr := saveUploadedFile(w, r, deps, "file", storage.KindUpload, MaxUploadBytes)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondJSON(w, r, http.StatusOK, map[string]any{
			"url":      stored.URL,
			"filename": stored.Name,
			"size":     stored.Size,
		})
	}
}

// HandleUploadAvatar accepts an avatar image under the "avatar" form field
// and responds with {"url": ...}.
func HandleUploadAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, customErr := saveUploadedFile(w, r, deps, "avatar", storage.KindAvatar, MaxAvatarBytes)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondJSON(w, r, http.StatusOK, map[string]any{
			"url": stored.URL,
		})
	}
}

// saveUploadedFile parses the multipart form, pulls the named file part, and
// persists it through the storage service.
func saveUploadedFile(
	w http.ResponseWriter,
	r *http.Request,
	deps *AppDeps,
	field string,
	kind storage.Kind,
	maxBytes int64,
) (storage.StoredFile, *errs.CustomError) {
	if customErr := req.SetupMultipart(w, r, maxBytes); customErr != nil {
		return storage.StoredFile{}, customErr
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		logx.Warn("Upload request missing file part", "field", field)
		return storage.StoredFile{}, errs.NewError(errs.ErrNoFileUploaded)
	}
	defer file.Close()

	stored, err := deps.Storage.Save(r.Context(), kind, header.Filename, file)
	if err != nil {
		logx.Error(err, "Failed to store uploaded file", "field", field, "file_name", header.Filename)
		return storage.StoredFile{}, errs.NewError(errs.ErrFileStorageFailed)
	}

	logx.Info("File uploaded",
		"field", field,
		"stored_url", stored.URL,
		"size", stored.Size,
	)

	return stored, nil
}
