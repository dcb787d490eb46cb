/*
Package storage handles persistence of uploaded binary blobs (chat images,
shared files, avatars) and hands back retrievable URLs.

Blobs land either on the local disk (default, served back as static files) or
in an S3-compatible bucket when one is configured. Callers never see which.
*/
package storage

import (
	"context"
	"io"
)

// Kind determines where an uploaded blob is stored and the URL prefix it is
// served under.
type Kind string

const (
	// KindUpload covers chat images and shared files.
	KindUpload Kind = "uploads"

	// KindAvatar covers user avatar images.
	KindAvatar Kind = "public/avatars"
)

// StoredFile describes a persisted upload.
type StoredFile struct {
	// URL is the retrievable location clients embed in chat messages.
	URL string

	// Name is the decoded original file name.
	Name string

	// Size is the stored size in bytes.
	Size int64
}

// Service is the public interface for upload storage.
type Service interface {
	// Save persists the blob under a collision-free name derived from
	// originalName and returns its retrievable URL.
	Save(ctx context.Context, kind Kind, originalName string, content io.Reader) (StoredFile, error)
}

// ServiceConfig holds the settings needed to construct a storage Service.
type ServiceConfig struct {
	// RootDir is the local base directory (local backend).
	RootDir string

	// PublicBaseURL prefixes returned URLs; empty yields relative URLs.
	PublicBaseURL string

	// S3 settings; a non-empty bucket selects the S3 backend.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// NewService is the factory function for Service. It selects the S3 backend
// when a bucket is configured and local disk storage otherwise.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.S3BucketName != "" {
		return newS3Store(cfg)
	}

	return newLocalStore(cfg), nil
}
