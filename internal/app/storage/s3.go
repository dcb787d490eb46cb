package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/garyxuan/lan-chat/internal/pkg/logx"
	"github.com/garyxuan/lan-chat/internal/pkg/randx"
)

// s3Store implements Service against S3-compatible storage. Object keys mirror
// the local layout ("uploads/...", "public/avatars/...") so URLs keep the same
// shape regardless of backend.
type s3Store struct {
	cfg      ServiceConfig
	s3Client *s3.Client
	uploader *manager.Uploader
}

// newS3Store initializes the S3 client using a custom configuration that
// supports S3-compatible endpoints.
func newS3Store(cfg ServiceConfig) (*s3Store, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Store{
		cfg:      cfg,
		s3Client: client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Save uploads the blob to the bucket under a timestamp-prefixed key.
func (s *s3Store) Save(ctx context.Context, kind Kind, originalName string, content io.Reader) (StoredFile, error) {
	storedName := randx.StoredFileName(originalName)
	key := fmt.Sprintf("%s/%s", kind, storedName)

	counted := &countingReader{r: content}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.cfg.S3BucketName,
		Key:    &key,
		Body:   counted,
	})
	if err != nil {
		logx.Error(err, "S3 upload failed", "key", key)
		return StoredFile{}, errors.New("failed to upload file to S3")
	}

	return StoredFile{
		URL:  fmt.Sprintf("%s/%s", s.cfg.PublicBaseURL, key),
		Name: originalName,
		Size: counted.n,
	}, nil
}

// countingReader tracks how many bytes the uploader consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
