package database

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// Avatars stores profile pictures in a MinIO bucket.
type Avatars struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

func NewAvatars(client *minio.Client, cfg MinIOConfig) *Avatars {
	return &Avatars{client: client, bucket: cfg.Bucket, endpoint: cfg.Endpoint, secure: cfg.UseSSL}
}

// Upload writes the picture under the user's prefix and returns its URL.
func (a *Avatars) Upload(ctx context.Context, userID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("avatars/%s/%d%s", userID, time.Now().UnixNano(), ext)

	_, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	scheme := "http"
	if a.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, a.endpoint, a.bucket, key), nil
}

// SignedURL returns a time-limited link to an uploaded avatar.
func (a *Avatars) SignedURL(ctx context.Context, objectURL string, ttl time.Duration) (string, error) {
	i := strings.Index(objectURL, "/"+a.bucket+"/")
	if i < 0 {
		return "", fmt.Errorf("not an object of bucket %s", a.bucket)
	}
	key := objectURL[i+len(a.bucket)+2:]
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, ttl, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
