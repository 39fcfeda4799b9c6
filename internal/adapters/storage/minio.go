package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactStore serves archived build logs out of object storage. Live logs
// go through the relay; once a build finishes the CI system archives the full
// log here and the dashboard links to it.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

func NewArtifactStore(endpoint, accessKey, secretKey, bucket string) (*ArtifactStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	slog.Info("artifact store connected", "bucket", bucket)
	return &ArtifactStore{
		client: client,
		bucket: bucket,
	}, nil
}

// archivedLogObject is the layout the CI archiver writes under.
func archivedLogObject(owner, name, number, job string) string {
	return fmt.Sprintf("logs/%s/%s/%s/%s.txt", owner, name, number, job)
}

// ArchivedLogURL issues a short-lived presigned GET for one job's archived
// log.
func (s *ArtifactStore) ArchivedLogURL(ctx context.Context, owner, name, number, job string) (string, error) {
	object := archivedLogObject(owner, name, number, job)

	reqParams := make(url.Values)
	reqParams.Set("response-content-type", "text/plain")

	u, err := s.client.PresignedGetObject(ctx, s.bucket, object, 15*time.Minute, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to presign archived log: %w", err)
	}
	return u.String(), nil
}
