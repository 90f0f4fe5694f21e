// Package media moves staged upload blobs into the permanent library bucket.
package media

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseTLS        bool
	StagingBucket string
	LibraryBucket string
}

// ObjectStore promotes approved blobs from the staging bucket to the library
// bucket and discards rejected ones. Staged objects are keyed by file id.
type ObjectStore struct {
	client  *minio.Client
	staging string
	library string
}

func NewObjectStore(cfg Config) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	store := &ObjectStore{
		client:  client,
		staging: cfg.StagingBucket,
		library: cfg.LibraryBucket,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, bucket := range []string{cfg.StagingBucket, cfg.LibraryBucket} {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return store, nil
}

// CopyToLibrary copies a staged object into the library bucket under destKey.
// The staged object is left in place until RemoveStaged confirms the commit.
func (s *ObjectStore) CopyToLibrary(ctx context.Context, fileID, destKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.library, Object: destKey},
		minio.CopySrcOptions{Bucket: s.staging, Object: fileID},
	)
	if err != nil {
		return fmt.Errorf("copy %s to library: %w", fileID, err)
	}
	return nil
}

// RemoveFromLibrary deletes a previously copied library object. Used to roll
// back when the database commit fails after the copy.
func (s *ObjectStore) RemoveFromLibrary(ctx context.Context, destKey string) error {
	err := s.client.RemoveObject(ctx, s.library, destKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove library object %s: %w", destKey, err)
	}
	return nil
}

// RemoveStaged deletes the staged object for a committed or rejected file.
func (s *ObjectStore) RemoveStaged(ctx context.Context, fileID string) error {
	err := s.client.RemoveObject(ctx, s.staging, fileID, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove staged object %s: %w", fileID, err)
	}
	return nil
}

// SweepExpired removes staged objects whose pending rows have already
// expired server-side. Keys that are still pending are kept.
func (s *ObjectStore) SweepExpired(ctx context.Context, pendingIDs map[string]struct{}, olderThan time.Time) {
	for object := range s.client.ListObjects(ctx, s.staging, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			log.Printf("media: list staging objects: %v", object.Err)
			return
		}
		if _, stillPending := pendingIDs[object.Key]; stillPending {
			continue
		}
		if object.LastModified.After(olderThan) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.staging, object.Key, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("media: sweep staged object %s: %v", object.Key, err)
		}
	}
}
