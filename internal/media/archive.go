// Package media archives narration audio in S3-compatible object storage.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

const wavContentType = "audio/wav"

var ErrEmptyNarration = errors.New("empty narration buffer")

// ObjectStore is the subset of *minio.Client the archive needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Archive stores each narration as <documentId>/<topic>.wav.
type Archive struct {
	store  ObjectStore
	bucket string
	log    logger.Logger
}

// Open connects to the object store and creates the bucket when missing.
func Open(ctx context.Context, opts Options, log logger.Logger) (*Archive, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewArchive(ctx, client, opts.Bucket, log)
}

func NewArchive(ctx context.Context, store ObjectStore, bucket string, log logger.Logger) (*Archive, error) {
	if log == nil {
		log = logger.NewNop()
	}
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		log.Info("media", "bucket created", map[string]any{"bucket": bucket})
	}
	return &Archive{store: store, bucket: bucket, log: log}, nil
}

func ObjectName(documentID string, topic catalog.Topic) string {
	return documentID + "/" + string(topic) + ".wav"
}

// Put uploads buf as a WAV file, replacing any earlier narration of the
// same section.
func (a *Archive) Put(ctx context.Context, documentID string, topic catalog.Topic, buf *playback.Buffer) error {
	if buf == nil || len(buf.PCM) == 0 {
		return ErrEmptyNarration
	}
	wav := buf.WAV()
	name := ObjectName(documentID, topic)
	_, err := a.store.PutObject(ctx, a.bucket, name, bytes.NewReader(wav), int64(len(wav)), minio.PutObjectOptions{
		ContentType: wavContentType,
		UserMetadata: map[string]string{
			"document": documentID,
			"topic":    string(topic),
		},
	})
	if err != nil {
		a.log.Error("media", "narration upload failed", map[string]any{"object": name, "error": err.Error()})
		return fmt.Errorf("put %s: %w", name, err)
	}
	a.log.Info("media", "narration archived", map[string]any{"object": name, "bytes": len(wav)})
	return nil
}

func (a *Archive) Remove(ctx context.Context, documentID string, topic catalog.Topic) error {
	name := ObjectName(documentID, topic)
	if err := a.store.RemoveObject(ctx, a.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		a.log.Warn("media", "narration removal failed", map[string]any{"object": name, "error": err.Error()})
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// URL returns a time-limited download link for the archived narration.
func (a *Archive) URL(ctx context.Context, documentID string, topic catalog.Topic, expiry time.Duration) (string, error) {
	name := ObjectName(documentID, topic)
	u, err := a.store.PresignedGetObject(ctx, a.bucket, name, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return u.String(), nil
}
