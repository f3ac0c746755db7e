// Package archive keeps a copy of every uploaded result list in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"

	"github.com/n0needt0/goodies/results-relay/internal/config"
)

const contentType = "text/xml; charset=utf-8"

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Archiver stores payloads under <event id>/<YYYY-MM-DD>/<unix nanos>.xml.
type S3Archiver struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

func NewS3Archiver(conf config.Archive) (*S3Archiver, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.Ssl,
		Region: conf.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 client")
	}

	return &S3Archiver{client: client, bucket: conf.BucketName, now: time.Now}, nil
}

// ObjectKey names the object for a payload archived at t.
func ObjectKey(eventID string, t time.Time) string {
	if eventID == "" {
		eventID = "unknown"
	}
	eventID = strings.ReplaceAll(eventID, "/", "_")
	t = t.UTC()
	return fmt.Sprintf("%s/%s/%d.xml", eventID, t.Format("2006-01-02"), t.UnixNano())
}

func (a *S3Archiver) Archive(ctx context.Context, eventID string, payload []byte) error {
	key := ObjectKey(eventID, a.now())

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrapf(err, "failed to put %s/%s", a.bucket, key)
	}

	log.Debugf("archived %d bytes to %s/%s", len(payload), a.bucket, key)
	return nil
}
