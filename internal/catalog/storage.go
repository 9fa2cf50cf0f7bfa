package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Storage uploads artifacts to S3.
type Storage struct {
	client ObjectPutter
	bucket string
}

func NewStorage(client ObjectPutter, bucket string) *Storage {
	return &Storage{client: client, bucket: bucket}
}

// ObjectKey is {run id}/{stage}/{file}.
func ObjectKey(runID, stage, path string) string {
	return runID + "/" + stage + "/" + filepath.Base(path)
}

// Upload copies the file at path to S3 and returns its key and size.
func (s *Storage) Upload(ctx context.Context, runID, stage, path string) (key string, size int64, err error) {
	key = ObjectKey(runID, stage, path)

	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat artifact: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          f,
		ContentType:   aws.String(contentType(path)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", 0, fmt.Errorf("upload to s3: %w", err)
	}
	return key, info.Size(), nil
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".html":
		return "text/html; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
