// Package aws_s3 stores attachment binaries in an S3 bucket, keyed by the
// attachment UUID. It is the alternative to the filesystem backend for
// deployments where servers don't share a disk.
package aws_s3

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	federation "github.com/federatedsec/federation"
)

// multipartPartSize is the part size used for multipart transfer of large
// attachments.
const multipartPartSize = 10 * 1024 * 1024

// FileStore is the S3 attachment store.
type FileStore struct {
	bucketName string
	client     *s3.Client
}

// NewFileStore connects using the ambient AWS SDK configuration.
func NewFileStore(ctx context.Context, bucketName string) (*FileStore, error) {
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		bucketName: bucketName,
		client:     s3.NewFromConfig(sdkConfig),
	}, nil
}

// NewFileStoreWithClient wraps an existing S3 client, e.g. one pointed at a
// minio endpoint in tests.
func NewFileStoreWithClient(client *s3.Client, bucketName string) *FileStore {
	return &FileStore{bucketName: bucketName, client: client}
}

// Write uploads the attachment via the multipart manager and returns the
// byte count.
func (f *FileStore) Write(ctx context.Context, id federation.UUID, r io.Reader) (int64, error) {
	counted := &countingReader{r: r}
	uploader := manager.NewUploader(f.client, func(u *manager.Uploader) {
		u.PartSize = multipartPartSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucketName),
		Key:    aws.String(id.String()),
		Body:   counted,
	})
	if err != nil {
		return 0, err
	}
	return counted.n, nil
}

// Read fetches the attachment object body.
func (f *FileStore) Read(ctx context.Context, id federation.UUID) (io.ReadCloser, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucketName),
		Key:    aws.String(id.String()),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// Remove deletes the attachment object. A missing object is a warning, not
// an error.
func (f *FileStore) Remove(ctx context.Context, id federation.UUID) error {
	_, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(f.bucketName),
		Key:    aws.String(id.String()),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			slog.Warn("attachment object already absent", "uuid", id.String())
			return nil
		}
		return err
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ federation.FileStore = (*FileStore)(nil)
