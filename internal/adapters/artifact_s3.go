package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// s3Repository reads maven layout objects from an S3 compatible bucket.
type s3Repository struct {
	client   *minio.Client
	bucket   string
	prefix   string
	region   string
	initOnce sync.Once
	initErr  error
}

func newS3Repository(bucket string, prefix string, opts S3Options) (*s3Repository, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("s3 endpoint is required for s3:// repositories")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("s3 repository bucket is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	var creds *credentials.Credentials
	access := strings.TrimSpace(opts.AccessKey)
	secret := strings.TrimSpace(opts.SecretKey)
	if access != "" && secret != "" {
		creds = credentials.NewStaticV4(access, secret, "")
	} else {
		creds = credentials.NewStaticV4("", "", "")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to init s3 client").
			WithCause(err)
	}
	return &s3Repository{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		region: region,
	}, nil
}

func (r *s3Repository) String() string {
	if r.prefix == "" {
		return "s3://" + r.bucket
	}
	return "s3://" + r.bucket + "/" + r.prefix
}

func (r *s3Repository) objectKey(rel string) string {
	rel = strings.TrimLeft(rel, "/")
	if r.prefix == "" {
		return rel
	}
	return r.prefix + "/" + rel
}

func (r *s3Repository) Open(ctx context.Context, rel string) (io.ReadCloser, bool, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, r.objectKey(rel), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	data, err := io.ReadAll(obj)
	obj.Close()
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", r.objectKey(rel), err)
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}

// Put uploads an object, creating the bucket on first use. It backs
// publishing of packaged mapping jars to an s3 mirror.
func (r *s3Repository) Put(ctx context.Context, rel string, content []byte) error {
	r.initOnce.Do(func() {
		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			r.initErr = err
			return
		}
		if exists {
			return
		}
		r.initErr = r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: r.region})
	})
	if r.initErr != nil {
		return fmt.Errorf("ensure bucket: %w", r.initErr)
	}
	_, err := r.client.PutObject(ctx, r.bucket, r.objectKey(rel), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/java-archive",
	})
	return err
}
