package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store keeps each path as one object in a bucket on any S3-compatible
// endpoint.
type S3Store struct {
	cli    *minio.Client
	bucket string
	prefix string
}

// OpenS3 takes a DSN of the form
//
//	s3://ACCESS:SECRET@host:9000/bucket[/prefix]?secure=true
//
// and creates the bucket if it does not exist.
func OpenS3(ctx context.Context, dsn string) (*S3Store, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse s3 dsn: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("s3 dsn must look like s3://key:secret@host/bucket")
	}
	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("s3 dsn has no bucket")
	}
	access := u.User.Username()
	secret, _ := u.User.Password()

	cli, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: u.Query().Get("secure") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	s := &S3Store{cli: cli, bucket: parts[0]}
	if len(parts) == 2 {
		s.prefix = strings.TrimSuffix(parts[1], "/") + "/"
	}

	exists, err := cli.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return s, nil
}

func (s *S3Store) key(path string) string { return s.prefix + path }

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *S3Store) Put(ctx context.Context, path string, data []byte) error {
	_, err := s.cli.PutObject(ctx, s.bucket, s.key(path), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/zstd"})
	if err != nil {
		return fmt.Errorf("put blob %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, path string) ([]byte, bool, error) {
	obj, err := s.cli.GetObject(ctx, s.bucket, s.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", path, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read blob %s: %w", path, err)
	}
	return data, true, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) (bool, error) {
	existed, err := s.Exists(ctx, path)
	if err != nil || !existed {
		return false, err
	}
	if err := s.cli.RemoveObject(ctx, s.bucket, s.key(path), minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("delete blob %s: %w", path, err)
	}
	return true, nil
}

func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.cli.StatObject(ctx, s.bucket, s.key(path), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %s: %w", path, err)
	}
	return true, nil
}

func (s *S3Store) Close() error { return nil }
