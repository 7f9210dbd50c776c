package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/loomkg/loom/internal/util"
)

const s3KeyPrefix = "uploads"

// S3Store keeps uploaded files in an S3 bucket. Reads are cached and
// deduplicated, so repeated conversions of the same file hit the bucket
// once.
type S3Store struct {
	client *s3.Client
	bucket string

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3Client builds an S3 client from the AWS_* environment.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// NewS3Store creates an S3Store on the bucket from AWS_BUCKET.
func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{
		client: client,
		bucket: util.GetEnv("AWS_BUCKET"),
		cache:  make(map[string][]byte),
	}
}

func (s *S3Store) key(id string) string {
	return path.Join(s3KeyPrefix, id+".csv")
}

func (s *S3Store) Put(ctx context.Context, name string, content []byte) (File, error) {
	id, err := gonanoid.New()
	if err != nil {
		return File{}, fmt.Errorf("generate file id: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/csv"),
		Metadata:    map[string]string{"filename": name},
	})
	if err != nil {
		return File{}, fmt.Errorf("upload file to s3: %w", err)
	}

	return File{
		ID:         id,
		Name:       name,
		Size:       int64(len(content)),
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (s *S3Store) Get(ctx context.Context, id string) ([]byte, error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[id]; ok {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	result, err, _ := s.group.Do(id, func() (any, error) {
		s.cacheMu.RLock()
		if cached, ok := s.cache[id]; ok {
			s.cacheMu.RUnlock()
			return cached, nil
		}
		s.cacheMu.RUnlock()

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id)),
		})
		if err != nil {
			if strings.Contains(err.Error(), "NoSuchKey") {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get file from s3: %w", err)
		}
		defer out.Body.Close()

		content, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("read file contents: %w", err)
		}

		s.cacheMu.Lock()
		s.cache[id] = content
		s.cacheMu.Unlock()
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (s *S3Store) Stat(ctx context.Context, id string) (File, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("stat file in s3: %w", err)
	}

	name := id
	if filename, ok := head.Metadata["filename"]; ok && filename != "" {
		name = filename
	}

	return File{
		ID:         id,
		Name:       name,
		Size:       aws.ToInt64(head.ContentLength),
		UploadedAt: aws.ToTime(head.LastModified),
	}, nil
}

func (s *S3Store) List(ctx context.Context) ([]File, error) {
	files := make([]File, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s3KeyPrefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list files in s3: %w", err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			id := strings.TrimSuffix(path.Base(key), ".csv")

			name := id
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err == nil {
				if filename, ok := head.Metadata["filename"]; ok && filename != "" {
					name = filename
				}
			}

			files = append(files, File{
				ID:         id,
				Name:       name,
				Size:       aws.ToInt64(object.Size),
				UploadedAt: aws.ToTime(object.LastModified),
			})
		}
	}
	return files, nil
}

func (s *S3Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete file from s3: %w", err)
	}

	s.cacheMu.Lock()
	delete(s.cache, id)
	s.cacheMu.Unlock()
	return nil
}
