package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"nw_quizbot/internal/config"
)

// ObjectAPI is the subset of the S3 client the adapter uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Collection stores records as <path>/<collection>/<id> objects.
type S3Collection struct {
	name   string
	api    ObjectAPI
	bucket string
	prefix string
	limit  int
}

func NewS3Storage(ctx context.Context, cfg config.S3Config, concurrency int) (*Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &StorageError{Op: "open", Collection: "s3", Err: err}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StorageWithAPI(client, cfg.Bucket, cfg.Path, concurrency), nil
}

func NewS3StorageWithAPI(api ObjectAPI, bucket, root string, concurrency int) *Storage {
	col := func(name string) *S3Collection {
		return &S3Collection{
			name:   name,
			api:    api,
			bucket: bucket,
			prefix: strings.TrimPrefix(path.Join(root, name), "/") + "/",
			limit:  concurrency,
		}
	}
	return &Storage{
		Teams:    col(CollectionTeams),
		Users:    col(CollectionUsers),
		Channels: col(CollectionChannels),
	}
}

func (c *S3Collection) Get(ctx context.Context, id string) (Record, error) {
	if err := checkID(id); err != nil {
		return nil, &StorageError{Op: "get", Collection: c.name, ID: id, Err: err}
	}
	rec, err := c.getKey(ctx, c.prefix+id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Collection: c.name, ID: id, Err: err}
	}
	return rec, nil
}

func (c *S3Collection) getKey(ctx context.Context, key string) (Record, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func (c *S3Collection) Save(ctx context.Context, rec Record) error {
	id := rec.ID()
	if err := checkID(id); err != nil {
		return &StorageError{Op: "save", Collection: c.name, ID: id, Err: err}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "save", Collection: c.name, ID: id, Err: err}
	}
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.prefix + id),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &StorageError{Op: "save", Collection: c.name, ID: id, Err: err}
	}
	return nil
}

// All drains every listing page before fetching objects.
func (c *S3Collection) All(ctx context.Context) (map[string]Record, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &StorageError{Op: "all", Collection: c.name, Err: err}
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			keys = append(keys, strings.TrimPrefix(*obj.Key, c.prefix))
		}
	}

	return fetchAll(ctx, c.name, keys, c.limit, func(ctx context.Context, id string) (Record, error) {
		rec, err := c.getKey(ctx, c.prefix+id)
		if err != nil {
			return nil, &StorageError{Op: "get", Collection: c.name, ID: id, Err: err}
		}
		return rec, nil
	})
}
